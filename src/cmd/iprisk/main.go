package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"ip-risk-server-go/src/client"
)

func main() {
	server := flag.String("server", "http://localhost:8000", "服务地址")
	text := flag.String("text", "", "要检查的文本描述")
	imagePath := flag.String("image", "", "要检查的图片路径")
	token := flag.String("token", os.Getenv("IPRISK_TOKEN"), "Bearer 令牌")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := client.New(*server, client.WithToken(*token))

	if *text != "" && *imagePath != "" {
		fmt.Fprintln(os.Stderr, "-text 和 -image 只能指定一个")
		os.Exit(2)
	}

	if *text != "" || *imagePath != "" {
		in, err := parseInput(*text, *imagePath)
		if err == nil {
			err = runOnce(ctx, c, in, os.Stdout)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", describe(err))
			os.Exit(1)
		}
		return
	}

	interactive(ctx, c, os.Stdin, os.Stdout)
}

func parseInput(text, imagePath string) (client.Input, error) {
	if imagePath != "" {
		return client.ImageFromFile(imagePath)
	}
	return client.TextInput{Prompt: text}, nil
}

func runOnce(ctx context.Context, c *client.Client, in client.Input, out io.Writer) error {
	res, err := c.Check(ctx, in)
	if err != nil {
		return err
	}
	printResult(out, res)
	return nil
}

// interactive 以 @ 开头的行为图片路径，:history 查看历史，:quit 退出
func interactive(ctx context.Context, c *client.Client, in io.Reader, out io.Writer) {
	fmt.Fprintln(out, "输入描述文本，或 @<图片路径>；:history 查看历史，:quit 退出")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() || ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == ":quit":
			return
		case line == ":history":
			printHistory(out, c.History().Entries())
			continue
		}

		var input client.Input = client.TextInput{Prompt: line}
		if path, ok := strings.CutPrefix(line, "@"); ok {
			img, err := client.ImageFromFile(strings.TrimSpace(path))
			if err != nil {
				fmt.Fprintln(out, "Error:", err)
				continue
			}
			input = img
		}

		if err := runOnce(ctx, c, input, out); err != nil {
			fmt.Fprintln(out, "Error:", describe(err))
		}
	}
}

func describe(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

func printResult(out io.Writer, res *client.Result) {
	fmt.Fprintf(out, "Risk: %d%% (%s)\n", res.RiskLevel, res.Severity())
	if len(res.DetectedItems) > 0 {
		fmt.Fprintf(out, "Detected: %s\n", strings.Join(res.DetectedItems, ", "))
	}
	fmt.Fprintf(out, "Explanation: %s\n", res.Explanation)
}

func printHistory(out io.Writer, entries []client.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "(no history)")
		return
	}
	for i, e := range entries {
		fmt.Fprintf(out, "%d. [%s] %s: %d%% (%s)\n", i+1, e.Type, e.Prompt, e.RiskLevel, client.SeverityOf(e.RiskLevel))
	}
}
