package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"ip-risk-server-go/src/configs"
	"ip-risk-server-go/src/core/auth"
)

// 使用 server.token 为客户端签发访问令牌
func main() {
	clientID := flag.String("client", "cli", "写入令牌的客户端ID")
	ttl := flag.Duration("ttl", 24*time.Hour, "令牌有效期")
	flag.Parse()

	config, _, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "加载配置失败:", err)
		os.Exit(1)
	}

	token, err := auth.NewAuthToken(config.Server.Token).WithTTL(*ttl).GenerateToken(*clientID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "签发令牌失败:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
