package client

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Input 一次检查的输入，只能是文本或图片之一
type Input interface {
	isInput()
}

// TextInput 文本描述
type TextInput struct {
	Prompt string
}

// ImageInput 图片文件，Name 只用于历史记录展示
type ImageInput struct {
	Name string
	Data []byte
}

func (TextInput) isInput()  {}
func (ImageInput) isInput() {}

// ImageFromFile 读取本地图片
func ImageFromFile(path string) (ImageInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImageInput{}, fmt.Errorf("读取图片失败: %w", err)
	}
	return ImageInput{Name: filepath.Base(path), Data: data}, nil
}

// DataURL 按内容识别MIME类型并编码为 data URL
func (in ImageInput) DataURL() string {
	mime := http.DetectContentType(in.Data)
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(in.Data)
}
