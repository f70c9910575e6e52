package annotator

import (
	"fmt"

	"ip-risk-server-go/src/configs"
	"ip-risk-server-go/src/core/types"
	"ip-risk-server-go/src/core/utils"
)

// ServiceName 图片标注服务在错误和指标中的名称
const ServiceName = "annotation"

// Config 图片标注提供者配置
type Config struct {
	Type            string
	CredentialsFile string
	MaxResults      int
	ModelName       string
	BaseURL         string
	APIKey          string
	Temperature     float64
}

// Factory 图片标注工厂函数类型
type Factory func(config *Config, logger *utils.Logger) (types.AnnotatorProvider, error)

var (
	factories = make(map[string]Factory)
)

// Register 注册图片标注提供者工厂
func Register(name string, factory Factory) {
	factories[name] = factory
}

// Create 创建图片标注提供者实例
func Create(name string, annCfg *configs.AnnotatorConfig, logger *utils.Logger) (types.AnnotatorProvider, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("未知的图片标注提供者: %s", name)
	}

	// 转换配置格式
	config := &Config{
		Type:            annCfg.Type,
		CredentialsFile: annCfg.CredentialsFile,
		MaxResults:      annCfg.MaxResults,
		ModelName:       annCfg.ModelName,
		BaseURL:         annCfg.BaseURL,
		APIKey:          annCfg.APIKey,
		Temperature:     annCfg.Temperature,
	}

	provider, err := factory(config, logger)
	if err != nil {
		return nil, fmt.Errorf("创建图片标注提供者失败: %v", err)
	}

	if err := provider.Initialize(); err != nil {
		return nil, fmt.Errorf("初始化图片标注提供者失败: %v", err)
	}

	logger.Debug("图片标注提供者创建成功", map[string]interface{}{
		"name": name,
		"type": config.Type,
	})

	return provider, nil
}

// GetRegisteredProviders 获取已注册的提供者列表
func GetRegisteredProviders() []string {
	var names []string
	for name := range factories {
		names = append(names, name)
	}
	return names
}
