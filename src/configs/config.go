package configs

import (
	"os"

	"gopkg.in/yaml.v3"
)

// TokenConfig Token配置
type TokenConfig struct {
	Token string `yaml:"token"`
}

// Config 主配置结构
type Config struct {
	Server struct {
		IP    string `yaml:"ip"`
		Port  int    `yaml:"port"`
		Token string `yaml:"token"` // JWT签名密钥
		Auth  struct {
			Enabled        bool          `yaml:"enabled"`
			AllowedClients []string      `yaml:"allowed_clients"`
			Tokens         []TokenConfig `yaml:"tokens"`
		} `yaml:"auth"`
	} `yaml:"server"`

	Log struct {
		LogFormat string `yaml:"log_format"`
		LogLevel  string `yaml:"log_level"`
		LogDir    string `yaml:"log_dir"`
		LogFile   string `yaml:"log_file"`
	} `yaml:"log"`

	Web struct {
		Port   int    `yaml:"port"`
		Origin string `yaml:"cors_origin"`
	} `yaml:"web"`

	SelectedModule map[string]string `yaml:"selected_module"`

	LLM       map[string]LLMConfig       `yaml:"LLM"`
	Annotator map[string]AnnotatorConfig `yaml:"Annotator"`

	Risk RiskConfig `yaml:"risk"`
}

// LLMConfig LLM配置结构
type LLMConfig struct {
	Type        string                 `yaml:"type"`
	ModelName   string                 `yaml:"model_name"`
	BaseURL     string                 `yaml:"url"`
	APIKey      string                 `yaml:"api_key"`
	Temperature *float64               `yaml:"temperature"` // 未配置时为nil，0 是合法取值
	MaxTokens   int                    `yaml:"max_tokens"`
	TopP        float64                `yaml:"top_p"`
	Extra       map[string]interface{} `yaml:",inline"`
}

// SecurityConfig 图片安全配置结构
type SecurityConfig struct {
	MaxFileSize    int64    `yaml:"max_file_size"`    // 最大文件大小（字节）
	MaxPixels      int64    `yaml:"max_pixels"`       // 最大像素数量
	MaxWidth       int      `yaml:"max_width"`        // 最大宽度
	MaxHeight      int      `yaml:"max_height"`       // 最大高度
	AllowedFormats []string `yaml:"allowed_formats"`  // 允许的图片格式
	EnableDeepScan bool     `yaml:"enable_deep_scan"` // 启用深度安全扫描
}

// AnnotatorConfig 图片标注服务配置
type AnnotatorConfig struct {
	Type            string  `yaml:"type"`             // google 或 vlllm
	CredentialsFile string  `yaml:"credentials_file"` // google 服务账号文件
	MaxResults      int     `yaml:"max_results"`      // 每类标注的最大条数
	ModelName       string  `yaml:"model_name"`       // vlllm 使用
	BaseURL         string  `yaml:"url"`              // vlllm 使用
	APIKey          string  `yaml:"api_key"`          // vlllm 使用
	Temperature     float64 `yaml:"temperature"`      // vlllm 使用
}

// RiskConfig 风险检查网关配置
type RiskConfig struct {
	Denylist        []string       `yaml:"denylist"`
	MatchMode       string         `yaml:"match_mode"` // substring 或 word
	MinLength       int            `yaml:"min_length"`
	Instruction     string         `yaml:"instruction"`
	Sentinel        string         `yaml:"sentinel"`
	UpstreamTimeout string         `yaml:"upstream_timeout"` // 例如 "30s"，空表示不限制
	RPM             int            `yaml:"rpm"`              // 每分钟上游调用上限，0表示不限制
	Burst           int            `yaml:"burst"`
	Security        SecurityConfig `yaml:"security"`
}

// LoadConfig 从文件加载配置，优先 .config.yaml，其次 config.yaml，都不存在时使用默认配置
func LoadConfig() (*Config, string, error) {
	for _, path := range []string{".config.yaml", "config.yaml"} {
		if _, err := os.Stat(path); err == nil {
			config, err := LoadConfigFrom(path)
			return config, path, err
		}
	}
	config, err := ParseConfig(nil)
	return config, "(默认配置)", err
}

// LoadConfigFrom 从指定路径加载配置，并补齐默认值和环境变量
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

// ParseConfig 解析yaml配置
func ParseConfig(data []byte) (*Config, error) {
	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}
	config.applyDefaults()
	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Web.Port == 0 {
		c.Web.Port = 8000
	}
	if c.Web.Origin == "" {
		c.Web.Origin = "*"
	}
	if c.Log.LogLevel == "" {
		c.Log.LogLevel = "info"
	}
	if c.Log.LogDir == "" {
		c.Log.LogDir = "logs"
	}
	if c.Log.LogFile == "" {
		c.Log.LogFile = "server.log"
	}
	if c.SelectedModule == nil {
		c.SelectedModule = map[string]string{}
	}
	if c.SelectedModule["LLM"] == "" {
		c.SelectedModule["LLM"] = "GroqLLM"
	}
	if c.SelectedModule["Annotator"] == "" {
		c.SelectedModule["Annotator"] = "GoogleVision"
	}
	if c.LLM == nil {
		c.LLM = map[string]LLMConfig{}
	}
	if _, ok := c.LLM["GroqLLM"]; !ok {
		c.LLM["GroqLLM"] = LLMConfig{
			Type:        "openai",
			ModelName:   "compound-beta",
			BaseURL:     "https://api.groq.com/openai/v1",
			Temperature: Float64(0.2),
		}
	}
	if c.Annotator == nil {
		c.Annotator = map[string]AnnotatorConfig{}
	}
	if _, ok := c.Annotator["GoogleVision"]; !ok {
		c.Annotator["GoogleVision"] = AnnotatorConfig{Type: "google"}
	}

	// 凭据只从环境变量补齐，缺失时不在启动阶段报错
	for name, llmCfg := range c.LLM {
		if llmCfg.APIKey == "" {
			llmCfg.APIKey = os.Getenv("GROQ_API_KEY")
			c.LLM[name] = llmCfg
		}
	}
	for name, annCfg := range c.Annotator {
		if annCfg.Type == "google" && annCfg.CredentialsFile == "" {
			annCfg.CredentialsFile = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
			c.Annotator[name] = annCfg
		}
	}

	sec := &c.Risk.Security
	if sec.MaxFileSize == 0 {
		sec.MaxFileSize = 10 * 1024 * 1024
	}
	if sec.MaxWidth == 0 {
		sec.MaxWidth = 8192
	}
	if sec.MaxHeight == 0 {
		sec.MaxHeight = 8192
	}
	if sec.MaxPixels == 0 {
		sec.MaxPixels = 40_000_000
	}
	if len(sec.AllowedFormats) == 0 {
		sec.AllowedFormats = []string{"jpeg", "jpg", "png", "gif", "webp", "bmp"}
	}
}

// SelectedLLM 返回当前选中的LLM名称和配置
func (c *Config) SelectedLLM() (string, LLMConfig, bool) {
	name := c.SelectedModule["LLM"]
	cfg, ok := c.LLM[name]
	return name, cfg, ok
}

// SelectedAnnotator 返回当前选中的图片标注服务名称和配置
func (c *Config) SelectedAnnotator() (string, AnnotatorConfig, bool) {
	name := c.SelectedModule["Annotator"]
	cfg, ok := c.Annotator[name]
	return name, cfg, ok
}

// Float64 返回指向v的指针，用于可选的数值配置项
func Float64(v float64) *float64 {
	return &v
}
