package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/browserwing/locator/pkg/logger"
	"github.com/browserwing/locator/pkg/textmatch"
	"github.com/pelletier/go-toml/v2"
)

// 候选元素来源
const (
	CandidateSourceDOM           = "dom"           // CSS 选择器查询
	CandidateSourceAccessibility = "accessibility" // Accessibility Tree
)

type Config struct {
	Debug    bool                 `json:"debug" toml:"debug"`
	Server   *ServerConfig        `json:"server" toml:"server"`
	Database *DatabaseConfig      `json:"database" toml:"database"`
	Browser  *BrowserConfig       `json:"browser" toml:"browser"`
	Matcher  *MatcherConfig       `json:"matcher" toml:"matcher"`
	Log      *logger.LoggerConfig `json:"log,omitempty" toml:"log,omitempty"`
}

type ServerConfig struct {
	Port    string `json:"port" toml:"port"`
	Host    string `json:"host" toml:"host"`
	MCPPort string `json:"mcp_port,omitempty" toml:"mcp_port,omitempty"` // 为空时不启动 MCP HTTP 服务
	APIKey  string `json:"api_key,omitempty" toml:"api_key,omitempty"`   // 非空时 /api/v1 需要 X-BrowserWing-Key
}

type DatabaseConfig struct {
	Path string `json:"path" toml:"path"`
}

type BrowserConfig struct {
	ControlURL      string `json:"control_url" toml:"control_url"`           // DevTools 地址，ws://... 或 host:port
	CandidateSource string `json:"candidate_source" toml:"candidate_source"` // dom | accessibility
	TimeoutSeconds  int    `json:"timeout_seconds" toml:"timeout_seconds"`
	MaxTextLength   int    `json:"max_text_length" toml:"max_text_length"` // 列出元素时的文本截断长度（字符），不影响匹配
}

// MatcherConfig 文本匹配相关配置
type MatcherConfig struct {
	FuzzyThreshold float64 `json:"fuzzy_threshold" toml:"fuzzy_threshold"`
	CaseSensitive  bool    `json:"case_sensitive" toml:"case_sensitive"`
	AutoActScore   float64 `json:"auto_act_score" toml:"auto_act_score"` // 多个结果时，最高分不低于该值才自动操作
}

// TextMatch 转换为匹配器配置
func (m *MatcherConfig) TextMatch() textmatch.Config {
	return textmatch.Config{
		FuzzyThreshold: m.FuzzyThreshold,
		CaseSensitive:  m.CaseSensitive,
	}
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Server: &ServerConfig{
			Port: "8080",
			Host: "127.0.0.1",
		},
		Database: &DatabaseConfig{
			Path: "./data/locator.db",
		},
		Browser: &BrowserConfig{
			CandidateSource: CandidateSourceDOM,
			TimeoutSeconds:  10,
			MaxTextLength:   100,
		},
		Matcher: &MatcherConfig{
			FuzzyThreshold: textmatch.DefaultFuzzyThreshold,
			AutoActScore:   0.9,
		},
		Log: &logger.LoggerConfig{
			Level: "info",
			File:  "./log/locator.log",
		},
	}
}

// Load 读取配置文件；文件不存在时写出默认配置并返回
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if dir := filepath.Dir(path); dir != "" {
			_ = os.MkdirAll(dir, 0o755)
		}
		if cfgData, err := toml.Marshal(cfg); err == nil {
			_ = os.WriteFile(path, cfgData, 0o644)
		}
	} else if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.fillDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fillDefaults 配置文件中整段缺失时补齐
func (c *Config) fillDefaults() {
	def := Default()
	if c.Server == nil {
		c.Server = def.Server
	}
	if c.Database == nil {
		c.Database = def.Database
	}
	if c.Browser == nil {
		c.Browser = def.Browser
	}
	if c.Browser.CandidateSource == "" {
		c.Browser.CandidateSource = CandidateSourceDOM
	}
	if c.Browser.TimeoutSeconds <= 0 {
		c.Browser.TimeoutSeconds = def.Browser.TimeoutSeconds
	}
	if c.Browser.MaxTextLength <= 0 {
		c.Browser.MaxTextLength = def.Browser.MaxTextLength
	}
	if c.Matcher == nil {
		c.Matcher = def.Matcher
	}
	if c.Log == nil {
		c.Log = &logger.LoggerConfig{
			Level:      "info",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
		}
	}
}

// applyEnv 环境变量覆盖配置文件
func (c *Config) applyEnv() {
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Port = port
	}
	if host := os.Getenv("HOST"); host != "" {
		c.Server.Host = host
	}
	if apiKey := os.Getenv("BROWSERWING_API_KEY"); apiKey != "" {
		c.Server.APIKey = apiKey
	}
	if controlURL := os.Getenv("CHROME_CONTROL_URL"); controlURL != "" {
		c.Browser.ControlURL = controlURL
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if err := c.Matcher.TextMatch().Validate(); err != nil {
		return err
	}
	if c.Matcher.AutoActScore < 0 || c.Matcher.AutoActScore > 1 {
		return fmt.Errorf("%w: auto_act_score %v outside [0, 1]", textmatch.ErrInvalidConfig, c.Matcher.AutoActScore)
	}
	switch c.Browser.CandidateSource {
	case CandidateSourceDOM, CandidateSourceAccessibility:
	default:
		return errors.New("unknown browser.candidate_source: " + c.Browser.CandidateSource)
	}
	return nil
}
