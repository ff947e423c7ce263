package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Consul    ConsulConfig    `json:"consul"`
	Jaeger    JaegerConfig    `json:"jaeger"`
	Auth      AuthConfig      `json:"auth"`
	SMTP      SMTPConfig      `json:"smtp"`
	Retention RetentionConfig `json:"retention"`
	Log       LogConfig       `json:"log"`
}

// ServerConfig 服务配置
type ServerConfig struct {
	Name        string   `json:"name"`         // 服务名称
	Host        string   `json:"host"`         // 服务地址
	Port        int      `json:"port"`         // HTTP端口
	BaseURL     string   `json:"base_url"`     // 注册邮件回链使用的外部地址
	CORSOrigins []string `json:"cors_origins"` // 允许的前端来源
	RateLimit   int64    `json:"rate_limit"`   // 每秒允许的请求数，0 表示不限流
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver   string `json:"driver"`   // 数据库驱动
	Host     string `json:"host"`     // 数据库地址
	Port     int    `json:"port"`     // 数据库端口
	User     string `json:"user"`     // 用户名
	Password string `json:"password"` // 密码
	Database string `json:"database"` // 数据库名
	MaxIdle  int    `json:"max_idle"` // 最大空闲连接
	MaxOpen  int    `json:"max_open"` // 最大打开连接
}

// ConsulConfig Consul配置
type ConsulConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// JaegerConfig Jaeger配置
type JaegerConfig struct {
	Endpoint string  `json:"endpoint"`
	Sampler  float64 `json:"sampler"` // 采样率 0.0-1.0
}

// AuthConfig 鉴权配置
type AuthConfig struct {
	Enabled             bool     `json:"enabled"`
	JWTSecret           string   `json:"jwt_secret"`
	Issuer              string   `json:"issuer"`
	Audience            string   `json:"audience"`
	AccessTokenTTLHours int      `json:"access_token_ttl_hours"` // 默认 24
	RegisterTTLMinutes  int      `json:"register_ttl_minutes"`   // 注册链接有效期，默认 10
	PublicPaths         []string `json:"public_paths"`           // 免鉴权路径
}

// SMTPConfig 注册邮件发送配置
type SMTPConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	User string `json:"user"`
	Pass string `json:"pass"`
	From string `json:"from"`
}

// RetentionConfig 审计日志保留上限
type RetentionConfig struct {
	ChangelogPerUser int64 `json:"changelog_per_user"` // 每用户变更记录上限
	AppLogTotal      int64 `json:"app_log_total"`      // 全局应用日志上限
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
	Output string `json:"output"` // stdout, file
	Path   string `json:"path"`   // 日志文件路径
}

var (
	globalConfig *Config
	configOnce   sync.Once
)

// LoadConfig 加载配置
func LoadConfig(configPath string) (*Config, error) {
	var err error
	configOnce.Do(func() {
		globalConfig = &Config{}
		// 如果配置文件不存在，使用默认配置
		if _, err = os.Stat(configPath); os.IsNotExist(err) {
			logrus.Warnf("Config file not found: %s, using default config", configPath)
			globalConfig = defaultConfig()
			err = nil
			return
		}

		data, readErr := os.ReadFile(configPath)
		if readErr != nil {
			err = fmt.Errorf("failed to read config file: %w", readErr)
			return
		}

		if unmarshalErr := json.Unmarshal(data, globalConfig); unmarshalErr != nil {
			err = fmt.Errorf("failed to parse config file: %w", unmarshalErr)
			return
		}
		applyDefaults(globalConfig)
	})

	if err != nil {
		return nil, err
	}

	return globalConfig, nil
}

// GetConfig 获取全局配置
func GetConfig() *Config {
	if globalConfig == nil {
		return defaultConfig()
	}
	return globalConfig
}

// applyDefaults 为缺省字段补默认值（保留上限等不允许为 0）。
func applyDefaults(cfg *Config) {
	if cfg.Retention.ChangelogPerUser <= 0 {
		cfg.Retention.ChangelogPerUser = 1000
	}
	if cfg.Retention.AppLogTotal <= 0 {
		cfg.Retention.AppLogTotal = 100000
	}
	if cfg.Auth.AccessTokenTTLHours <= 0 {
		cfg.Auth.AccessTokenTTLHours = 24
	}
	if cfg.Auth.RegisterTTLMinutes <= 0 {
		cfg.Auth.RegisterTTLMinutes = 10
	}
}

// defaultConfig 默认配置（开发环境）
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Name:        "autohub-server",
			Host:        "0.0.0.0",
			Port:        8080,
			BaseURL:     "http://localhost:8080",
			CORSOrigins: []string{"http://localhost:5173"},
			RateLimit:   100,
		},
		Database: DatabaseConfig{
			Driver:   "mysql",
			Host:     "localhost",
			Port:     3306,
			User:     "root",
			Password: "root",
			Database: "autohub",
			MaxIdle:  10,
			MaxOpen:  100,
		},
		Consul: ConsulConfig{
			Host: "localhost",
			Port: 8500,
		},
		Jaeger: JaegerConfig{
			Endpoint: "http://localhost:14268/api/traces",
			Sampler:  1.0,
		},
		Auth: AuthConfig{
			Enabled:             true,
			JWTSecret:           "dev-secret-change-me",
			Issuer:              "autohub",
			Audience:            "autohub",
			AccessTokenTTLHours: 24,
			RegisterTTLMinutes:  10,
			PublicPaths: []string{
				"/healthz",
				"/api/auth/register",
				"/api/auth/login",
			},
		},
		SMTP: SMTPConfig{
			Host: "localhost",
			Port: 25,
			From: "no-reply@autohub.local",
		},
		Retention: RetentionConfig{
			ChangelogPerUser: 1000,
			AppLogTotal:      100000,
		},
		Log: LogConfig{
			Level:  "debug",
			Format: "text",
			Output: "stdout",
			Path:   "logs/app.log",
		},
	}
}
