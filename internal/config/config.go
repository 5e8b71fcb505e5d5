package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix 环境变量前缀，如 SHORTURL_SERVER_PORT
const EnvPrefix = "SHORTURL"

// 主配置结构
type Config struct {
	App       App       `yaml:"app"`
	Server    Server    `yaml:"server"`
	Log       Log       `yaml:"log"`
	CORS      CORS      `yaml:"cors"`
	Cache     Cache     `yaml:"cache"`
	Geo       Geo       `yaml:"geo"`
	Archive   Archive   `yaml:"archive"`
	RemoteLog RemoteLog `yaml:"remote_log" envconfig:"remote_log"`
}

// 应用配置
type App struct {
	Name            string `yaml:"name"`
	Mode            string `yaml:"mode"`
	Version         string `yaml:"version"`
	BaseURL         string `yaml:"base_url" envconfig:"base_url"`
	DefaultValidity int    `yaml:"default_validity" envconfig:"default_validity"` // 分钟
}

// 服务器配置
type Server struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"shutdown_timeout"`
	TrustedProxies  []string      `yaml:"trusted_proxies" envconfig:"trusted_proxies"` // 为空时不信任代理头
}

// 日志配置
type Log struct {
	Level      string `yaml:"level"`
	Filename   string `yaml:"filename"`
	MaxSize    int    `yaml:"max_size" envconfig:"max_size"`
	MaxBackups int    `yaml:"max_backups" envconfig:"max_backups"`
	MaxAge     int    `yaml:"max_age" envconfig:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// 跨域配置
type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins" envconfig:"allowed_origins"`
}

// 缓存配置（Redis），Host 为空表示不启用
type Cache struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// 地理位置配置，DatabasePath 为空表示不解析
type Geo struct {
	DatabasePath  string        `yaml:"database_path" envconfig:"database_path"`
	LookupTimeout time.Duration `yaml:"lookup_timeout" envconfig:"lookup_timeout"`
	CacheTTL      time.Duration `yaml:"cache_ttl" envconfig:"cache_ttl"`
}

// 归档配置
type Archive struct {
	Enabled    bool   `yaml:"enabled"`
	Driver     string `yaml:"driver"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	Name       string `yaml:"name"`
	BufferSize int    `yaml:"buffer_size" envconfig:"buffer_size"`
}

// 远程日志配置
type RemoteLog struct {
	Enabled  bool          `yaml:"enabled"`
	Endpoint string        `yaml:"endpoint"`
	Token    string        `yaml:"token"`
	Stack    string        `yaml:"stack"`
	Level    string        `yaml:"level"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Default 内置默认值
func Default() Config {
	return Config{
		App: App{
			Name:            "shorturl-analytics",
			Mode:            "development",
			DefaultValidity: 30,
		},
		Server: Server{
			Port:            3000,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Log: Log{
			Level:      "info",
			Filename:   "./logs/app.log",
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     30,
		},
		CORS: CORS{AllowedOrigins: []string{"http://localhost:3000"}},
		Geo: Geo{
			LookupTimeout: 200 * time.Millisecond,
			CacheTTL:      24 * time.Hour,
		},
		Archive: Archive{
			Driver:     "sqlite",
			Name:       "./data/archive.db",
			BufferSize: 1024,
		},
		RemoteLog: RemoteLog{
			Stack:   "backend",
			Level:   "info",
			Timeout: 3 * time.Second,
		},
	}
}

// Load 加载配置：默认值 -> YAML 文件 -> 环境变量
// path 为空或文件不存在时跳过文件
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("解析配置文件失败: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, err
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("读取环境变量失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置无效: %w", err)
	}
	return &cfg, nil
}

var validArchiveDrivers = map[string]bool{"sqlite": true, "mysql": true, "postgres": true}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("端口无效: %d", c.Server.Port)
	}
	if c.App.DefaultValidity < 1 || c.App.DefaultValidity > 24*60 {
		return fmt.Errorf("默认有效期必须在 1..1440 分钟之间: %d", c.App.DefaultValidity)
	}
	if c.Archive.Enabled && !validArchiveDrivers[c.Archive.Driver] {
		return fmt.Errorf("不支持的归档驱动: %s", c.Archive.Driver)
	}
	if c.RemoteLog.Enabled {
		if c.RemoteLog.Endpoint == "" {
			return errors.New("启用远程日志时必须配置 endpoint")
		}
		if c.RemoteLog.Token == "" {
			return errors.New("启用远程日志时必须配置 token")
		}
	}
	return nil
}
