package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

const envConfigPath = "MASKBRUSH_CONFIG"

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Remote  RemoteConfig  `mapstructure:"remote"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Upload  UploadConfig  `mapstructure:"upload"`
	Brush   BrushConfig   `mapstructure:"brush"`
	Session SessionConfig `mapstructure:"session"`
	View    ViewConfig    `mapstructure:"view"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// RemoteConfig 外部分割/抠图服务
type RemoteConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	PromptsEnabled bool          `mapstructure:"prompts_enabled"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type UploadConfig struct {
	MaxSize      int64    `mapstructure:"max_size"`
	MaxDimension int      `mapstructure:"max_dimension"`
	AllowedTypes []string `mapstructure:"allowed_types"`
}

type BrushConfig struct {
	MinDiameter     int `mapstructure:"min_diameter"`
	MaxDiameter     int `mapstructure:"max_diameter"`
	DefaultDiameter int `mapstructure:"default_diameter"`
}

type SessionConfig struct {
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	SweepSpec   string        `mapstructure:"sweep_spec"`
}

type ViewConfig struct {
	CheckerSize int `mapstructure:"checker_size"`
}

// Load 从 YAML 文件加载配置
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// New 加载 MASKBRUSH_CONFIG 或 config.yaml，失败时返回默认配置
func New() *Config {
	path := os.Getenv(envConfigPath)
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := Load(path)
	if err != nil {
		return Default()
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)

	v.SetDefault("remote.base_url", d.Remote.BaseURL)
	v.SetDefault("remote.timeout", d.Remote.Timeout)
	v.SetDefault("remote.prompts_enabled", d.Remote.PromptsEnabled)

	v.SetDefault("redis.enabled", d.Redis.Enabled)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.ttl", d.Redis.TTL)

	v.SetDefault("upload.max_size", d.Upload.MaxSize)
	v.SetDefault("upload.max_dimension", d.Upload.MaxDimension)
	v.SetDefault("upload.allowed_types", d.Upload.AllowedTypes)

	v.SetDefault("brush.min_diameter", d.Brush.MinDiameter)
	v.SetDefault("brush.max_diameter", d.Brush.MaxDiameter)
	v.SetDefault("brush.default_diameter", d.Brush.DefaultDiameter)

	v.SetDefault("session.idle_timeout", d.Session.IdleTimeout)
	v.SetDefault("session.sweep_spec", d.Session.SweepSpec)

	v.SetDefault("view.checker_size", d.View.CheckerSize)
}

// Default 内置默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         ":8080",
			Mode:         "debug",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 3 * time.Minute,
		},
		Remote: RemoteConfig{
			BaseURL:        "http://127.0.0.1:5000",
			Timeout:        2 * time.Minute,
			PromptsEnabled: true,
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
			TTL:     24 * time.Hour,
		},
		Upload: UploadConfig{
			MaxSize:      10 * 1024 * 1024,
			MaxDimension: 1024,
			AllowedTypes: []string{"image/jpeg", "image/png", "image/jpg", "image/webp", "image/bmp", "image/gif"},
		},
		Brush: BrushConfig{
			MinDiameter:     5,
			MaxDiameter:     80,
			DefaultDiameter: 20,
		},
		Session: SessionConfig{
			IdleTimeout: 30 * time.Minute,
			SweepSpec:   "@every 1m",
		},
		View: ViewConfig{
			CheckerSize: 10,
		},
	}
}
