// Package config 负责加载服务配置：YAML 文件 + 环境变量覆盖。
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config 根配置。
// 来源优先级：
//  1. Load 传入的显式路径；
//  2. 环境变量 CONFIG_PATH；
//  3. 工作目录下的 ./local.yaml；
//  4. 仅环境变量。
//
// 读取文件之后总会再叠加一次环境变量。
type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	HTTP      HTTPConfig      `yaml:"http"`
	DB        DBConfig        `yaml:"db"`
	Session   SessionConfig   `yaml:"session"`
	Identity  IdentityConfig  `yaml:"identity"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Search    SearchConfig    `yaml:"search"`
	Tor       TorConfig       `yaml:"tor"`
	Content   ContentConfig   `yaml:"content"`
	Cache     CacheConfig     `yaml:"cache"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr" env:"HTTP_ADDR" env-default:":8080"`
	TemplatesDir    string        `yaml:"templates_dir" env:"TEMPLATES_DIR" env-default:"./web/templates"`
	StaticDir       string        `yaml:"static_dir" env:"STATIC_DIR" env-default:"./web/static"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

type DBConfig struct {
	URL string `yaml:"url" env:"DATABASE_URL" env-required:"true"`
}

type SessionConfig struct {
	Secret string `yaml:"secret" env:"SESSION_SECRET" env-default:"secret_key_change_me"`
}

// IdentityConfig 匿名身份相关。
// Scheme: fingerprint | address | both。both 表示过渡期，两种信号任一命中即视为同一投票人。
type IdentityConfig struct {
	Salt              string `yaml:"salt" env:"IDENTITY_SALT" env-default:""`
	Scheme            string `yaml:"scheme" env:"IDENTITY_SCHEME" env-default:"fingerprint"`
	TrustProxyHeaders bool   `yaml:"trust_proxy_headers" env:"TRUST_PROXY_HEADERS" env-default:"true"`
}

// RateLimitConfig 为空 RedisURL 时不限流。
type RateLimitConfig struct {
	RedisURL        string `yaml:"redis_url" env:"REDIS_URL" env-default:""`
	Burst           int    `yaml:"burst" env:"RATE_LIMIT_BURST" env-default:"20"`
	RefillPerMinute int    `yaml:"refill_per_min" env:"RATE_LIMIT_REFILL_PER_MIN" env-default:"10"`
}

type SearchConfig struct {
	MeiliURL    string `yaml:"meili_url" env:"MEILI_URL" env-default:""`
	MeiliAPIKey string `yaml:"meili_api_key" env:"MEILI_API_KEY" env-default:""`
}

type TorConfig struct {
	ProxyURL          string        `yaml:"proxy_url" env:"TOR_PROXY_URL" env-default:"socks5h://127.0.0.1:9050"`
	TitleFetchTimeout time.Duration `yaml:"title_fetch_timeout" env:"TITLE_FETCH_TIMEOUT" env-default:"15s"`
}

type ContentConfig struct {
	MaxCommentDepth int  `yaml:"max_comment_depth" env:"MAX_COMMENT_DEPTH" env-default:"10"`
	ASCIIOnly       bool `yaml:"ascii_only" env:"ASCII_ONLY" env-default:"false"`
}

type CacheConfig struct {
	Size int           `yaml:"size" env:"CACHE_SIZE" env-default:"500"`
	TTL  time.Duration `yaml:"ttl" env:"CACHE_TTL" env-default:"30s"`
}

// MustLoad 同 Load，出错直接 panic。
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load 按优先级加载配置并校验。
func Load(path string) (*Config, error) {
	var cfg Config

	readFile := func(p string) error {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("config file %q stat failed: %w", p, err)
		}
		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
		// ReadConfig 已经叠加过 ENV，这里保持显式
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return fmt.Errorf("failed to overlay env: %w", err)
		}
		return nil
	}

	switch {
	case path != "":
		if err := readFile(path); err != nil {
			return nil, err
		}
	case os.Getenv("CONFIG_PATH") != "":
		if err := readFile(os.Getenv("CONFIG_PATH")); err != nil {
			return nil, err
		}
	default:
		if _, err := os.Stat("local.yaml"); err == nil {
			if err := readFile("local.yaml"); err != nil {
				return nil, err
			}
		} else if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config not found: provide CONFIG_PATH, local.yaml or env vars: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DB.URL == "" {
		return fmt.Errorf("db.url is required")
	}

	switch strings.ToLower(c.Identity.Scheme) {
	case "fingerprint", "address", "both":
		c.Identity.Scheme = strings.ToLower(c.Identity.Scheme)
	default:
		return fmt.Errorf("identity.scheme must be one of fingerprint, address, both (got %q)", c.Identity.Scheme)
	}

	if c.Identity.Scheme != "fingerprint" && c.Identity.Salt == "" {
		return fmt.Errorf("identity.salt is required when address hashing is used")
	}

	if c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate_limit.burst must be > 0")
	}
	if c.RateLimit.RefillPerMinute <= 0 {
		return fmt.Errorf("rate_limit.refill_per_min must be > 0")
	}

	if c.Content.MaxCommentDepth <= 0 {
		return fmt.Errorf("content.max_comment_depth must be > 0")
	}
	if c.Content.MaxCommentDepth > 32 {
		return fmt.Errorf("content.max_comment_depth is too large (<= 32)")
	}

	if c.Tor.TitleFetchTimeout <= 0 {
		return fmt.Errorf("tor.title_fetch_timeout must be > 0")
	}
	if c.Tor.ProxyURL != "" {
		if _, err := url.Parse(c.Tor.ProxyURL); err != nil {
			return fmt.Errorf("tor.proxy_url is invalid: %w", err)
		}
	}

	if c.Cache.Size <= 0 {
		return fmt.Errorf("cache.size must be > 0")
	}

	return nil
}
