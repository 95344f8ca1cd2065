package configs

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		HTTPAddr string `koanf:"http_addr"`
		LogLevel string `koanf:"log_level"`
		LogFile  string `koanf:"log_file"`
	} `koanf:"app"`

	HTTP struct {
		ReadTimeout  time.Duration `koanf:"read_timeout"`
		WriteTimeout time.Duration `koanf:"write_timeout"`
		IdleTimeout  time.Duration `koanf:"idle_timeout"`
	} `koanf:"http"`

	// Upstream order and credit services (plain REST, bearer auth).
	Upstream struct {
		OrderBaseURL  string        `koanf:"order_base_url"`
		CreditBaseURL string        `koanf:"credit_base_url"`
		BearerToken   string        `koanf:"bearer_token"`
		Timeout       time.Duration `koanf:"timeout"`
		MaxRetries    int           `koanf:"max_retries"`
	} `koanf:"upstream"`

	Journal struct {
		Path string `koanf:"path"`
	} `koanf:"journal"`

	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
	} `koanf:"redis"`

	Rabbit struct {
		URL string `koanf:"url"`
	} `koanf:"rabbit"`

	Kafka struct {
		Brokers []string `koanf:"brokers"`
		GroupID string   `koanf:"group_id"`
		Topic   string   `koanf:"topic"`
	} `koanf:"kafka"`

	Idempotency struct {
		TTL time.Duration `koanf:"ttl"`
	} `koanf:"idempotency"`

	Cache struct {
		TTL time.Duration `koanf:"ttl"`
	} `koanf:"cache"`

	Security struct {
		JWTSecret string        `koanf:"jwt_secret"`
		Issuer    string        `koanf:"issuer"`
		Audience  string        `koanf:"audience"`
		TTL       time.Duration `koanf:"ttl"`
	} `koanf:"security"`
}

func Load(pathDir, envName string) (Config, error) {
	k := koanf.New(".")
	// 1) base
	if err := k.Load(file.Provider(fmt.Sprintf("%s/base.yaml", pathDir)), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load base: %w", err)
	}

	// 2) env override (dev/staging/prod). Optional: allow missing for local runs.
	_ = k.Load(file.Provider(fmt.Sprintf("%s/%s.yaml", pathDir, envName)), yaml.Parser())

	// 3) environment variables override (prefix RECONAPI_, nested with __)
	// e.g. RECONAPI_UPSTREAM__BEARER_TOKEN, RECONAPI_REDIS__PASSWORD
	if err := k.Load(env.Provider("RECONAPI_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "RECONAPI_")
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.App.HTTPAddr == "" {
		return fmt.Errorf("app.http_addr required")
	}
	if c.Upstream.OrderBaseURL == "" {
		return fmt.Errorf("upstream.order_base_url required")
	}
	if c.Upstream.CreditBaseURL == "" {
		return fmt.Errorf("upstream.credit_base_url required")
	}
	if c.Journal.Path == "" {
		return fmt.Errorf("journal.path required")
	}
	return nil
}
