package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host            string        `yaml:"host"`
		Port            int           `yaml:"port"`
		Env             string        `yaml:"env"`
		RequestTimeout  time.Duration `yaml:"request_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Database struct {
		Driver string `yaml:"driver"` // postgres, mysql, memory
		DSN    string `yaml:"url"`
	} `yaml:"database"`

	JWT struct {
		AccessSecret  string        `yaml:"access_secret"`
		AccessTTL     time.Duration `yaml:"access_ttl"`
		RefreshSecret string        `yaml:"refresh_secret"`
		RefreshTTL    time.Duration `yaml:"refresh_ttl"`
		Issuer        string        `yaml:"issuer"`
	} `yaml:"jwt"`

	Email struct {
		Driver       string        `yaml:"driver"` // smtp, log
		SMTPHost     string        `yaml:"smtp_host"`
		SMTPPort     int           `yaml:"smtp_port"`
		SMTPUsername string        `yaml:"smtp_user"`
		SMTPPassword string        `yaml:"smtp_password"`
		FromEmail    string        `yaml:"from_email"`
		FromName     string        `yaml:"from_name"`
		UseSSL       bool          `yaml:"use_ssl"`
		SendTimeout  time.Duration `yaml:"send_timeout"`
		TemplatesDir string        `yaml:"templates_dir"` // переопределяет встроенные шаблоны
	} `yaml:"email"`

	Links struct {
		ProjectName             string `yaml:"project_name"`
		AccountConfirmation     string `yaml:"account_confirmation"`
		EmailChangeConfirmation string `yaml:"email_change_confirmation"`
		ResetPassword           string `yaml:"reset_password"`
	} `yaml:"links"`

	RateLimit struct {
		Enabled           bool `yaml:"enabled"`
		RequestsPerMinute int  `yaml:"requests_per_minute"`
		Burst             int  `yaml:"burst"`
	} `yaml:"rate_limit"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
}

var AppConfig *Config

// Default returns a config with every optional value filled in.
func Default() *Config {
	var cfg Config

	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 5000
	cfg.Server.Env = "development"
	cfg.Server.RequestTimeout = 15 * time.Second
	cfg.Server.ShutdownTimeout = 10 * time.Second

	cfg.Database.Driver = "postgres"

	cfg.JWT.AccessTTL = 15 * time.Minute
	cfg.JWT.RefreshTTL = 7 * 24 * time.Hour
	cfg.JWT.Issuer = "authapi"

	cfg.Email.Driver = "log"
	cfg.Email.SMTPPort = 587
	cfg.Email.FromEmail = "no-reply@localhost"
	cfg.Email.SendTimeout = 10 * time.Second

	cfg.Links.ProjectName = "Trello"
	cfg.Links.AccountConfirmation = "http://localhost:5000/api/v1/users/confirm-account"
	cfg.Links.EmailChangeConfirmation = "http://localhost:5000/api/v1/users/confirm-change-email"
	cfg.Links.ResetPassword = "http://localhost:5000/api/v1/users/reset-password"

	cfg.RateLimit.RequestsPerMinute = 100
	cfg.RateLimit.Burst = 20

	cfg.CORS.AllowedOrigins = []string{"*"}

	return &cfg
}

// Load reads the yaml file at path (if it exists), then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file at %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// Файла нет, работаем на переменных окружения
	default:
		return nil, fmt.Errorf("failed to open config file at %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) error {
		v := os.Getenv(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}
	setDuration := func(key string, dst *time.Duration) error {
		v := os.Getenv(key)
		if v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
		return nil
	}

	setString("SERVER_ENV", &c.Server.Env)
	setString("DATABASE_DRIVER", &c.Database.Driver)
	setString("DATABASE_URL", &c.Database.DSN)
	setString("ACCESS_TOKEN_SECRET", &c.JWT.AccessSecret)
	setString("REFRESH_TOKEN_SECRET", &c.JWT.RefreshSecret)
	setString("EMAIL_DRIVER", &c.Email.Driver)
	setString("SMTP_HOST", &c.Email.SMTPHost)
	setString("SMTP_USER", &c.Email.SMTPUsername)
	setString("SMTP_PASSWORD", &c.Email.SMTPPassword)
	setString("MAIL_FROM", &c.Email.FromEmail)

	if err := setInt("SERVER_PORT", &c.Server.Port); err != nil {
		return err
	}
	if err := setInt("SMTP_PORT", &c.Email.SMTPPort); err != nil {
		return err
	}
	if err := setDuration("ACCESS_TOKEN_EXPIRY", &c.JWT.AccessTTL); err != nil {
		return err
	}
	if err := setDuration("REFRESH_TOKEN_EXPIRY", &c.JWT.RefreshTTL); err != nil {
		return err
	}
	return nil
}

// Validate checks values the server cannot start without.
func (c *Config) Validate() error {
	var problems []string

	if c.JWT.AccessSecret == "" {
		problems = append(problems, "jwt.access_secret is required")
	}
	if c.JWT.RefreshSecret == "" {
		problems = append(problems, "jwt.refresh_secret is required")
	}
	if c.JWT.AccessSecret != "" && c.JWT.AccessSecret == c.JWT.RefreshSecret {
		problems = append(problems, "jwt.access_secret and jwt.refresh_secret must differ")
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		problems = append(problems, "jwt ttl values must be positive")
	}

	switch c.Database.Driver {
	case "postgres", "mysql":
		if c.Database.DSN == "" {
			problems = append(problems, "database.url is required for driver "+c.Database.Driver)
		}
	case "memory":
	default:
		problems = append(problems, fmt.Sprintf("unknown database.driver %q", c.Database.Driver))
	}

	switch c.Email.Driver {
	case "smtp":
		if c.Email.SMTPHost == "" {
			problems = append(problems, "email.smtp_host is required for driver smtp")
		}
	case "log":
	default:
		problems = append(problems, fmt.Sprintf("unknown email.driver %q", c.Email.Driver))
	}

	if len(problems) > 0 {
		return errors.New("invalid config: " + strings.Join(problems, "; "))
	}
	return nil
}

// Address returns host:port for the HTTP listener.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// LoadConfig загружает конфигурацию в AppConfig и завершает процесс при ошибке
func LoadConfig() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	AppConfig = cfg
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}
