package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is the prefix of environment overrides, e.g. ECHOBOX_GATEWAY_URL.
const EnvPrefix = "ECHOBOX"

type Config struct {
	Public  Public
	private Private
}

type Public struct {
	GatewayURL     string        `yaml:"gateway_url" validate:"required,url"`
	GatewayTimeout time.Duration `yaml:"gateway_timeout" validate:"required"`
	PollInterval   time.Duration `yaml:"poll_interval" validate:"required"`
	PageSize       int           `yaml:"page_size" validate:"required,min=1"`
	MaxRecording   time.Duration `yaml:"max_recording" validate:"required"`
	SessionTTL     time.Duration `yaml:"session_ttl" validate:"required"`
	SecureCookies  bool          `yaml:"secure_cookies"`
	LogLevel       string        `yaml:"log_level"`
	LogJSON        bool          `yaml:"log_json"`
	Port           int           `yaml:"port" validate:"required,min=1,max=65535"`
	// StrictMarkRead turns non-2xx mark-as-read responses into errors.
	StrictMarkRead bool `yaml:"strict_mark_read"`
}

type Private struct {
	JwtKey        string `yaml:"jwt_key" validate:"required"`
	AdminUsername string `yaml:"admin_username" validate:"required"`
	// bcrypt hash of the demo admin password
	AdminPasswordHash string `yaml:"admin_password_hash" validate:"required"`
}

// overrides are the settings that may come from the environment.
type overrides struct {
	GatewayURL    *string        `envconfig:"GATEWAY_URL"`
	Port          *int           `envconfig:"PORT"`
	LogLevel      *string        `envconfig:"LOG_LEVEL"`
	LogJSON       *bool          `envconfig:"LOG_JSON"`
	PollInterval  *time.Duration `envconfig:"POLL_INTERVAL"`
	SecureCookies *bool          `envconfig:"SECURE_COOKIES"`
	JwtKey        *string        `envconfig:"JWT_KEY"`
}

func (s *Config) JwtKey() string {
	return s.private.JwtKey
}

func (s *Config) AdminUsername() string {
	return s.private.AdminUsername
}

func (s *Config) AdminPasswordHash() string {
	return s.private.AdminPasswordHash
}

func (s *Config) SessionTTL() time.Duration {
	return s.Public.SessionTTL
}

func loadPath(configPath string, output interface{}) error {
	configFile, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("config file does not exist: %s", configPath)
	}
	if err != nil {
		return fmt.Errorf("can't read config file %s: %w", configPath, err)
	}
	if err := yaml.Unmarshal(configFile, output); err != nil {
		return fmt.Errorf("can't unmarshal config file %s: %w", configPath, err)
	}
	return nil
}

// Load reads public.yaml and private.yaml from configFolder, applies
// ECHOBOX_* environment overrides (a .env file in the working directory is
// loaded first when present) and validates the result.
func Load(configFolder string) (*Config, error) {
	var public Public
	if err := loadPath(path.Join(configFolder, "public.yaml"), &public); err != nil {
		return nil, err
	}
	var private Private
	if err := loadPath(path.Join(configFolder, "private.yaml"), &private); err != nil {
		return nil, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("can't load .env: %w", err)
	}
	var env overrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}
	env.apply(&public, &private)

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(public); err != nil {
		return nil, fmt.Errorf("invalid public config: %w", err)
	}
	if err := validate.Struct(private); err != nil {
		return nil, fmt.Errorf("invalid private config: %w", err)
	}
	return &Config{public, private}, nil
}

// MustLoad is Load that panics on any error.
func MustLoad(configFolder string) *Config {
	cfg, err := Load(configFolder)
	if err != nil {
		panic(err.Error())
	}
	return cfg
}

func (o overrides) apply(public *Public, private *Private) {
	if o.GatewayURL != nil {
		public.GatewayURL = *o.GatewayURL
	}
	if o.Port != nil {
		public.Port = *o.Port
	}
	if o.LogLevel != nil {
		public.LogLevel = *o.LogLevel
	}
	if o.LogJSON != nil {
		public.LogJSON = *o.LogJSON
	}
	if o.PollInterval != nil {
		public.PollInterval = *o.PollInterval
	}
	if o.SecureCookies != nil {
		public.SecureCookies = *o.SecureCookies
	}
	if o.JwtKey != nil {
		private.JwtKey = *o.JwtKey
	}
}
