package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const minTokenSecretLength = 32

// Config aggregates all runtime settings.
type Config struct {
	App       AppConfig       `envPrefix:"CHURCH_"`
	HTTP      HTTPConfig      `envPrefix:"CHURCH_HTTP_"`
	Database  DatabaseConfig  `envPrefix:"CHURCH_DB_"`
	Redis     RedisConfig     `envPrefix:"CHURCH_REDIS_"`
	Token     TokenConfig     `envPrefix:"CHURCH_TOKEN_"`
	Security  SecurityConfig  `envPrefix:"CHURCH_SECURITY_"`
	RateLimit RateLimitConfig `envPrefix:"CHURCH_RATE_LIMIT_"`
}

type AppConfig struct {
	Environment string `env:"ENV" envDefault:"development"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"church-admin"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
}

type HTTPConfig struct {
	Host              string        `env:"HOST" envDefault:"0.0.0.0"`
	Port              int           `env:"PORT" envDefault:"4101"`
	ReadTimeout       time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT" envDefault:"35s"`
	IdleTimeout       time.Duration `env:"IDLE_TIMEOUT" envDefault:"120s"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" envDefault:"5s"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"25s"`
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	AllowedOrigins    []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	TrustedProxies    []string      `env:"TRUSTED_PROXIES" envSeparator:","`
	TLSCertFile       string        `env:"TLS_CERT_FILE"`
	TLSKeyFile        string        `env:"TLS_KEY_FILE"`
}

type DatabaseConfig struct {
	URL             string        `env:"URL"`
	MaxConns        int32         `env:"MAX_CONNS" envDefault:"20"`
	MinConns        int32         `env:"MIN_CONNS" envDefault:"1"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"30m"`
	RunMigrations   bool          `env:"RUN_MIGRATIONS" envDefault:"true"`
}

type RedisConfig struct {
	Addr      string `env:"ADDR" envDefault:"127.0.0.1:6379"`
	Password  string `env:"PASSWORD"`
	DB        int    `env:"DB" envDefault:"0"`
	EnableTLS bool   `env:"ENABLE_TLS" envDefault:"false"`
	Namespace string `env:"NAMESPACE" envDefault:"church"`
}

// TokenConfig holds the bearer token signing secret. It is read once at startup
// and never mutated afterwards.
type TokenConfig struct {
	Secret   string        `env:"SECRET"`
	Issuer   string        `env:"ISSUER" envDefault:"church-admin"`
	TTL      time.Duration `env:"TTL" envDefault:"168h"`
	ResetTTL time.Duration `env:"RESET_TTL" envDefault:"30m"`
}

type SecurityConfig struct {
	PasswordMinLength int    `env:"PASSWORD_MIN_LENGTH" envDefault:"6"`
	Argon2Time        uint32 `env:"ARGON2_TIME" envDefault:"3"`
	Argon2Memory      uint32 `env:"ARGON2_MEMORY" envDefault:"65536"`
	Argon2Threads     uint8  `env:"ARGON2_THREADS" envDefault:"2"`
	Argon2KeyLength   uint32 `env:"ARGON2_KEY_LENGTH" envDefault:"32"`
	Argon2SaltLength  uint32 `env:"ARGON2_SALT_LENGTH" envDefault:"16"`
}

type RateLimitConfig struct {
	Enabled       bool          `env:"ENABLED" envDefault:"true"`
	LoginRequests int           `env:"LOGIN_REQUESTS" envDefault:"10"`
	LoginWindow   time.Duration `env:"LOGIN_WINDOW" envDefault:"1m"`
	ResetRequests int           `env:"RESET_REQUESTS" envDefault:"5"`
	ResetWindow   time.Duration `env:"RESET_WINDOW" envDefault:"15m"`
}

// IsDevelopment reports whether the service runs in a local environment.
func (c AppConfig) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "local"
}

// Load parses environment variables into Config and performs validation.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements that struct tags cannot express.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("CHURCH_DB_URL is required")
	}
	if len(c.Token.Secret) < minTokenSecretLength {
		return fmt.Errorf("CHURCH_TOKEN_SECRET must be at least %d bytes", minTokenSecretLength)
	}
	if c.Token.TTL <= 0 {
		return fmt.Errorf("CHURCH_TOKEN_TTL must be positive")
	}
	if c.Security.PasswordMinLength < 1 {
		return fmt.Errorf("CHURCH_SECURITY_PASSWORD_MIN_LENGTH must be positive")
	}
	if (c.HTTP.TLSCertFile == "") != (c.HTTP.TLSKeyFile == "") {
		return fmt.Errorf("CHURCH_HTTP_TLS_CERT_FILE and CHURCH_HTTP_TLS_KEY_FILE must be set together")
	}
	// The handler deadline has to fire while the connection can still carry
	// the 503 it writes.
	if c.HTTP.WriteTimeout > 0 && c.HTTP.RequestTimeout >= c.HTTP.WriteTimeout {
		return fmt.Errorf("CHURCH_HTTP_REQUEST_TIMEOUT must be shorter than CHURCH_HTTP_WRITE_TIMEOUT")
	}
	return nil
}
