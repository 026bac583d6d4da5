package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Env            string   `mapstructure:"ENV"`
	StoreDriver    string   `mapstructure:"STORE_DRIVER"`
	DatabaseURL    string   `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32    `mapstructure:"DB_MIN_CONNS"`
	AuthIssuer     string   `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL    string   `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience   string   `mapstructure:"AUTH_AUDIENCE"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	FraudAnalyzer  string   `mapstructure:"FRAUD_ANALYZER"`
	FraudWorkers   int      `mapstructure:"FRAUD_WORKERS"`
	FraudQueueSize int      `mapstructure:"FRAUD_QUEUE_SIZE"`
	OpenAIAPIKey   string   `mapstructure:"OPENAI_API_KEY"`
	OpenAIBaseURL  string   `mapstructure:"OPENAI_BASE_URL"`
	FraudModel     string   `mapstructure:"FRAUD_MODEL"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("STORE_DRIVER", "postgres")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("FRAUD_ANALYZER", "rules")
	v.SetDefault("FRAUD_WORKERS", 4)
	v.SetDefault("FRAUD_QUEUE_SIZE", 256)
	v.SetDefault("FRAUD_MODEL", "gpt-4o-mini")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("STORE_DRIVER")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_JWKS_URL")
	v.BindEnv("AUTH_AUDIENCE")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("FRAUD_ANALYZER")
	v.BindEnv("FRAUD_WORKERS")
	v.BindEnv("FRAUD_QUEUE_SIZE")
	v.BindEnv("OPENAI_API_KEY")
	v.BindEnv("OPENAI_BASE_URL")
	v.BindEnv("FRAUD_MODEL")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.StoreDriver == "postgres" && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is postgres")
	}

	if cfg.IsDev() {
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active: all requests get a default reviewer identity.")
		log.Println("WARNING: Set ENV=production and configure AUTH_ISSUER for production.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Outside development
// mode AUTH_ISSUER must be set so that real JWT authentication is enforced,
// and the remote analyzer needs an API key to be of any use.
func (c *Config) Validate() error {
	if c.StoreDriver != "postgres" && c.StoreDriver != "memory" {
		return fmt.Errorf("STORE_DRIVER must be \"postgres\" or \"memory\", got %q", c.StoreDriver)
	}
	if c.StoreDriver == "memory" && c.IsProduction() {
		return fmt.Errorf("STORE_DRIVER=memory is not durable and cannot be used in production")
	}
	if !c.IsDev() && c.AuthIssuer == "" {
		return fmt.Errorf(
			"AUTH_ISSUER must be set when ENV is not development (current ENV=%q). "+
				"Refusing to start without authentication configuration", c.Env)
	}
	if c.FraudAnalyzer != "rules" && c.FraudAnalyzer != "remote" {
		return fmt.Errorf("FRAUD_ANALYZER must be \"rules\" or \"remote\", got %q", c.FraudAnalyzer)
	}
	if c.FraudAnalyzer == "remote" && c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when FRAUD_ANALYZER is \"remote\"")
	}
	if c.FraudWorkers < 1 {
		return fmt.Errorf("FRAUD_WORKERS must be at least 1, got %d", c.FraudWorkers)
	}
	return nil
}
