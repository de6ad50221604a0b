package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/nexus-app/marketplace/internal/pkg/token"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	JWT          JWTConfig
	Security     SecurityConfig
	Verification VerificationConfig
	Storage      StorageConfig
	Mongo        MongoConfig
	Redis        RedisConfig
}

type JWTConfig struct {
	Secret string        `env:"JWT_SECRET"`
	TTL    time.Duration `env:"JWT_TTL, default=60m"`
}

type SecurityConfig struct {
	BcryptCost int `env:"BCRYPT_COST, default=10"`
}

// VerificationConfig controls the registration gate. Stub accepts every
// registration and must stay off in production.
type VerificationConfig struct {
	Stub bool `env:"VERIFICATION_STUB, default=false"`
}

type StorageConfig struct {
	Timeout       time.Duration `env:"STORAGE_TIMEOUT,        default=5s"`
	MaxRetries    uint64        `env:"STORAGE_MAX_RETRIES,    default=3"`
	RetryInterval time.Duration `env:"STORAGE_RETRY_INTERVAL, default=100ms"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017/?replicaSet=rs0"`
	Database string `env:"MONGO_DB,  default=nexus"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool { return c.Env == "production" }

// Validate rejects settings that must stop the service from serving at all.
func (c *Config) Validate() error {
	if len(c.JWT.Secret) < token.MinSecretLength {
		return fmt.Errorf("config: JWT_SECRET must be set and at least %d bytes", token.MinSecretLength)
	}
	if c.JWT.TTL <= 0 {
		return fmt.Errorf("config: JWT_TTL must be positive, got %s", c.JWT.TTL)
	}
	if c.IsProduction() && c.Verification.Stub {
		return errors.New("config: VERIFICATION_STUB cannot be enabled in production")
	}
	return nil
}

// Load reads an optional .env file, then the environment, and validates the result.
func Load(ctx context.Context, dotenvFiles ...string) (*Config, error) {
	if err := godotenv.Load(dotenvFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load dotenv: %w", err)
	}
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
