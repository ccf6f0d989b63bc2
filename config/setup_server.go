package config

import (
	"errors"
	"fmt"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
	"log"
	"net/http"
	"os"
	"time"
)

type AppConfig struct {
	DatabaseConfig DatabaseConfig    `yaml:"databaseConfig"`
	RedisConfig    RedisConfig       `yaml:"redisConfig"`
	ServerAddr     string            `yaml:"serverAddr"`
	JWT            JWTConfig         `yaml:"jwt"`
	Security       SecurityConfig    `yaml:"security"`
	RateLimit      RateLimitConfig   `yaml:"rateLimit"`
	Webhook        WebhookConfig     `yaml:"webhook"`
	Vendor         VendorConfig      `yaml:"vendor"`
	Maintenance    MaintenanceConfig `yaml:"maintenance"`
}

// LoadConfig : reads the YAML file, then applies overrides from the environment (.env is optional)
func LoadConfig(path string) (*AppConfig, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(file, &cfg); err != nil {
		return nil, err
	}

	envFile := os.Getenv("ENV_FILE_PATH")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Printf("no env file at %s, using process environment", envFile)
	}
	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (cfg *AppConfig) applyEnv() {
	overrides := map[string]*string{
		"AUTH_JWT_SECRET":            &cfg.JWT.SecretKey,
		"AUTH_DATABASE_DSN":          &cfg.DatabaseConfig.DSN,
		"AUTH_REDIS_ADDR":            &cfg.RedisConfig.Addr,
		"AUTH_REDIS_PASSWORD":        &cfg.RedisConfig.Password,
		"AUTH_SERVER_ADDR":           &cfg.ServerAddr,
		"AUTH_VENDOR_GATEWAY_SECRET": &cfg.Vendor.GatewaySecret,
		"AUTH_WEBHOOK_URL":           &cfg.Webhook.URL,
	}
	for key, target := range overrides {
		if value, ok := os.LookupEnv(key); ok && value != "" {
			*target = value
		}
	}
}

func (cfg *AppConfig) applyDefaults() {
	if cfg.ServerAddr == "" {
		cfg.ServerAddr = ":8080"
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "saas-auth-server"
	}
	if cfg.JWT.AccessAudience == "" {
		cfg.JWT.AccessAudience = "access"
	}
	if cfg.JWT.AccessTokenTTL == "" {
		cfg.JWT.AccessTokenTTL = "15m"
	}
	if cfg.JWT.RefreshTokenTTL == "" {
		cfg.JWT.RefreshTokenTTL = "30d"
	}
	if cfg.RateLimit.PerSecond <= 0 {
		cfg.RateLimit.PerSecond = 1
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 10
	}
	if cfg.Maintenance.PurgeInterval == "" {
		cfg.Maintenance.PurgeInterval = "1h"
	}
}

// Validate : rejects configurations the auth core cannot run with
func (cfg *AppConfig) Validate() error {
	if cfg.JWT.SecretKey == "" {
		return errors.New("jwt.secret_key is required")
	}
	if cfg.DatabaseConfig.DSN == "" {
		return errors.New("databaseConfig.dsn is required")
	}
	if cfg.RedisConfig.Enabled && cfg.RedisConfig.Addr == "" {
		return errors.New("redisConfig.addr is required when redis is enabled")
	}
	interval, err := time.ParseDuration(cfg.Maintenance.PurgeInterval)
	if err != nil {
		return fmt.Errorf("invalid maintenance.purge_interval: %w", err)
	}
	if interval <= 0 {
		return fmt.Errorf("maintenance.purge_interval must be positive, got %s", cfg.Maintenance.PurgeInterval)
	}
	return nil
}

// PurgeInterval : the validated maintenance period
func (cfg *AppConfig) PurgeInterval() time.Duration {
	interval, err := time.ParseDuration(cfg.Maintenance.PurgeInterval)
	if err != nil || interval <= 0 {
		return time.Hour
	}
	return interval
}

func SetupServer(serverAddress string) (*http.Server, *chi.Mux) {
	router := chi.NewRouter()
	server := &http.Server{
		Addr:              serverAddress,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return server, router
}

func SetupDatabase(cfg *DatabaseConfig) (*Database, error) {
	return NewDatabaseConnection("postgres", cfg)
}

func SetupRedis(cfg *RedisConfig) (*RedisClient, error) {
	return NewRedisClient(cfg)
}
