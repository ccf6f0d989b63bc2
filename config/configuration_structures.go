package config

type DatabaseConfig struct {
	DSN             string `yaml:"dsn"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime"`
	RunMigrations   bool   `yaml:"run_migrations"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// JWTConfig : signing parameters, immutable for the process lifetime
type JWTConfig struct {
	SecretKey       string `yaml:"secret_key"`
	Issuer          string `yaml:"issuer"`
	AccessAudience  string `yaml:"access_audience"`
	AccessTokenTTL  string `yaml:"access_token_ttl"`
	RefreshTokenTTL string `yaml:"refresh_token_ttl"`
}

type SecurityConfig struct {
	BcryptCost int `yaml:"bcrypt_cost"`
}

type RateLimitConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

// WebhookConfig : new-device notifications; an empty URL disables them
type WebhookConfig struct {
	URL        string `yaml:"url"`
	Timeout    string `yaml:"timeout"`
	MaxRetries uint64 `yaml:"max_retries"`
}

// VendorConfig : trusted OAuth gateway that posts already-verified vendor profiles
type VendorConfig struct {
	GatewaySecret string   `yaml:"gateway_secret"`
	Allowed       []string `yaml:"allowed"`
}

type MaintenanceConfig struct {
	PurgeInterval string `yaml:"purge_interval"`
}
