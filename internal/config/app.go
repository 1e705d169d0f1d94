package config

import (
	"fmt"
	"strings"
	"time"

	"medmind-api/internal/logger"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// AppConfig holds all application configuration
type AppConfig struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	OpenAI    OpenAIConfig
	Execution ExecutionConfig
	Quota     QuotaConfig
	Lock      LockConfig
	Pricing   *PricingCatalog
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port string
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	Name           string
	SSLMode        string
	MigrationsPath string
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret       []byte
	TokenExpiration time.Duration
	TrialDuration   time.Duration
}

// OpenAIConfig holds credentials for the assistants provider
type OpenAIConfig struct {
	APIKey       string
	Organization string
	BaseURL      string
}

// ExecutionConfig bounds the wait for an assistant run
type ExecutionConfig struct {
	Timeout      time.Duration
	PollInterval time.Duration
	FetchLimit   int
}

// QuotaConfig holds the subscription tier table
type QuotaConfig struct {
	Tiers        []Tier
	FallbackTier string
}

// LockConfig selects the per-conversation lock driver
type LockConfig struct {
	Driver        string
	TTL           time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Validity describes when a tier's subscription is considered current
type Validity string

const (
	// ValidityAlways never expires
	ValidityAlways Validity = "always"
	// ValidityUntilExpiry is valid only before the user's expiry timestamp
	ValidityUntilExpiry Validity = "until_expiry"
	// ValidityNone is never valid
	ValidityNone Validity = "none"
)

// Tier is one row of the subscription table
type Tier struct {
	Name        string
	DisplayName string
	TokenLimit  int64
	Validity    Validity
}

// LoadConfig loads and validates application configuration from environment
func LoadConfig() (*AppConfig, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	config := &AppConfig{}

	config.Server = ServerConfig{
		Port: v.GetString("server_port"),
	}

	config.Database = DatabaseConfig{
		Host:           v.GetString("db_host"),
		Port:           v.GetString("db_port"),
		User:           v.GetString("db_user"),
		Password:       v.GetString("db_password"),
		Name:           v.GetString("db_name"),
		SSLMode:        v.GetString("db_sslmode"),
		MigrationsPath: v.GetString("migrations_path"),
	}

	jwtSecret := v.GetString("jwt_secret")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable must be set")
	}
	if len(jwtSecret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters (current length: %d)", len(jwtSecret))
	}

	config.Auth = AuthConfig{
		JWTSecret:       []byte(jwtSecret),
		TokenExpiration: getDuration(v, "jwt_token_expiration", 24*time.Hour),
		TrialDuration:   getDuration(v, "trial_duration", 7*24*time.Hour),
	}

	apiKey := v.GetString("openai_api_key")
	if apiKey == "" {
		logger.Log.Warn("OPENAI_API_KEY environment variable not set")
	}
	config.OpenAI = OpenAIConfig{
		APIKey:       apiKey,
		Organization: v.GetString("openai_organization"),
		BaseURL:      v.GetString("openai_base_url"),
	}

	config.Execution = ExecutionConfig{
		Timeout:      getDuration(v, "execution_timeout", 60*time.Second),
		PollInterval: getDuration(v, "execution_poll_interval", time.Second),
		FetchLimit:   getPositiveInt(v, "execution_fetch_limit", 10),
	}

	premiumValidity, err := parseValidity(v.GetString("premium_validity"))
	if err != nil {
		return nil, err
	}
	config.Quota = QuotaConfig{
		FallbackTier: "TRIAL",
		Tiers: []Tier{
			{Name: "TRIAL", DisplayName: "Trial", TokenLimit: getLimit(v, "trial_token_limit", 10000), Validity: ValidityUntilExpiry},
			{Name: "ACTIVE", DisplayName: "Basic", TokenLimit: getLimit(v, "basic_token_limit", 100000), Validity: ValidityAlways},
			{Name: "PREMIUM", DisplayName: "Premium", TokenLimit: getLimit(v, "premium_token_limit", 500000), Validity: premiumValidity},
		},
	}

	config.Lock = LockConfig{
		Driver:        strings.ToLower(v.GetString("lock_driver")),
		TTL:           getDuration(v, "lock_ttl", config.Execution.Timeout+30*time.Second),
		RedisAddr:     v.GetString("redis_addr"),
		RedisPassword: v.GetString("redis_password"),
		RedisDB:       v.GetInt("redis_db"),
	}
	if config.Lock.Driver != "memory" && config.Lock.Driver != "redis" {
		return nil, fmt.Errorf("LOCK_DRIVER must be memory or redis, got %q", config.Lock.Driver)
	}
	if config.Lock.TTL <= config.Execution.Timeout {
		logger.Log.WithFields(logrus.Fields{"lock_ttl": config.Lock.TTL, "execution_timeout": config.Execution.Timeout}).
			Warn("LOCK_TTL does not exceed EXECUTION_TIMEOUT, a slow run may outlive its lock")
	}

	config.Pricing = DefaultPricingCatalog()
	if path := v.GetString("pricing_config_path"); path != "" {
		catalog, err := NewPricingCatalog(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load pricing config: %w", err)
		}
		config.Pricing = catalog
	}
	if model := v.GetString("default_model"); model != "" {
		if err := config.Pricing.SetDefaultModel(model); err != nil {
			return nil, fmt.Errorf("invalid DEFAULT_MODEL: %w", err)
		}
	}

	return config, nil
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_port", "8080")
	v.SetDefault("db_host", "postgres")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_password", "postgres")
	v.SetDefault("db_name", "medmind")
	v.SetDefault("db_sslmode", "disable")
	v.SetDefault("migrations_path", "file://migrations")
	v.SetDefault("premium_validity", string(ValidityNone))
	v.SetDefault("lock_driver", "memory")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_db", 0)
}

// Helper functions for environment variable parsing

func getDuration(v *viper.Viper, key string, defaultValue time.Duration) time.Duration {
	raw := v.GetString(key)
	if raw == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		logger.Log.WithFields(logrus.Fields{"key": strings.ToUpper(key), "default": defaultValue}).Warn("Invalid duration value, using default")
		return defaultValue
	}
	return value
}

func getPositiveInt(v *viper.Viper, key string, defaultValue int) int {
	if !v.IsSet(key) {
		return defaultValue
	}
	value := v.GetInt(key)
	if value <= 0 {
		logger.Log.WithFields(logrus.Fields{"key": strings.ToUpper(key), "default": defaultValue}).Warn("Invalid integer value, using default")
		return defaultValue
	}
	return value
}

func getLimit(v *viper.Viper, key string, defaultValue int64) int64 {
	if !v.IsSet(key) {
		return defaultValue
	}
	value := v.GetInt64(key)
	if value <= 0 {
		logger.Log.WithFields(logrus.Fields{"key": strings.ToUpper(key), "default": defaultValue}).Warn("Invalid token limit, using default")
		return defaultValue
	}
	return value
}

func parseValidity(raw string) (Validity, error) {
	switch Validity(strings.ToLower(raw)) {
	case ValidityAlways:
		return ValidityAlways, nil
	case ValidityUntilExpiry:
		return ValidityUntilExpiry, nil
	case ValidityNone:
		return ValidityNone, nil
	}
	return "", fmt.Errorf("PREMIUM_VALIDITY must be one of always, until_expiry, none; got %q", raw)
}
