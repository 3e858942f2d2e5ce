package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// Environment represents the application environment
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Store drivers selectable via DB_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Provider defines the interface for configuration management
type Provider interface {
	// GetString retrieves a string configuration value
	GetString(ctx context.Context, key string) (string, error)
	// GetInt retrieves an integer configuration value
	GetInt(ctx context.Context, key string) (int, error)
	// GetSecret retrieves a secret value
	GetSecret(ctx context.Context, key string) (string, error)
	// GetEnvironment returns the current environment
	GetEnvironment() Environment
}

// EnvProvider implements Provider using environment variables
type EnvProvider struct {
	prefix      string
	environment Environment
}

// NewEnvProvider creates a new environment-based configuration provider
func NewEnvProvider(prefix string) Provider {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = string(Development)
	}
	return &EnvProvider{
		prefix:      prefix,
		environment: Environment(env),
	}
}

// GetEnvironment returns the current environment
func (p *EnvProvider) GetEnvironment() Environment {
	return p.environment
}

// GetString retrieves a string configuration value from environment variables
func (p *EnvProvider) GetString(ctx context.Context, key string) (string, error) {
	value := os.Getenv(p.prefix + key)
	if value == "" {
		return "", fmt.Errorf("environment variable %s%s not set", p.prefix, key)
	}
	return value, nil
}

// GetInt retrieves an integer configuration value from environment variables
func (p *EnvProvider) GetInt(ctx context.Context, key string) (int, error) {
	value, err := p.GetString(ctx, key)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(value)
}

// GetSecret retrieves a secret value from environment variables
func (p *EnvProvider) GetSecret(ctx context.Context, key string) (string, error) {
	return p.GetString(ctx, key)
}

// AWSSecretsProvider implements Provider using AWS Secrets Manager. Secret
// values are fetched once per process and cached.
type AWSSecretsProvider struct {
	client      *secretsmanager.Client
	secretName  string
	cache       map[string]string
	lastFetch   time.Time
	environment Environment
}

// NewAWSSecretsProvider creates a new AWS Secrets Manager based configuration provider
func NewAWSSecretsProvider(secretName string) (Provider, error) {
	cfg, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = string(Development)
	}

	return &AWSSecretsProvider{
		client:      secretsmanager.NewFromConfig(cfg),
		secretName:  secretName,
		cache:       make(map[string]string),
		environment: Environment(env),
	}, nil
}

// GetEnvironment returns the current environment
func (p *AWSSecretsProvider) GetEnvironment() Environment {
	return p.environment
}

// GetString retrieves a string configuration value from AWS Secrets Manager
func (p *AWSSecretsProvider) GetString(ctx context.Context, key string) (string, error) {
	if value, ok := p.cache[key]; ok {
		return value, nil
	}

	secret, err := p.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(p.secretName),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get secret: %w", err)
	}

	var secretMap map[string]string
	if err := json.Unmarshal([]byte(*secret.SecretString), &secretMap); err != nil {
		return "", fmt.Errorf("failed to parse secret JSON: %w", err)
	}

	p.cache = secretMap
	p.lastFetch = time.Now()

	value, ok := secretMap[key]
	if !ok {
		return "", fmt.Errorf("secret key %s not found", key)
	}
	return value, nil
}

// GetInt retrieves an integer configuration value from AWS Secrets Manager
func (p *AWSSecretsProvider) GetInt(ctx context.Context, key string) (int, error) {
	value, err := p.GetString(ctx, key)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(value)
}

// GetSecret retrieves a secret value from AWS Secrets Manager
func (p *AWSSecretsProvider) GetSecret(ctx context.Context, key string) (string, error) {
	return p.GetString(ctx, key)
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

var dbNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// Validate checks if the database configuration is valid
func (c *DatabaseConfig) Validate(env Environment) error {
	if c.Host == "" {
		return &ValidationError{Field: "Host", Message: "host cannot be empty"}
	}
	if c.Port <= 0 || c.Port > 65535 {
		return &ValidationError{Field: "Port", Message: "port must be between 1 and 65535"}
	}
	if c.User == "" {
		return &ValidationError{Field: "User", Message: "user cannot be empty"}
	}
	if c.Password == "" {
		return &ValidationError{Field: "Password", Message: "password cannot be empty"}
	}
	if env == Production && len(c.Password) < 12 {
		return &ValidationError{Field: "Password", Message: "password must be at least 12 characters long in production"}
	}
	if c.DBName == "" {
		return &ValidationError{Field: "DBName", Message: "database name cannot be empty"}
	}
	if !dbNamePattern.MatchString(c.DBName) {
		return &ValidationError{Field: "DBName", Message: "database name must start with a letter and contain only letters, numbers, and underscores"}
	}

	validSSLModes := map[string]bool{
		"disable":     true,
		"require":     true,
		"verify-ca":   true,
		"verify-full": true,
	}
	if !validSSLModes[c.SSLMode] {
		return &ValidationError{Field: "SSLMode", Message: "invalid SSL mode"}
	}
	if env == Production && c.SSLMode == "disable" {
		return &ValidationError{Field: "SSLMode", Message: "SSL cannot be disabled in production"}
	}

	return nil
}

// GetStoreDriver returns the configured store driver, defaulting to postgres.
func GetStoreDriver(ctx context.Context, provider Provider) string {
	driver, err := provider.GetString(ctx, "DB_DRIVER")
	if err != nil {
		return DriverPostgres
	}
	switch driver {
	case DriverPostgres, DriverSQLite, DriverMemory:
		return driver
	default:
		return DriverPostgres
	}
}

// GetDatabaseConfig retrieves database configuration using the provided config provider
func GetDatabaseConfig(ctx context.Context, provider Provider) (*DatabaseConfig, error) {
	host, err := provider.GetString(ctx, "DB_HOST")
	if err != nil {
		return nil, fmt.Errorf("failed to get DB_HOST: %w", err)
	}

	port, err := provider.GetInt(ctx, "DB_PORT")
	if err != nil {
		return nil, fmt.Errorf("failed to get DB_PORT: %w", err)
	}

	user, err := provider.GetString(ctx, "DB_USER")
	if err != nil {
		return nil, fmt.Errorf("failed to get DB_USER: %w", err)
	}

	password, err := provider.GetSecret(ctx, "DB_PASSWORD")
	if err != nil {
		return nil, fmt.Errorf("failed to get DB_PASSWORD: %w", err)
	}

	dbname, err := provider.GetString(ctx, "DB_NAME")
	if err != nil {
		return nil, fmt.Errorf("failed to get DB_NAME: %w", err)
	}

	sslmode, err := provider.GetString(ctx, "DB_SSLMODE")
	if err != nil {
		sslmode = "disable" // Default to disable if not set
	}

	cfg := &DatabaseConfig{
		Driver:   GetStoreDriver(ctx, provider),
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		DBName:   dbname,
		SSLMode:  sslmode,
	}

	if err := cfg.Validate(provider.GetEnvironment()); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	return cfg, nil
}
