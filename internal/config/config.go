package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/feral-file/ff-transfer-monitor/internal/domain"
)

const envPrefix = "NFT_MONITOR"

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// DynamoDBConfig holds DynamoDB configuration
type DynamoDBConfig struct {
	Region string `mapstructure:"region"`
	// Endpoint overrides the AWS endpoint, e.g. http://localhost:8000 for DynamoDB Local
	Endpoint           string        `mapstructure:"endpoint"`
	AccessKeyID        string        `mapstructure:"access_key_id"`
	SecretAccessKey    string        `mapstructure:"secret_access_key"`
	EventsTable        string        `mapstructure:"events_table"`
	ParametersTable    string        `mapstructure:"parameters_table"`
	TableActiveTimeout time.Duration `mapstructure:"table_active_timeout"`
}

// EthereumConfig holds Ethereum-specific configuration
type EthereumConfig struct {
	RPCURL          string        `mapstructure:"rpc_url"`
	ChainID         domain.Chain  `mapstructure:"chain_id"`
	ContractAddress string        `mapstructure:"contract_address"`
	StartBlock      uint64        `mapstructure:"start_block"`
	BlockRange      uint64        `mapstructure:"block_range"`
	MaxRetries      uint64        `mapstructure:"max_retries"`
	RetryInterval   time.Duration `mapstructure:"retry_interval"`
}

// PollingConfig holds the polling loop configuration
type PollingConfig struct {
	// Interval between runs when the monitor runs as a long-lived process
	Interval           time.Duration `mapstructure:"interval"`
	PersistConcurrency int           `mapstructure:"persist_concurrency"`
	// MetricsAddress serves /metrics when the monitor runs as a long-lived process
	MetricsAddress string `mapstructure:"metrics_address"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	ReadTimeout    int      `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout   int      `mapstructure:"write_timeout"` // in seconds
	IdleTimeout    int      `mapstructure:"idle_timeout"`  // in seconds
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MetricsPath    string   `mapstructure:"metrics_path"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTPublicKey string   `mapstructure:"jwt_public_key"`
	APIKeys      []string `mapstructure:"api_keys"`
}

// MonitorConfig holds configuration for the transfer monitor
type MonitorConfig struct {
	BaseConfig `mapstructure:",squash"`
	DynamoDB   DynamoDBConfig `mapstructure:"dynamodb"`
	Ethereum   EthereumConfig `mapstructure:"ethereum"`
	Polling    PollingConfig  `mapstructure:"polling"`
}

// APIConfig holds configuration for the read API
type APIConfig struct {
	BaseConfig `mapstructure:",squash"`
	Server     ServerConfig   `mapstructure:"server"`
	DynamoDB   DynamoDBConfig `mapstructure:"dynamodb"`
	Auth       AuthConfig     `mapstructure:"auth"`
	// RequireAuth checks credentials in the API itself, for deployments without the gateway authorizer
	RequireAuth bool `mapstructure:"require_auth"`
}

// AuthorizerConfig holds configuration for the token authorizer
type AuthorizerConfig struct {
	BaseConfig `mapstructure:",squash"`
	Auth       AuthConfig `mapstructure:"auth"`
}

// ErrContractAddressRequired is returned when the monitor has no contract to watch
var ErrContractAddressRequired = errors.New("ethereum.contract_address is required")

// ErrRPCURLRequired is returned when the monitor has no RPC endpoint
var ErrRPCURLRequired = errors.New("ethereum.rpc_url is required")

// ErrNoCredentialsConfigured is returned when credentials are checked but none are configured
var ErrNoCredentialsConfigured = errors.New("auth.jwt_public_key or auth.api_keys is required")

func setDynamoDBDefaults(v *viper.Viper) {
	v.SetDefault("dynamodb.region", "us-east-1")
	v.SetDefault("dynamodb.events_table", "NFTEvents")
	v.SetDefault("dynamodb.parameters_table", "Parameters")
	v.SetDefault("dynamodb.table_active_timeout", "30s")
}

// LoadMonitorConfig loads configuration for the transfer monitor
func LoadMonitorConfig(configFile string, envPath string) (*MonitorConfig, error) {
	v := configureViper("monitor", configFile, envPath)

	// Set defaults
	setDynamoDBDefaults(v)
	v.SetDefault("ethereum.chain_id", "eip155:1")
	v.SetDefault("ethereum.block_range", 10000)
	v.SetDefault("ethereum.max_retries", 3)
	v.SetDefault("ethereum.retry_interval", "500ms")
	v.SetDefault("polling.interval", "1m")
	v.SetDefault("polling.persist_concurrency", 1)
	v.SetDefault("polling.metrics_address", ":9090")

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg MonitorConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate required fields
	if cfg.Ethereum.RPCURL == "" {
		return nil, ErrRPCURLRequired
	}
	if cfg.Ethereum.ContractAddress == "" {
		return nil, ErrContractAddressRequired
	}
	if !domain.IsValidChain(cfg.Ethereum.ChainID) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedChain, cfg.Ethereum.ChainID)
	}

	return &cfg, nil
}

// LoadAPIConfig loads configuration for the read API
func LoadAPIConfig(configFile string, envPath string) (*APIConfig, error) {
	v := configureViper("api", configFile, envPath)

	// Set defaults
	v.SetDefault("debug", false)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.idle_timeout", 120)
	v.SetDefault("require_auth", false)
	setDynamoDBDefaults(v)

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg APIConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.RequireAuth && !cfg.Auth.configured() {
		return nil, ErrNoCredentialsConfigured
	}

	return &cfg, nil
}

// LoadAuthorizerConfig loads configuration for the token authorizer
func LoadAuthorizerConfig(configFile string, envPath string) (*AuthorizerConfig, error) {
	v := configureViper("authorizer", configFile, envPath)

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg AuthorizerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if !cfg.Auth.configured() {
		return nil, ErrNoCredentialsConfigured
	}

	return &cfg, nil
}

func (c AuthConfig) configured() bool {
	if c.JWTPublicKey != "" {
		return true
	}
	for _, key := range c.APIKeys {
		if key != "" {
			return true
		}
	}
	return false
}

// readConfig reads the config file if there is one, Lambda deployments run on environment variables only
func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			// Config file not found, use environment variables
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	// Set config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// Search for config.yaml in multiple locations:
		// 1. Current directory
		v.AddConfigPath(".")
		// 2. Service-specific directory (e.g., cmd/monitor/, cmd/api/)
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		// 3. Config directory
		v.AddConfigPath("config/")
	}

	// Set environment variables
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind all environment variables
	bindAllEnvVars(v)
	return v
}

// legacyEnvAliases maps config keys to the unprefixed variable names of earlier deployments.
// The prefixed name wins when both are set.
var legacyEnvAliases = map[string]string{
	"dynamodb.endpoint":         "DYNAMODB_ENDPOINT",
	"ethereum.start_block":      "FROM_BLOCK",
	"ethereum.rpc_url":          "RPC_URL",
	"ethereum.contract_address": "CONTRACT_ADDRESS",
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		// DynamoDB
		"dynamodb.region",
		"dynamodb.endpoint",
		"dynamodb.access_key_id",
		"dynamodb.secret_access_key",
		"dynamodb.events_table",
		"dynamodb.parameters_table",
		"dynamodb.table_active_timeout",
		// Ethereum
		"ethereum.rpc_url",
		"ethereum.chain_id",
		"ethereum.contract_address",
		"ethereum.start_block",
		"ethereum.block_range",
		"ethereum.max_retries",
		"ethereum.retry_interval",
		// Polling
		"polling.interval",
		"polling.persist_concurrency",
		"polling.metrics_address",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		"server.allowed_origins",
		"server.metrics_path",
		// Auth
		"auth.jwt_public_key",
		"auth.api_keys",
		"require_auth",
	}

	replacer := strings.NewReplacer(".", "_")
	for _, key := range keys {
		if alias, ok := legacyEnvAliases[key]; ok {
			_ = v.BindEnv(key, envPrefix+"_"+strings.ToUpper(replacer.Replace(key)), alias)
			continue
		}
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// Always try shared base first, then local, then optional per-service local.
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	// Default to config directory
	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate) // Overload lets later files override earlier ones
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

// ReadTimeoutDuration returns the read timeout as a duration
func (c *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(c.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns the write timeout as a duration
func (c *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(c.WriteTimeout) * time.Second
}

// IdleTimeoutDuration returns the idle timeout as a duration
func (c *ServerConfig) IdleTimeoutDuration() time.Duration {
	return time.Duration(c.IdleTimeout) * time.Second
}
