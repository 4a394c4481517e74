// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Robot     RobotConfig     `mapstructure:"robot"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	History   HistoryConfig   `mapstructure:"history"`
	Security  SecurityConfig  `mapstructure:"security"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	App       AppConfig       `mapstructure:"app"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host" validate:"required"`
	Port         string        `mapstructure:"port" validate:"required"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// RobotConfig represents the robot endpoint and protocol timing
type RobotConfig struct {
	// Either Name (mDNS host, ".local" appended when missing) or IP must be
	// set; supplying neither is a fatal configuration error.
	Name string `mapstructure:"name"`
	IP   string `mapstructure:"ip"`
	Port int    `mapstructure:"port"`

	MaxPacketSize int `mapstructure:"max_packet_size"`

	// FaultThreshold is the average inter-timeout interval below which the
	// link is declared dead.
	FaultThreshold time.Duration `mapstructure:"fault_threshold"`

	// AckTimeout is the floor for acknowledgement waits on distance moves.
	AckTimeout time.Duration `mapstructure:"ack_timeout"`

	Query QueryTimeouts `mapstructure:"query_timeouts"`

	// TelemetryInterval is the sensor polling period for the websocket
	// telemetry stream.
	TelemetryInterval time.Duration `mapstructure:"telemetry_interval"`
}

// QueryTimeouts holds the per-sensor reply timeouts
type QueryTimeouts struct {
	Ping    time.Duration `mapstructure:"ping"`
	Lidar   time.Duration `mapstructure:"lidar"`
	Line    time.Duration `mapstructure:"line"`
	Light   time.Duration `mapstructure:"light"`
	Accel   time.Duration `mapstructure:"accel"`
	Mag     time.Duration `mapstructure:"mag"`
	Battery time.Duration `mapstructure:"battery"`
}

// DiscoveryConfig represents network robot discovery settings
type DiscoveryConfig struct {
	NetworkRanges []string      `mapstructure:"network_ranges"`
	ScanTimeout   time.Duration `mapstructure:"scan_timeout"`
}

// HistoryConfig represents the optional Postgres command history
type HistoryConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	User         string        `mapstructure:"user"`
	Password     string        `mapstructure:"password"`
	DBName       string        `mapstructure:"dbname"`
	SSLMode      string        `mapstructure:"sslmode"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	MaxLifetime  time.Duration `mapstructure:"max_lifetime"`
}

// SecurityConfig represents security configuration for the HTTP surface
type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level" validate:"required"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// AppConfig represents application metadata
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Version     string `mapstructure:"version" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required"`
	Debug       bool   `mapstructure:"debug"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variable support
	viper.SetEnvPrefix("SPARKI_SERVICE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// Read config file; a missing file is fine, defaults and env carry it
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8085")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// Robot defaults
	viper.SetDefault("robot.name", "sparki")
	viper.SetDefault("robot.port", 3141)
	viper.SetDefault("robot.max_packet_size", 300)
	viper.SetDefault("robot.fault_threshold", "100ms")
	viper.SetDefault("robot.ack_timeout", "1s")
	viper.SetDefault("robot.telemetry_interval", "1s")

	// Discovery defaults
	viper.SetDefault("discovery.network_ranges", []string{"192.168.1.0/24"})
	viper.SetDefault("discovery.scan_timeout", "3s")
	viper.SetDefault("robot.query_timeouts.ping", "500ms")
	viper.SetDefault("robot.query_timeouts.lidar", "100ms")
	viper.SetDefault("robot.query_timeouts.line", "100ms")
	viper.SetDefault("robot.query_timeouts.light", "100ms")
	viper.SetDefault("robot.query_timeouts.accel", "50ms")
	viper.SetDefault("robot.query_timeouts.mag", "50ms")
	viper.SetDefault("robot.query_timeouts.battery", "1s")

	// History defaults
	viper.SetDefault("history.enabled", false)
	viper.SetDefault("history.host", "localhost")
	viper.SetDefault("history.port", 5432)
	viper.SetDefault("history.user", "postgres")
	viper.SetDefault("history.password", "postgres")
	viper.SetDefault("history.dbname", "sparki_service")
	viper.SetDefault("history.sslmode", "disable")
	viper.SetDefault("history.max_open_conns", 10)
	viper.SetDefault("history.max_idle_conns", 2)
	viper.SetDefault("history.max_lifetime", "5m")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
	viper.SetDefault("logging.max_size", 100)
	viper.SetDefault("logging.max_backups", 3)
	viper.SetDefault("logging.max_age", 28)
	viper.SetDefault("logging.compress", true)

	// App defaults
	viper.SetDefault("app.name", "sparki-service")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.debug", false)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	if config.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if config.Robot.Name == "" && config.Robot.IP == "" {
		return fmt.Errorf("either robot.name or robot.ip is required")
	}
	if config.Robot.Port <= 0 || config.Robot.Port > 65535 {
		return fmt.Errorf("robot.port must be in 1..65535")
	}
	if config.History.Enabled && config.History.Host == "" {
		return fmt.Errorf("history.host is required when history is enabled")
	}

	// Validate environment
	validEnvs := []string{"development", "staging", "production", "test"}
	isValidEnv := false
	for _, env := range validEnvs {
		if config.App.Environment == env {
			isValidEnv = true
			break
		}
	}
	if !isValidEnv {
		return fmt.Errorf("app.environment must be one of: %v", validEnvs)
	}

	// Validate logging level
	validLevels := []string{"debug", "info", "warn", "error", "fatal"}
	isValidLevel := false
	for _, level := range validLevels {
		if config.Logging.Level == level {
			isValidLevel = true
			break
		}
	}
	if !isValidLevel {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	return nil
}

// GetHistoryDSN returns the Postgres connection string for command history
func (c *Config) GetHistoryDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.History.Host, c.History.Port, c.History.User,
		c.History.Password, c.History.DBName, c.History.SSLMode)
}

// GetServerAddr returns the server address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// IsProduction checks if the environment is production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment checks if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsDebugEnabled checks if debug mode is enabled
func (c *Config) IsDebugEnabled() bool {
	return c.App.Debug || c.IsDevelopment()
}
