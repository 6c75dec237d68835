// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"vx4-service/internal/protocol"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Security   SecurityConfig   `mapstructure:"security"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Serial     SerialConfig     `mapstructure:"serial"`
	Controller ControllerConfig `mapstructure:"controller"`
	App        AppConfig        `mapstructure:"app"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	TLS             TLSConfig     `mapstructure:"tls"`
}

// TLSConfig represents TLS configuration
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// SecurityConfig represents security configuration
type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Format     string            `mapstructure:"format"`
	Output     string            `mapstructure:"output"`
	MaxSize    int               `mapstructure:"max_size"`
	MaxBackups int               `mapstructure:"max_backups"`
	MaxAge     int               `mapstructure:"max_age"`
	Compress   bool              `mapstructure:"compress"`
	Exchange   ExchangeLogConfig `mapstructure:"exchange"`
}

// ExchangeLogConfig controls the raw command/response journal.
type ExchangeLogConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// SerialConfig represents the serial link to the controllers
type SerialConfig struct {
	Port           string        `mapstructure:"port"`
	BaudRate       int           `mapstructure:"baud_rate"`
	DataBits       int           `mapstructure:"data_bits"`
	StopBits       string        `mapstructure:"stop_bits"`
	Parity         string        `mapstructure:"parity"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	SettleInterval time.Duration `mapstructure:"settle_interval"`
	Backend        string        `mapstructure:"backend"`
	PortInfoFile   string        `mapstructure:"port_info_file"`
}

// ControllerConfig represents controller polling and startup behaviour
type ControllerConfig struct {
	AutoConnect      bool          `mapstructure:"auto_connect"`
	Stations         []int         `mapstructure:"stations"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
}

// AppConfig represents application metadata
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// EnvPrefix is prepended to every environment override, e.g.
// VX4_SERVICE_SERIAL_PORT.
const EnvPrefix = "VX4_SERVICE"

// Load loads configuration from path (a file or a directory holding
// config.yaml) and environment variables. An empty path searches the
// working directory and ./config. Settings are read once; the returned
// value is never reloaded.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	switch {
	case path == "":
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	case strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml"):
		v.SetConfigFile(path)
	default:
		v.SetConfigName("config")
		v.AddConfigPath(path)
	}

	// Environment variable support
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// a missing file is fine, defaults and environment still apply
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if config.Serial.PortInfoFile != "" {
		info, err := LoadPortInfo(config.Serial.PortInfoFile)
		if err != nil {
			return nil, err
		}
		info.Apply(&config.Serial)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8084")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.tls.enabled", false)

	v.SetDefault("security.allowed_origins", []string{"*"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)
	v.SetDefault("logging.exchange.enabled", true)
	v.SetDefault("logging.exchange.path", "./logs/exchange.log")
	v.SetDefault("logging.exchange.max_size", 10)
	v.SetDefault("logging.exchange.max_backups", 30)
	v.SetDefault("logging.exchange.max_age", 30)
	v.SetDefault("logging.exchange.compress", false)

	// Serial defaults
	v.SetDefault("serial.port", "COM1")
	v.SetDefault("serial.baud_rate", 9600)
	v.SetDefault("serial.data_bits", 8)
	v.SetDefault("serial.stop_bits", "1")
	v.SetDefault("serial.parity", "none")
	v.SetDefault("serial.read_timeout", "1s")
	v.SetDefault("serial.write_timeout", "1s")
	v.SetDefault("serial.settle_interval", "150ms")
	v.SetDefault("serial.backend", string(protocol.BackendBugst))
	v.SetDefault("serial.port_info_file", "")

	// Controller defaults
	v.SetDefault("controller.auto_connect", false)
	v.SetDefault("controller.stations", []int{})
	v.SetDefault("controller.poll_interval", "0s")
	v.SetDefault("controller.operation_timeout", "5s")

	// App defaults
	v.SetDefault("app.name", "vx4-service")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	if config.Server.Port == "" {
		return fmt.Errorf("server.port is required")
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

	if _, err := config.ToLinkConfig(); err != nil {
		return fmt.Errorf("serial: %w", err)
	}

	for _, station := range config.Controller.Stations {
		if station < 0 || station > 99 {
			return fmt.Errorf("controller.stations: %d is not a valid station address", station)
		}
	}
	if config.Controller.PollInterval < 0 {
		return fmt.Errorf("controller.poll_interval cannot be negative")
	}

	return nil
}

// ToLinkConfig resolves the serial section into validated link parameters.
func (c *Config) ToLinkConfig() (protocol.LinkConfig, error) {
	parity, err := protocol.ParseParity(c.Serial.Parity)
	if err != nil {
		return protocol.LinkConfig{}, err
	}
	stopBits, err := protocol.ParseStopBits(c.Serial.StopBits)
	if err != nil {
		return protocol.LinkConfig{}, err
	}

	link := protocol.LinkConfig{
		Port:           c.Serial.Port,
		BaudRate:       c.Serial.BaudRate,
		Parity:         parity,
		DataBits:       c.Serial.DataBits,
		StopBits:       stopBits,
		ReadTimeout:    c.Serial.ReadTimeout,
		WriteTimeout:   c.Serial.WriteTimeout,
		SettleInterval: c.Serial.SettleInterval,
		Backend:        protocol.Backend(strings.ToLower(c.Serial.Backend)),
	}.WithDefaults()

	if err := link.Validate(); err != nil {
		return protocol.LinkConfig{}, err
	}
	return link, nil
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
