package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	// Files shared with the EtherCAT driver process.
	AnalogPath        string
	DigitalInputPath  string
	DigitalOutputPath string
	OffsetsPath       string

	// Channels lists the analog channel ids in the order the driver writes them.
	Channels     []string
	FilterWindow int
	// SampleInterval drives the background sampler; zero leaves polling to clients.
	SampleInterval time.Duration

	SQLiteDriver          string
	SQLiteDSN             string
	SQLitePath            string
	SQLiteMaxOpenConns    int
	SQLiteMaxIdleConns    int
	SQLiteConnMaxLifetime time.Duration

	MQTTEnabled     bool
	MQTTBroker      string
	MQTTPort        int
	MQTTClientID    string
	MQTTTopicPrefix string
}

// fileConfig mirrors Config for CONFIG_FILE. Values set there become the
// defaults that environment variables override.
type fileConfig struct {
	AppEnv   string `yaml:"app_env"`
	LogLevel string `yaml:"log_level"`
	HTTPAddr string `yaml:"http_addr"`

	Files struct {
		Analog        string `yaml:"analog"`
		DigitalInput  string `yaml:"digital_input"`
		DigitalOutput string `yaml:"digital_output"`
		Offsets       string `yaml:"offsets"`
	} `yaml:"files"`

	Acquisition struct {
		Channels       []string      `yaml:"channels"`
		FilterWindow   int           `yaml:"filter_window"`
		SampleInterval time.Duration `yaml:"sample_interval"`
	} `yaml:"acquisition"`

	Database struct {
		Driver          string        `yaml:"driver"`
		DSN             string        `yaml:"dsn"`
		Path            string        `yaml:"path"`
		MaxOpenConns    int           `yaml:"max_open_conns"`
		MaxIdleConns    int           `yaml:"max_idle_conns"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	} `yaml:"database"`

	MQTT struct {
		Enabled     bool   `yaml:"enabled"`
		Broker      string `yaml:"broker"`
		Port        int    `yaml:"port"`
		ClientID    string `yaml:"client_id"`
		TopicPrefix string `yaml:"topic_prefix"`
	} `yaml:"mqtt"`
}

func defaultFileConfig() fileConfig {
	var fc fileConfig
	fc.AppEnv = "dev"
	fc.LogLevel = "info"
	fc.HTTPAddr = ":5000"
	fc.Files.Analog = "/tmp/ethercat_data.txt"
	fc.Files.DigitalInput = "/tmp/ethercat_digital.txt"
	fc.Files.DigitalOutput = "/tmp/ethercat_outputs.txt"
	fc.Files.Offsets = "/tmp/vacuum_offsets.json"
	fc.Acquisition.Channels = []string{"ch1", "ch2", "ch3", "ch4"}
	fc.Acquisition.FilterWindow = 10
	fc.Database.Driver = "sqlite3"
	fc.Database.Path = "data/airlab.db"
	fc.Database.MaxOpenConns = 1
	fc.Database.MaxIdleConns = 1
	fc.MQTT.Broker = "localhost"
	fc.MQTT.Port = 1883
	fc.MQTT.ClientID = "airlab"
	fc.MQTT.TopicPrefix = "airlab"
	return fc
}

// loadFile reads the optional YAML config. A missing file yields the defaults.
func loadFile(path string) (fileConfig, error) {
	fc := defaultFileConfig()
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fc, nil
		}
		return fileConfig{}, fmt.Errorf("read CONFIG_FILE %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fileConfig{}, fmt.Errorf("parse CONFIG_FILE %q: %w", path, err)
	}
	fc.ensureDefaults()
	return fc, nil
}

// ensureDefaults restores defaults for fields the file explicitly zeroed.
func (fc *fileConfig) ensureDefaults() {
	def := defaultFileConfig()
	if fc.AppEnv == "" {
		fc.AppEnv = def.AppEnv
	}
	if fc.LogLevel == "" {
		fc.LogLevel = def.LogLevel
	}
	if fc.HTTPAddr == "" {
		fc.HTTPAddr = def.HTTPAddr
	}
	if fc.Files.Analog == "" {
		fc.Files.Analog = def.Files.Analog
	}
	if fc.Files.DigitalInput == "" {
		fc.Files.DigitalInput = def.Files.DigitalInput
	}
	if fc.Files.DigitalOutput == "" {
		fc.Files.DigitalOutput = def.Files.DigitalOutput
	}
	if fc.Files.Offsets == "" {
		fc.Files.Offsets = def.Files.Offsets
	}
	if len(fc.Acquisition.Channels) == 0 {
		fc.Acquisition.Channels = def.Acquisition.Channels
	}
	if fc.Acquisition.FilterWindow == 0 {
		fc.Acquisition.FilterWindow = def.Acquisition.FilterWindow
	}
	if fc.Database.Driver == "" {
		fc.Database.Driver = def.Database.Driver
	}
	if fc.Database.Path == "" {
		fc.Database.Path = def.Database.Path
	}
	if fc.MQTT.Broker == "" {
		fc.MQTT.Broker = def.MQTT.Broker
	}
	if fc.MQTT.Port == 0 {
		fc.MQTT.Port = def.MQTT.Port
	}
	if fc.MQTT.ClientID == "" {
		fc.MQTT.ClientID = def.MQTT.ClientID
	}
	if fc.MQTT.TopicPrefix == "" {
		fc.MQTT.TopicPrefix = def.MQTT.TopicPrefix
	}
}

func LoadFromEnv() (Config, error) {
	fc, err := loadFile(strings.TrimSpace(os.Getenv("CONFIG_FILE")))
	if err != nil {
		return Config{}, err
	}

	appEnv := envOr("APP_ENV", fc.AppEnv)
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(envOr("LOG_LEVEL", fc.LogLevel))
	if err != nil {
		return Config{}, err
	}

	httpAddr := envOr("HTTP_ADDR", fc.HTTPAddr)

	analogPath := envOr("ANALOG_PATH", fc.Files.Analog)
	digitalInputPath := envOr("DIGITAL_INPUT_PATH", fc.Files.DigitalInput)
	digitalOutputPath := envOr("DIGITAL_OUTPUT_PATH", fc.Files.DigitalOutput)
	offsetsPath := envOr("OFFSETS_PATH", fc.Files.Offsets)

	channels := fc.Acquisition.Channels
	if s := strings.TrimSpace(os.Getenv("CHANNELS")); s != "" {
		channels, err = parseChannels(s)
		if err != nil {
			return Config{}, err
		}
	} else if err := validateChannels(channels); err != nil {
		return Config{}, err
	}

	filterWindowStr := envOr("FILTER_WINDOW", strconv.Itoa(fc.Acquisition.FilterWindow))
	filterWindow, err := strconv.Atoi(filterWindowStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid FILTER_WINDOW %q: %w", filterWindowStr, err)
	}
	if filterWindow <= 0 {
		return Config{}, fmt.Errorf("FILTER_WINDOW must be positive, got %d", filterWindow)
	}

	sampleIntervalStr := envOr("SAMPLE_INTERVAL", fc.Acquisition.SampleInterval.String())
	sampleInterval, err := time.ParseDuration(sampleIntervalStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid SAMPLE_INTERVAL %q: %w", sampleIntervalStr, err)
	}
	if sampleInterval < 0 {
		return Config{}, fmt.Errorf("SAMPLE_INTERVAL must not be negative, got %v", sampleInterval)
	}

	driver := envOr("DB_DRIVER", fc.Database.Driver)
	dsn := envOr("DB_DSN", fc.Database.DSN)
	path := envOr("SQLITE_PATH", fc.Database.Path)

	maxOpenConnsStr := envOr("DB_MAX_OPEN_CONNS", strconv.Itoa(fc.Database.MaxOpenConns))
	maxOpenConns, err := strconv.Atoi(maxOpenConnsStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_MAX_OPEN_CONNS %q: %w", maxOpenConnsStr, err)
	}

	maxIdleConnsStr := envOr("DB_MAX_IDLE_CONNS", strconv.Itoa(fc.Database.MaxIdleConns))
	maxIdleConns, err := strconv.Atoi(maxIdleConnsStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_MAX_IDLE_CONNS %q: %w", maxIdleConnsStr, err)
	}

	connMaxLifetimeStr := envOr("DB_CONN_MAX_LIFETIME", fc.Database.ConnMaxLifetime.String())
	connMaxLifetime, err := time.ParseDuration(connMaxLifetimeStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME %q: %w", connMaxLifetimeStr, err)
	}

	mqttEnabledStr := envOr("MQTT_ENABLED", strconv.FormatBool(fc.MQTT.Enabled))
	mqttEnabled, err := strconv.ParseBool(mqttEnabledStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid MQTT_ENABLED %q: %w", mqttEnabledStr, err)
	}

	mqttBroker := envOr("MQTT_BROKER", fc.MQTT.Broker)

	mqttPortStr := envOr("MQTT_PORT", strconv.Itoa(fc.MQTT.Port))
	mqttPort, err := strconv.Atoi(mqttPortStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %q: %w", mqttPortStr, err)
	}

	mqttClientID := envOr("MQTT_CLIENT_ID", fc.MQTT.ClientID)
	mqttTopicPrefix := strings.Trim(envOr("MQTT_TOPIC_PREFIX", fc.MQTT.TopicPrefix), "/")
	if mqttTopicPrefix == "" {
		return Config{}, fmt.Errorf("MQTT_TOPIC_PREFIX must not be empty")
	}

	if path != "" && !strings.HasPrefix(path, "file:") {
		path = filepath.Clean(path)
	}

	return Config{
		AppEnv:                appEnv,
		LogLevel:              level,
		HTTPAddr:              httpAddr,
		AnalogPath:            analogPath,
		DigitalInputPath:      digitalInputPath,
		DigitalOutputPath:     digitalOutputPath,
		OffsetsPath:           offsetsPath,
		Channels:              channels,
		FilterWindow:          filterWindow,
		SampleInterval:        sampleInterval,
		SQLiteDriver:          driver,
		SQLiteDSN:             dsn,
		SQLitePath:            path,
		SQLiteMaxOpenConns:    maxOpenConns,
		SQLiteMaxIdleConns:    maxIdleConns,
		SQLiteConnMaxLifetime: connMaxLifetime,
		MQTTEnabled:           mqttEnabled,
		MQTTBroker:            mqttBroker,
		MQTTPort:              mqttPort,
		MQTTClientID:          mqttClientID,
		MQTTTopicPrefix:       mqttTopicPrefix,
	}, nil
}

func envOr(key, def string) string {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def
	}
	return s
}

func parseChannels(s string) ([]string, error) {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	if err := validateChannels(out); err != nil {
		return nil, err
	}
	return out, nil
}

func validateChannels(channels []string) error {
	if len(channels) == 0 {
		return fmt.Errorf("CHANNELS must list at least one channel")
	}
	seen := make(map[string]bool, len(channels))
	for _, ch := range channels {
		if ch == "" {
			return fmt.Errorf("invalid CHANNELS %q: empty channel id", strings.Join(channels, ","))
		}
		if seen[ch] {
			return fmt.Errorf("invalid CHANNELS %q: duplicate channel %q", strings.Join(channels, ","), ch)
		}
		seen[ch] = true
	}
	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
