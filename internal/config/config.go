// Package config loads netmonitor settings from defaults, an optional YAML
// file, NETMON_* environment variables and command line flags, in that order.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
)

// Defaults.
const (
	DefaultAddr               = ":8000"
	DefaultGRPCAddr           = ":9000"
	DefaultOUIDBPath          = "data/oui/ieee_oui.db"
	DefaultScanTimeout        = 30
	DefaultMaxConcurrentScans = 100
	DefaultScanRange          = "192.168.1.0/24"
	DefaultWebhookTimeout     = 30 * time.Second
	DefaultNATSSubject        = "netmonitor.automation"
	DefaultAMQPQueue          = "netmonitor.automation"
	DefaultVendorLookupURL    = "https://api.macvendors.com/"
	DefaultPersistenceBuffer  = 1000
)

// Config holds all application configuration.
type Config struct {
	Addr     string `yaml:"addr"`
	GRPCAddr string `yaml:"grpc_addr"`

	DBPath    string `yaml:"db_path"`
	OUIDBPath string `yaml:"oui_db_path"`

	LogLevel string `yaml:"log_level"`
	Tracing  bool   `yaml:"tracing"`
	MockMode bool   `yaml:"mock_mode"`

	ScanTimeout        int    `yaml:"scan_timeout"`
	MaxConcurrentScans int    `yaml:"max_concurrent_scans"`
	DefaultScanRange   string `yaml:"default_scan_range"`
	ScanPorts          []int  `yaml:"scan_ports"`
	RulesPath          string `yaml:"rules_path"`

	AutomationEnabled bool          `yaml:"automation_enabled"`
	WebhookURL        string        `yaml:"webhook_url"`
	WebhookTimeout    time.Duration `yaml:"webhook_timeout"`
	NATSURL           string        `yaml:"nats_url"`
	NATSSubject       string        `yaml:"nats_subject"`
	AMQPURL           string        `yaml:"amqp_url"`
	AMQPQueue         string        `yaml:"amqp_queue"`

	OnlineVendorLookup bool   `yaml:"online_vendor_lookup"`
	VendorLookupURL    string `yaml:"vendor_lookup_url"`

	PersistenceEnabled bool `yaml:"persistence_enabled"`
	PersistenceBuffer  int  `yaml:"persistence_buffer"`

	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Addr:               DefaultAddr,
		GRPCAddr:           DefaultGRPCAddr,
		DBPath:             getDefaultDBPath(),
		OUIDBPath:          DefaultOUIDBPath,
		LogLevel:           "info",
		ScanTimeout:        DefaultScanTimeout,
		MaxConcurrentScans: DefaultMaxConcurrentScans,
		DefaultScanRange:   DefaultScanRange,
		WebhookTimeout:     DefaultWebhookTimeout,
		NATSSubject:        DefaultNATSSubject,
		AMQPQueue:          DefaultAMQPQueue,
		VendorLookupURL:    DefaultVendorLookupURL,
		PersistenceEnabled: true,
		PersistenceBuffer:  DefaultPersistenceBuffer,
		AllowedOrigins: []string{
			"http://localhost:3000",
			"http://localhost:8000",
			"http://127.0.0.1:3000",
			"http://127.0.0.1:8000",
		},
	}
}

// Load reads the configuration for the running process.
func Load() (*Config, error) {
	return LoadArgs(os.Args[1:])
}

// LoadArgs builds the configuration from args. Flags take precedence over
// environment variables, which take precedence over the YAML file.
func LoadArgs(args []string) (*Config, error) {
	cfg := Default()

	path := getEnv("NETMON_CONFIG", "")
	if v, ok := lookupArg(args, "config"); ok {
		path = v
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.parseFlags(args, path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Addr = getEnv("NETMON_ADDR", c.Addr)
	c.GRPCAddr = getEnv("NETMON_GRPC_ADDR", c.GRPCAddr)
	c.DBPath = getEnv("NETMON_DB", c.DBPath)
	c.OUIDBPath = getEnv("NETMON_OUI_DB", c.OUIDBPath)
	c.LogLevel = getEnv("NETMON_LOG_LEVEL", c.LogLevel)
	c.Tracing = getEnvBool("NETMON_TRACING", c.Tracing)
	c.MockMode = getEnvBool("NETMON_MOCK", c.MockMode)

	c.ScanTimeout = getEnvInt("NETMON_SCAN_TIMEOUT", c.ScanTimeout)
	c.MaxConcurrentScans = getEnvInt("NETMON_MAX_CONCURRENT_SCANS", c.MaxConcurrentScans)
	c.DefaultScanRange = getEnv("NETMON_SCAN_RANGE", c.DefaultScanRange)
	if v, ok := os.LookupEnv("NETMON_SCAN_PORTS"); ok {
		if ports, err := parsePorts(v); err == nil {
			c.ScanPorts = ports
		}
	}
	c.RulesPath = getEnv("NETMON_RULES", c.RulesPath)

	c.AutomationEnabled = getEnvBool("NETMON_AUTOMATION_ENABLED", c.AutomationEnabled)
	c.WebhookURL = getEnv("NETMON_WEBHOOK_URL", c.WebhookURL)
	c.WebhookTimeout = getEnvDuration("NETMON_WEBHOOK_TIMEOUT", c.WebhookTimeout)
	c.NATSURL = getEnv("NETMON_NATS_URL", c.NATSURL)
	c.NATSSubject = getEnv("NETMON_NATS_SUBJECT", c.NATSSubject)
	c.AMQPURL = getEnv("NETMON_AMQP_URL", c.AMQPURL)
	c.AMQPQueue = getEnv("NETMON_AMQP_QUEUE", c.AMQPQueue)

	c.OnlineVendorLookup = getEnvBool("NETMON_ONLINE_VENDOR_LOOKUP", c.OnlineVendorLookup)
	c.VendorLookupURL = getEnv("NETMON_VENDOR_LOOKUP_URL", c.VendorLookupURL)

	c.PersistenceEnabled = getEnvBool("NETMON_PERSISTENCE", c.PersistenceEnabled)
	c.PersistenceBuffer = getEnvInt("NETMON_PERSISTENCE_BUFFER", c.PersistenceBuffer)

	if v, ok := os.LookupEnv("NETMON_ALLOWED_ORIGINS"); ok {
		c.AllowedOrigins = splitList(v)
	}
}

func (c *Config) parseFlags(args []string, configPath string) error {
	fs := flag.NewFlagSet("netmonitor", flag.ContinueOnError)

	ports := joinPorts(c.ScanPorts)
	origins := strings.Join(c.AllowedOrigins, ",")
	debug := false

	fs.String("config", configPath, "Path to a YAML configuration file")
	fs.StringVar(&c.Addr, "addr", c.Addr, "HTTP server address")
	fs.StringVar(&c.GRPCAddr, "grpc", c.GRPCAddr, "gRPC health server address (empty to disable)")
	fs.StringVar(&c.DBPath, "db", c.DBPath, "Path to SQLite database")
	fs.StringVar(&c.OUIDBPath, "oui-db", c.OUIDBPath, "Path to the IEEE OUI database")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level: debug, info, warn, error")
	fs.BoolVar(&debug, "debug", false, "Enable verbose debug logging")
	fs.BoolVar(&c.Tracing, "trace", c.Tracing, "Export OpenTelemetry spans to stdout")
	fs.BoolVar(&c.MockMode, "mock", c.MockMode, "Run against a simulated network")
	fs.IntVar(&c.ScanTimeout, "scan-timeout", c.ScanTimeout, "Default scan timeout in seconds")
	fs.IntVar(&c.MaxConcurrentScans, "max-scans", c.MaxConcurrentScans, "Maximum concurrently executing scans")
	fs.StringVar(&c.DefaultScanRange, "scan-range", c.DefaultScanRange, "Default network discovery range")
	fs.StringVar(&ports, "ports", ports, "Comma separated default probe ports")
	fs.StringVar(&c.RulesPath, "rules", c.RulesPath, "Path to exposure rules YAML (empty for built-in rules)")
	fs.BoolVar(&c.AutomationEnabled, "automation", c.AutomationEnabled, "Deliver automation events")
	fs.StringVar(&c.WebhookURL, "webhook", c.WebhookURL, "Power Automate webhook URL")
	fs.DurationVar(&c.WebhookTimeout, "webhook-timeout", c.WebhookTimeout, "Webhook request timeout")
	fs.StringVar(&c.NATSURL, "nats", c.NATSURL, "NATS server URL for automation events")
	fs.StringVar(&c.AMQPURL, "amqp", c.AMQPURL, "AMQP broker URL for automation events")
	fs.BoolVar(&c.OnlineVendorLookup, "online-vendor-lookup", c.OnlineVendorLookup, "Query an online OUI service for unknown vendors")
	fs.BoolVar(&c.PersistenceEnabled, "persist", c.PersistenceEnabled, "Persist inventory and scans to the database")
	fs.StringVar(&origins, "origins", origins, "Comma separated WebSocket origins")

	if err := fs.Parse(args); err != nil {
		return err
	}

	parsed, err := parsePorts(ports)
	if err != nil {
		return domain.NewValidationError("ports", ports, domain.ErrOutOfRange)
	}
	c.ScanPorts = parsed
	c.AllowedOrigins = splitList(origins)
	if debug {
		c.LogLevel = "debug"
	}
	return nil
}

// Validate checks every field that would otherwise fail deep inside a component.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return domain.NewValidationError("addr", c.Addr, domain.ErrRequired)
	}
	if c.DBPath == "" {
		return domain.NewValidationError("db_path", c.DBPath, domain.ErrRequired)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.ScanTimeout < 1 || c.ScanTimeout > domain.MaxScanTimeout {
		return domain.NewValidationError("scan_timeout", strconv.Itoa(c.ScanTimeout), domain.ErrOutOfRange)
	}
	if c.MaxConcurrentScans < 1 {
		return domain.NewValidationError("max_concurrent_scans", strconv.Itoa(c.MaxConcurrentScans), domain.ErrOutOfRange)
	}
	if !domain.IsValidTarget(c.DefaultScanRange) {
		return domain.NewValidationError("default_scan_range", c.DefaultScanRange, domain.ErrInvalidTarget)
	}
	for _, p := range c.ScanPorts {
		if p < 1 || p > 65535 {
			return domain.NewValidationError("scan_ports", strconv.Itoa(p), domain.ErrOutOfRange)
		}
	}
	if c.WebhookTimeout <= 0 {
		return domain.NewValidationError("webhook_timeout", c.WebhookTimeout.String(), domain.ErrOutOfRange)
	}
	for field, raw := range map[string]string{"webhook_url": c.WebhookURL, "vendor_lookup_url": c.VendorLookupURL} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return domain.NewValidationError(field, raw, ErrInvalidURL)
		}
	}
	if c.PersistenceBuffer < 1 {
		return domain.NewValidationError("persistence_buffer", strconv.Itoa(c.PersistenceBuffer), domain.ErrOutOfRange)
	}
	return nil
}

// SlogLevel returns the configured level for the slog handler.
func (c *Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

// ScanTimeoutDuration returns ScanTimeout as a duration.
func (c *Config) ScanTimeoutDuration() time.Duration {
	return time.Duration(c.ScanTimeout) * time.Second
}

// ErrInvalidURL is the cause recorded for malformed endpoint URLs.
var ErrInvalidURL = errors.New("must be an absolute http(s) URL")

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, domain.NewValidationError("log_level", s, domain.ErrInvalidEnum)
	}
	return level, nil
}

// lookupArg finds -name value, -name=value and their double dash forms.
func lookupArg(args []string, name string) (string, bool) {
	for i, a := range args {
		if a == "--" {
			break
		}
		trimmed := strings.TrimLeft(a, "-")
		if trimmed == a || len(a)-len(trimmed) > 2 {
			continue
		}
		if trimmed == name && i+1 < len(args) {
			return args[i+1], true
		}
		if v, ok := strings.CutPrefix(trimmed, name+"="); ok {
			return v, true
		}
	}
	return "", false
}

func parsePorts(s string) ([]int, error) {
	var ports []int
	for _, part := range splitList(s) {
		p, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		ports = append(ports, p)
	}
	return ports, nil
}

func joinPorts(ports []int) string {
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ",")
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// getDefaultDBPath returns the default database path in user's home directory.
// Creates the directory if it doesn't exist.
func getDefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		slog.Warn("could not get user home directory, using current dir", "error", err)
		return "netmonitor.db"
	}

	dir := filepath.Join(home, ".netmonitor")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Warn("could not create .netmonitor directory, using current dir", "error", err)
		return "netmonitor.db"
	}

	return filepath.Join(dir, "netmonitor.db")
}
