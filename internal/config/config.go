package config

// Package config provides CLI parsing and runtime configuration for the
// ldapsampler tool. Values may also come from a YAML file given with --config;
// its keys are flag names and flags given on the command line win.

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/croessner/ldapsampler/internal/sampler"
)

// Mode selects which scenario to execute.
type Mode string

const (
	ModeAuth   Mode = "auth"
	ModeSearch Mode = "search"
	ModeBoth   Mode = "both"
)

// ErrInvalid wraps every validation failure returned by Parse.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all runtime settings parsed from CLI flags.
type Config struct {
	LDAPURL            string
	StartTLS           bool
	InsecureSkipVerify bool

	LookupBindDN   string
	LookupBindPass string
	BaseDN         string
	UIDAttr        string

	CSVPath string
	Mode    Mode
	Filter  string

	// SaslExternal authenticates user operations in search mode via
	// SASL/EXTERNAL instead of a simple bind. Requires ldapi:// or TLS client
	// certificates.
	SaslExternal bool

	TLSCertPath string
	TLSKeyPath  string

	Concurrency int
	Connections int
	Duration    time.Duration
	Rate        float64 // target requests per second; 0 = unlimited
	Timeout     time.Duration

	// SampleInterval is the cadence at which every latency window is drained.
	// Together with WindowCapacity it bounds the sustainable observation rate
	// per operation before the window wraps.
	SampleInterval time.Duration
	WindowCapacity int

	MetricsListen string // empty disables the HTTP endpoint
	MetricsPath   string
	// OTel additionally publishes every summary through OpenTelemetry
	// instruments, exported on the same endpoint.
	OTel bool

	SummaryLogPath  string
	SummaryLogBatch int

	LogLevel  string
	LogFormat string

	ConfigPath string

	// CheckOnly, when true, runs a quick configuration/connectivity check and exits.
	CheckOnly bool
}

// Parse reads the process arguments.
func Parse() (*Config, error) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses args into a Config and validates it.
func ParseArgs(args []string) (*Config, error) {
	var cfg Config
	var mode string

	fs := pflag.NewFlagSet("ldapsampler", pflag.ContinueOnError)
	fs.StringVar(&cfg.ConfigPath, "config", "", "Optional YAML file with flag defaults (keys are flag names)")
	fs.StringVar(&cfg.LDAPURL, "ldap-url", "ldap://localhost:389", "LDAP URL, e.g. ldap://host:389, ldaps://host:636, or ldapi:// (Unix domain socket)")
	fs.BoolVar(&cfg.StartTLS, "starttls", false, "Use STARTTLS on ldap:// connections")
	fs.BoolVar(&cfg.InsecureSkipVerify, "insecure-skip-verify", false, "Skip TLS certificate verification (unsafe, test only)")
	fs.StringVar(&cfg.TLSCertPath, "tls-cert", "", "Path to TLS client certificate (PEM) for mutual TLS")
	fs.StringVar(&cfg.TLSKeyPath, "tls-key", "", "Path to TLS client private key (PEM) for mutual TLS")
	fs.StringVar(&cfg.LookupBindDN, "lookup-bind-dn", "", "Lookup service account bind DN (optional when --sasl-external is set)")
	fs.StringVar(&cfg.LookupBindPass, "lookup-bind-pass", "", "Lookup service account password (optional when --sasl-external is set)")
	fs.StringVar(&cfg.BaseDN, "base-dn", "", "Base DN for user searches")
	fs.StringVar(&cfg.UIDAttr, "uid-attribute", "uid", "Attribute used to map username to DN (e.g., uid, sAMAccountName)")
	fs.StringVar(&cfg.CSVPath, "csv", "users.csv", "CSV file path with username,password header")
	fs.StringVar(&mode, "mode", string(ModeAuth), "Workload mode: auth|search|both")
	fs.StringVar(&cfg.Filter, "filter", "(objectClass=person)", "LDAP filter for search mode; use %s as username placeholder when desired")
	fs.BoolVar(&cfg.SaslExternal, "sasl-external", false, "Use SASL/EXTERNAL for search mode (and search phase of mode=both)")
	fs.IntVar(&cfg.Concurrency, "concurrency", 32, "Number of concurrent workers")
	fs.IntVar(&cfg.Connections, "connections", 1, "Connections per worker (>=1)")
	fs.DurationVar(&cfg.Duration, "duration", time.Minute, "Total run duration")
	fs.Float64Var(&cfg.Rate, "rate", 0, "Target requests per second (0 = unlimited)")
	fs.DurationVar(&cfg.Timeout, "timeout", 5*time.Second, "Per-request timeout")
	fs.DurationVar(&cfg.SampleInterval, "sample-interval", 15*time.Second, "Interval at which latency windows are sampled and reported")
	fs.IntVar(&cfg.WindowCapacity, "window-capacity", sampler.DefaultCapacity, "Observations kept per operation and interval before the window wraps")
	fs.StringVar(&cfg.MetricsListen, "metrics-listen", "", "Address for the Prometheus endpoint, e.g. :9100 (disabled when empty)")
	fs.StringVar(&cfg.MetricsPath, "metrics-path", "/metrics", "HTTP path of the Prometheus endpoint")
	fs.BoolVar(&cfg.OTel, "otel", false, "Also export summaries through OpenTelemetry instruments (prefix ldapsampler_otel)")
	fs.StringVar(&cfg.SummaryLogPath, "summary-log", "", "Optional path to append every sampled summary as CSV (disabled when empty)")
	fs.IntVar(&cfg.SummaryLogBatch, "summary-batch", 64, "Batch size for summary log writes")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "Log level: debug|info|warn|error")
	fs.StringVar(&cfg.LogFormat, "log-format", "text", "Log format: text|json")
	fs.BoolVar(&cfg.CheckOnly, "check", false, "Only check configuration/connectivity and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.ConfigPath != "" {
		if err := applyFile(fs, cfg.ConfigPath); err != nil {
			return nil, err
		}
	}

	cfg.Mode = Mode(mode)
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyFile sets every flag named in the YAML file that was not given on the
// command line.
func applyFile(fs *pflag.FlagSet, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	for name, v := range values {
		f := fs.Lookup(name)
		if f == nil || name == "config" {
			return fmt.Errorf("%w: unknown key %q in %s", ErrInvalid, name, path)
		}

		if fs.Changed(name) {
			continue
		}

		if err := fs.Set(name, fmt.Sprint(v)); err != nil {
			return fmt.Errorf("%w: key %q in %s: %v", ErrInvalid, name, path, err)
		}
	}

	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalid, msg)
}

func (c *Config) validate() error {
	switch c.Mode {
	case ModeAuth, ModeSearch, ModeBoth:
	default:
		return invalid("mode must be auth, search, or both")
	}

	if c.BaseDN == "" {
		return invalid("base-dn is required")
	}

	// Lookup credentials are required only when not using SASL/EXTERNAL for
	// the lookup connection.
	if !c.SaslExternal && (c.LookupBindDN == "" || c.LookupBindPass == "") {
		return invalid("lookup-bind-dn and lookup-bind-pass are required (or use --sasl-external)")
	}

	if c.Concurrency <= 0 || c.Connections <= 0 {
		return invalid("concurrency and connections must be >= 1")
	}

	if c.SampleInterval <= 0 {
		return invalid("sample-interval must be positive")
	}

	if c.WindowCapacity <= 0 {
		return invalid("window-capacity must be >= 1")
	}

	if c.MetricsListen != "" && !strings.HasPrefix(c.MetricsPath, "/") {
		return invalid("metrics-path must start with /")
	}

	if _, err := c.level(); err != nil {
		return err
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return invalid("log-format must be text or json")
	}

	return nil
}

func (c *Config) level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, invalid("log-level must be debug, info, warn, or error")
	}

	return lvl, nil
}

// Logger builds the process logger writing to w.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	lvl, err := c.level()
	if err != nil {
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// ObservationBudget is the number of observations per second one operation
// can sustain before its window wraps within an interval.
func (c *Config) ObservationBudget() float64 {
	if c.SampleInterval <= 0 {
		return 0
	}

	return float64(c.WindowCapacity) / c.SampleInterval.Seconds()
}

// TLSConfig returns a TLS config honoring InsecureSkipVerify and optional
// client certificates.
func (c *Config) TLSConfig() *tls.Config {
	cfg := &tls.Config{InsecureSkipVerify: c.InsecureSkipVerify}
	if c.TLSCertPath != "" && c.TLSKeyPath != "" {
		if cert, err := tls.LoadX509KeyPair(c.TLSCertPath, c.TLSKeyPath); err == nil {
			cfg.Certificates = []tls.Certificate{cert}
		}
		// A load error is not reported here; the dial fails and surfaces it.
	}

	return cfg
}
