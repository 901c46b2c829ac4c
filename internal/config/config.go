package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lpernett/godotenv"
)

const (
	DefaultServiceURL = "http://localhost:8070/api/"
	DefaultAction     = "processFulltextDocument"
	DefaultSuffix     = ".pdf"

	SinkFile  = "file"
	SinkMinio = "minio"
)

type Config struct {
	InputDir       string
	OutputDir      string
	ServiceBaseURL string
	ActionPath     string
	Concurrency    int

	RequestTimeout      time.Duration
	RetryDelay          time.Duration
	MaxTransportRetries int
	MaxBusyRetries      int

	Preflight        bool
	ProgressInterval time.Duration
	StatusAddr       string

	Sink  string
	Minio MinioConfig

	RabbitMQURL  string
	ResultsQueue string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// ConfigError reports bad or missing startup parameters.
type ConfigError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Load reads .env, environment defaults and then command line flags, in that
// order of precedence (flags win). args excludes the program name.
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("Warning: .env file not found, using defaults")
	}

	cfg, err := fromEnv()
	if err != nil {
		return nil, err
	}

	if err := cfg.parseFlags(args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func fromEnv() (*Config, error) {
	cfg := &Config{
		InputDir:       os.Getenv("GROBID_INPUT_DIR"),
		OutputDir:      os.Getenv("GROBID_OUTPUT_DIR"),
		ServiceBaseURL: getEnvOrDefault("GROBID_URL", DefaultServiceURL),
		ActionPath:     getEnvOrDefault("GROBID_ACTION", DefaultAction),
		StatusAddr:     os.Getenv("GROBID_STATUS_ADDR"),
		Sink:           getEnvOrDefault("GROBID_SINK", SinkFile),
		RabbitMQURL:    os.Getenv("RABBITMQ_URL"),
		ResultsQueue:   getEnvOrDefault("RABBITMQ_RESULTS_QUEUE", "grobid_results"),
		Minio: MinioConfig{
			Endpoint:  getEnvOrDefault("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnvOrDefault("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: getEnvOrDefault("MINIO_SECRET_KEY", "minioadmin123"),
			Bucket:    getEnvOrDefault("MINIO_BUCKET", "grobid-results"),
		},
	}

	var err error
	if cfg.Concurrency, err = envInt("GROBID_CONCURRENCY", 10); err != nil {
		return nil, err
	}
	if cfg.MaxTransportRetries, err = envInt("GROBID_MAX_TRANSPORT_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.MaxBusyRetries, err = envInt("GROBID_MAX_BUSY_RETRIES", 0); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = envDuration("GROBID_REQUEST_TIMEOUT", "180s"); err != nil {
		return nil, err
	}
	if cfg.RetryDelay, err = envDuration("GROBID_RETRY_DELAY", "5s"); err != nil {
		return nil, err
	}
	if cfg.ProgressInterval, err = envDuration("GROBID_PROGRESS_INTERVAL", "10s"); err != nil {
		return nil, err
	}
	if cfg.Preflight, err = envBool("GROBID_PREFLIGHT", false); err != nil {
		return nil, err
	}
	if cfg.Minio.UseSSL, err = envBool("MINIO_USE_SSL", false); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) parseFlags(args []string) error {
	fs := flag.NewFlagSet("grobid-client", flag.ContinueOnError)
	fs.StringVar(&c.InputDir, "in", c.InputDir, "directory of PDF files to process")
	fs.StringVar(&c.OutputDir, "out", c.OutputDir, "directory where TEI results are written (default: input directory)")
	fs.IntVar(&c.Concurrency, "n", c.Concurrency, "number of concurrent calls to the service")
	fs.StringVar(&c.ActionPath, "action", c.ActionPath, "service action, e.g. processFulltextDocument")
	fs.StringVar(&c.ServiceBaseURL, "url", c.ServiceBaseURL, "base URL of the service")
	fs.DurationVar(&c.RequestTimeout, "timeout", c.RequestTimeout, "per request timeout")
	fs.DurationVar(&c.RetryDelay, "retry-delay", c.RetryDelay, "delay before resubmitting a busy item")
	fs.IntVar(&c.MaxTransportRetries, "max-transport-retries", c.MaxTransportRetries, "retries allowed on connection errors")
	fs.IntVar(&c.MaxBusyRetries, "max-busy-retries", c.MaxBusyRetries, "retries allowed on 503 (0 = unlimited)")
	fs.BoolVar(&c.Preflight, "preflight", c.Preflight, "check that every input parses as PDF before uploading it")
	fs.DurationVar(&c.ProgressInterval, "progress", c.ProgressInterval, "progress log interval (0 disables)")
	fs.StringVar(&c.StatusAddr, "status-addr", c.StatusAddr, "address of the status API, e.g. :8081 (empty disables)")
	fs.StringVar(&c.Sink, "sink", c.Sink, "where results are written: file or minio")

	// flag stops at the first non-flag argument, so parsing resumes after
	// each positional one; the action may appear anywhere on the line.
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return &ConfigError{Field: "flags", Reason: err.Error(), Err: err}
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}

	switch len(positional) {
	case 0:
	case 1:
		c.ActionPath = positional[0]
	default:
		return &ConfigError{
			Field:  "action",
			Reason: fmt.Sprintf("expected one action, got %d: %s", len(positional), strings.Join(positional, " ")),
		}
	}

	if c.OutputDir == "" {
		c.OutputDir = c.InputDir
	}

	return nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.InputDir) == "" {
		return &ConfigError{Field: "in", Reason: "input path is not defined"}
	}
	if c.Concurrency <= 0 {
		return &ConfigError{Field: "n", Reason: fmt.Sprintf("concurrency must be positive, got %d", c.Concurrency)}
	}
	if strings.TrimSpace(c.ServiceBaseURL) == "" {
		return &ConfigError{Field: "url", Reason: "service URL is required"}
	}
	if strings.TrimSpace(c.ActionPath) == "" {
		return &ConfigError{Field: "action", Reason: "service action is required"}
	}
	if c.RequestTimeout < 0 {
		return &ConfigError{Field: "timeout", Reason: "must not be negative"}
	}
	if c.RetryDelay < 0 {
		return &ConfigError{Field: "retry-delay", Reason: "must not be negative"}
	}
	if c.MaxTransportRetries < 0 || c.MaxBusyRetries < 0 {
		return &ConfigError{Field: "retries", Reason: "retry limits must not be negative"}
	}
	if c.Sink != SinkFile && c.Sink != SinkMinio {
		return &ConfigError{Field: "sink", Reason: fmt.Sprintf("unknown sink %q", c.Sink)}
	}
	return nil
}

// ServiceURL is the full endpoint of the configured action.
func (c *Config) ServiceURL() string {
	return c.ServiceBaseURL + c.ActionPath
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ConfigError{Field: key, Reason: fmt.Sprintf("not an integer: %q", raw)}
	}
	return v, nil
}

func envBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &ConfigError{Field: key, Reason: fmt.Sprintf("not a boolean: %q", raw)}
	}
	return v, nil
}

func envDuration(key, defaultValue string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnvOrDefault(key, defaultValue))
	if err != nil {
		return 0, &ConfigError{Field: key, Reason: "invalid duration"}
	}
	return d, nil
}
