package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Intake     IntakeConfig     `yaml:"intake"`
	OCR        OCRConfig        `yaml:"ocr"`
	Queue      QueueConfig      `yaml:"queue"`
	Submission SubmissionConfig `yaml:"submission"`
	Database   DatabaseConfig   `yaml:"database"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr        string        `yaml:"http_addr"`
	GRPCAddr        string        `yaml:"grpc_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// IntakeConfig bounds the upload surface
type IntakeConfig struct {
	MaxUploadBytes int64   `yaml:"max_upload_bytes"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Tesseract     string        `yaml:"tesseract"`
	Pdftoppm      string        `yaml:"pdftoppm"`
	HeicConverter string        `yaml:"heic_converter"`
	Lang          string        `yaml:"lang"`
	DPI           int           `yaml:"dpi"`
	MaxPages      int           `yaml:"max_pages"`
	TessdataDir   string        `yaml:"tessdata_dir"`
	MaxInstances  int           `yaml:"max_instances"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
}

type QueueConfig struct {
	Workers        int           `yaml:"workers"`
	Size           int           `yaml:"size"`
	ProcessTimeout time.Duration `yaml:"process_timeout"`
}

// SubmissionConfig selects the claims sink: log, sqlite or postgres
type SubmissionConfig struct {
	Sink string `yaml:"sink"`
	DSN  string `yaml:"dsn"`
}

// DatabaseConfig holds postgres pool tuning
type DatabaseConfig struct {
	MaxConns         int32         `yaml:"max_conns"`
	MinConns         int32         `yaml:"min_conns"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	SinkLog      = "log"
	SinkSQLite   = "sqlite"
	SinkPostgres = "postgres"
)

// defaults are keyed by the environment variable name, lowercased for viper
var defaults = map[string]any{
	"http_addr":               ":8080",
	"grpc_addr":               ":9090",
	"shutdown_timeout":        15 * time.Second,
	"intake_max_upload_bytes": int64(20 << 20),
	"intake_rate_limit_rps":   5.0,
	"intake_rate_limit_burst": 10,
	"ocr_tesseract":           "tesseract",
	"ocr_pdftoppm":            "pdftoppm",
	"heic_converter":          "magick",
	"ocr_lang":                "eng",
	"ocr_dpi":                 300,
	"ocr_max_pages":           0,
	"tessdata_prefix":         "",
	"ocr_max_instances":       2,
	"ocr_cache_ttl":           30 * time.Minute,
	"queue_workers":           4,
	"queue_size":              256,
	"queue_process_timeout":   2 * time.Minute,
	"submission_sink":         SinkLog,
	"submission_dsn":          "",
	"db_max_conns":            int32(20),
	"db_min_conns":            int32(0),
	"db_max_conn_lifetime":    30 * time.Minute,
	"db_max_conn_idle_time":   5 * time.Minute,
	"db_dial_timeout":         3 * time.Second,
	"db_statement_timeout":    time.Duration(0),
	"log_level":               "info",
	"log_format":              "json",
}

// NewViper returns a viper instance with every default registered and
// environment variables bound.
func NewViper() *viper.Viper {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// LoadDotEnv loads .env files into the process environment. Missing files are ignored.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		_ = godotenv.Load()
		return
	}
	for _, p := range paths {
		_ = godotenv.Load(p)
	}
}

// ReadConfigFile merges a YAML config file into v; an empty path is a no-op.
func ReadConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return NewAppError("CONFIG_ERROR", "cannot read config file "+path, err)
	}
	return nil
}

// LoadConfig loads configuration from v (defaults, config file, environment, flags)
func LoadConfig(v *viper.Viper) *Config {
	if v == nil {
		v = NewViper()
	}
	return &Config{
		Server: ServerConfig{
			HTTPAddr:        v.GetString("http_addr"),
			GRPCAddr:        v.GetString("grpc_addr"),
			ShutdownTimeout: v.GetDuration("shutdown_timeout"),
		},
		Intake: IntakeConfig{
			MaxUploadBytes: v.GetInt64("intake_max_upload_bytes"),
			RateLimitRPS:   v.GetFloat64("intake_rate_limit_rps"),
			RateLimitBurst: v.GetInt("intake_rate_limit_burst"),
		},
		OCR: OCRConfig{
			Tesseract:     v.GetString("ocr_tesseract"),
			Pdftoppm:      v.GetString("ocr_pdftoppm"),
			HeicConverter: v.GetString("heic_converter"),
			Lang:          v.GetString("ocr_lang"),
			DPI:           v.GetInt("ocr_dpi"),
			MaxPages:      v.GetInt("ocr_max_pages"),
			TessdataDir:   v.GetString("tessdata_prefix"),
			MaxInstances:  v.GetInt("ocr_max_instances"),
			CacheTTL:      v.GetDuration("ocr_cache_ttl"),
		},
		Queue: QueueConfig{
			Workers:        v.GetInt("queue_workers"),
			Size:           v.GetInt("queue_size"),
			ProcessTimeout: v.GetDuration("queue_process_timeout"),
		},
		Submission: SubmissionConfig{
			Sink: strings.ToLower(strings.TrimSpace(v.GetString("submission_sink"))),
			DSN:  v.GetString("submission_dsn"),
		},
		Database: DatabaseConfig{
			MaxConns:         v.GetInt32("db_max_conns"),
			MinConns:         v.GetInt32("db_min_conns"),
			MaxConnLifetime:  v.GetDuration("db_max_conn_lifetime"),
			MaxConnIdleTime:  v.GetDuration("db_max_conn_idle_time"),
			DialTimeout:      v.GetDuration("db_dial_timeout"),
			StatementTimeout: v.GetDuration("db_statement_timeout"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log_level")),
			Format: strings.ToLower(v.GetString("log_format")),
		},
	}
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator()
	v.Field("HTTP_ADDR", c.Server.HTTPAddr, Required)
	v.Field("GRPC_ADDR", c.Server.GRPCAddr, Required)
	v.Field("OCR_LANG", c.OCR.Lang, Required)
	v.Field("QUEUE_WORKERS", c.Queue.Workers, Positive)
	v.Field("QUEUE_SIZE", c.Queue.Size, Positive)
	v.Field("QUEUE_PROCESS_TIMEOUT", c.Queue.ProcessTimeout, Positive)
	v.Field("OCR_MAX_INSTANCES", c.OCR.MaxInstances, Positive)
	v.Field("OCR_DPI", c.OCR.DPI, Positive)
	v.Field("INTAKE_MAX_UPLOAD_BYTES", c.Intake.MaxUploadBytes, Positive)
	v.Field("INTAKE_RATE_LIMIT_RPS", c.Intake.RateLimitRPS, Positive)
	v.Field("INTAKE_RATE_LIMIT_BURST", c.Intake.RateLimitBurst, Positive)
	v.Field("SUBMISSION_SINK", c.Submission.Sink, OneOf(SinkLog, SinkSQLite, SinkPostgres))
	v.Field("LOG_FORMAT", c.Log.Format, OneOf("json", "text"))
	v.Field("LOG_LEVEL", c.Log.Level, OneOf("debug", "info", "warn", "error"))
	if c.Submission.Sink == SinkSQLite || c.Submission.Sink == SinkPostgres {
		v.Field("SUBMISSION_DSN", c.Submission.DSN, Required)
	}
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.Submission.DSN != "" && c.Submission.Sink == SinkPostgres {
		c.Submission.DSN = redactDSN(c.Submission.DSN)
	}
	return c
}

func redactDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	creds := dsn[scheme+3 : at]
	if user, _, ok := strings.Cut(creds, ":"); ok {
		return fmt.Sprintf("%s%s:****%s", dsn[:scheme+3], user, dsn[at:])
	}
	return dsn
}
