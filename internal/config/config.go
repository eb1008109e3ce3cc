package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"chitfund-backend/internal/utils"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server        ServerConfig       `yaml:"server"`
	GRPC          GRPCConfig         `yaml:"grpc"`
	Database      DatabaseConfig     `yaml:"database"`
	Redis         RedisConfig        `yaml:"redis"`
	JWT           JWTConfig          `yaml:"jwt"`
	Storage       StorageConfig      `yaml:"storage"`
	Log           LogConfig          `yaml:"log"`
	Settlement    SettlementConfig   `yaml:"settlement"`
	Risk          RiskConfig         `yaml:"risk"`
	Loans         LoanConfig         `yaml:"loans"`
	Notifications NotificationConfig `yaml:"notifications"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	ShutdownSeconds int    `yaml:"shutdown_seconds"`
}

// GRPCConfig contains the health endpoint settings
type GRPCConfig struct {
	Port int `yaml:"port"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	SSLMode      string `yaml:"ssl_mode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// RedisConfig is shared by the auction lock and the asynq client
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	// LockTTLSeconds bounds how long a crashed resolver can hold an auction lock.
	LockTTLSeconds int `yaml:"lock_ttl_seconds"`
}

// JWTConfig contains bearer token settings
type JWTConfig struct {
	Secret            string `yaml:"secret"`
	AccessTokenExpiry int    `yaml:"access_token_expiry_minutes"`
	Issuer            string `yaml:"issuer"`
}

// StorageConfig contains receipt storage settings
type StorageConfig struct {
	Type      string `yaml:"type"`       // "mock" or "gcs"
	UploadDir string `yaml:"upload_dir"` // For mock storage
	BaseURL   string `yaml:"base_url"`   // Server base URL for mock URLs
	Bucket    string `yaml:"bucket"`     // For gcs

	// CredentialsFile is optional; application default credentials are used otherwise.
	CredentialsFile string `yaml:"credentials_file"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// FineTierConfig is one row of the fine table.
type FineTierConfig struct {
	MinDaysLate int    `yaml:"min_days_late"`
	Amount      string `yaml:"amount"`
}

// SettlementConfig controls due dates and fines
type SettlementConfig struct {
	DueDay    int              `yaml:"due_day"`
	GraceDays int              `yaml:"grace_days"`
	FineTiers []FineTierConfig `yaml:"fine_tiers"`
}

// RiskConfig holds the high-risk thresholds
type RiskConfig struct {
	MissedPayments         int `yaml:"missed_payments"`
	ConsecutiveRecentFines int `yaml:"consecutive_recent_fines"`

	// Workers bounds the parallelism of the nightly risk sweep.
	Workers int `yaml:"workers"`
}

// LoanConfig controls the eligibility gate
type LoanConfig struct {
	CooldownDays int `yaml:"cooldown_days"`
}

// NotificationConfig selects how payloads leave the core
type NotificationConfig struct {
	Transport string `yaml:"transport"` // "asynq" or "outbox"
	Queue     string `yaml:"queue"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	ResolveClosedAuctions string `yaml:"resolve_closed_auctions"`
	EvaluateRisk          string `yaml:"evaluate_risk"`
	SendOverdueReminders  string `yaml:"send_overdue_reminders"`
}

// Load reads configuration from a YAML file. A .env file next to the
// process, if any, is loaded first so its values act as env overrides.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse builds a Config from YAML bytes, applies env overrides and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*dst = n
		}
	}
}

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	envString("DB_HOST", &c.Database.Host)
	envInt("DB_PORT", &c.Database.Port)
	envString("DB_USER", &c.Database.User)
	envString("DB_PASSWORD", &c.Database.Password)
	envString("DB_NAME", &c.Database.Database)
	envString("DB_SSL_MODE", &c.Database.SSLMode)

	envString("REDIS_ADDR", &c.Redis.Addr)
	envString("REDIS_PASSWORD", &c.Redis.Password)
	envInt("REDIS_DB", &c.Redis.DB)

	envString("JWT_SECRET", &c.JWT.Secret)

	envString("SERVER_HOST", &c.Server.Host)
	envInt("SERVER_PORT", &c.Server.Port)
	envInt("GRPC_PORT", &c.GRPC.Port)

	envString("STORAGE_TYPE", &c.Storage.Type)
	envString("UPLOAD_DIR", &c.Storage.UploadDir)
	envString("GCS_BUCKET", &c.Storage.Bucket)
	envString("GOOGLE_APPLICATION_CREDENTIALS", &c.Storage.CredentialsFile)

	envString("LOG_LEVEL", &c.Log.Level)
	envString("LOG_FORMAT", &c.Log.Format)

	envString("NOTIFICATION_TRANSPORT", &c.Notifications.Transport)
	envInt("LOAN_COOLDOWN_DAYS", &c.Loans.CooldownDays)
}

// Validate checks if the configuration is valid and fills defaults
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ShutdownSeconds == 0 {
		c.Server.ShutdownSeconds = 10
	}
	if c.GRPC.Port == 0 {
		c.GRPC.Port = c.Server.Port + 1
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}

	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.LockTTLSeconds == 0 {
		c.Redis.LockTTLSeconds = 30
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.AccessTokenExpiry == 0 {
		c.JWT.AccessTokenExpiry = 60
	}

	switch c.Storage.Type {
	case "", "mock":
		c.Storage.Type = "mock"
		if c.Storage.UploadDir == "" {
			return fmt.Errorf("upload directory is required for mock storage")
		}
	case "gcs":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("bucket is required for gcs storage")
		}
	default:
		return fmt.Errorf("unknown storage type: %s", c.Storage.Type)
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.Settlement.DueDay == 0 {
		c.Settlement.DueDay = 15
	}
	if c.Settlement.DueDay < 1 || c.Settlement.DueDay > 31 {
		return fmt.Errorf("invalid due day: %d", c.Settlement.DueDay)
	}
	if c.Settlement.GraceDays < 0 {
		return fmt.Errorf("grace days must be >= 0")
	}
	for i, tier := range c.Settlement.FineTiers {
		if _, err := decimal.NewFromString(tier.Amount); err != nil {
			return fmt.Errorf("fine tier %d: invalid amount %q", i, tier.Amount)
		}
	}

	if c.Risk.MissedPayments == 0 {
		c.Risk.MissedPayments = 2
	}
	if c.Risk.ConsecutiveRecentFines == 0 {
		c.Risk.ConsecutiveRecentFines = 3
	}
	if c.Risk.Workers == 0 {
		c.Risk.Workers = 4
	}

	if c.Loans.CooldownDays == 0 {
		c.Loans.CooldownDays = 30
	}

	switch c.Notifications.Transport {
	case "":
		c.Notifications.Transport = "outbox"
	case "asynq", "outbox":
	default:
		return fmt.Errorf("unknown notification transport: %s", c.Notifications.Transport)
	}
	if c.Notifications.Queue == "" {
		c.Notifications.Queue = "default"
	}

	if c.Scheduler.ResolveClosedAuctions == "" {
		c.Scheduler.ResolveClosedAuctions = "0 */5 * * * *" // every 5 minutes
	}
	if c.Scheduler.EvaluateRisk == "" {
		c.Scheduler.EvaluateRisk = "0 0 1 * * *" // 1 AM UTC
	}
	if c.Scheduler.SendOverdueReminders == "" {
		c.Scheduler.SendOverdueReminders = "0 0 9 * * *" // Daily at 9 AM UTC
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP listen address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetGRPCAddress returns the gRPC health listen address
func (c *Config) GetGRPCAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.GRPC.Port)
}

func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.Redis.LockTTLSeconds) * time.Second
}

func (c *Config) LoanCooldown() time.Duration {
	return time.Duration(c.Loans.CooldownDays) * 24 * time.Hour
}

// FineSchedule builds the fine table; an empty table falls back to the default.
func (s SettlementConfig) FineSchedule() (utils.FineSchedule, error) {
	if len(s.FineTiers) == 0 {
		def := utils.DefaultFineSchedule()
		def.GraceDays = s.GraceDays
		return def, nil
	}
	tiers := make([]utils.FineTier, 0, len(s.FineTiers))
	for _, t := range s.FineTiers {
		amount, err := decimal.NewFromString(t.Amount)
		if err != nil {
			return utils.FineSchedule{}, err
		}
		tiers = append(tiers, utils.FineTier{MinDaysLate: t.MinDaysLate, Amount: amount})
	}
	return utils.NewFineSchedule(s.GraceDays, tiers)
}

func (r RiskConfig) Thresholds() utils.RiskThresholds {
	return utils.RiskThresholds{MissedPayments: r.MissedPayments, ConsecutiveRecentFines: r.ConsecutiveRecentFines}
}
