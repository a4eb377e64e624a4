package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Log          LogConfig
	Approval     ApprovalConfig
	Cost         CostConfig
	Dashboard    DashboardConfig
	Scheduler    SchedulerConfig
	Certificates CertificatesConfig
	Events       EventsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig configures bearer-token verification for actor extraction.
// The service never issues tokens; it only records the actor identity.
type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ApprovalConfig tunes approval workflow deadlines and fallback thresholds.
type ApprovalConfig struct {
	ResponseDeadline     time.Duration
	OverdueAfter         time.Duration
	PendingBottleneckAge time.Duration
	DefaultAutoBelow     float64
	DefaultSupervisorCap float64
	DefaultAdminAbove    float64
	AutoApproveEnabled   bool
	RetroactiveEmergency bool
}

// CostConfig names the reconciliation tolerances applied to cost records.
type CostConfig struct {
	ComponentTolerance float64
	MaterialTolerance  float64
}

// DashboardConfig governs bottleneck/overview exposure and cache tuning.
type DashboardConfig struct {
	Enabled  bool
	CacheTTL time.Duration
}

// SchedulerConfig controls the preventive-maintenance sweep driver.
type SchedulerConfig struct {
	Enabled           bool
	WorkerConcurrency int
	WorkerRetries     int
}

// CertificatesConfig controls completion certificate rendering and storage.
type CertificatesConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	IssuerName      string
}

// EventsConfig sizes the in-process domain event dispatcher.
type EventsConfig struct {
	Workers    int
	BufferSize int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Approval = ApprovalConfig{
		ResponseDeadline:     parseDuration(v.GetString("APPROVAL_RESPONSE_DEADLINE"), 48*time.Hour),
		OverdueAfter:         parseDuration(v.GetString("APPROVAL_OVERDUE_AFTER"), 24*time.Hour),
		PendingBottleneckAge: parseDuration(v.GetString("APPROVAL_BOTTLENECK_AGE"), 72*time.Hour),
		DefaultAutoBelow:     v.GetFloat64("APPROVAL_DEFAULT_AUTO_BELOW"),
		DefaultSupervisorCap: v.GetFloat64("APPROVAL_DEFAULT_SUPERVISOR_CAP"),
		DefaultAdminAbove:    v.GetFloat64("APPROVAL_DEFAULT_ADMIN_ABOVE"),
		AutoApproveEnabled:   v.GetBool("APPROVAL_AUTO_APPROVE_ENABLED"),
		RetroactiveEmergency: v.GetBool("APPROVAL_RETROACTIVE_EMERGENCY"),
	}

	cfg.Cost = CostConfig{
		ComponentTolerance: v.GetFloat64("COST_COMPONENT_TOLERANCE"),
		MaterialTolerance:  v.GetFloat64("COST_MATERIAL_TOLERANCE"),
	}

	cfg.Dashboard = DashboardConfig{
		Enabled:  v.GetBool("ENABLE_DASHBOARD"),
		CacheTTL: parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Scheduler = SchedulerConfig{
		Enabled:           v.GetBool("ENABLE_SCHEDULER"),
		WorkerConcurrency: v.GetInt("SCHEDULER_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("SCHEDULER_WORKER_RETRIES"),
	}

	cfg.Certificates = CertificatesConfig{
		StorageDir:      v.GetString("CERTIFICATES_STORAGE_DIR"),
		SignedURLSecret: v.GetString("CERTIFICATES_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("CERTIFICATES_SIGNED_URL_TTL"), 24*time.Hour),
		IssuerName:      v.GetString("CERTIFICATES_ISSUER_NAME"),
	}

	cfg.Events = EventsConfig{
		Workers:    v.GetInt("EVENTS_WORKERS"),
		BufferSize: v.GetInt("EVENTS_BUFFER_SIZE"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "hostel_maintenance")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("APPROVAL_RESPONSE_DEADLINE", "48h")
	v.SetDefault("APPROVAL_OVERDUE_AFTER", "24h")
	v.SetDefault("APPROVAL_BOTTLENECK_AGE", "72h")
	v.SetDefault("APPROVAL_DEFAULT_AUTO_BELOW", 1000)
	v.SetDefault("APPROVAL_DEFAULT_SUPERVISOR_CAP", 5000)
	v.SetDefault("APPROVAL_DEFAULT_ADMIN_ABOVE", 5000)
	v.SetDefault("APPROVAL_AUTO_APPROVE_ENABLED", true)
	v.SetDefault("APPROVAL_RETROACTIVE_EMERGENCY", true)

	v.SetDefault("COST_COMPONENT_TOLERANCE", 1.0)
	v.SetDefault("COST_MATERIAL_TOLERANCE", 0.01)

	v.SetDefault("ENABLE_DASHBOARD", true)
	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")

	v.SetDefault("ENABLE_SCHEDULER", true)
	v.SetDefault("SCHEDULER_WORKER_CONCURRENCY", 1)
	v.SetDefault("SCHEDULER_WORKER_RETRIES", 3)

	v.SetDefault("CERTIFICATES_STORAGE_DIR", "./certificates")
	v.SetDefault("CERTIFICATES_SIGNED_URL_SECRET", "dev_certificates_secret")
	v.SetDefault("CERTIFICATES_SIGNED_URL_TTL", "24h")
	v.SetDefault("CERTIFICATES_ISSUER_NAME", "Hostel Maintenance Office")

	v.SetDefault("EVENTS_WORKERS", 1)
	v.SetDefault("EVENTS_BUFFER_SIZE", 64)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
