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

	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
	Admin    AdminConfig
	Ingest   IngestConfig
	Schedule ScheduleConfig
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

type LogConfig struct {
	Level  string
	Format string
}

// AdminConfig guards the ingest and sync endpoints.
type AdminConfig struct {
	JWTSecret     string
	JWTExpiration time.Duration
}

// IngestConfig drives discovery, download and parsing of timetable files.
type IngestConfig struct {
	ScheduleURL     string
	DownloadDir     string
	MaxFiles        int
	SyncInterval    time.Duration
	ListTimeout     time.Duration
	DownloadTimeout time.Duration
	// WorkbookColumns is the positional layout of workbook rows after the
	// header row, comma separated. Recognised names: date, time, subject,
	// teacher, room, group.
	WorkbookColumns []string
	// SheetContentHash hashes the fetched CSV bytes of a shared sheet instead
	// of keying on the synthetic gsheet:<url> token, so re-importing an
	// unchanged sheet is skipped.
	SheetContentHash bool
}

// ScheduleConfig tunes the query-side cache.
type ScheduleConfig struct {
	CacheEnabled bool
	DayCacheTTL  time.Duration
	WeekCacheTTL time.Duration
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

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Admin = AdminConfig{
		JWTSecret:     v.GetString("ADMIN_JWT_SECRET"),
		JWTExpiration: parseDuration(v.GetString("ADMIN_JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.Ingest = IngestConfig{
		ScheduleURL:      v.GetString("INGEST_SCHEDULE_URL"),
		DownloadDir:      v.GetString("INGEST_DOWNLOAD_DIR"),
		MaxFiles:         v.GetInt("INGEST_MAX_FILES"),
		SyncInterval:     parseDuration(v.GetString("INGEST_SYNC_INTERVAL"), 24*time.Hour),
		ListTimeout:      parseDuration(v.GetString("INGEST_LIST_TIMEOUT"), 20*time.Second),
		DownloadTimeout:  parseDuration(v.GetString("INGEST_DOWNLOAD_TIMEOUT"), 60*time.Second),
		WorkbookColumns:  splitAndTrim(v.GetString("INGEST_WORKBOOK_COLUMNS")),
		SheetContentHash: v.GetBool("INGEST_SHEET_CONTENT_HASH"),
	}

	cfg.Schedule = ScheduleConfig{
		CacheEnabled: v.GetBool("SCHEDULE_CACHE_ENABLED"),
		DayCacheTTL:  parseDuration(v.GetString("SCHEDULE_DAY_CACHE_TTL"), 15*time.Minute),
		WeekCacheTTL: parseDuration(v.GetString("SCHEDULE_WEEK_CACHE_TTL"), 30*time.Minute),
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
	v.SetDefault("DB_NAME", "timetable")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ADMIN_JWT_SECRET", "dev_secret")
	v.SetDefault("ADMIN_JWT_EXPIRATION", "24h")

	v.SetDefault("INGEST_SCHEDULE_URL", "https://guu.ru/student/schedule/")
	v.SetDefault("INGEST_DOWNLOAD_DIR", "./downloads")
	v.SetDefault("INGEST_MAX_FILES", 0)
	v.SetDefault("INGEST_SYNC_INTERVAL", "24h")
	v.SetDefault("INGEST_LIST_TIMEOUT", "20s")
	v.SetDefault("INGEST_DOWNLOAD_TIMEOUT", "60s")
	v.SetDefault("INGEST_WORKBOOK_COLUMNS", "date,time,subject,teacher,room,group")
	v.SetDefault("INGEST_SHEET_CONTENT_HASH", true)

	v.SetDefault("SCHEDULE_CACHE_ENABLED", true)
	v.SetDefault("SCHEDULE_DAY_CACHE_TTL", "15m")
	v.SetDefault("SCHEDULE_WEEK_CACHE_TTL", "30m")
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
