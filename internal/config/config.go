package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Development defaults. Production refuses to start with them.
const (
	DefaultAdminPassword = "admin"
	DefaultSessionSecret = "default-secret-key-change-me"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Admin    AdminConfig
	Survey   SurveyConfig
	Backup   BackupConfig
}

type ServerConfig struct {
	Port           string
	Environment    string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Type     string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SQLPath  string
}

// AdminConfig holds the shared admin password and the session cookie settings.
// PasswordHash, when set, takes precedence over the plain Password.
type AdminConfig struct {
	Password      string
	PasswordHash  string
	SessionSecret string
	SessionTTL    time.Duration
	SecureCookie  bool
}

type SurveyConfig struct {
	// AnonymityThreshold is the minimum number of responses before aggregates are disclosed.
	AnonymityThreshold int
}

type BackupConfig struct {
	Dir       string
	Retention int
	Compress  bool
	Schedule  string // cron expression, empty disables scheduled backups
}

func Load() *Config {
	// Load .env if present
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	env := getEnv("ENV", "development")

	return &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Environment:    env,
			AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),
		},
		Database: DatabaseConfig{
			Type:     getEnv("DB_TYPE", "sqlite"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "teachereval"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "teachereval_db"),
			SQLPath:  getEnv("SQLITE_PATH", "./teachereval.db"),
		},
		Admin: AdminConfig{
			Password:      getEnv("ADMIN_PASSWORD", DefaultAdminPassword),
			PasswordHash:  getEnv("ADMIN_PASSWORD_HASH", ""),
			SessionSecret: getEnv("SESSION_SECRET", DefaultSessionSecret),
			SessionTTL:    parseDuration(getEnv("SESSION_TTL", "8h"), 8*time.Hour),
			SecureCookie:  env == "production",
		},
		Survey: SurveyConfig{
			AnonymityThreshold: parseInt(getEnv("ANONYMITY_THRESHOLD", "5"), 5),
		},
		Backup: BackupConfig{
			Dir:       getEnv("BACKUP_DIR", "./backups"),
			Retention: parseInt(getEnv("BACKUP_RETENTION", "10"), 10),
			Compress:  parseBool(getEnv("BACKUP_COMPRESS", "true"), true),
			Schedule:  getEnv("BACKUP_SCHEDULE", ""),
		},
	}
}

// Validate rejects settings the server must not run with.
func (c *Config) Validate() error {
	if c.Survey.AnonymityThreshold < 1 {
		return fmt.Errorf("anonymity threshold must be at least 1, got %d", c.Survey.AnonymityThreshold)
	}
	if c.Server.Environment != "production" {
		return nil
	}
	if c.Admin.PasswordHash == "" && c.Admin.Password == DefaultAdminPassword {
		return errors.New("ADMIN_PASSWORD or ADMIN_PASSWORD_HASH must be changed from the default in production")
	}
	if c.Admin.SessionSecret == DefaultSessionSecret || c.Admin.SessionSecret == "" {
		return errors.New("SESSION_SECRET must be set in production")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration format for %s, using default", s)
		return fallback
	}
	return duration
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		log.Printf("Invalid integer %q, using default %d", s, fallback)
		return fallback
	}
	return n
}

func parseBool(s string, fallback bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		log.Printf("Invalid boolean %q, using default %t", s, fallback)
		return fallback
	}
	return b
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
