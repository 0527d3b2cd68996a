package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_TYPE", "ANONYMITY_THRESHOLD", "BACKUP_RETENTION", "BACKUP_COMPRESS", "SESSION_TTL", "ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, 5, cfg.Survey.AnonymityThreshold)
	assert.Equal(t, 10, cfg.Backup.Retention)
	assert.True(t, cfg.Backup.Compress)
	assert.Equal(t, 8*time.Hour, cfg.Admin.SessionTTL)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ANONYMITY_THRESHOLD", "3")
	t.Setenv("BACKUP_RETENTION", "2")
	t.Setenv("BACKUP_COMPRESS", "false")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test")

	cfg := Load()

	assert.Equal(t, 3, cfg.Survey.AnonymityThreshold)
	assert.Equal(t, 2, cfg.Backup.Retention)
	assert.False(t, cfg.Backup.Compress)
	assert.Equal(t, 30*time.Minute, cfg.Admin.SessionTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("ANONYMITY_THRESHOLD", "many")
	t.Setenv("SESSION_TTL", "soon")
	t.Setenv("BACKUP_COMPRESS", "maybe")

	cfg := Load()

	assert.Equal(t, 5, cfg.Survey.AnonymityThreshold)
	assert.Equal(t, 8*time.Hour, cfg.Admin.SessionTTL)
	assert.True(t, cfg.Backup.Compress)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Environment: "production"},
			Admin: AdminConfig{
				Password:      "s3cret-pass",
				SessionSecret: "a-long-random-secret",
			},
			Survey: SurveyConfig{AnonymityThreshold: 5},
		}
	}

	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr string
	}{
		{name: "custom credentials", modify: func(*Config) {}},
		{
			name:    "default password in production",
			modify:  func(c *Config) { c.Admin.Password = DefaultAdminPassword },
			wantErr: "ADMIN_PASSWORD",
		},
		{
			name: "default password with a hash configured",
			modify: func(c *Config) {
				c.Admin.Password = DefaultAdminPassword
				c.Admin.PasswordHash = "$2a$10$abcdefghijklmnopqrstuu2NqGvJ0Jb8m8Q2V9aV1Kk0q6QmYyW3e"
			},
		},
		{
			name:    "default session secret in production",
			modify:  func(c *Config) { c.Admin.SessionSecret = DefaultSessionSecret },
			wantErr: "SESSION_SECRET",
		},
		{
			name:    "empty session secret in production",
			modify:  func(c *Config) { c.Admin.SessionSecret = "" },
			wantErr: "SESSION_SECRET",
		},
		{
			name: "defaults are fine in development",
			modify: func(c *Config) {
				c.Server.Environment = "development"
				c.Admin.Password = DefaultAdminPassword
				c.Admin.SessionSecret = DefaultSessionSecret
			},
		},
		{
			name:    "threshold below one",
			modify:  func(c *Config) { c.Survey.AnonymityThreshold = 0 },
			wantErr: "anonymity threshold",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoadDefaultsRejectedInProduction(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("ADMIN_PASSWORD", "")
	t.Setenv("ADMIN_PASSWORD_HASH", "")
	t.Setenv("SESSION_SECRET", "")

	cfg := Load()

	assert.True(t, cfg.Admin.SecureCookie)
	assert.Error(t, cfg.Validate())
}
