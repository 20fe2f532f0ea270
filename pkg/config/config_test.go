package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.DB.Driver)
	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, time.Hour, cfg.JWT.Expiration)
	assert.NotEmpty(t, cfg.JWT.SigningKey, "development falls back to a dev secret")
	assert.Equal(t, StorageLocal, cfg.Avatar.Storage)
	assert.Equal(t, 250, cfg.Avatar.Size)
	assert.False(t, cfg.Auth.RequireVerifiedEmail)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", "/tmp/x.db")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_EXPIRATION", "15m")
	t.Setenv("DB_LOG_LEVEL", "silent")
	t.Setenv("RATE_LIMIT_RPS", "0.5")
	t.Setenv("AUTH_REQUIRE_VERIFIED_EMAIL", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.DB.Driver)
	assert.Equal(t, "/tmp/x.db", cfg.DB.Path)
	assert.Equal(t, "s3cret", cfg.JWT.SigningKey)
	assert.Equal(t, 15*time.Minute, cfg.JWT.Expiration)
	assert.Equal(t, logger.Silent, cfg.DB.LogLevel)
	assert.Equal(t, 0.5, cfg.RateLimit.RPS)
	assert.True(t, cfg.Auth.RequireVerifiedEmail)
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			DB:     DBConfig{Driver: DriverMongo},
			JWT:    JWTConfig{SigningKey: "k", Expiration: time.Hour},
			Avatar: AvatarConfig{Storage: StorageLocal, Size: 250},
		}
	}

	require.NoError(t, base().Validate())

	cfg := base()
	cfg.DB.Driver = "mysql"
	assert.ErrorContains(t, cfg.Validate(), "DB_DRIVER")

	cfg = base()
	cfg.Avatar.Storage = StorageS3
	assert.ErrorContains(t, cfg.Validate(), "S3_BUCKET")

	cfg = base()
	cfg.Avatar.Storage = "ftp"
	assert.ErrorContains(t, cfg.Validate(), "AVATAR_STORAGE")
}

func TestGetDSN(t *testing.T) {
	c := DBConfig{Host: "h", Port: "1", User: "u", Password: "p", DBName: "d", SSLMode: "disable"}
	assert.Equal(t, "host=h port=1 user=u password=p dbname=d sslmode=disable", c.GetDSN())
}
