package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		JWTSecret:       "secure-secret-at-least-32-chars-long",
		DBPassword:      "secure-password",
		Port:            "8080",
		DBDriver:        "postgres",
		UploadMaxFileMB: 4,
		UploadMinFiles:  2,
		UploadMaxFiles:  4,
		ReviewCooldown:  24 * time.Hour,
	}
}

func TestConfig_ValidateSSLMode(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		expectError bool
	}{
		{"Production with empty SSL mode", "production", "", true},
		{"Production with disable SSL mode", "production", "disable", true},
		{"Production with require SSL mode", "production", "require", false},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			c.Env = tt.env
			c.DBSSLMode = tt.sslMode

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateUploadBounds(t *testing.T) {
	c := validConfig()
	c.UploadMinFiles = 5
	assert.Error(t, c.Validate())

	c = validConfig()
	c.UploadMaxFileMB = 0
	assert.Error(t, c.Validate())

	c = validConfig()
	c.DBDriver = "mysql"
	assert.Error(t, c.Validate())
}

func TestConfig_UploadMaxFileBytes(t *testing.T) {
	c := validConfig()
	assert.Equal(t, int64(4*1024*1024), c.UploadMaxFileBytes())
}

func TestLoadConfig_Defaults(t *testing.T) {
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("DB_SSLMODE")
	defer viper.Reset()

	os.Setenv("APP_ENV", "development")
	os.Setenv("DB_SSLMODE", "  DISABLE  ")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, 24*time.Hour, c.ReviewCooldown)
	assert.Equal(t, 2, c.UploadMinFiles)
	assert.Equal(t, 4, c.UploadMaxFiles)
	assert.Equal(t, int64(4*1024*1024), c.UploadMaxFileBytes())
}
