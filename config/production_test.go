package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadProductionConfig_FromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("DB_SQLITE_PATH", ":memory:")
	t.Setenv("JWT_SECRET_KEY", testSecret)
	t.Setenv("JWT_ACCESS_TOKEN_TTL", "15m")
	t.Setenv("BCRYPT_COST", "10")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("CAPTCHA_TOLERANCE", "5.5")
	t.Setenv("SCHEDULER_REANNOTATE_SPEC", "@every 1h")

	cfg, err := LoadProductionConfig()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenTTL)
	assert.Equal(t, 10, cfg.Security.BcryptCost)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Security.AllowedOrigins)
	assert.Equal(t, 5.5, cfg.Captcha.Tolerance)
	assert.Equal(t, "@every 1h", cfg.Scheduler.ReannotateSpec)
}

func TestGetEnvHelpers_FallBackOnGarbage(t *testing.T) {
	t.Setenv("X_INT", "ten")
	t.Setenv("X_BOOL", "maybe")
	t.Setenv("X_DURATION", "soon")

	assert.Equal(t, 3, getEnvInt("X_INT", 3))
	assert.True(t, getEnvBool("X_BOOL", true))
	assert.Equal(t, time.Second, getEnvDuration("X_DURATION", time.Second))
	assert.Equal(t, "fallback", getEnvString("X_UNSET_FOR_TEST", "fallback"))
}

func validConfig() *ProductionConfig {
	return &ProductionConfig{
		Database:  DatabaseConfig{Driver: DriverPostgres, Host: "db", Port: 5432, Name: "parts", User: "parts"},
		Server:    ServerConfig{Port: 8080, ReadTimeout: time.Second, WriteTimeout: time.Second},
		Security:  SecurityConfig{BcryptCost: 12},
		JWT:       JWTConfig{SecretKey: testSecret, AccessTokenTTL: time.Hour, RefreshTokenTTL: 2 * time.Hour},
		Logging:   LoggingConfig{Level: "info", Output: "stdout"},
		Scheduler: SchedulerConfig{ReannotateEnabled: true, ReannotateSpec: "@daily"},
	}
}

func TestValidateProductionConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ProductionConfig)
		wantErr []string
	}{
		{name: "valid", mutate: func(*ProductionConfig) {}},
		{
			name:    "unknown driver",
			mutate:  func(c *ProductionConfig) { c.Database.Driver = "mysql" },
			wantErr: []string{"DB_DRIVER"},
		},
		{
			name: "sqlite skips postgres fields",
			mutate: func(c *ProductionConfig) {
				c.Database = DatabaseConfig{Driver: DriverSQLite, SQLitePath: "parts.db"}
			},
		},
		{
			name:    "short secret and bad cost",
			mutate:  func(c *ProductionConfig) { c.JWT.SecretKey = "short"; c.Security.BcryptCost = 20 },
			wantErr: []string{"JWT_SECRET_KEY", "BCRYPT_COST"},
		},
		{
			name:    "rsa without keys",
			mutate:  func(c *ProductionConfig) { c.JWT.UseRSAKeys = true; c.JWT.SecretKey = "" },
			wantErr: []string{"JWT_PRIVATE_KEY"},
		},
		{
			name:    "file logging without path",
			mutate:  func(c *ProductionConfig) { c.Logging.Output = "both" },
			wantErr: []string{"LOG_FILE_PATH"},
		},
		{
			name:    "reannotate without spec",
			mutate:  func(c *ProductionConfig) { c.Scheduler.ReannotateSpec = "" },
			wantErr: []string{"SCHEDULER_REANNOTATE_SPEC"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := ValidateProductionConfig(cfg)
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.True(t, strings.Contains(err.Error(), want), "missing %q in %v", want, err)
			}
			assert.Equal(t, len(tt.wantErr)-1, strings.Count(err.Error(), "; "))
		})
	}
}
