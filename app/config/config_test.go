package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

var goodSecret = strings.Repeat("k", MinSecretBytes)

func TestFromEnvRequiresSecret(t *testing.T) {
	_, err := FromEnv(envOf(map[string]string{
		"APP_ENV":      "development",
		"DATABASE_URL": "postgres://x",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")

	_, err = FromEnv(envOf(map[string]string{
		"APP_ENV":    "development",
		"JWT_SECRET": "short",
	}))
	require.Error(t, err)
}

func TestFromEnvDatabaseDefaultOnlyInDevelopment(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		"APP_ENV":    "development",
		"JWT_SECRET": goodSecret,
	}))
	require.NoError(t, err)
	assert.Equal(t, developmentDSN, cfg.DatabaseURL)
	assert.True(t, cfg.IsDevelopment())

	_, err = FromEnv(envOf(map[string]string{"JWT_SECRET": goodSecret}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		"JWT_SECRET":   goodSecret,
		"DATABASE_URL": "postgres://db/exam",
	}))
	require.NoError(t, err)
	assert.Equal(t, EnvProduction, cfg.Env)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, int64(10<<20), cfg.MaxSubmissionSize)
	assert.Equal(t, int64(5<<20), cfg.MaxAvatarSize)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Empty(t, cfg.AdminPassword)
}

func TestFromEnvB2RequiresCredentials(t *testing.T) {
	_, err := FromEnv(envOf(map[string]string{
		"JWT_SECRET":      goodSecret,
		"DATABASE_URL":    "postgres://db/exam",
		"STORAGE_BACKEND": "b2",
	}))
	require.Error(t, err)

	cfg, err := FromEnv(envOf(map[string]string{
		"JWT_SECRET":      goodSecret,
		"DATABASE_URL":    "postgres://db/exam",
		"STORAGE_BACKEND": "B2",
		"B2_KEY_ID":       "id",
		"B2_APP_KEY":      "key",
		"B2_BUCKET":       "exams",
	}))
	require.NoError(t, err)
	assert.Equal(t, "b2", cfg.Storage.Backend)
}

func TestFromEnvRejectsBadNumbers(t *testing.T) {
	_, err := FromEnv(envOf(map[string]string{
		"JWT_SECRET":        goodSecret,
		"DATABASE_URL":      "postgres://db/exam",
		"MAX_SUBMISSION_MB": "ten",
	}))
	require.Error(t, err)
}

func TestDatabaseFromEnvNeedsNoSecret(t *testing.T) {
	cfg, err := databaseFromEnv(envOf(map[string]string{
		"DATABASE_URL": "postgres://db/exams",
		"BCRYPT_COST":  "10",
	}))
	require.NoError(t, err)
	assert.Equal(t, "postgres://db/exams", cfg.DatabaseURL)
	assert.Equal(t, 10, cfg.BcryptCost)

	_, err = databaseFromEnv(envOf(nil))
	assert.Error(t, err, "production needs DATABASE_URL")
}
