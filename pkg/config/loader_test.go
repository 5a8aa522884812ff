package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
year: 2025
db:
  host: localhost
  port: 5432
  password: ${DB_SECRET}
mail:
  provider: none
`)
	writeFile(t, dir, "production.yaml", `
db:
  host: db.internal
mail:
  provider: sendgrid
`)
	writeFile(t, dir, "secrets.env", `
# comment
DB_SECRET="s3cret"
`)

	tcases := []struct {
		name     string
		env      string
		host     string
		provider string
	}{
		{name: "base only", env: "base", host: "localhost", provider: "none"},
		{name: "missing env file falls back to base", env: "staging", host: "localhost", provider: "none"},
		{name: "env file overrides nested keys", env: "production", host: "db.internal", provider: "sendgrid"},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			cfgMap, err := LoadConfig(tc.env, dir)
			require.NoError(t, err)

			var cfg struct {
				Year int        `yaml:"year"`
				DB   DBConfig   `yaml:"db"`
				Mail MailConfig `yaml:"mail"`
			}
			require.NoError(t, Decode(cfgMap, &cfg))

			assert.Equal(t, 2025, cfg.Year)
			assert.Equal(t, tc.host, cfg.DB.Host)
			assert.Equal(t, 5432, cfg.DB.Port, "untouched keys survive the merge")
			assert.Equal(t, "s3cret", cfg.DB.Password)
			assert.Equal(t, tc.provider, cfg.Mail.Provider)
		})
	}
}

func TestLoadConfigMissingBase(t *testing.T) {
	_, err := LoadConfig("local", t.TempDir())
	assert.Error(t, err)
}

func TestSubstituteStringFallsBackToEnvironment(t *testing.T) {
	t.Setenv("JZ_TEST_VALUE", "from-env")

	assert.Equal(t, "x-from-env", substituteString("x-${JZ_TEST_VALUE}", nil))
	assert.Equal(t, "from-secrets", substituteString("${JZ_TEST_VALUE}", map[string]string{"JZ_TEST_VALUE": "from-secrets"}))
	assert.Equal(t, "${JZ_UNSET_VALUE}", substituteString("${JZ_UNSET_VALUE}", nil))
}

func TestOverrideFromEnv(t *testing.T) {
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_HOST", "pg")
	t.Setenv("SENDGRID_API_KEY", "key")

	db := DBConfig{Host: "localhost", Port: 5432}
	OverrideDBFromEnv(&db)
	assert.Equal(t, "pg", db.Host)
	assert.Equal(t, 6543, db.Port)

	var mail MailConfig
	OverrideMailFromEnv(&mail)
	assert.Equal(t, "key", mail.SendGrid.APIKey)
	assert.Empty(t, mail.SMTP.Password)
}
