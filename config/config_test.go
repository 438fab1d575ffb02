package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func clearEnv(t *testing.T) {
	for _, k := range []string{"DATABASE_URL", "REDIS_URL", "PORT"} {
		t.Setenv(k, "")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, time.Hour, cfg.Autopilot.Interval)
	assert.Equal(t, 5, cfg.Autopilot.BatchSize)
	assert.Equal(t, "Pamong AI Bot", cfg.Autopilot.Author)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, filepath.Join("data", "news.db"), cfg.Store.SQLitePath)
	assert.Equal(t, filepath.Join("data", "state.db"), cfg.State.SQLitePath)
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
data_dir: /var/lib/pamong
server:
  addr: 127.0.0.1:9000
llm:
  provider: DeepSeek
  model: deepseek-chat
  base_url: https://api.deepseek.com/v1
autopilot:
  interval: 30m
  batch_size: 3
state:
  driver: redis
  redis_addr: localhost:6379
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, ProviderDeepSeek, cfg.LLM.Provider)
	assert.Equal(t, 30*time.Minute, cfg.Autopilot.Interval)
	assert.Equal(t, 3, cfg.Autopilot.BatchSize)
	assert.Equal(t, DriverRedis, cfg.State.Driver)
	assert.Equal(t, "/var/lib/pamong/news.db", cfg.Store.SQLitePath)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://u:p@db/pamong")
	t.Setenv("REDIS_URL", "redis://cache:6379/0")
	t.Setenv("PORT", "7070")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://u:p@db/pamong", cfg.Store.DSN)
	assert.Equal(t, DriverRedis, cfg.State.Driver)
	assert.Equal(t, ":7070", cfg.Server.Addr)
}

func TestLoadRejectsInvalid(t *testing.T) {
	clearEnv(t)
	cases := map[string]string{
		"provider":          "llm:\n  provider: gemini\n",
		"deepseek base_url": "llm:\n  provider: deepseek\n  model: x\n",
		"postgres dsn":      "store:\n  driver: postgres\n",
		"state driver":      "state:\n  driver: etcd\n",
		"yaml":              "llm: [",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadNonPositiveIntervalFallsBack(t *testing.T) {
	clearEnv(t)
	for _, interval := range []string{"-5m", "0s"} {
		t.Run(interval, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, "autopilot:\n  interval: "+interval+"\n"))
			require.NoError(t, err)
			assert.Equal(t, time.Hour, cfg.Autopilot.Interval)
		})
	}
}

func TestResolveAPIKeyPrecedence(t *testing.T) {
	cfg := Default()
	cfg.LLM.APIKey = "from-file"
	env := map[string]string{"OPENAI_API_KEY": "from-env"}
	getenv := func(k string) string { return env[k] }

	key, err := cfg.ResolveAPIKey(getenv, "from-settings")
	require.NoError(t, err)
	assert.Equal(t, "from-env", key)

	delete(env, "OPENAI_API_KEY")
	key, err = cfg.ResolveAPIKey(getenv, "from-settings")
	require.NoError(t, err)
	assert.Equal(t, "from-file", key)

	cfg.LLM.APIKey = ""
	key, err = cfg.ResolveAPIKey(getenv, "from-settings")
	require.NoError(t, err)
	assert.Equal(t, "from-settings", key)

	_, err = cfg.ResolveAPIKey(getenv, "")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
