package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pamong_newsroom/config"
	"pamong_newsroom/generator"
	"pamong_newsroom/news"
	"pamong_newsroom/state"
)

func clearEnvOverrides(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("PORT", "")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLIAutopilotFlow(t *testing.T) {
	clearEnvOverrides(t)
	dataDir := t.TempDir()
	cfgPath := writeConfig(t, "data_dir: "+dataDir+"\nllm:\n  provider: mock\nautopilot:\n  author: Redaksi Uji\n")

	out, err := runCLI(t, "--config", cfgPath, "autopilot", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Autopilot: idle")

	out, err = runCLI(t, "--config", cfgPath, "autopilot", "enable")
	require.NoError(t, err)
	assert.Contains(t, out, "Autopilot enabled")

	out, err = runCLI(t, "--config", cfgPath, "autopilot", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Autopilot: active")
	assert.Contains(t, out, "diaktifkan melalui CLI")

	out, err = runCLI(t, "--config", cfgPath, "autopilot", "run")
	require.NoError(t, err)
	assert.Contains(t, out, "📡 Memindai tren viral terbaru di Indonesia...")
	assert.Contains(t, out, "📊 Tren terdeteksi! Mengolah 3 berita.")
	assert.Equal(t, 3, strings.Count(out, "✅ Terbit: "))
	assert.Contains(t, out, "✨ Siklus selesai.")

	out, err = runCLI(t, "--config", cfgPath, "articles", "list")
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(out, "Redaksi Uji"))

	out, err = runCLI(t, "--config", cfgPath, "autopilot", "logs", "-n", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Siklus selesai")
	assert.NotContains(t, out, "Memindai tren")

	out, err = runCLI(t, "--config", cfgPath, "autopilot", "disable")
	require.NoError(t, err)
	assert.Contains(t, out, "Autopilot disabled")
}

func TestCLIRunRefusesWhileLocked(t *testing.T) {
	clearEnvOverrides(t)
	dataDir := t.TempDir()
	cfgPath := writeConfig(t, "data_dir: "+dataDir+"\nllm:\n  provider: mock\n")

	lock, err := lockDataDir(dataDir)
	require.NoError(t, err)
	defer lock.Unlock()

	_, err = runCLI(t, "--config", cfgPath, "autopilot", "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/api/autopilot/run")
}

func TestCLIArticlesEmptyAndMigrate(t *testing.T) {
	clearEnvOverrides(t)
	cfgPath := writeConfig(t, "data_dir: "+t.TempDir()+"\n")

	out, err := runCLI(t, "--config", cfgPath, "db", "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema up to date (sqlite)")

	out, err = runCLI(t, "--config", cfgPath, "articles", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No articles yet")
}

func TestCLIRejectsInvalidConfig(t *testing.T) {
	clearEnvOverrides(t)
	cfgPath := writeConfig(t, "llm:\n  provider: gemini\n")
	_, err := runCLI(t, "--config", cfgPath, "autopilot", "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini")
}

func TestLLMSettingsKeyPrecedence(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKeyEnv = "PAMONG_TEST_OPENAI_KEY"

	t.Setenv("PAMONG_TEST_OPENAI_KEY", "")
	_, err := llmSettings(cfg, news.Settings{})
	assert.ErrorIs(t, err, config.ErrMissingAPIKey)

	s, err := llmSettings(cfg, news.Settings{AIAPIKey: "from-settings"})
	require.NoError(t, err)
	assert.Equal(t, "from-settings", s.APIKey)

	cfg.LLM.APIKey = "from-file"
	s, err = llmSettings(cfg, news.Settings{AIAPIKey: "from-settings"})
	require.NoError(t, err)
	assert.Equal(t, "from-file", s.APIKey)

	t.Setenv("PAMONG_TEST_OPENAI_KEY", "from-env")
	s, err = llmSettings(cfg, news.Settings{AIAPIKey: "from-settings"})
	require.NoError(t, err)
	assert.Equal(t, "from-env", s.APIKey)
	assert.Equal(t, cfg.LLMTimeout(), s.Timeout)

	cfg = config.Default()
	cfg.LLM.Provider = config.ProviderMock
	cfg.LLM.APIKeyEnv = "PAMONG_TEST_UNSET_KEY"
	_, err = llmSettings(cfg, news.Settings{})
	assert.NoError(t, err, "mock provider needs no key")
}

func TestBuildClients(t *testing.T) {
	llm, err := buildLLM(&generator.LLMSettings{Provider: config.ProviderMock})
	require.NoError(t, err)
	assert.IsType(t, generator.MockLLM{}, llm)

	llm, err = buildLLM(&generator.LLMSettings{Provider: config.ProviderOpenAI, Model: "gpt-4o-mini", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &generator.OpenAILLM{}, llm)

	_, err = buildLLM(&generator.LLMSettings{Provider: config.ProviderDeepSeek, Model: "deepseek-chat", APIKey: "k"})
	assert.Error(t, err)

	_, err = buildLLM(&generator.LLMSettings{Provider: "gemini"})
	assert.Error(t, err)

	img, err := buildImager(&generator.LLMSettings{Provider: config.ProviderDeepSeek})
	require.NoError(t, err)
	_, err = img.GenerateImage(context.Background(), "balai kota")
	assert.Error(t, err, "deepseek falls back to placeholders")

	img, err = buildImager(&generator.LLMSettings{Provider: config.ProviderOpenAI, APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &generator.OpenAIImager{}, img)
}

func TestRedisOptions(t *testing.T) {
	opts, err := redisOptions(config.State{RedisAddr: "redis://:secret@cache:6380/2"})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	opts, err = redisOptions(config.State{RedisAddr: "localhost:6379", RedisPassword: "p", RedisDB: 1})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, "p", opts.Password)
	assert.Equal(t, 1, opts.DB)
}

func TestOpenStateStoreRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.State = config.State{Driver: config.DriverRedis, RedisAddr: mr.Addr(), Namespace: "cli"}

	st, err := openStateStore(context.Background(), cfg)
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.SetEnabled(context.Background(), true))
	assert.True(t, mr.Exists("pamong:cli:"+state.EnabledKey))

	cfg.State.RedisAddr = "127.0.0.1:1"
	_, err = openStateStore(context.Background(), cfg)
	assert.Error(t, err)
}

func TestInstructionFuncFallbacks(t *testing.T) {
	store, err := news.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "news.db"))
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	cfg := config.Default()
	cfg.LLM.SystemInstruction = "dari config"
	fn := instructionFunc(store, cfg, discardLogger())
	assert.Equal(t, news.DefaultSettings().AISystemInstruction, fn(ctx))

	require.NoError(t, store.SaveSettings(ctx, news.Settings{SiteName: "X", AISystemInstruction: "dari admin"}))
	assert.Equal(t, "dari admin", fn(ctx))

	require.NoError(t, store.Close())
	assert.Equal(t, "dari config", instructionFunc(store, cfg, discardLogger())(ctx))
}
