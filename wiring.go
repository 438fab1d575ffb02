package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/redis/go-redis/v9"

	"pamong_newsroom/autopilot"
	"pamong_newsroom/config"
	"pamong_newsroom/generator"
	"pamong_newsroom/news"
	"pamong_newsroom/state"
)

const (
	lockFileName = "pamong.lock"
	pingTimeout  = 5 * time.Second
)

// articleStore is the article database plus schema management.
type articleStore interface {
	news.Store
	Migrate(ctx context.Context) error
}

func openArticleStore(ctx context.Context, cfg config.Config) (articleStore, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		s, err := news.OpenPostgres(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverSQLite:
		s, err := news.OpenSQLite(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("store driver %s not supported", cfg.Store.Driver)
	}
}

func openStateStore(ctx context.Context, cfg config.Config) (state.Store, error) {
	switch cfg.State.Driver {
	case config.DriverRedis:
		opts, err := redisOptions(cfg.State)
		if err != nil {
			return nil, err
		}
		r, err := state.NewRedis(opts, cfg.State.Namespace)
		if err != nil {
			return nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := r.Ping(pingCtx); err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
		}
		return r, nil
	case config.DriverSQLite:
		s, err := state.OpenSQLite(ctx, cfg.State.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverMemory:
		return state.NewMemory(), nil
	default:
		return nil, fmt.Errorf("state driver %s not supported", cfg.State.Driver)
	}
}

// redisOptions accepts either a redis:// URL (as REDIS_URL provides) or a host:port address.
func redisOptions(cfg config.State) (*redis.Options, error) {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		opts, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{
		Addr:     addr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}

func llmSettings(cfg config.Config, settings news.Settings) (*generator.LLMSettings, error) {
	out := &generator.LLMSettings{
		Provider:   cfg.LLM.Provider,
		Model:      cfg.LLM.Model,
		ImageModel: cfg.LLM.ImageModel,
		BaseURL:    cfg.LLM.BaseURL,
		Timeout:    cfg.LLMTimeout(),
	}
	if cfg.LLM.Provider == config.ProviderMock {
		return out, nil
	}
	key, err := cfg.ResolveAPIKey(os.Getenv, settings.AIAPIKey)
	if err != nil {
		return nil, err
	}
	out.APIKey = key
	return out, nil
}

func buildLLM(s *generator.LLMSettings) (generator.LLMClient, error) {
	switch s.Provider {
	case config.ProviderOpenAI:
		return openAILLM(s)
	case config.ProviderDeepSeek:
		// DeepSeek speaks the OpenAI protocol; base_url points at its endpoint.
		if s.BaseURL == "" {
			return nil, errors.New("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
		return openAILLM(s)
	case config.ProviderMock:
		return generator.MockLLM{}, nil
	default:
		return nil, fmt.Errorf("llm provider %s not supported", s.Provider)
	}
}

// buildImager picks the illustration client. Providers without an image
// endpoint get one that always fails, so every article gets a placeholder.
func buildImager(s *generator.LLMSettings) (generator.ImageClient, error) {
	switch s.Provider {
	case config.ProviderOpenAI:
		img, err := generator.NewOpenAIImagerFromConfig(s)
		if err != nil {
			return nil, err
		}
		return img, nil
	case config.ProviderMock:
		return generator.MockImager{}, nil
	default:
		return noImager{provider: s.Provider}, nil
	}
}

func openAILLM(s *generator.LLMSettings) (generator.LLMClient, error) {
	llm, err := generator.NewOpenAILLMFromConfig(s)
	if err != nil {
		return nil, err
	}
	return llm, nil
}

type noImager struct {
	provider string
}

func (n noImager) GenerateImage(context.Context, string) (string, error) {
	return "", fmt.Errorf("provider %s cannot generate images", n.provider)
}

// instructionFunc reads the editorial voice at call time: admin settings
// first, then llm.system_instruction, then the built-in default.
func instructionFunc(store news.Store, cfg config.Config, logger *slog.Logger) generator.InstructionFunc {
	return func(ctx context.Context) string {
		s, err := store.Settings(ctx)
		if err != nil {
			logger.Warn("read settings failed", "error", err)
		} else if v := strings.TrimSpace(s.AISystemInstruction); v != "" {
			return v
		}
		if v := strings.TrimSpace(cfg.LLM.SystemInstruction); v != "" {
			return v
		}
		return generator.DefaultSystemInstruction
	}
}

// newsroom is every long-lived collaborator of one process.
type newsroom struct {
	articles  articleStore
	state     state.Store
	agent     *generator.Agent
	autopilot *autopilot.Orchestrator
}

func (n *newsroom) Close() {
	if n.autopilot != nil {
		n.autopilot.Close()
	}
	if n.state != nil {
		_ = n.state.Close()
	}
	if n.articles != nil {
		_ = n.articles.Close()
	}
}

func openNewsroom(ctx context.Context, cfg config.Config, logger *slog.Logger) (*newsroom, error) {
	n := &newsroom{}
	ok := false
	defer func() {
		if !ok {
			n.Close()
		}
	}()

	var err error
	if n.articles, err = openArticleStore(ctx, cfg); err != nil {
		return nil, fmt.Errorf("open article store: %w", err)
	}
	if n.state, err = openStateStore(ctx, cfg); err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	settings, err := n.articles.Settings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	llmCfg, err := llmSettings(cfg, settings)
	if err != nil {
		return nil, err
	}
	llm, err := buildLLM(llmCfg)
	if err != nil {
		return nil, err
	}
	imager, err := buildImager(llmCfg)
	if err != nil {
		return nil, err
	}
	agent, err := generator.NewAgent(llm, instructionFunc(n.articles, cfg, logger))
	if err != nil {
		return nil, err
	}
	n.agent = agent.WithBatchSize(cfg.Autopilot.BatchSize)

	n.autopilot, err = autopilot.New(ctx, autopilot.Options{
		Researcher: n.agent,
		Images:     imager,
		Articles:   n.articles,
		Store:      n.state,
		Interval:   cfg.Autopilot.Interval,
		Author:     cfg.Autopilot.Author,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	ok = true
	return n, nil
}

// lockDataDir takes the per-data-dir lock held by whichever process runs cycles.
func lockDataDir(dataDir string) (*flock.Flock, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	path := filepath.Join(dataDir, lockFileName)
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another pamong process holds %s", path)
	}
	return lock, nil
}
