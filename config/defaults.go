package config

import "time"

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
	DriverMemory   = "memory"

	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"
	ProviderMock     = "mock"
)

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		DataDir: "data",
		Server:  Server{Addr: ":8080"},
		LLM: LLM{
			Provider:       ProviderOpenAI,
			Model:          "gpt-4o-mini",
			ImageModel:     "dall-e-3",
			APIKeyEnv:      "OPENAI_API_KEY",
			TimeoutSeconds: 180,
		},
		Autopilot: Autopilot{
			Interval:  3600 * time.Second,
			BatchSize: 5,
			Author:    "Pamong AI Bot",
		},
		Store: Store{Driver: DriverSQLite},
		State: State{Driver: DriverSQLite, Namespace: "default"},
	}
}
