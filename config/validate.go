package config

import (
	"errors"
	"fmt"
)

// Validate reports the first configuration problem found.
func (c Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderMock:
	case ProviderDeepSeek:
		// DeepSeek speaks the OpenAI protocol but has no default endpoint.
		if c.LLM.BaseURL == "" {
			return errors.New("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
	default:
		return fmt.Errorf("llm provider %s not supported", c.LLM.Provider)
	}
	if c.LLM.Provider != ProviderMock && c.LLM.Model == "" {
		return errors.New("llm.model is required")
	}
	switch c.Store.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if c.Store.DSN == "" {
			return errors.New("store.dsn (or DATABASE_URL) is required for the postgres store")
		}
	default:
		return fmt.Errorf("store driver %s not supported", c.Store.Driver)
	}
	switch c.State.Driver {
	case DriverSQLite, DriverMemory:
	case DriverRedis:
		if c.State.RedisAddr == "" {
			return errors.New("state.redis_addr (or REDIS_URL) is required for the redis state store")
		}
	default:
		return fmt.Errorf("state driver %s not supported", c.State.Driver)
	}
	return nil
}
