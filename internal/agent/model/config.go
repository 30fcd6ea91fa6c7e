package model

import "time"

// ================ Config ================

// AgentModelConfig selects the chat model backing the persona.
type AgentModelConfig struct {
	Model       string  `envconfig:"AGENT_MODEL" default:"gemini-2.0-flash"`
	MaxTokens   int     `envconfig:"AGENT_MAX_TOKENS" default:"2048"`
	Temperature float32 `envconfig:"AGENT_TEMPERATURE" default:"0.7"`
}

// PersonaConfig is fixed at construction and shared read-only by every invocation.
type PersonaConfig struct {
	Name string `envconfig:"PERSONA_NAME" default:"Sherlock Holmes"`
}

type MemoryConfig struct {
	Backend       string        `envconfig:"MEMORY_BACKEND" default:"redis"`
	LastMessages  int           `envconfig:"MEMORY_LAST_MESSAGES" default:"20"`
	TTL           time.Duration `envconfig:"MEMORY_TTL" default:"0"`
	GenerateTitle bool          `envconfig:"MEMORY_GENERATE_TITLE" default:"true"`
}

const (
	MemoryBackendRedis    = "redis"
	MemoryBackendPostgres = "postgres"

	DefaultLastMessages = 20
	DefaultMaxSteps     = 5
)
