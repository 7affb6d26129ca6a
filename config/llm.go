package config

// LLM holds credentials and sampling knobs for model-backed players.
type LLM struct {
	OpenAIKey         string  `env:"OPENAI_API_KEY"`
	OpenAIBaseURL     string  `env:"OPENAI_BASE_URL"`
	OpenAIOrg         string  `env:"OPENAI_ORG"`
	OpenRouterKey     string  `env:"OPENROUTER_API_KEY"`
	OpenRouterBaseURL string  `env:"OPENROUTER_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	Temperature       float32 `env:"ZSE_TEMPERATURE" envDefault:"0.7"`
	MaxTokens         int     `env:"ZSE_MAX_TOKENS" envDefault:"1000"`
}

// LoadLLM reads LLM settings from the environment.
func LoadLLM() (LLM, error) {
	var cfg LLM
	if err := ParseEnv(&cfg); err != nil {
		return LLM{}, err
	}
	return cfg, nil
}
