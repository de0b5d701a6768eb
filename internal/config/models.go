package config

// LLMConfig selects the remote-opinion provider and the common body bound.
type LLMConfig struct {
	Provider    string
	MaxBodySize int
}

// GeminiConfig configures the Gemini completer.
type GeminiConfig struct {
	APIKey          string
	ModelCandidates []string
	MaxTokens       int
	Temperature     float32
	TopP            float32
}

// OpenAIConfig configures the OpenAI completer.
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// BedrockConfig configures the Amazon Bedrock completer.
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// MLConfig configures the statistical classifier lifecycle.
type MLConfig struct {
	ArtifactDir string
	CorpusPath  string
}

// StoreConfig configures the analysis-result store.
type StoreConfig struct {
	Type       string
	SQLitePath string
	MySQLDSN   string
}

// GetLLM returns the opinion provider configuration.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider:    c.GetString("llm.provider"),
		MaxBodySize: c.GetInt("llm.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration.
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:          c.GetString("gemini.api_key"),
		ModelCandidates: c.GetStringSlice("gemini.model_candidates"),
		MaxTokens:       c.GetInt("gemini.max_tokens"),
		Temperature:     float32(c.GetFloat64("gemini.temperature")),
		TopP:            float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetOpenAI returns the OpenAI configuration.
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
	}
}

// GetBedrock returns the Bedrock configuration.
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetML returns the classifier configuration.
func (c *Config) GetML() MLConfig {
	return MLConfig{
		ArtifactDir: c.GetString("ml.artifact_dir"),
		CorpusPath:  c.GetString("ml.corpus_path"),
	}
}

// GetStore returns the result-store configuration.
func (c *Config) GetStore() StoreConfig {
	return StoreConfig{
		Type:       c.GetString("store.type"),
		SQLitePath: c.GetString("store.sqlite_path"),
		MySQLDSN:   c.GetString("store.mysql_dsn"),
	}
}
