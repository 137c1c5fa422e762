package ailink

import "time"

// Config holds the OpenAI connection settings shared by the portrait and blog
// generators.
type Config struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`

	// RequestsPerMinute paces outbound calls across all generators. Zero disables pacing.
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`

	// PromptsDir overrides the built-in prompt set.
	PromptsDir string `mapstructure:"prompts_dir"`

	// Models overrides the model named by a prompt, keyed by prompt slug.
	Models map[string]string `mapstructure:"models"`
}
