package prompt

// Config describes a prompt definition loaded from YAML frontmatter.
type Config struct {
	Slug           string    `yaml:"slug" json:"slug"`
	Name           string    `yaml:"name,omitempty" json:"name,omitempty"`
	Description    string    `yaml:"description,omitempty" json:"description,omitempty"`
	Version        string    `yaml:"version,omitempty" json:"version,omitempty"`
	Input          InputSpec `yaml:"input,omitempty" json:"input,omitempty"`
	SystemTemplate string    `yaml:"system_template,omitempty" json:"system_template,omitempty"`
	UserTemplate   string    `yaml:"user_template,omitempty" json:"user_template,omitempty"`
	// BodyRole selects which template the markdown body fills: "system" (default) or "user".
	BodyRole string `yaml:"body_role,omitempty" json:"body_role,omitempty"`
	Model    ModelHints `yaml:"model,omitempty" json:"model,omitempty"`
}

// InputSpec defines prompt input requirements.
type InputSpec struct {
	RequiredVariables []string `yaml:"required_variables,omitempty" json:"required_variables,omitempty"`
	OptionalVariables []string `yaml:"optional_variables,omitempty" json:"optional_variables,omitempty"`
	AcceptsImages     bool     `yaml:"accepts_images,omitempty" json:"accepts_images,omitempty"`
	ImageTypes        []string `yaml:"image_types,omitempty" json:"image_types,omitempty"`
	MaxImages         int      `yaml:"max_images,omitempty" json:"max_images,omitempty"`
}

// ModelHints carries per-prompt provider defaults. Zero values defer to config.
type ModelHints struct {
	Name        string   `yaml:"name,omitempty" json:"name,omitempty"`
	Temperature *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	MaxTokens   int      `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
	Size        string   `yaml:"size,omitempty" json:"size,omitempty"`
	Quality     string   `yaml:"quality,omitempty" json:"quality,omitempty"`
}

// Prompt wraps a validated prompt configuration with its source.
type Prompt struct {
	Config Config
	Source string
}
