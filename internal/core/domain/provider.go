package domain

// ProviderName identifies a provider variant.
type ProviderName string

// Known provider variants.
const (
	ProviderOpenAI    ProviderName = "openai"
	ProviderAzure     ProviderName = "azure"
	ProviderCohere    ProviderName = "cohere"
	ProviderAnthropic ProviderName = "anthropic"
	ProviderOllama    ProviderName = "ollama"
)

// AllProviders lists every known variant.
func AllProviders() []ProviderName {
	return []ProviderName{ProviderOpenAI, ProviderAzure, ProviderCohere, ProviderAnthropic, ProviderOllama}
}

// IsValid returns true if the provider is recognised.
func (p ProviderName) IsValid() bool {
	switch p {
	case ProviderOpenAI, ProviderAzure, ProviderCohere, ProviderAnthropic, ProviderOllama:
		return true
	default:
		return false
	}
}

// SupportsEmbeddings returns false for completion-only vendors.
func (p ProviderName) SupportsEmbeddings() bool {
	return p == ProviderOpenAI || p == ProviderAzure || p == ProviderCohere
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p ProviderName) RequiresAPIKey() bool {
	return p != ProviderOllama
}

// String returns the string representation.
func (p ProviderName) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p ProviderName) Description() string {
	switch p {
	case ProviderOpenAI:
		return "OpenAI (cloud)"
	case ProviderAzure:
		return "Azure OpenAI (cloud)"
	case ProviderCohere:
		return "Cohere (cloud)"
	case ProviderAnthropic:
		return "Anthropic (cloud, completion only)"
	case ProviderOllama:
		return "Ollama (local, completion only)"
	default:
		return "Unknown"
	}
}

// ProviderConfig holds the connection settings for one provider.
// It is resolved by name from the provider directory.
type ProviderConfig struct {
	// Name selects the provider variant.
	Name ProviderName

	// APIKey authenticates against the vendor.
	APIKey string

	// Endpoint is the base URL (Azure resource, Ollama host, or an override).
	Endpoint string

	// EmbeddingModel is the embedding model or Azure deployment.
	EmbeddingModel string

	// CompletionModel is the completion model or Azure deployment.
	CompletionModel string
}

// IsConfigured returns true if the settings needed by the variant are present.
func (c ProviderConfig) IsConfigured() bool {
	if !c.Name.IsValid() {
		return false
	}
	if c.Name.RequiresAPIKey() && c.APIKey == "" {
		return false
	}
	if c.Name == ProviderAzure && c.Endpoint == "" {
		return false
	}
	return true
}

// TokenUsage counts tokens for one completion.
// Vendors that report no usage yield zeros.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Completion is the result of a completion call.
type Completion struct {
	// Text is the generated answer.
	Text string

	// Model is the model the vendor actually used.
	Model string

	Usage TokenUsage
}

// CompleteOptions tunes a completion call.
// Zero values leave vendor defaults in place.
type CompleteOptions struct {
	MaxTokens   int
	Temperature float64
}
