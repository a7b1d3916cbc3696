// Package llm defines the Provider interface for text-generation backends.
//
// A provider wraps a remote or local model API (e.g., OpenAI, Anthropic Claude,
// or an Ollama instance) and exposes a uniform interface for the pipeline
// orchestrator to rewrite a transcript into a structured document without
// coupling to any specific SDK.
//
// A single Complete call performs exactly one network exchange and retains no
// state between calls; retry behaviour lives entirely in the caller.
// Implementations classify every failure as transient or permanent via [Error]
// so the retry policy can decide whether another attempt is worthwhile.
//
// Implementors must be safe for concurrent use.
package llm

import "context"

// Usage holds token accounting information returned by the backend.
// Counts are in the model's native token unit and may differ between providers
// for the same textual content.
type Usage struct {
	// PromptTokens is the number of tokens consumed by the system prompt and
	// user prompt. Directly affects billing.
	PromptTokens int

	// CompletionTokens is the number of tokens generated in the response.
	CompletionTokens int

	// TotalTokens is PromptTokens + CompletionTokens. Some providers return it
	// directly rather than computing it from the parts.
	TotalTokens int
}

// Request carries everything the model needs for one generation exchange.
// Callers should treat a zero-value request as invalid; at minimum Prompt must
// be non-empty.
type Request struct {
	// System is an optional high-priority instruction injected before the user
	// prompt. Providers without native system-prompt support should prepend it
	// as a "system"-role message.
	System string

	// Prompt is the user-role content driving the response. For this pipeline
	// it is a rendered prompt template containing the transcript text and its
	// metadata.
	Prompt string

	// Temperature controls output randomness in the range [0.0, 2.0].
	// Zero means use the provider default.
	Temperature float64

	// MaxTokens caps the number of completion tokens the model may generate.
	// Zero means use the provider default.
	MaxTokens int
}

// Response is the outcome of a successful exchange.
type Response struct {
	// Content is the full text of the model's reply. The pipeline parses this
	// into a structured document; it is not guaranteed to be valid JSON.
	Content string

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Provider is the abstraction over any text-generation backend.
//
// Implementations must be safe for concurrent use from multiple goroutines and
// must propagate context cancellation promptly: when ctx is cancelled the call
// must return as quickly as possible.
type Provider interface {
	// Complete sends req to the model and waits for the full response.
	// It performs exactly one network exchange; callers own retries.
	//
	// Failures are returned as (or wrapped in) [Error] so callers can
	// distinguish transient from permanent conditions via [ClassOf].
	Complete(ctx context.Context, req Request) (*Response, error)

	// Name returns the provider's registered name (e.g., "openai", "ollama").
	// Used in log messages and metric attributes.
	Name() string
}
