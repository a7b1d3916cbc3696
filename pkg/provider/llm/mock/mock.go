// Package mock provides a test double for the llm.Provider interface.
//
// Use Provider in unit tests to verify that the orchestrator sends correct
// requests and to feed controlled responses without a live backend. All fields
// are safe to set before calling any method; mutating them during a concurrent
// call is the caller's responsibility.
//
// Example:
//
//	p := &mock.Provider{
//	    CompleteResponse: &llm.Response{Content: `{"title":"..."}`},
//	}
//	resp, err := p.Complete(ctx, req)
package mock

import (
	"context"
	"sync"

	"scriptforge/pkg/provider/llm"
)

// CompleteCall records a single invocation of Complete.
type CompleteCall struct {
	// Ctx is the context passed to Complete.
	Ctx context.Context
	// Req is the Request passed to Complete.
	Req llm.Request
}

// Provider is a mock implementation of llm.Provider.
// Zero values for response fields cause Complete to return (nil, nil).
// Set CompleteErr to inject a failure, or CompleteFunc to script per-call
// behaviour (e.g., fail twice then succeed).
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// CompleteResponse is returned by Complete when CompleteFunc is nil.
	CompleteResponse *llm.Response

	// CompleteErr, if non-nil, is returned as the error from Complete when
	// CompleteFunc is nil.
	CompleteErr error

	// CompleteFunc, if non-nil, is invoked for each Complete call with the
	// 1-based call number, overriding CompleteResponse/CompleteErr.
	CompleteFunc func(call int, req llm.Request) (*llm.Response, error)

	// ProviderName is returned by Name. Defaults to "mock".
	ProviderName string

	// --- Call records (read after test) ---

	// CompleteCalls records every invocation of Complete in order.
	CompleteCalls []CompleteCall
}

// Complete records the call and returns the configured response.
func (p *Provider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	p.mu.Lock()
	p.CompleteCalls = append(p.CompleteCalls, CompleteCall{Ctx: ctx, Req: req})
	n := len(p.CompleteCalls)
	fn := p.CompleteFunc
	resp, err := p.CompleteResponse, p.CompleteErr
	p.mu.Unlock()

	if fn != nil {
		return fn(n, req)
	}
	return resp, err
}

// Name returns ProviderName, defaulting to "mock".
func (p *Provider) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ProviderName == "" {
		return "mock"
	}
	return p.ProviderName
}

// Calls returns the number of Complete invocations so far. Thread-safe.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.CompleteCalls)
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CompleteCalls = nil
}

// Ensure Provider implements llm.Provider at compile time.
var _ llm.Provider = (*Provider)(nil)
