package llm

import "context"

// StubProvider returns a fixed response for every prompt. It exists for
// tests and for running the daemon with no external model configured.
type StubProvider struct {
	response string
	err      error
}

// NewStubProvider creates a stub that always answers with response.
// An empty response makes the stub report unavailability instead.
func NewStubProvider(response string) *StubProvider {
	return &StubProvider{response: response}
}

// NewFailingStubProvider creates a stub that always fails with err.
func NewFailingStubProvider(err error) *StubProvider {
	return &StubProvider{err: err}
}

// Generate returns the fixed response.
func (p *StubProvider) Generate(ctx context.Context, prompt string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	if p.response == "" {
		return "", ErrProviderUnavailable
	}
	return p.response, nil
}

// Name returns the provider identifier.
func (p *StubProvider) Name() string {
	return "stub"
}
