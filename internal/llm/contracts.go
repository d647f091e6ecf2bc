package llm

import (
	"context"
	"fmt"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// ChatClient is one model backend: a system prompt and a user prompt in, the
// model's raw text answer out.
type ChatClient interface {
	Chat(ctx context.Context, system, user string) (string, error)
	Backend() string
	Model() string
}

// Provider performs structured extraction from statement text. Infer returns
// the provider's JSON document; interpretation happens in ParseTransactions.
type Provider interface {
	Infer(ctx context.Context, text string) ([]byte, error)
	Model() string
}

// BankResult is the outcome of issuer identification.
type BankResult struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// BankIdentifier names the card issuer from the first page of a statement.
type BankIdentifier interface {
	IdentifyBank(ctx context.Context, firstPage string) (BankResult, error)
}

// Providers maps the per-job provider choice to a backend.
type Providers struct {
	Offline Provider
	Online  Provider
}

// For returns the backend selected by p.
func (ps Providers) For(p constants.Provider) (Provider, error) {
	var out Provider
	switch p {
	case constants.ProviderOffline:
		out = ps.Offline
	case constants.ProviderOnline:
		out = ps.Online
	}
	if out == nil {
		return nil, fmt.Errorf("provider %q is not configured", p)
	}
	return out, nil
}

// ModelFor returns the model name used for p, or "" when p is not configured.
func (ps Providers) ModelFor(p constants.Provider) string {
	if prov, err := ps.For(p); err == nil {
		return prov.Model()
	}
	return ""
}
