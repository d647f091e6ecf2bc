package constants

import (
	"fmt"
	"strings"
)

// Provider selects the extraction backend for a job.
type Provider string

const (
	ProviderOffline Provider = "offline" // local model (Ollama)
	ProviderOnline  Provider = "online"  // hosted API
)

// ParseProvider accepts "offline" or "online" case-insensitively. An empty value
// selects the offline backend.
func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ProviderOffline):
		return ProviderOffline, nil
	case string(ProviderOnline):
		return ProviderOnline, nil
	}
	return "", fmt.Errorf("unknown provider %q (want offline or online)", s)
}
