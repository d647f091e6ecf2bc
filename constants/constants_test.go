package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProvider(t *testing.T) {
	tests := []struct {
		in      string
		want    Provider
		wantErr bool
	}{
		{"", ProviderOffline, false},
		{"offline", ProviderOffline, false},
		{" Online ", ProviderOnline, false},
		{"gpt-4o-mini", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseProvider(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanonicalBank(t *testing.T) {
	assert.Equal(t, UnknownBank, CanonicalBank("   "))
	assert.Equal(t, "Itaú", CanonicalBank("ITAU"))
	assert.Equal(t, "Nubank", CanonicalBank("nubank"))
	assert.Equal(t, "Banco Fictício", CanonicalBank(" Banco Fictício "))
}

func TestTerminalStatuses(t *testing.T) {
	assert.False(t, JobStatusWaiting.IsTerminal())
	assert.False(t, JobStatusProcessing.IsTerminal())
	assert.True(t, JobStatusCompleted.IsTerminal())
	assert.True(t, JobStatusError.IsTerminal())
	assert.True(t, JobStatusCancelled.IsTerminal())
}

func TestAllowedExt(t *testing.T) {
	assert.True(t, AllowedExt(".PDF"))
	assert.False(t, AllowedExt("png"))
}
