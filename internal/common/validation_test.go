package common

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorCollectsErrors(t *testing.T) {
	v := NewValidator().
		Field("file", "statement.png", Required, DocumentExtension).
		Field("data", []byte("12345"), Required, MaxBytes(4)).
		Field("source", "ok", Required, MaxLength(10))

	require.True(t, v.HasErrors())
	assert.Len(t, v.Errors(), 2)
	assert.Contains(t, v.ErrorMessage(), "file must be a PDF document")
	assert.Contains(t, v.ErrorMessage(), "data must be at most 4 bytes")

	err := ValidateAndReturnError(v)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
}

func TestValidatorPasses(t *testing.T) {
	v := NewValidator().
		Field("file", "Fatura.PDF", Required, DocumentExtension).
		Field("data", []byte("%PDF"), Required, MaxBytes(1024))
	assert.False(t, v.HasErrors())
	assert.NoError(t, ValidateAndReturnError(v))
}
