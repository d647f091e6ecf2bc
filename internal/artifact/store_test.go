package artifact

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

func TestSafeKey(t *testing.T) {
	assert.Equal(t, "fatura_ab12cd34_transactions_llama3.1_8b.xlsx", SafeKey("fatura_ab12cd34_transactions_llama3.1:8b.xlsx"))
	assert.Equal(t, "passwd", SafeKey("../../etc/passwd"))
	assert.Equal(t, "x.xlsx", SafeKey(`C:\tmp\x.xlsx`))
	assert.Equal(t, "artifact", SafeKey(".."))
}

func testStore(t *testing.T, s Store) {
	ctx := context.Background()

	h, err := s.Put(ctx, "a b.xlsx", []byte("one"))
	require.NoError(t, err)
	assert.Equal(t, "a_b.xlsx", h)

	got, err := s.Get(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), got)

	_, err = s.Put(ctx, "a b.xlsx", []byte("two"))
	require.NoError(t, err)
	got, err = s.Get(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got)

	require.NoError(t, s.Delete(ctx, h))
	_, err = s.Get(ctx, h)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.NoError(t, s.Delete(ctx, h), "deleting twice is fine")
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestMemoryStoreCopies(t *testing.T) {
	s := NewMemoryStore()
	data := []byte("abc")
	h, _ := s.Put(context.Background(), "k", data)
	data[0] = 'z'
	got, _ := s.Get(context.Background(), h)
	assert.Equal(t, "abc", string(got))
}

func TestDirStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	s, err := NewDirStore(dir)
	require.NoError(t, err)
	testStore(t, s)

	h, err := s.Put(context.Background(), "kept.xlsx", []byte("x"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, h))
	assert.NoError(t, err)

	_, err = s.Get(context.Background(), "../kept.xlsx")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
