package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dmitrijs2005/foodie/internal/client/models"
	"github.com/dmitrijs2005/foodie/internal/client/store"
	"github.com/dmitrijs2005/foodie/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memDocs struct {
	data   map[string][]byte
	putErr error
}

func newMemDocs() *memDocs {
	return &memDocs{data: map[string][]byte{}}
}

func (m *memDocs) Get(ctx context.Context, name string) ([]byte, error) {
	return m.data[name], nil
}

func (m *memDocs) Put(ctx context.Context, name string, value []byte) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.data[name] = value
	return nil
}

func record(i int) models.ScanRecord {
	return models.ScanRecord{
		ID:        fmt.Sprintf("r%02d", i),
		UserID:    "u-1",
		Timestamp: time.Date(2026, 1, 1, 0, i, 0, 0, time.UTC),
		Status:    models.StatusSafe,
		Message:   "ok",
	}
}

func ids(records []models.ScanRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestLoad_EmptyWhenAbsent(t *testing.T) {
	l := New(newMemDocs(), "u-1", 0)

	records, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
	assert.Equal(t, DefaultCap, l.Cap())
}

func TestAppend_NewestFirst(t *testing.T) {
	l := New(newMemDocs(), "u-1", 10)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		require.NoError(t, l.Append(ctx, record(i)))
	}

	records, err := l.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"r03", "r02", "r01"}, ids(records))
}

func TestAppend_FifteenKeepsTenMostRecent(t *testing.T) {
	docs := newMemDocs()
	l := New(docs, "u-1", 10)
	ctx := context.Background()

	for i := 1; i <= 15; i++ {
		require.NoError(t, l.Append(ctx, record(i)))
	}

	records, err := l.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"r15", "r14", "r13", "r12", "r11", "r10", "r09", "r08", "r07", "r06"}, ids(records))

	reloaded, err := New(docs, "u-1", 10).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, records, reloaded)
}

func TestLoad_TruncatesOversizedHistory(t *testing.T) {
	docs := newMemDocs()
	big := New(docs, "u-1", 20)
	ctx := context.Background()
	for i := 1; i <= 12; i++ {
		require.NoError(t, big.Append(ctx, record(i)))
	}

	records, err := New(docs, "u-1", 10).Load(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 10)
	assert.Equal(t, "r12", records[0].ID)
}

func TestAppend_RejectsForeignOrInvalidRecords(t *testing.T) {
	docs := newMemDocs()
	l := New(docs, "u-1", 10)

	foreign := record(1)
	foreign.UserID = "u-2"
	require.ErrorIs(t, l.Append(context.Background(), foreign), common.ErrValidation)

	bad := record(2)
	bad.Status = "MAYBE"
	require.ErrorIs(t, l.Append(context.Background(), bad), common.ErrValidation)

	assert.Empty(t, docs.data[store.KeyHistory])
}

func TestAppend_PropagatesStoreErrors(t *testing.T) {
	docs := newMemDocs()
	docs.putErr = store.ErrDetached
	l := New(docs, "u-1", 10)

	err := l.Append(context.Background(), record(1))
	require.True(t, errors.Is(err, store.ErrDetached))
}

func TestLoad_CorruptHistory(t *testing.T) {
	docs := newMemDocs()
	docs.data[store.KeyHistory] = []byte(`{not json`)

	_, err := New(docs, "u-1", 10).Load(context.Background())
	require.ErrorContains(t, err, "decode history")
}
