package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blinkwatch/internal/record"
)

func TestRecordingSink_RecordsInOrder(t *testing.T) {
	sink := NewRecordingSink()
	ctx := context.Background()

	require.NoError(t, sink.InsertInterval(ctx, record.IntervalEntry{BlinkCount: 1}))
	require.NoError(t, sink.InsertInterval(ctx, record.IntervalEntry{BlinkCount: 2}))

	entries := sink.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].BlinkCount)
	assert.Equal(t, 2, entries[1].BlinkCount)
}

func TestRecordingSink_FailWith(t *testing.T) {
	sink := NewRecordingSink()
	ctx := context.Background()
	boom := errors.New("disk gone")

	sink.FailWith(boom)
	assert.ErrorIs(t, sink.InsertInterval(ctx, record.IntervalEntry{}), boom)
	assert.Empty(t, sink.Entries())

	sink.FailWith(nil)
	assert.NoError(t, sink.InsertInterval(ctx, record.IntervalEntry{}))
	assert.Len(t, sink.Entries(), 1)
	assert.Equal(t, 2, sink.Calls())
}

func TestRecordingSink_EntriesIsCopy(t *testing.T) {
	sink := NewRecordingSink()
	require.NoError(t, sink.InsertInterval(context.Background(), record.IntervalEntry{BlinkCount: 5}))

	entries := sink.Entries()
	entries[0].BlinkCount = 99

	assert.Equal(t, 5, sink.Entries()[0].BlinkCount)
}
