package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elly-po/pumpsniper/internal/model"
)

func TestOpenCreatesSchemaAndRecordsDispatch(t *testing.T) {
	l, err := Open(":memory:")
	require.NoError(t, err)
	defer l.Close()

	ctx := context.Background()
	err = l.RecordDispatch(ctx, model.TagResult{
		Tag:        model.TagPumpfunCreate,
		Confidence: 0.94,
		Mint:       "6mDT8DLcYwSrrzZHf1EXM7mEr6QLmkEHK1uKM4xCpump",
	}, OutcomeSent, "origSig123", "sentSig456", "")
	require.NoError(t, err)

	var count int
	var signature, submitted string
	row := l.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM dispatch_records")
	require.NoError(t, row.Scan(&count))
	assert.Equal(t, 1, count)

	row = l.db.QueryRowContext(ctx, "SELECT signature, submitted_signature FROM dispatch_records")
	require.NoError(t, row.Scan(&signature, &submitted))
	assert.Equal(t, "origSig123", signature)
	assert.Equal(t, "sentSig456", submitted)
}

func TestRecordCounterSnapshot(t *testing.T) {
	l, err := Open(":memory:")
	require.NoError(t, err)
	defer l.Close()

	ctx := context.Background()
	err = l.RecordCounterSnapshot(ctx, CounterSnapshot{
		Source:   "pumpfun",
		Received: 10,
		Matches:  3,
	})
	require.NoError(t, err)

	var received int
	row := l.db.QueryRowContext(ctx, "SELECT received FROM counter_snapshots WHERE source = 'pumpfun'")
	require.NoError(t, row.Scan(&received))
	assert.Equal(t, 10, received)
}

func TestPruneOlderThanIsSafeOnEmptyLedger(t *testing.T) {
	l, err := Open(":memory:")
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, l.PruneOlderThan(context.Background(), 0))
}
