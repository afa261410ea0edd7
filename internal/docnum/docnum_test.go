package docnum

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memorySequencer struct {
	counters map[string]int
}

func newMemorySequencer() *memorySequencer {
	return &memorySequencer{counters: make(map[string]int)}
}

func (s *memorySequencer) Next(ctx context.Context, prefix string, year, month int) (int, error) {
	key := Format(prefix, year, month, 0)
	s.counters[key]++
	return s.counters[key], nil
}

func TestFormat(t *testing.T) {
	require.Equal(t, "BM/2024/05/0001", Format(PrefixGoodsReceipt, 2024, 5, 1))
	require.Equal(t, "SJ/2024/05/0042", Format(PrefixDeliveryNote, 2024, 5, 42))
	require.Equal(t, "RJ/2024/12/9999", Format(PrefixSalesReturn, 2024, 12, 9999))
	require.Equal(t, "DO/2024/01/10000", Format(PrefixDeliveryOrder, 2024, 1, 10000))
}

func TestSequentialNumbersPerMonth(t *testing.T) {
	gen := NewGenerator(newMemorySequencer())
	ctx := context.Background()
	may := time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC)

	first, err := gen.Next(ctx, PrefixGoodsReceipt, may)
	require.NoError(t, err)
	require.Equal(t, "BM/2024/05/0001", first)

	second, err := gen.Next(ctx, PrefixGoodsReceipt, may)
	require.NoError(t, err)
	require.Equal(t, "BM/2024/05/0002", second)
}

func TestIndependentScopes(t *testing.T) {
	gen := NewGenerator(newMemorySequencer())
	ctx := context.Background()
	may := time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC)
	june := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	bm, err := gen.Next(ctx, PrefixGoodsReceipt, may)
	require.NoError(t, err)
	sj, err := gen.Next(ctx, PrefixDeliveryNote, may)
	require.NoError(t, err)
	bmJune, err := gen.Next(ctx, PrefixGoodsReceipt, june)
	require.NoError(t, err)

	require.Equal(t, "BM/2024/05/0001", bm)
	require.Equal(t, "SJ/2024/05/0001", sj)
	require.Equal(t, "BM/2024/06/0001", bmJune)
}

func TestEmptyPrefixRejected(t *testing.T) {
	gen := NewGenerator(newMemorySequencer())
	_, err := gen.Next(context.Background(), "", time.Now())
	require.Error(t, err)
}
