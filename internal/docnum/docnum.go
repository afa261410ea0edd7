// Package docnum issues sequential document numbers in the form
// PREFIX/YYYY/MM/NNNN, scoped per prefix and calendar month.
package docnum

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Document number prefixes per transaction type.
const (
	PrefixGoodsReceipt   = "BM"
	PrefixDeliveryNote   = "SJ"
	PrefixDeliveryOrder  = "DO"
	PrefixPurchaseReturn = "RB"
	PrefixSalesReturn    = "RJ"
)

// Sequencer yields the next sequence value for a prefix and month.
type Sequencer interface {
	Next(ctx context.Context, prefix string, year, month int) (int, error)
}

// Issuer produces formatted document numbers.
type Issuer interface {
	Next(ctx context.Context, prefix string, at time.Time) (string, error)
}

// Generator combines a Sequencer with the document number format.
type Generator struct {
	seq Sequencer
}

var _ Issuer = (*Generator)(nil)

// NewGenerator constructs a Generator.
func NewGenerator(seq Sequencer) *Generator {
	return &Generator{seq: seq}
}

// Next returns the next document number for the prefix at the given date.
func (g *Generator) Next(ctx context.Context, prefix string, at time.Time) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("docnum: prefix required")
	}
	year, month := at.Year(), int(at.Month())
	seq, err := g.seq.Next(ctx, prefix, year, month)
	if err != nil {
		return "", fmt.Errorf("docnum: next sequence for %s: %w", prefix, err)
	}
	return Format(prefix, year, month, seq), nil
}

// Format renders a document number. The sequence is zero-padded to four
// digits; sequences beyond 9999 widen rather than wrap.
func Format(prefix string, year, month, seq int) string {
	return fmt.Sprintf("%s/%04d/%02d/%04d", prefix, year, month, seq)
}

// PgSequencer allocates sequences from a per-prefix-per-month counter row.
// The upsert increments atomically, so concurrent callers can never observe
// the same value.
type PgSequencer struct {
	pool *pgxpool.Pool
}

// NewPgSequencer constructs a PgSequencer.
func NewPgSequencer(pool *pgxpool.Pool) *PgSequencer {
	return &PgSequencer{pool: pool}
}

// Next increments and returns the counter for (prefix, year, month).
func (s *PgSequencer) Next(ctx context.Context, prefix string, year, month int) (int, error) {
	const query = `
		INSERT INTO doc_counters (prefix, year, month, seq)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (prefix, year, month)
		DO UPDATE SET seq = doc_counters.seq + 1
		RETURNING seq`
	var seq int
	if err := s.pool.QueryRow(ctx, query, prefix, year, month).Scan(&seq); err != nil {
		return 0, err
	}
	return seq, nil
}
