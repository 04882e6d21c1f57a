// Package idgen produces the human-readable identifiers used across the
// checkout flow: daily-sequenced order numbers and random payment
// transaction IDs.
package idgen

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"
)

// SequenceSource hands out the next per-day order sequence number. The Redis
// implementation is atomic across concurrent checkouts; the database fallback
// relies on the unique index on order_number plus a retry loop.
type SequenceSource interface {
	NextOrderSequence(ctx context.Context, day time.Time) (int64, error)
}

// OrderNumber formats ORD-YYYYMMDD-NNNN. Sequences above 9999 widen the
// suffix instead of wrapping.
func OrderNumber(day time.Time, seq int64) string {
	return fmt.Sprintf("ORD-%s-%04d", day.Format("20060102"), seq)
}

const base36Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// TransactionID formats TXN-<unix>-<random>, with an 8-character uppercase
// base36 suffix. Callers must still collision-check against the store.
func TransactionID(now time.Time) (string, error) {
	suffix, err := randBase36(8)
	if err != nil {
		return "", fmt.Errorf("failed to generate transaction id suffix: %w", err)
	}
	return fmt.Sprintf("TXN-%d-%s", now.Unix(), suffix), nil
}

func randBase36(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = base36Alphabet[int(b)%len(base36Alphabet)]
	}
	return string(out), nil
}
