package idgen

import (
	"strings"
	"testing"
	"time"
)

func TestOrderNumberFormat(t *testing.T) {
	day := time.Date(2024, 3, 7, 15, 30, 0, 0, time.UTC)

	if got := OrderNumber(day, 1); got != "ORD-20240307-0001" {
		t.Fatalf("unexpected order number: %s", got)
	}
	if got := OrderNumber(day, 42); got != "ORD-20240307-0042" {
		t.Fatalf("unexpected order number: %s", got)
	}
	// Over four digits the suffix widens rather than wrapping.
	if got := OrderNumber(day, 12345); got != "ORD-20240307-12345" {
		t.Fatalf("unexpected order number: %s", got)
	}
}

func TestTransactionIDFormat(t *testing.T) {
	now := time.Unix(1700000000, 0)

	id, err := TransactionID(now)
	if err != nil {
		t.Fatalf("TransactionID: %v", err)
	}

	parts := strings.Split(id, "-")
	if len(parts) != 3 || parts[0] != "TXN" {
		t.Fatalf("unexpected shape: %s", id)
	}
	if parts[1] != "1700000000" {
		t.Fatalf("unexpected timestamp part: %s", parts[1])
	}
	if len(parts[2]) != 8 {
		t.Fatalf("unexpected suffix length: %s", parts[2])
	}
	for _, c := range parts[2] {
		if !strings.ContainsRune(base36Alphabet, c) {
			t.Fatalf("suffix char outside base36 alphabet: %q", c)
		}
	}
}

func TestTransactionIDUnique(t *testing.T) {
	now := time.Now()
	seen := map[string]struct{}{}
	for i := 0; i < 100; i++ {
		id, err := TransactionID(now)
		if err != nil {
			t.Fatalf("TransactionID: %v", err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate transaction id after %d draws: %s", i, id)
		}
		seen[id] = struct{}{}
	}
}
