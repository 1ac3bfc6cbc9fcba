package id

import (
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
)

func decodeID(t *testing.T, value string) uuid.UUID {
	t.Helper()
	raw, err := encoding.DecodeString(strings.ToUpper(value))
	if err != nil {
		t.Fatalf("decode %q: %v", value, err)
	}
	parsed, err := uuid.FromBytes(raw)
	if err != nil {
		t.Fatalf("uuid from %q: %v", value, err)
	}
	return parsed
}

func TestNewIDIsLowerBase32WithoutPadding(t *testing.T) {
	t.Parallel()

	value, err := NewID()
	if err != nil {
		t.Fatalf("new id: %v", err)
	}
	if len(value) != 26 {
		t.Fatalf("len = %d, want 26", len(value))
	}
	if strings.ContainsAny(value, "=ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		t.Fatalf("id = %q, want lower case without padding", value)
	}
}

func TestNewIDDecodesToRandomUUID(t *testing.T) {
	t.Parallel()

	value, err := NewID()
	if err != nil {
		t.Fatalf("new id: %v", err)
	}
	parsed := decodeID(t, value)
	if parsed.Version() != 4 {
		t.Fatalf("version = %d, want 4", parsed.Version())
	}
	if parsed.Variant() != uuid.RFC4122 {
		t.Fatalf("variant = %v, want %v", parsed.Variant(), uuid.RFC4122)
	}
}

func TestNewIDIsUniqueAcrossConcurrentCallers(t *testing.T) {
	t.Parallel()

	const callers, perCaller = 8, 64
	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, callers*perCaller)
		wg   sync.WaitGroup
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perCaller {
				value, err := NewID()
				if err != nil {
					t.Errorf("new id: %v", err)
					return
				}
				mu.Lock()
				seen[value] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if len(seen) != callers*perCaller {
		t.Fatalf("unique ids = %d, want %d", len(seen), callers*perCaller)
	}
}
