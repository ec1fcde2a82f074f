package state

import (
	"fmt"
	"os"
	"time"

	"github.com/sawpanic/papertick/internal/ioatomic"
)

// PrimitiveEntry is one key's rolling {ts, value} record.
type PrimitiveEntry struct {
	Ts    time.Time `json:"ts"`
	Value float64   `json:"value"`
}

// PrimitiveStore is the persistent key -> {ts, value} map backing
// velocity and decay (internal/primitives). It is owned exclusively by
// the tick loop; every other reader treats it as read-only.
type PrimitiveStore struct {
	path    string
	entries map[string]PrimitiveEntry
}

// LoadPrimitiveStore reads path if it exists, otherwise starts empty —
// the first tick after a restart then produces a null velocity instead
// of a spurious one
func LoadPrimitiveStore(path string) (*PrimitiveStore, error) {
	ps := &PrimitiveStore{path: path, entries: map[string]PrimitiveEntry{}}
	if err := ioatomic.ReadJSON(path, &ps.entries); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("state: load primitive store: %w", err)
		}
		ps.entries = map[string]PrimitiveEntry{}
	}
	return ps, nil
}

// Get returns the last recorded entry for key.
func (ps *PrimitiveStore) Get(key string) (PrimitiveEntry, bool) {
	e, ok := ps.entries[key]
	return e, ok
}

// Put records a new entry for key. The caller (internal/primitives) is
// responsible for the monotonic-ts invariant; Put itself does not
// reject an out-of-order write because replay/backfill tooling may
// legitimately need to seed history.
func (ps *PrimitiveStore) Put(key string, ts time.Time, value float64) {
	ps.entries[key] = PrimitiveEntry{Ts: ts, Value: value}
}

// Save persists the store atomically.
func (ps *PrimitiveStore) Save() error {
	return ioatomic.WriteJSON(ps.path, ps.entries)
}
