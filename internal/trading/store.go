package trading

import (
	"fmt"

	"github.com/sawpanic/papertick/internal/ioatomic"
)

// PositionStore is the persistent per-(symbol, timeframe) open-position
// map backing the entry/exit state machine across restarts. Owned
// exclusively by the component that calls Step; every other reader
// treats it as read-only.
type PositionStore struct {
	path    string
	Entries map[string]Position `json:"entries"`
}

func positionKey(symbol, timeframe string) string {
	return fmt.Sprintf("%s:%s", symbol, timeframe)
}

func LoadPositionStore(path string) (*PositionStore, error) {
	ps := &PositionStore{path: path, Entries: map[string]Position{}}
	if err := ioatomic.ReadJSON(path, ps); err != nil {
		ps.Entries = map[string]Position{}
	}
	if ps.Entries == nil {
		ps.Entries = map[string]Position{}
	}
	return ps, nil
}

func (ps *PositionStore) Save() error {
	return ioatomic.WriteJSON(ps.path, ps)
}

// Get returns the current position for (symbol, timeframe), or nil if flat.
func (ps *PositionStore) Get(symbol, timeframe string) *Position {
	p, ok := ps.Entries[positionKey(symbol, timeframe)]
	if !ok {
		return nil
	}
	return &p
}

// Set records the new position, or clears it to flat when pos is nil.
func (ps *PositionStore) Set(symbol, timeframe string, pos *Position) {
	key := positionKey(symbol, timeframe)
	if pos == nil {
		delete(ps.Entries, key)
		return
	}
	ps.Entries[key] = *pos
}
