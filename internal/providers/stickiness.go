package providers

import (
	"fmt"
	"time"

	"github.com/sawpanic/papertick/internal/ioatomic"
)

// StickyEntry remembers the last source selected for a (symbol,
// timeframe) pair so rolling indicators don't wobble on a silent
// provider switch.
type StickyEntry struct {
	Source string    `json:"source"`
	Ts     time.Time `json:"ts"`
}

// StickinessStore is the persistent "SYMBOL:TIMEFRAME" -> StickyEntry
// map backing the fetcher's provider stickiness. Survives restarts.
type StickinessStore struct {
	path    string
	entries map[string]StickyEntry
}

func LoadStickinessStore(path string) (*StickinessStore, error) {
	ss := &StickinessStore{path: path, entries: map[string]StickyEntry{}}
	if err := ioatomic.ReadJSON(path, &ss.entries); err != nil {
		ss.entries = map[string]StickyEntry{}
	}
	return ss, nil
}

func (ss *StickinessStore) Save() error {
	return ioatomic.WriteJSON(ss.path, ss.entries)
}

func stickyKey(symbol, timeframe string) string {
	return fmt.Sprintf("%s:%s", symbol, timeframe)
}

// Preferred returns the sticky source for (symbol, timeframe), if any.
func (ss *StickinessStore) Preferred(symbol, timeframe string) (string, bool) {
	e, ok := ss.entries[stickyKey(symbol, timeframe)]
	if !ok {
		return "", false
	}
	return e.Source, true
}

// Record sets the sticky source only when it changed, so the file's
// ts reflects the last actual switch rather than every tick.
func (ss *StickinessStore) Record(symbol, timeframe, source string, now time.Time) bool {
	key := stickyKey(symbol, timeframe)
	if e, ok := ss.entries[key]; ok && e.Source == source {
		return false
	}
	ss.entries[key] = StickyEntry{Source: source, Ts: now}
	return true
}
