package providers

import (
	"time"

	"github.com/sawpanic/papertick/internal/ioatomic"
)

// ErrorClass distinguishes the two backoff curves
type ErrorClass string

const (
	ErrorRateLimited ErrorClass = "rate_limited" // 429 / timeout / malformed body
	ErrorForbidden ErrorClass = "forbidden" // 403
)

const maxCooldownSeconds = 3600

// backoffCurves maps an error class to its consecutive-failure-index ->
// seconds schedule. Index beyond the slice clamps to the last (and
// max) value.
var backoffCurves = map[ErrorClass][]int{
	ErrorRateLimited: {300, 600, 1800, 3600},
	ErrorForbidden: {1800, 3600, 3600, 3600},
}

// CooldownEntry is one provider's cooldown record.
type CooldownEntry struct {
	CooldownUntil time.Time `json:"cooldown_until_ts"`
	LastError     string    `json:"last_error"`
	Count         int       `json:"count"`
}

// CooldownStore is the persistent provider -> CooldownEntry map.
// Owned exclusively by the fetcher; never rewritten by any other component.
type CooldownStore struct {
	path    string
	entries map[string]CooldownEntry
}

func LoadCooldownStore(path string) (*CooldownStore, error) {
	cs := &CooldownStore{path: path, entries: map[string]CooldownEntry{}}
	if err := ioatomic.ReadJSON(path, &cs.entries); err != nil {
		cs.entries = map[string]CooldownEntry{}
	}
	return cs, nil
}

func (cs *CooldownStore) Save() error {
	return ioatomic.WriteJSON(cs.path, cs.entries)
}

// InCooldown reports whether provider is currently cooled down at now.
func (cs *CooldownStore) InCooldown(provider string, now time.Time) bool {
	e, ok := cs.entries[provider]
	if !ok {
		return false
	}
	return now.Before(e.CooldownUntil)
}

// SetCooldown bumps provider's consecutive-failure count (unless
// bump is false, which forces the first-failure duration regardless of
// history) and computes the new cooldown_until from the error class's
// backoff curve, hard-capped at maxCooldownSeconds.
func (cs *CooldownStore) SetCooldown(provider string, now time.Time, class ErrorClass, errMsg string, bump bool) {
	e := cs.entries[provider]
	if bump {
		e.Count++
	} else {
		e.Count = 1
	}
	e.LastError = errMsg

	curve := backoffCurves[class]
	if curve == nil {
		curve = backoffCurves[ErrorRateLimited]
	}
	idx := e.Count - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(curve) {
		idx = len(curve) - 1
	}
	secs := curve[idx]
	if secs > maxCooldownSeconds {
		secs = maxCooldownSeconds
	}
	e.CooldownUntil = now.Add(time.Duration(secs) * time.Second)
	cs.entries[provider] = e
}

// ClearCooldown resets provider's consecutive-failure counter to 0 on
// any success.
func (cs *CooldownStore) ClearCooldown(provider string) {
	e := cs.entries[provider]
	e.Count = 0
	e.CooldownUntil = time.Time{}
	cs.entries[provider] = e
}
