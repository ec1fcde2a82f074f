package primitives

import (
	"bufio"
	"encoding/json"
	"math"
	"os"

	"github.com/sawpanic/papertick/internal/ioatomic"
)

// SelfTrustEWMAHalfLifeTrades is the span N, in closed trades, of the
// Brier and overconfidence EWMAs: each close updates them with
// alpha = 2/(N+1).
const SelfTrustEWMAHalfLifeTrades = 20.0

// TradeRecord is the subset of a trades.jsonl line self-trust needs,
// matching ledger.OpenEvent/CloseEvent's actual field names: "type"
// ("open"/"close") and "pct" (the close's signed percent P&L).
// Open events carry Confidence; close events carry Pct and the key
// that correlates them back to the open.
type TradeRecord struct {
	Event      string   `json:"type"` // "open" or "close"
	Symbol     string   `json:"symbol"`
	Timeframe  string   `json:"timeframe"`
	Confidence *float64 `json:"confidence,omitempty"`
	Pct        *float64 `json:"pct,omitempty"`
}

// SelfTrustState is the persistent byte-offset cursor plus the running
// calibration EWMAs
type SelfTrustState struct {
	Offset        int64              `json:"offset"`
	N             int64              `json:"n"`
	BrierEWMA     float64            `json:"brier_ewma"`
	OverconfEWMA  float64            `json:"overconfidence_ewma"`
	OpenConfByKey map[string]float64 `json:"open_conf_by_key"`
}

func newSelfTrustState() SelfTrustState {
	return SelfTrustState{OpenConfByKey: map[string]float64{}}
}

type SelfTrustStore struct {
	path  string
	State SelfTrustState
}

func LoadSelfTrustStore(path string) (*SelfTrustStore, error) {
	st := &SelfTrustStore{path: path, State: newSelfTrustState()}
	if err := ioatomic.ReadJSON(path, &st.State); err != nil {
		st.State = newSelfTrustState()
	}
	if st.State.OpenConfByKey == nil {
		st.State.OpenConfByKey = map[string]float64{}
	}
	return st, nil
}

func (st *SelfTrustStore) Save() error {
	return ioatomic.WriteJSON(st.path, st.State)
}

func tradeKey(symbol, timeframe string) string {
	return symbol + "|" + timeframe
}

// Replay advances the cursor through any trades.jsonl bytes appended
// since the last call, updating the calibration EWMAs on every close
// event it can pair with a prior open (or an orphan fallback
// confidence of 0.5 otherwise) "Self-trust state".
func (st *SelfTrustStore) Replay(tradesLogPath string) error {
	f, err := os.Open(tradesLogPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() < st.State.Offset {
		// Log was rotated/truncated; restart from the top.
		st.State.Offset = 0
	}
	if _, err := f.Seek(st.State.Offset, 0); err != nil {
		return err
	}

	reader := bufio.NewReader(f)
	consumed := int64(0)
	for {
		line, err := reader.ReadString('\n')
		if len(line) == 0 && err != nil {
			break
		}
		if err != nil {
			// Partial trailing line with no newline yet: do not
			// consume it, wait for the next replay.
			break
		}
		consumed += int64(len(line))

		var rec TradeRecord
		if jerr := json.Unmarshal([]byte(line), &rec); jerr != nil {
			continue
		}
		st.apply(rec)
	}
	st.State.Offset += consumed
	return nil
}

func (st *SelfTrustStore) apply(rec TradeRecord) {
	key := tradeKey(rec.Symbol, rec.Timeframe)
	switch rec.Event {
	case "open":
		if rec.Confidence != nil {
			st.State.OpenConfByKey[key] = *rec.Confidence
		}
	case "close":
		if rec.Pct == nil {
			return
		}
		conf, ok := st.State.OpenConfByKey[key]
		if !ok {
			conf = 0.5 // orphan-close fallback
		} else {
			delete(st.State.OpenConfByKey, key)
		}
		outcome := 0.0
		if *rec.Pct > 0 {
			outcome = 1.0
		}
		brierObs := (conf - outcome) * (conf - outcome)
		overconfObs := 0.0
		if conf >= 0.60 && outcome == 0 {
			overconfObs = 1.0
		}

		st.State.N++
		alpha := 2.0 / (SelfTrustEWMAHalfLifeTrades + 1.0)
		if st.State.N == 1 {
			st.State.BrierEWMA = brierObs
			st.State.OverconfEWMA = overconfObs
		} else {
			st.State.BrierEWMA = ewmaUpdate(st.State.BrierEWMA, brierObs, alpha)
			st.State.OverconfEWMA = ewmaUpdate(st.State.OverconfEWMA, overconfObs, alpha)
		}
	}
}

// Score computes self_trust_score = clamp01(1 - sqrt(brier_ewma) -
// 0.5*overconfidence_ewma), returning ok=false while n=0.
func (st *SelfTrustStore) Score() (score float64, ok bool) {
	if st.State.N == 0 {
		return 0, false
	}
	s := 1 - math.Sqrt(st.State.BrierEWMA) - 0.5*st.State.OverconfEWMA
	return clamp01(s), true
}
