package incident

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLevelsUnexpectedAndPermanentAsError(t *testing.T) {
	for _, kind := range []Kind{KindUnexpected, KindPermanentExternal} {
		inc := New(kind, "fetcher", errors.New("boom"))
		assert.Equal(t, "error", inc.Level)
	}
}

func TestNewLevelsTransientAndPolicyAsWarn(t *testing.T) {
	for _, kind := range []Kind{KindTransientExternal, KindDataIntegrity, KindPolicyViolation} {
		inc := New(kind, "fetcher", errors.New("boom"))
		assert.Equal(t, "warn", inc.Level)
	}
}

func TestNewCapturesErrorTypeAndMessage(t *testing.T) {
	inc := New(KindDataIntegrity, "ledger", errors.New("malformed line"))
	assert.Equal(t, string(KindDataIntegrity), inc.ErrorType)
	assert.Equal(t, "malformed line", inc.Error)
	assert.False(t, inc.Ts.IsZero())
}

func TestNewWithNilErrorLeavesMessageEmpty(t *testing.T) {
	inc := New(KindTransientExternal, "provider", nil)
	assert.Empty(t, inc.Error)
}

func TestWithHelpersChainWithoutMutatingReceiver(t *testing.T) {
	base := New(KindDataIntegrity, "council", nil)
	tagged := base.WithSymbol("BTCUSD", "15m").WithTickID("tick-1").WithTraceback("stack...")

	assert.Empty(t, base.Symbol)
	assert.Equal(t, "BTCUSD", tagged.Symbol)
	assert.Equal(t, "15m", tagged.Timeframe)
	assert.Equal(t, "tick-1", tagged.TickID)
	assert.Equal(t, "stack...", tagged.Traceback)
}

func TestWithContextAttachesArbitraryFields(t *testing.T) {
	inc := New(KindUnexpected, "scheduler", errors.New("panic")).WithContext(map[string]any{"bars": 3})
	assert.Equal(t, 3, inc.Context["bars"])
}
