package zapadapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	sobj "github.com/Stiffstream/sobjectizer-sub000"
)

func TestLogger_ForwardsToZap(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := New(zap.New(core).Sugar())

	l.Info("push", "chain", "ch1")
	l.Warn("overflow", "chain", "ch1")
	l.Error("closed early", "chain", "ch1")
	l.Debug("extract", "chain", "ch1")

	entries := logs.All()
	assert.Len(t, entries, 4)
	assert.Equal(t, "push", entries[0].Message)
	assert.Equal(t, "ch1", entries[0].ContextMap()["chain"])
}

func TestNew_NilLoggerFallsBackToProduction(t *testing.T) {
	var l Logger
	assert.NotPanics(t, func() { l = New(nil) })
	assert.NotPanics(t, func() { l.Info("hello") })
}

func TestLogger_SatisfiesSobjLoggerInterface(t *testing.T) {
	var _ sobj.Logger = New(nil)
}
