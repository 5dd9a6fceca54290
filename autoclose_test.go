package sobj

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAutoCloseDropContent(t *testing.T) {
	ch := NewChain(ChainConfig{Capacity: Unbounded()})
	_, _ = Send(ch, 1)

	guard := AutoCloseDropContent(ch)
	guard.Close()

	assert.True(t, ch.IsClosed())
	assert.False(t, ch.RetainsContent())
	_, _, status := ch.Extract()
	assert.Equal(t, ExtractChainClosed, status)
}

func TestAutoCloseRetainContent(t *testing.T) {
	ch := NewChain(ChainConfig{Capacity: Unbounded()})
	_, _ = Send(ch, 1)

	guard := AutoCloseRetainContent(ch)
	guard.Close()

	assert.True(t, ch.RetainsContent())
	_, _, status := ch.Extract()
	assert.Equal(t, MsgExtracted, status)
}

func TestAutoClose_IdempotentAfterExplicitClose(t *testing.T) {
	ch1 := NewChain(ChainConfig{Capacity: Unbounded()})
	ch2 := NewChain(ChainConfig{Capacity: Unbounded()})
	guard := AutoCloseDropContent(ch1, ch2)

	guard.Close()
	assert.NotPanics(t, func() { guard.Close() })
	assert.True(t, ch1.IsClosed())
	assert.True(t, ch2.IsClosed())
}
