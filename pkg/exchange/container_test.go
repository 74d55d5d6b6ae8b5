package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExchange struct {
	Exchange
	closed bool
}

func (s *stubExchange) Close() error {
	s.closed = true
	return nil
}

func TestContainerRegisterAndGet(t *testing.T) {
	c := NewContainer()
	ex := &stubExchange{}
	c.Register("binance", ex)

	got, err := c.Get("binance")
	require.NoError(t, err)
	assert.Same(t, ex, got.(*stubExchange))

	_, err = c.Get("unknown")
	assert.Error(t, err)

	assert.ElementsMatch(t, []string{"binance"}, c.Names())
}

func TestContainerUnregister(t *testing.T) {
	c := NewContainer()
	c.Register("ellipx", &stubExchange{})
	c.Unregister("ellipx")

	_, err := c.Get("ellipx")
	assert.Error(t, err)
	assert.Empty(t, c.Names())
}

func TestContainerCloseAll(t *testing.T) {
	c := NewContainer()
	a := &stubExchange{}
	b := &stubExchange{}
	c.Register("a", a)
	c.Register("b", b)

	require.NoError(t, c.CloseAll())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
	assert.Empty(t, c.Names())
}
