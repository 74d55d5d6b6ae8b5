package keyring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradewire/pkg/core"
)

func testEntries() []*Entry {
	return []*Entry{
		{ID: "a", Credentials: &core.Credentials{APIKey: "key-aaaa-1111", Secret: "sa"}},
		{ID: "b", Credentials: &core.Credentials{APIKey: "key-bbbb-2222", Secret: "sb"}},
		{ID: "c", Credentials: &core.Credentials{APIKey: "key-cccc-3333", Secret: "sc"}},
	}
}

func TestRingRotate(t *testing.T) {
	r := New(testEntries(), RotateManual)

	assert.Equal(t, "key-aaaa-1111", r.Current().APIKey)
	r.Rotate()
	assert.Equal(t, "key-bbbb-2222", r.Current().APIKey)
	r.Rotate()
	r.Rotate()
	assert.Equal(t, "key-aaaa-1111", r.Current().APIKey)
}

func TestRingSkipsDisabled(t *testing.T) {
	r := New(testEntries(), RotateManual)
	r.Disable("b")

	r.Rotate()
	assert.Equal(t, "key-cccc-3333", r.Current().APIKey)

	r.Enable("b")
	r.Rotate()
	assert.Equal(t, "key-aaaa-1111", r.Current().APIKey)
}

func TestRingAllDisabled(t *testing.T) {
	r := New(testEntries(), RotateManual)
	r.Disable("a")
	r.Disable("b")
	r.Disable("c")
	assert.Nil(t, r.Current())
}

func TestRotateOnError(t *testing.T) {
	r := New(testEntries(), RotateOnError)
	r.RecordFailure(core.ErrorTypeInvalidOrder)
	assert.Equal(t, "key-bbbb-2222", r.Current().APIKey)
}

func TestRotateOnRateLimitOnly(t *testing.T) {
	r := New(testEntries(), RotateOnRateLimit)

	r.RecordFailure(core.ErrorTypeInvalidOrder)
	assert.Equal(t, "key-aaaa-1111", r.Current().APIKey)

	r.RecordFailure(core.ErrorTypeRateLimit)
	assert.Equal(t, "key-bbbb-2222", r.Current().APIKey)

	r.RecordFailure(core.ErrorTypeDDoSProtection)
	assert.Equal(t, "key-cccc-3333", r.Current().APIKey)
}

func TestEntryStringMasksKey(t *testing.T) {
	e := testEntries()[0]
	s := e.String()
	assert.NotContains(t, s, "key-aaaa-1111")
	assert.Contains(t, s, "key-****1111")

	require.NotPanics(t, func() {
		_ = (&Entry{ID: "x"}).String()
	})
}
