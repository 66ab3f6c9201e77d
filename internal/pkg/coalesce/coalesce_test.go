package coalesce

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoalescerMemoizesWithinTTL(t *testing.T) {
	c := New(time.Minute)

	calls := 0
	fn := func() (interface{}, error) {
		calls++
		return "value", nil
	}

	for i := 0; i < 5; i++ {
		v, err := c.Do("key", fn)
		require.NoError(t, err)
		assert.Equal(t, "value", v)
	}
	assert.Equal(t, 1, calls)
}

func TestCoalescerZeroTTLDisablesMemoization(t *testing.T) {
	c := New(0)

	calls := 0
	fn := func() (interface{}, error) {
		calls++
		return calls, nil
	}

	v, err := c.Do("key", fn)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = c.Do("key", fn)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestCoalescerNeverMemoizesErrors(t *testing.T) {
	c := New(time.Minute)

	boom := errors.New("boom")
	calls := 0
	_, err := c.Do("key", func() (interface{}, error) {
		calls++
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	v, err := c.Do("key", func() (interface{}, error) {
		calls++
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", v)
	assert.Equal(t, 2, calls)
}

func TestCoalescerForget(t *testing.T) {
	c := New(time.Minute)

	calls := 0
	fn := func() (interface{}, error) {
		calls++
		return calls, nil
	}

	_, err := c.Do("key", fn)
	require.NoError(t, err)

	c.Forget("key")

	v, err := c.Do("key", fn)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}
