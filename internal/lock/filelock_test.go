package lock

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryAcquireAndRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	l := New(path)

	ok, err := l.TryAcquire()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, l.IsHeld())

	_, statErr := os.Stat(path + ".lock")
	assert.NoError(t, statErr, "lock file must exist while held")

	require.NoError(t, l.Release())
	assert.False(t, l.IsHeld())

	_, statErr = os.Stat(path + ".lock")
	assert.True(t, os.IsNotExist(statErr), "lock file must be removed on release")
}

func TestTryAcquire_HeldByOther(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")

	first := New(path)
	ok, err := first.TryAcquire()
	require.NoError(t, err)
	require.True(t, ok)

	second := New(path)
	ok, err = second.TryAcquire()
	require.NoError(t, err)
	assert.False(t, ok, "second acquirer must not get the lock")

	require.NoError(t, first.Release())
	ok, err = second.TryAcquire()
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, second.Release())
}

func TestTryAcquire_Reentrant(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	l := New(path)

	ok, err := l.TryAcquire()
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = l.TryAcquire()
	require.NoError(t, err)
	assert.True(t, ok, "holder re-acquiring its own lock must succeed")

	require.NoError(t, l.Release())
}

func TestAcquire_Timeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")

	first := New(path)
	ok, err := first.TryAcquire()
	require.NoError(t, err)
	require.True(t, ok)
	defer first.Release()

	second := New(path)
	err = second.Acquire(120 * time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLockHeld))
}

func TestWithLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")

	ran := false
	err := WithLock(path, 0, func() error {
		ran = true

		// The lock is held inside the critical section.
		other := New(path)
		ok, err := other.TryAcquire()
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	// Released afterwards.
	after := New(path)
	ok, err := after.TryAcquire()
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, after.Release())
}

func TestReleaseWithoutAcquire(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "out.txt"))
	assert.NoError(t, l.Release())
}
