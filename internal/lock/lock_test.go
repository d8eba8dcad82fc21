package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLocker(client), mr
}

func TestNewLocker_NilClient(t *testing.T) {
	assert.Nil(t, NewLocker(nil))
}

func TestTryLockAndRelease(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	token, ok, err := locker.TryLock(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.TryLock(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, locker.Release(ctx, "k", "someone-else"))
	assert.True(t, mr.Exists("k"))

	require.NoError(t, locker.Release(ctx, "k", token))
	assert.False(t, mr.Exists("k"))
}

func TestAcquire_TimesOutWhenHeld(t *testing.T) {
	locker, _ := newTestLocker(t)
	_, ok, err := locker.TryLock(context.Background(), "held", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	_, err = locker.Acquire(ctx, "held", time.Minute)
	assert.ErrorIs(t, err, ErrBusy)
}

func TestWith_ReleasesAfterRun(t *testing.T) {
	locker, mr := newTestLocker(t)
	key := PeriodKey("2025-01")

	called := false
	err := locker.With(context.Background(), key, time.Minute, func(context.Context) error {
		called = true
		assert.True(t, mr.Exists(key))
		return errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
	assert.True(t, called)
	assert.False(t, mr.Exists(key))
}

func TestWithTry_Busy(t *testing.T) {
	locker, _ := newTestLocker(t)
	key := PeriodKey("2025-02")
	_, ok, err := locker.TryLock(context.Background(), key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	err = locker.WithTry(context.Background(), key, time.Minute, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrBusy)
}

func TestNilLockerRunsDirectly(t *testing.T) {
	var locker *Locker
	ran := false
	require.NoError(t, locker.With(context.Background(), "x", time.Second, func(context.Context) error {
		ran = true
		return nil
	}))
	assert.True(t, ran)
}
