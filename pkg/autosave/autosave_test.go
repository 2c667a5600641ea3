package autosave

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTriggerSavesImmediately(t *testing.T) {
	var saves atomic.Int32
	d := New(time.Hour, func(ctx context.Context) error {
		saves.Add(1)
		return nil
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { d.Run(ctx); close(done) }()

	d.Trigger()
	assert.Eventually(t, func() bool { return saves.Load() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	assert.Equal(t, int32(1), saves.Load())
}

func TestTickSavesOnlyWhenDirty(t *testing.T) {
	var saves atomic.Int32
	d := New(10*time.Millisecond, func(ctx context.Context) error {
		saves.Add(1)
		return nil
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), saves.Load())

	d.Touch()
	assert.Eventually(t, func() bool { return saves.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), saves.Load())
}

func TestCancelFlushesPendingChange(t *testing.T) {
	var saves atomic.Int32
	d := New(time.Hour, func(ctx context.Context) error {
		assert.NoError(t, ctx.Err())
		saves.Add(1)
		return nil
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { d.Run(ctx); close(done) }()

	d.Touch()
	cancel()
	<-done
	assert.Equal(t, int32(1), saves.Load())
}

func TestFailedSaveStaysDirty(t *testing.T) {
	var calls atomic.Int32
	var reported atomic.Int32
	d := New(10*time.Millisecond, func(ctx context.Context) error {
		if calls.Add(1) == 1 {
			return errors.New("offline")
		}
		return nil
	}, func(error) { reported.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Touch()
	assert.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), reported.Load())
}
