// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package spellcheck

import (
	"context"
	"time"
)

// DefaultMinDelay spaces calls to fit the free tier quota of 7 calls per
// minute.
const DefaultMinDelay = time.Minute / 7

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// throttle enforces a minimum gap between the end of one remote call and the
// dispatch of the next.
type throttle struct {
	minDelay time.Duration
	last     time.Time
	now      func() time.Time
	sleep    Sleeper
}

// wait returns how long it slept.
func (t *throttle) wait(ctx context.Context) (time.Duration, error) {
	if t.last.IsZero() {
		return 0, nil
	}
	elapsed := t.now().Sub(t.last)
	if elapsed >= t.minDelay {
		return 0, nil
	}
	d := t.minDelay - elapsed
	return d, t.sleep(ctx, d)
}

func (t *throttle) mark() {
	t.last = t.now()
}
