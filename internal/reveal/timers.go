/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package reveal

import "time"

// Timers schedules fire-once callbacks. Scheduled callbacks are never
// cancelled; sessions drop stale ones by run ID when they fire.
type Timers interface {
	AfterFunc(d time.Duration, f func())
}

// RealTimers backs Timers with time.AfterFunc.
type RealTimers struct{}

func (RealTimers) AfterFunc(d time.Duration, f func()) { time.AfterFunc(d, f) }
