// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ackq

import "time"

// SetClock replaces the time source of q. Call before q is shared.
func SetClock(q *Queue, now func() time.Time) {
	q.clock = now
}

// Grace returns the stale transaction threshold of q.
func Grace(q *Queue) time.Duration {
	return time.Duration(q.grace)
}
