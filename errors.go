// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ackq

import (
	"errors"

	"code.hybscloud.com/iox"

	"code.hybscloud.com/ackq/internal/diskio"
)

// ErrWouldBlock indicates the operation cannot proceed immediately.
//
// The [Dispatcher] uses it internally for its hand-off ring: a full ring
// means workers are behind, an empty ring means there is nothing to
// handle yet. It is a control flow signal, not a failure.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
var ErrWouldBlock = iox.ErrWouldBlock

var (
	// ErrNoDirectory is returned by Build when a durable queue is
	// requested without a base directory.
	ErrNoDirectory = errors.New("ackq: durable queue requires a directory")

	// ErrNotLeased is returned by Commit and Fail when the message is no
	// longer leased to the caller: it was already committed, failed, or
	// reclaimed by the timeout sweep.
	ErrNotLeased = errors.New("ackq: message is not leased")

	// ErrWaitExceeded is returned when a node transaction could not obtain
	// its locks within the absolute wait ceiling. It signals a bug or a
	// wedged storage layer, never routine contention.
	ErrWaitExceeded = errors.New("ackq: transaction wait ceiling exceeded")

	// ErrStorage wraps disk failures that persisted after retries.
	ErrStorage = errors.New("ackq: storage failure")

	// ErrLockTimeout is returned when a field lock file could not be
	// acquired within its budget.
	ErrLockTimeout = diskio.ErrLockTimeout

	// ErrInvalidQueueName is returned by [Broker] for empty names or names
	// that would escape the broker directory.
	ErrInvalidQueueName = errors.New("ackq: invalid queue name")

	// ErrConfig wraps configuration parsing and validation failures.
	ErrConfig = errors.New("ackq: invalid configuration")

	// ErrClosed is returned by operations on a closed queue or broker.
	ErrClosed = errors.New("ackq: closed")
)

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}

// fault carries a fatal error up through the algorithm to the exported
// entry point that started the operation.
type fault struct{ err error }

func raise(err error) {
	panic(fault{err: err})
}

// catch converts a raised fault into *errp. Other panics propagate.
func catch(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	f, ok := r.(fault)
	if !ok {
		panic(r)
	}
	*errp = f.err
}
