// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cli provides the `ackq` command-line tool.
//
// Every command opens the durable queue in one directory, does its work
// and closes the queue again, so several invocations (or processes) can
// share a queue.
//
// # Configuration
//
// Settings come from ACKQ_* environment variables (see ackq.Config), an
// optional .env file loaded before they are read, and flags, in
// increasing order of precedence. A queue directory is required.
//
// Usage
//
//	ackq --dir /var/lib/ackq/orders send order-1 order-2
//	ackq --dir /var/lib/ackq/orders recv
//	ackq --dir /var/lib/ackq/orders recv --fail   # redeliver later
//	ackq --dir /var/lib/ackq/orders recv --keep   # leave leased
//	ackq --dir /var/lib/ackq/orders drain
//	ackq --dir /var/lib/ackq/orders stats
//
//	ACKQ_DIR=/var/lib/ackq/orders ACKQ_TIMEOUT=30s ackq recv
//	ackq --env-file ./queue.env stats
package cli
