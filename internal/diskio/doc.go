// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package diskio provides the file primitives behind the durable queue:
// whole-file reads, atomic replace-by-rename writes, and advisory
// per-file locks.
//
// Every operation retries transient I/O errors a bounded number of times
// before reporting failure. Lock acquisition is non-blocking at the OS
// level and polled with backoff until a fixed budget runs out.
package diskio
