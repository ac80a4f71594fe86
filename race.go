// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package ackq

// RaceEnabled is true when the race detector is active.
// Used by tests to scale down stress tests, whose memory cells use atomix
// orderings the detector cannot see.
const RaceEnabled = true
