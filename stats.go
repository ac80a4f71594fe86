// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ackq

import "code.hybscloud.com/atomix"

// Stats counts queue events observed by this process since the queue was
// opened.
type Stats struct {
	Appended    uint64 // messages appended
	Delivered   uint64 // messages leased by Poll, redeliveries included
	Committed   uint64
	Failed      uint64 // explicit Fail calls
	Redelivered uint64 // copies appended for failed or expired messages
	Recovered   uint64 // stalled transactions repaired
}

type stats struct {
	appended    atomix.Uint64
	delivered   atomix.Uint64
	committed   atomix.Uint64
	failed      atomix.Uint64
	redelivered atomix.Uint64
	recovered   atomix.Uint64
}

func (s *stats) snapshot() Stats {
	return Stats{
		Appended:    s.appended.Load(),
		Delivered:   s.delivered.Load(),
		Committed:   s.committed.Load(),
		Failed:      s.failed.Load(),
		Redelivered: s.redelivered.Load(),
		Recovered:   s.recovered.Load(),
	}
}
