// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ackq_test

import (
	"fmt"
	"os"
	"time"

	"code.hybscloud.com/ackq"
)

// ExampleNewMemory demonstrates commit and fail on an in-memory queue.
func ExampleNewMemory() {
	q := ackq.NewMemory(2, time.Minute)

	q.Append("a", []byte("alpha"))
	q.Append("b", []byte("beta"))
	q.Append("c", []byte("gamma"))

	// First batch: commit a, fail b
	msgs, _ := q.Poll()
	for _, m := range msgs {
		fmt.Println("got", m.ID, string(m.Body))
	}
	msgs[0].Commit()
	msgs[1].Fail()

	// c was appended before b was failed, so it comes first
	for range 2 {
		msgs, _ = q.Poll()
		for _, m := range msgs {
			fmt.Println("got", m.ID, string(m.Body))
			m.Commit()
		}
	}

	// Output:
	// got a alpha
	// got b beta
	// got c gamma
	// got b beta
}

// ExampleNewBroker demonstrates named queues with generated ids.
func ExampleNewBroker() {
	b := ackq.NewBroker(ackq.New(ackq.DefaultBatchSize))
	defer b.Close()

	b.Send("emails", []byte("welcome"))
	b.Send("invoices", []byte("INV-1"))

	msgs, _ := b.Receive("invoices")
	for _, m := range msgs {
		fmt.Println(string(m.Body))
		m.Commit()
	}

	// Output:
	// INV-1
}

// ExampleOpenDisk demonstrates that a durable queue survives a reopen.
func ExampleOpenDisk() {
	dir, _ := os.MkdirTemp("", "ackq-example-")
	defer os.RemoveAll(dir)

	q, _ := ackq.OpenDisk(dir, 10, time.Minute)
	q.Append("job-1", []byte("resize image"))
	q.Close()

	q, _ = ackq.OpenDisk(dir, 10, time.Minute)
	defer q.Close()
	msgs, _ := q.Poll()
	for _, m := range msgs {
		fmt.Println(m.ID, string(m.Body))
		m.Commit()
	}

	// Output:
	// job-1 resize image
}
