// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ackq

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Broker maps queue names to queues and assigns message ids.
//
// Queues are created on first use from the builder the broker was made
// with. For a durable builder each queue lives in its own subdirectory
// named after the queue.
//
// Example:
//
//	b := ackq.NewBroker(ackq.New(ackq.DefaultBatchSize))
//	id, _ := b.Send("orders", []byte("order-1"))
//	msgs, _ := b.Receive("orders")
//	for _, m := range msgs {
//	    m.Commit()
//	}
type Broker struct {
	template *Builder

	mu     sync.Mutex
	queues map[string]*Queue
	closed bool
}

// NewBroker creates a broker whose queues are configured by b.
// Later changes to b do not affect the broker.
func NewBroker(b *Builder) *Broker {
	return &Broker{
		template: b.clone(),
		queues:   make(map[string]*Queue),
	}
}

// Queue returns the queue with the given name, opening it if needed.
func (b *Broker) Queue(name string) (*Queue, error) {
	if err := validName(name); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	if q, ok := b.queues[name]; ok {
		return q, nil
	}

	qb := b.template.clone()
	if qb.opts.durable && qb.opts.dir != "" {
		qb.opts.dir = filepath.Join(qb.opts.dir, name)
	}
	q, err := qb.Build()
	if err != nil {
		return nil, err
	}
	q.log.Debug("ackq: queue created", "queue", name)
	b.queues[name] = q
	return q, nil
}

// Send appends body to the named queue and returns the new message id.
func (b *Broker) Send(name string, body []byte) (string, error) {
	q, err := b.Queue(name)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	if err := q.Append(id, body); err != nil {
		return "", err
	}
	return id, nil
}

// Receive polls the named queue.
func (b *Broker) Receive(name string) ([]*Message, error) {
	q, err := b.Queue(name)
	if err != nil {
		return nil, err
	}
	return q.Poll()
}

// Close closes every queue opened by the broker.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	var errs []error
	for _, q := range b.queues {
		errs = append(errs, q.Close())
	}
	clear(b.queues)
	return errors.Join(errs...)
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return ErrInvalidQueueName
	}
	return nil
}
