// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ackq

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the environment form of the queue options.
//
//	ACKQ_DIR         durable base directory; empty selects memory
//	ACKQ_BATCH_SIZE  messages per batch (default 30)
//	ACKQ_TIMEOUT     lease duration (default 1s)
//	ACKQ_FSYNC       fsync durable writes (default false)
type Config struct {
	Dir       string        `env:"ACKQ_DIR"`
	BatchSize int           `env:"ACKQ_BATCH_SIZE" envDefault:"30"`
	Timeout   time.Duration `env:"ACKQ_TIMEOUT" envDefault:"1s"`
	Fsync     bool          `env:"ACKQ_FSYNC" envDefault:"false"`
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, errors.Join(ErrConfig, err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate reports invalid settings.
func (c Config) Validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("%w: batch size %d, must be >= 1", ErrConfig, c.BatchSize)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout %v, must be > 0", ErrConfig, c.Timeout)
	}
	return nil
}

// Builder returns a queue builder for c. c must be valid.
func (c Config) Builder() *Builder {
	b := New(c.BatchSize).Timeout(c.Timeout)
	if c.Dir != "" {
		b.Dir(c.Dir)
	}
	if c.Fsync {
		b.Fsync()
	}
	return b
}
