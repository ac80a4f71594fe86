// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ackq_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code.hybscloud.com/ackq"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ACKQ_DIR", "")
	t.Setenv("ACKQ_BATCH_SIZE", "")
	t.Setenv("ACKQ_TIMEOUT", "")
	t.Setenv("ACKQ_FSYNC", "")

	cfg, err := ackq.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "", cfg.Dir)
	assert.Equal(t, ackq.DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, ackq.DefaultTimeout, cfg.Timeout)
	assert.False(t, cfg.Fsync)
}

func TestLoadConfigFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ACKQ_DIR", dir)
	t.Setenv("ACKQ_BATCH_SIZE", "7")
	t.Setenv("ACKQ_TIMEOUT", "250ms")
	t.Setenv("ACKQ_FSYNC", "true")

	cfg, err := ackq.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ackq.Config{Dir: dir, BatchSize: 7, Timeout: 250 * time.Millisecond, Fsync: true}, cfg)

	q, err := cfg.Builder().Build()
	require.NoError(t, err)
	defer q.Close()
	require.NoError(t, q.Append("x", nil))
	assert.DirExists(t, dir+"/00")
}

func TestLoadConfigInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"unparsable batch":   {"ACKQ_BATCH_SIZE": "many"},
		"zero batch":         {"ACKQ_BATCH_SIZE": "0"},
		"unparsable timeout": {"ACKQ_TIMEOUT": "soon"},
		"negative timeout":   {"ACKQ_TIMEOUT": "-1s"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("ACKQ_BATCH_SIZE", "")
			t.Setenv("ACKQ_TIMEOUT", "")
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := ackq.LoadConfig()
			require.Error(t, err)
			assert.ErrorIs(t, err, ackq.ErrConfig)
		})
	}
}
