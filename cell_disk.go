// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ackq

import (
	"fmt"
	"strconv"
	"time"

	"code.hybscloud.com/ackq/internal/diskio"
)

// nullValue marks an empty link or an unset timestamp on disk.
const nullValue = "null"

// codec converts a field value to and from its file content.
type codec[E any] struct {
	encode func(E) string
	decode func(string) (E, error)
}

var (
	statusCodec = codec[Status]{
		encode: Status.String,
		decode: ParseStatus,
	}
	intCodec = codec[int64]{
		encode: func(v int64) string { return strconv.FormatInt(v, 10) },
		decode: func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) },
	}
	boolCodec = codec[bool]{
		encode: strconv.FormatBool,
		decode: strconv.ParseBool,
	}
	// Timestamps are Unix nanoseconds in memory, RFC 3339 on disk.
	timeCodec = codec[int64]{
		encode: func(v int64) string {
			if v == 0 {
				return nullValue
			}
			return time.Unix(0, v).UTC().Format(time.RFC3339Nano)
		},
		decode: func(s string) (int64, error) {
			if s == nullValue {
				return 0, nil
			}
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return 0, err
			}
			return t.UnixNano(), nil
		},
	}
)

// linkCodec persists a node reference as the node's id and rehydrates it
// through s on read.
func linkCodec(s *diskStore) codec[*node] {
	return codec[*node]{
		encode: func(n *node) string {
			if n == nil {
				return nullValue
			}
			return n.id
		},
		decode: func(id string) (*node, error) {
			return s.load(id), nil
		},
	}
}

// diskCell is a field stored in its own file. Load reads without locking
// since writes replace the file atomically. Store and CompareAndSwap hold
// the field's advisory lock so a CAS read-modify-write is never
// interleaved with another writer, in this or any other process.
type diskCell[E comparable] struct {
	fs    *diskio.FS
	path  string
	codec codec[E]
}

func (c *diskCell[E]) Load() E {
	raw, err := c.fs.Read(c.path)
	if err != nil {
		raise(storageError(c.path, err))
	}
	v, err := c.codec.decode(string(raw))
	if err != nil {
		raise(storageError(c.path, err))
	}
	return v
}

func (c *diskCell[E]) Store(v E) {
	data := []byte(c.codec.encode(v))
	err := c.fs.Locked(c.path, func() error {
		return c.fs.Write(c.path, data)
	})
	if err != nil {
		raise(storageError(c.path, err))
	}
}

func (c *diskCell[E]) CompareAndSwap(old, v E) bool {
	want := c.codec.encode(old)
	swapped := false
	err := c.fs.Locked(c.path, func() error {
		raw, err := c.fs.Read(c.path)
		if err != nil {
			return err
		}
		if string(raw) != want {
			return nil
		}
		if err := c.fs.Write(c.path, []byte(c.codec.encode(v))); err != nil {
			return err
		}
		swapped = true
		return nil
	})
	if err != nil {
		raise(storageError(c.path, err))
	}
	return swapped
}

// diskItem stores the immutable item as two files, id and body.
type diskItem struct {
	fs       *diskio.FS
	idPath   string
	bodyPath string
}

func (c *diskItem) Load() Item {
	id, err := c.fs.Read(c.idPath)
	if err != nil {
		raise(storageError(c.idPath, err))
	}
	body, err := c.fs.Read(c.bodyPath)
	if err != nil {
		raise(storageError(c.bodyPath, err))
	}
	return Item{ID: string(id), Body: body}
}

func (c *diskItem) Store(it Item) {
	if err := c.fs.Write(c.bodyPath, it.Body); err != nil {
		raise(storageError(c.bodyPath, err))
	}
	if err := c.fs.Write(c.idPath, []byte(it.ID)); err != nil {
		raise(storageError(c.idPath, err))
	}
}

func storageError(path string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, path, err)
}
