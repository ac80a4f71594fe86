// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ackq

import (
	"path/filepath"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"code.hybscloud.com/ackq/internal/diskio"
)

// Well-known node ids. The anchors hold a single link file naming the node
// they point at; the dummy node is the initial head, tail and processed
// position of a fresh queue.
const (
	headID      = "00000000-0000-0000-0000-000000000000"
	tailID      = "11111111-1111-1111-1111-111111111111"
	processedID = "22222222-2222-2222-2222-222222222222"
	dummyID     = "33333333-3333-3333-3333-333333333333"
)

// Field file names inside a node directory.
const (
	fieldThis           = "this"
	fieldID             = "id"
	fieldBody           = "body"
	fieldNext           = "next"
	fieldPrevious       = "previous"
	fieldLock           = "lock"
	fieldStatus         = "status"
	fieldCounter        = "counter"
	fieldBatchStart     = "batch-start"
	fieldBatchEnd       = "batch-end"
	fieldCreated        = "created"
	fieldSent           = "sent"
	fieldResent         = "resent"
	fieldDirty          = "dirty"
	fieldStarted        = "started"
	fieldFormerNext     = "former-next"
	fieldFormerPrevious = "former-previous"
	fieldReplacement    = "replacement"
	fieldSyncing        = "syncing"
)

// diskStore keeps every node as a directory of field files under
// dir/<id[0:2]>/<id>/. Nodes are never deleted.
type diskStore struct {
	dir     string
	fs      *diskio.FS
	links   codec[*node]
	nodes   sync.Map // id → *node
	resumed bool

	head, tail, processed *diskCell[*node]
}

// openDiskStore opens the queue rooted at dir, creating its anchors on
// first use.
func openDiskStore(dir string, fs *diskio.FS) (s *diskStore, err error) {
	defer catch(&err)

	s = &diskStore{dir: dir, fs: fs}
	s.links = linkCodec(s)
	s.head = s.anchor(headID)
	s.tail = s.anchor(tailID)
	s.processed = s.anchor(processedID)

	// head is written last, so its presence marks a complete layout.
	found, err := fs.Exists(s.head.path)
	if err != nil {
		return nil, storageError(s.head.path, err)
	}
	if found {
		s.resumed = true
		return s, nil
	}

	s.init(dummyID, Item{}, 0, StatusCompleted)
	for _, a := range []*diskCell[*node]{s.tail, s.processed, s.head} {
		s.mkdir(filepath.Dir(a.path))
		s.write(a.path, dummyID)
	}
	return s, nil
}

func (s *diskStore) nodeDir(id string) string {
	shard := id
	if len(shard) > 2 {
		shard = shard[:2]
	}
	return filepath.Join(s.dir, shard, id)
}

func (s *diskStore) anchor(id string) *diskCell[*node] {
	return &diskCell[*node]{
		fs:    s.fs,
		path:  filepath.Join(s.nodeDir(id), fieldThis),
		codec: s.links,
	}
}

func (s *diskStore) anchors() (head, tail, processed atomicCell[*node]) {
	return s.head, s.tail, s.processed
}

func (s *diskStore) create(item Item, now int64) *node {
	return s.init(uuid.NewString(), item, now, StatusNew)
}

// init writes the initial field files of a node. The node is unreachable
// until a link to it is stored, so no locks are taken.
func (s *diskStore) init(id string, item Item, now int64, status Status) *node {
	n := s.load(id)
	dir := s.nodeDir(id)
	s.mkdir(dir)

	null := nullValue
	fields := [...]struct{ name, value string }{
		{fieldNext, null},
		{fieldPrevious, null},
		{fieldLock, null},
		{fieldStatus, status.String()},
		{fieldCounter, strconv.Itoa(-1)},
		{fieldBatchStart, null},
		{fieldBatchEnd, null},
		{fieldCreated, timeCodec.encode(now)},
		{fieldSent, null},
		{fieldResent, null},
		{fieldDirty, boolCodec.encode(false)},
		{fieldStarted, null},
		{fieldFormerNext, null},
		{fieldFormerPrevious, null},
		{fieldReplacement, null},
		{fieldSyncing, boolCodec.encode(false)},
	}
	for _, f := range fields {
		s.write(filepath.Join(dir, f.name), f.value)
	}
	n.item.Store(item)
	return n
}

// load returns the node with the given id, binding its cells on first use.
// It does not touch the disk.
func (s *diskStore) load(id string) *node {
	if id == nullValue || id == "" {
		return nil
	}
	if v, ok := s.nodes.Load(id); ok {
		return v.(*node)
	}

	dir := s.nodeDir(id)
	link := func(name string) *diskCell[*node] {
		return &diskCell[*node]{fs: s.fs, path: filepath.Join(dir, name), codec: s.links}
	}
	stamp := func(name string) *diskCell[int64] {
		return &diskCell[int64]{fs: s.fs, path: filepath.Join(dir, name), codec: timeCodec}
	}
	flag := func(name string) *diskCell[bool] {
		return &diskCell[bool]{fs: s.fs, path: filepath.Join(dir, name), codec: boolCodec}
	}

	n := &node{
		id: id,
		item: &diskItem{
			fs:       s.fs,
			idPath:   filepath.Join(dir, fieldID),
			bodyPath: filepath.Join(dir, fieldBody),
		},
		next:           link(fieldNext),
		previous:       link(fieldPrevious),
		lock:           link(fieldLock),
		status:         &diskCell[Status]{fs: s.fs, path: filepath.Join(dir, fieldStatus), codec: statusCodec},
		counter:        &diskCell[int64]{fs: s.fs, path: filepath.Join(dir, fieldCounter), codec: intCodec},
		batchStart:     link(fieldBatchStart),
		batchEnd:       link(fieldBatchEnd),
		created:        stamp(fieldCreated),
		sent:           stamp(fieldSent),
		resent:         stamp(fieldResent),
		dirty:          flag(fieldDirty),
		started:        stamp(fieldStarted),
		formerNext:     link(fieldFormerNext),
		formerPrevious: link(fieldFormerPrevious),
		replacement:    link(fieldReplacement),
		syncing:        flag(fieldSyncing),
	}
	v, _ := s.nodes.LoadOrStore(id, n)
	return v.(*node)
}

func (s *diskStore) mkdir(dir string) {
	if err := s.fs.MkdirAll(dir); err != nil {
		raise(storageError(dir, err))
	}
}

func (s *diskStore) write(path, value string) {
	if err := s.fs.Write(path, []byte(value)); err != nil {
		raise(storageError(path, err))
	}
}

// close drops the rehydration cache. Files stay on disk.
func (s *diskStore) close() error {
	s.nodes.Clear()
	return nil
}
