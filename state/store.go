package state

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	. "github.com/blase-lsp/blase/types"
	"github.com/cespare/xxhash/v2"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrAlreadyOpen = errors.New("document already open")
	ErrInternal    = errors.New("internal error")
)

// Document is one committed revision of an open editor buffer. Values are
// never modified after they are committed.
type Document struct {
	Uri      Uri
	Text     string
	Revision uint64
	// Version is the client supplied version, if any.
	Version *int32
}

const shardCount = 32

type slot struct {
	// held by writers of this document only
	mu     sync.Mutex
	closed bool
	doc    atomic.Pointer[Document]
}

type shard struct {
	mu    sync.RWMutex
	slots map[Uri]*slot
}

// Store maps URIs to open documents. Writers of one document serialize on
// that document alone; Get never waits for a writer.
type Store struct {
	shards [shardCount]*shard
	strict bool
	count  atomic.Int64

	// OnCommit runs under the document lock after every commit, so its
	// calls for one document happen in commit order.
	OnCommit func(doc *Document)
}

// NewStore creates a Store. With strict set, opening an already open
// document fails instead of replacing it.
func NewStore(strict bool) *Store {
	store := &Store{strict: strict}

	for i := range store.shards {
		store.shards[i] = &shard{slots: make(map[Uri]*slot)}
	}

	return store
}

func (s *Store) shard(uri Uri) *shard {
	return s.shards[xxhash.Sum64String(uri)%shardCount]
}

func (s *Store) slot(uri Uri) *slot {
	sh := s.shard(uri)

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	return sh.slots[uri]
}

func (s *Store) Open(uri Uri, text string, version *int32) (*Document, error) {
	for {
		sh := s.shard(uri)

		sh.mu.Lock()
		sl, exists := sh.slots[uri]

		if exists && s.strict {
			sh.mu.Unlock()
			return nil, fmt.Errorf("%w: %s", ErrAlreadyOpen, uri)
		}

		if !exists {
			sl = &slot{}
			sh.slots[uri] = sl
			s.count.Add(1)
		}
		sh.mu.Unlock()

		sl.mu.Lock()

		if sl.closed {
			// closed between the map update and the slot lock
			sl.mu.Unlock()
			continue
		}

		doc := &Document{
			Uri:     uri,
			Text:    text,
			Version: version,
		}

		if prev := sl.doc.Load(); prev != nil {
			doc.Revision = prev.Revision + 1
		}

		sl.doc.Store(doc)
		s.commit(doc)
		sl.mu.Unlock()

		return doc, nil
	}
}

func (s *Store) Get(uri Uri) (*Document, error) {
	sl := s.slot(uri)

	if sl == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, uri)
	}

	doc := sl.doc.Load()

	if doc == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, uri)
	}

	return doc, nil
}

func (s *Store) Has(uri Uri) bool {
	_, err := s.Get(uri)

	return err == nil
}

// Mutate gives fn exclusive access to one document and commits the value
// it returns. When fn fails or panics the document keeps its previous
// revision; a panic is reported as ErrInternal.
func (s *Store) Mutate(uri Uri, fn func(Document) (Document, error)) (doc *Document, err error) {
	sl := s.slot(uri)

	if sl == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, uri)
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()

	cur := sl.doc.Load()

	if sl.closed || cur == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, uri)
	}

	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("%w: mutating %s: %v", ErrInternal, uri, r)
		}
	}()

	next, err := fn(*cur)

	if err != nil {
		return nil, err
	}

	next.Uri = uri
	next.Revision = cur.Revision + 1

	sl.doc.Store(&next)
	s.commit(&next)

	return &next, nil
}

// Sync runs fn with the current revision of an open document while holding
// its lock. It reports false for documents that are not open.
func (s *Store) Sync(uri Uri, fn func(doc *Document)) bool {
	sl := s.slot(uri)

	if sl == nil {
		return false
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()

	doc := sl.doc.Load()

	if sl.closed || doc == nil {
		return false
	}

	fn(doc)

	return true
}

func (s *Store) commit(doc *Document) {
	if s.OnCommit != nil {
		s.OnCommit(doc)
	}
}

func (s *Store) Close(uri Uri) (*Document, error) {
	sh := s.shard(uri)

	sh.mu.Lock()
	sl, exists := sh.slots[uri]

	if exists {
		delete(sh.slots, uri)
		s.count.Add(-1)
	}
	sh.mu.Unlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, uri)
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()

	sl.closed = true

	return sl.doc.Load(), nil
}

func (s *Store) Len() int {
	return int(s.count.Load())
}

func (s *Store) Uris() []Uri {
	list := make([]Uri, 0, s.Len())

	for _, sh := range s.shards {
		sh.mu.RLock()
		for uri := range sh.slots {
			list = append(list, uri)
		}
		sh.mu.RUnlock()
	}

	slices.Sort(list)

	return list
}
