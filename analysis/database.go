// Package analysis memoizes parsing and derived computations over document
// text inputs. Readers work on immutable snapshots.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/immutable"
	"github.com/blase-lsp/blase/metrics"
	"github.com/blase-lsp/blase/syntax"
	. "github.com/blase-lsp/blase/types"
	"github.com/cespare/xxhash/v2"
	"github.com/tliron/commonlog"
	"golang.org/x/sync/singleflight"
)

var log = commonlog.GetLogger("blase.analysis")

var ErrUnknownFile = errors.New("unknown file")

// Revision numbers database states. Every effective SetText or Remove
// advances it by one.
type Revision uint64

type input struct {
	text      string
	hash      uint64
	changedAt Revision
}

// state is persistent: a write shares every untouched branch with the
// previous state, so snapshots stay valid without copying.
type state struct {
	revision Revision
	inputs   *immutable.Map[Uri, *input]
}

func (st *state) input(uri Uri) (*input, bool) {
	return st.inputs.Get(uri)
}

type uriHasher struct{}

func (uriHasher) Hash(uri Uri) uint32 {
	sum := xxhash.Sum64String(uri)

	return uint32(sum ^ sum>>32)
}

func (uriHasher) Equal(a, b Uri) bool {
	return a == b
}

// ParsedDocument is the parse of exactly one input text. Equal compares
// tree shapes only.
type ParsedDocument struct {
	Uri  Uri
	Text string
	Tree *syntax.Tree

	// Revision at which the parsed text was set.
	Revision Revision
	// ChangedAt is the revision at which the shape last changed; it stays
	// behind Revision when a reparse produced an equal tree.
	ChangedAt Revision
}

func (doc *ParsedDocument) Equal(other *ParsedDocument) bool {
	if doc == nil || other == nil {
		return doc == other
	}

	return doc.Tree.Equal(other.Tree)
}

type parseMemo struct {
	value *ParsedDocument
}

type Database struct {
	registry *syntax.Registry

	// writers serialize on mu; readers only load current
	mu      sync.Mutex
	current atomic.Pointer[state]

	memoMu sync.RWMutex
	memos  map[Uri]*parseMemo

	group singleflight.Group
}

func New(registry *syntax.Registry) *Database {
	db := &Database{
		registry: registry,
		memos:    make(map[Uri]*parseMemo),
	}

	db.current.Store(&state{inputs: immutable.NewMap[Uri, *input](uriHasher{})})

	return db
}

func (db *Database) Revision() Revision {
	return db.current.Load().revision
}

// SetText updates the input of uri. Byte-equal text leaves the database
// untouched and reports false.
func (db *Database) SetText(uri Uri, text string) (Revision, bool) {
	hash := xxhash.Sum64String(text)

	db.mu.Lock()
	defer db.mu.Unlock()

	old := db.current.Load()

	if prev, ok := old.input(uri); ok && prev.hash == hash && prev.text == text {
		return old.revision, false
	}

	revision := old.revision + 1

	next := &state{
		revision: revision,
		inputs: old.inputs.Set(uri, &input{
			text:      text,
			hash:      hash,
			changedAt: revision,
		}),
	}

	db.current.Store(next)

	log.Debugf("input %s set at revision %d", uri, next.revision)

	return next.revision, true
}

func (db *Database) Remove(uri Uri) bool {
	db.mu.Lock()
	defer db.mu.Unlock()

	old := db.current.Load()

	if _, ok := old.input(uri); !ok {
		return false
	}

	next := &state{
		revision: old.revision + 1,
		inputs:   old.inputs.Delete(uri),
	}

	db.current.Store(next)

	db.memoMu.Lock()
	delete(db.memos, uri)
	db.memoMu.Unlock()

	return true
}

// Snapshot is a consistent, immutable view of the inputs. Taking one is a
// single atomic load.
func (db *Database) Snapshot() *Snapshot {
	return &Snapshot{
		db:    db,
		state: db.current.Load(),
	}
}

type Snapshot struct {
	db    *Database
	state *state
}

func (s *Snapshot) Revision() Revision {
	return s.state.revision
}

func (s *Snapshot) Text(uri Uri) (string, bool) {
	in, ok := s.state.input(uri)

	if !ok {
		return "", false
	}

	return in.text, true
}

func (s *Snapshot) Contains(uri Uri) bool {
	_, ok := s.state.input(uri)

	return ok
}

// InputRevision is the revision at which the text of uri was last set.
func (s *Snapshot) InputRevision(uri Uri) (Revision, bool) {
	in, ok := s.state.input(uri)

	if !ok {
		return 0, false
	}

	return in.changedAt, true
}

func (s *Snapshot) Files() []Uri {
	list := make([]Uri, 0, s.state.inputs.Len())

	for itr := s.state.inputs.Iterator(); !itr.Done(); {
		uri, _, _ := itr.Next()
		list = append(list, uri)
	}

	slices.Sort(list)

	return list
}

// Parse returns the parsed document for uri as of this snapshot, parsing
// only when the memo was computed from a different input.
func (s *Snapshot) Parse(ctx context.Context, uri Uri) (*ParsedDocument, error) {
	in, ok := s.state.input(uri)

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFile, uri)
	}

	db := s.db
	memo := db.memo(uri)

	if memo != nil && memo.value.Revision == in.changedAt {
		metrics.ParseMemoHits.Inc()
		return memo.value, nil
	}

	key := fmt.Sprintf("%s@%d", uri, in.changedAt)

	value, err, _ := db.group.Do(key, func() (any, error) {
		return db.parse(ctx, uri, in)
	})

	if err != nil {
		return nil, err
	}

	return value.(*ParsedDocument), nil
}

func (db *Database) memo(uri Uri) *parseMemo {
	db.memoMu.RLock()
	defer db.memoMu.RUnlock()

	return db.memos[uri]
}

func (db *Database) parse(ctx context.Context, uri Uri, in *input) (*ParsedDocument, error) {
	// another caller may have stored this revision while we waited
	memo := db.memo(uri)

	if memo != nil && memo.value.Revision == in.changedAt {
		metrics.ParseMemoHits.Inc()
		return memo.value, nil
	}

	lang := db.registry.ForURI(uri)

	if lang == nil {
		return nil, fmt.Errorf("no language for %s", uri)
	}

	var previous *syntax.Tree

	if memo != nil {
		previous = memo.value.Tree
	}

	started := time.Now()

	tree, err := lang.Parse(ctx, []byte(in.text), previous)

	if err != nil {
		log.Errorf("parse %s: %s", uri, err)
		return nil, err
	}

	metrics.ObserveParse(lang.Name, started)

	doc := &ParsedDocument{
		Uri:       uri,
		Text:      in.text,
		Tree:      tree,
		Revision:  in.changedAt,
		ChangedAt: in.changedAt,
	}

	db.memoMu.Lock()
	defer db.memoMu.Unlock()

	cur := db.memos[uri]

	if cur != nil && cur.value.Revision > in.changedAt {
		// parsed for an older snapshot; a newer value is already stored
		return doc, nil
	}

	if cur != nil && cur.value.Equal(doc) {
		doc.ChangedAt = cur.value.ChangedAt
		metrics.ParseBackdated.Inc()
	}

	if _, ok := db.current.Load().input(uri); ok {
		db.memos[uri] = &parseMemo{value: doc}
	}

	return doc, nil
}
