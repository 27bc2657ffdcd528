package loader

import (
	"maps"
	"slices"
	"sync"

	. "github.com/blase-lsp/blase/types"
)

type UriState uint8

const (
	UriCreate UriState = 1 + iota
	UriChange
	UriDelete
)

func (state UriState) String() string {
	switch state {
	case UriCreate:
		return "create"
	case UriChange:
		return "change"
	case UriDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Pending collects watcher events per uri until they are flushed. Later
// events override earlier ones, except that a change after a create stays
// a create.
type Pending struct {
	mu   sync.Mutex
	uris map[Uri]UriState
}

func NewPending() *Pending {
	return &Pending{uris: make(map[Uri]UriState)}
}

func (p *Pending) Set(uri Uri, state UriState) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if prev, has := p.uris[uri]; has && prev == UriCreate && state == UriChange {
		return
	}

	p.uris[uri] = state
}

func (p *Pending) Has(uri Uri) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, has := p.uris[uri]

	return has
}

func (p *Pending) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.uris)
}

// Take empties the set and returns its uris in order.
func (p *Pending) Take() (uris []Uri, states map[Uri]UriState) {
	p.mu.Lock()
	states = p.uris
	p.uris = make(map[Uri]UriState)
	p.mu.Unlock()

	uris = slices.Sorted(maps.Keys(states))

	return
}
