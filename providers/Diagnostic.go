package providers

import (
	"context"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/blase-lsp/blase/analysis"
	"github.com/blase-lsp/blase/scheduler"
	"github.com/blase-lsp/blase/state"
	. "github.com/blase-lsp/blase/types"
	proto "github.com/tliron/glsp/protocol_3_16"
)

// Publisher debounces diagnostics publication per document. The work runs
// on the scheduler and is dropped when a newer revision superseded it.
type Publisher struct {
	delay time.Duration

	mu      sync.Mutex
	docs    map[Uri]func(func())
	stopped bool
}

func NewPublisher(delay time.Duration) *Publisher {
	return &Publisher{
		delay: delay,
		docs:  make(map[Uri]func(func())),
	}
}

func (p *Publisher) Schedule(ctx *Ctx, uri Uri) {
	if !supportDiagnostics || root == nil {
		return
	}

	r := root
	rev, ok := r.DB.Snapshot().InputRevision(uri)

	if !ok {
		return
	}

	task := publishTask(ctx, r, uri, rev)

	if p.delay <= 0 {
		workers.Schedule(task)
		return
	}

	p.mu.Lock()

	if p.stopped {
		p.mu.Unlock()
		return
	}

	debounced, has := p.docs[uri]

	if !has {
		debounced = debounce.New(p.delay)
		p.docs[uri] = debounced
	}

	p.mu.Unlock()

	debounced(func() {
		workers.Schedule(task)
	})
}

// Forget drops the debouncer of a closed document.
func (p *Publisher) Forget(uri Uri) {
	p.mu.Lock()
	delete(p.docs, uri)
	p.mu.Unlock()
}

func (p *Publisher) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.docs = make(map[Uri]func(func()))
	p.mu.Unlock()
}

func publishTask(ctx *Ctx, r *state.Root, uri Uri, rev analysis.Revision) scheduler.Task {
	return scheduler.Task{
		Name: "publish " + uri,
		Execute: func(c context.Context) error {
			if superseded(r, uri, rev) {
				log.Debugf("skip publishing %s, revision %d superseded", uri, rev)
				return nil
			}

			list, err := r.Diagnostics(c, uri)

			if err != nil {
				return err
			}

			if superseded(r, uri, rev) {
				return nil
			}

			PublishDiagnostics(ctx, uri, r.Version(uri), list)

			return nil
		},
	}
}

func superseded(r *state.Root, uri Uri, rev analysis.Revision) bool {
	if !r.Store.Has(uri) {
		return true
	}

	cur, ok := r.DB.Snapshot().InputRevision(uri)

	return !ok || cur != rev
}

func PublishDiagnostics(ctx *Ctx, uri Uri, version *int32, list []Diagnostic) {
	if list == nil {
		list = []Diagnostic{}
	}

	ctx.Notify(proto.ServerTextDocumentPublishDiagnostics, proto.PublishDiagnosticsParams{
		URI:         uri,
		Version:     publishVersion(version),
		Diagnostics: list,
	})
}

func clearDiagnostics(ctx *Ctx, uri Uri) {
	if !supportDiagnostics {
		return
	}

	PublishDiagnostics(ctx, uri, nil, nil)
}
