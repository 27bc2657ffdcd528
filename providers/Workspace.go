package providers

import (
	"context"
	"time"

	"github.com/blase-lsp/blase/loader"
	"github.com/blase-lsp/blase/scheduler"
	"github.com/blase-lsp/blase/syntax/languages"
)

const drainInterval = 100 * time.Millisecond

// scheduler the drain tick is registered on
var drainOn *scheduler.Scheduler

func startViews(ctx *Ctx) {
	var progress loader.Progress

	if supportProgress {
		progress = &WorkDoneProgress{ctx: ctx}
	}

	options := loader.DefaultOptions()
	options.Root = workspaceRoot
	options.ViewPaths = settings.ViewPaths
	options.Suffix = languages.BladeSuffix
	options.Watch = settings.Watch

	if views != nil {
		views.Stop()
	}

	views = loader.New(options, progress)
	views.Start(context.Background())

	if drainOn == workers {
		return
	}

	drainOn = workers

	workers.Every(drainInterval, scheduler.Task{
		Name: "drain views",
		Execute: func(context.Context) error {
			drainViews()
			return nil
		},
	})
}

// drainViews moves the files read so far into the analysis database. It
// never waits for the loader.
func drainViews() {
	l, r := views, root

	if l == nil || r == nil {
		return
	}

	n := l.Drain(func(file loader.File) {
		if file.Deleted {
			r.RemoveFile(file.Uri)
			return
		}

		r.LoadFile(file.Uri, file.Text)
	})

	if n > 0 {
		log.Debugf("drained %d view files", n)
	}
}
