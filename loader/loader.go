// Package loader streams the workspace view files into the analysis
// database in the background and, optionally, follows their changes on
// disk.
package loader

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blase-lsp/blase/i18n"
	"github.com/blase-lsp/blase/metrics"
	. "github.com/blase-lsp/blase/types"
	. "github.com/blase-lsp/blase/utils"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var log = commonlog.GetLogger("blase.loader")

// File is one workspace file read from disk. Deleted files carry no text.
type File struct {
	Uri     Uri
	Text    string
	Deleted bool
}

// Progress receives the work done notifications of the initial load.
type Progress interface {
	Begin(token string, title string, message string)
	Report(token string, message string, percentage uint32)
	End(token string, message string)
}

type Options struct {
	// Root is the workspace folder that relative view paths resolve against.
	Root      string
	ViewPaths []string
	Suffix    string
	// Readers bounds the number of files read concurrently.
	Readers    int
	BufferSize int
	Watch      bool

	ReportInterval time.Duration
	FlushInterval  time.Duration
}

func DefaultOptions() Options {
	return Options{
		ViewPaths:      []string{"resources/views"},
		Suffix:         ".blade.php",
		Readers:        8,
		BufferSize:     64,
		ReportInterval: 100 * time.Millisecond,
		FlushInterval:  50 * time.Millisecond,
	}
}

type Loader struct {
	options  Options
	progress Progress
	files    chan File
	pending  *Pending
	reports  *rate.Sometimes

	cancel    context.CancelFunc
	done      chan struct{}
	startOnce sync.Once
	loaded    atomic.Int64
}

func New(options Options, progress Progress) *Loader {
	defaults := DefaultOptions()

	if options.Suffix == "" {
		options.Suffix = defaults.Suffix
	}

	if options.Readers < 1 {
		options.Readers = defaults.Readers
	}

	if options.BufferSize < 1 {
		options.BufferSize = defaults.BufferSize
	}

	if options.ReportInterval <= 0 {
		options.ReportInterval = defaults.ReportInterval
	}

	if options.FlushInterval <= 0 {
		options.FlushInterval = defaults.FlushInterval
	}

	if progress == nil {
		progress = noProgress{}
	}

	return &Loader{
		options:  options,
		progress: progress,
		files:    make(chan File, options.BufferSize),
		pending:  NewPending(),
		reports:  &rate.Sometimes{Interval: options.ReportInterval},
		cancel:   func() {},
		done:     make(chan struct{}),
	}
}

// Start runs the producer until the load finishes, or with watching
// enabled, until ctx is canceled or Stop is called. The files channel is
// closed when the producer returns.
func (l *Loader) Start(ctx context.Context) {
	l.startOnce.Do(func() {
		ctx, l.cancel = context.WithCancel(ctx)

		go l.run(ctx)
	})
}

// Stop cancels the producer and waits for it to close the channel.
func (l *Loader) Stop() {
	l.startOnce.Do(func() {
		close(l.files)
		close(l.done)
	})

	l.cancel()
	<-l.done
}

func (l *Loader) Done() <-chan struct{} {
	return l.done
}

// Loaded returns the number of files read so far.
func (l *Loader) Loaded() int64 {
	return l.loaded.Load()
}

// Drain hands buffered files to fn without waiting for more. It returns
// the number of files handed over.
func (l *Loader) Drain(fn func(File)) (n int) {
	limit := cap(l.files)

	for n < limit {
		select {
		case file, ok := <-l.files:
			if !ok {
				return
			}

			fn(file)
			n++

		default:
			return
		}
	}

	return
}

func (l *Loader) run(ctx context.Context) {
	defer close(l.done)
	defer close(l.files)

	dirs := l.dirs()

	var watcher *fsnotify.Watcher

	if l.options.Watch {
		var err error

		// before the walk, so that changes made during the load are seen
		watcher, err = l.watch(dirs)

		if err != nil {
			log.Errorf("watching views: %s", err)
		} else {
			defer watcher.Close()
		}
	}

	err := l.load(ctx, dirs)

	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Errorf("loading views: %s", err)
		}

		return
	}

	if watcher != nil {
		l.follow(ctx, watcher)
	}
}

func (l *Loader) dirs() []string {
	list := make([]string, 0, len(l.options.ViewPaths))

	for _, path := range l.options.ViewPaths {
		if !filepath.IsAbs(path) {
			path = filepath.Join(l.options.Root, path)
		}

		abs, err := filepath.Abs(path)

		if err != nil {
			log.Warningf("view path %s: %s", path, err)
			continue
		}

		info, err := os.Stat(abs)

		if err != nil || !info.IsDir() {
			log.Debugf("skipping view path %s", abs)
			continue
		}

		list = append(list, abs)
	}

	return list
}

func (l *Loader) collect(ctx context.Context, dirs []string) ([]string, error) {
	seen := make(map[string]struct{})
	list := make([]string, 0)

	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			if err != nil {
				log.Warningf("walking %s: %s", path, err)

				if d != nil && d.IsDir() {
					return fs.SkipDir
				}

				return nil
			}

			if d.IsDir() || !strings.HasSuffix(path, l.options.Suffix) {
				return nil
			}

			if _, has := seen[path]; !has {
				seen[path] = struct{}{}
				list = append(list, path)
			}

			return nil
		})

		if err != nil {
			return nil, err
		}
	}

	slices.Sort(list)

	return list, nil
}

func (l *Loader) load(ctx context.Context, dirs []string) error {
	paths, err := l.collect(ctx, dirs)

	if err != nil {
		return err
	}

	token := uuid.NewString()
	total := len(paths)

	l.progress.Begin(token, i18n.L("loading_files"), i18n.L("loading_count", 0, total))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.options.Readers)

	for _, path := range paths {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			data, err := os.ReadFile(path)

			if err != nil {
				log.Warningf("reading %s: %s", path, err)
				return nil
			}

			err = l.send(gctx, File{Uri: ToUri(path), Text: string(data)})

			if err != nil {
				return err
			}

			n := l.loaded.Add(1)
			metrics.FilesLoaded.Inc()

			l.reports.Do(func() {
				l.progress.Report(token, i18n.L("loading_file", l.relative(path), n, total), percent(n, total))
			})

			return nil
		})
	}

	err = g.Wait()

	if err == nil {
		err = ctx.Err()
	}

	l.progress.End(token, i18n.L("loading_done", l.loaded.Load()))

	log.Infof("loaded %d of %d view files", l.loaded.Load(), total)

	return err
}

func (l *Loader) send(ctx context.Context, file File) error {
	select {
	case l.files <- file:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loader) relative(path string) string {
	if l.options.Root == "" {
		return path
	}

	rel, err := filepath.Rel(l.options.Root, path)

	if err != nil {
		return path
	}

	return rel
}

func percent(n int64, total int) uint32 {
	if total == 0 {
		return 100
	}

	return uint32(n * 100 / int64(total))
}

type noProgress struct{}

func (noProgress) Begin(string, string, string)  {}
func (noProgress) Report(string, string, uint32) {}
func (noProgress) End(string, string)            {}
