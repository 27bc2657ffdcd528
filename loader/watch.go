package loader

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/blase-lsp/blase/utils"
	"github.com/fsnotify/fsnotify"
)

// watch registers every directory under dirs. fsnotify does not recurse,
// so directories created later are added as their events arrive.
func (l *Loader) watch(dirs []string) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()

	if err != nil {
		return nil, err
	}

	for _, dir := range dirs {
		l.addTree(watcher, dir, false)
	}

	return watcher, nil
}

func (l *Loader) addTree(watcher *fsnotify.Watcher, root string, queue bool) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		if d.IsDir() {
			if err := watcher.Add(path); err != nil {
				log.Warningf("watching %s: %s", path, err)
			}

			return nil
		}

		if queue && strings.HasSuffix(path, l.options.Suffix) {
			l.pending.Set(ToUri(path), UriCreate)
		}

		return nil
	})
}

func (l *Loader) follow(ctx context.Context, watcher *fsnotify.Watcher) {
	ticker := time.NewTicker(l.options.FlushInterval)
	defer ticker.Stop()

	log.Info("watching view files")

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			l.handle(watcher, event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}

			log.Warningf("watcher: %s", err)

		case <-ticker.C:
			if l.flush(ctx) != nil {
				return
			}
		}
	}
}

func (l *Loader) handle(watcher *fsnotify.Watcher, event fsnotify.Event) {
	path := event.Name

	if event.Has(fsnotify.Create) {
		info, err := os.Stat(path)

		if err == nil && info.IsDir() {
			// files may land in the directory before it is watched
			l.addTree(watcher, path, true)
			return
		}
	}

	if !strings.HasSuffix(path, l.options.Suffix) {
		return
	}

	uri := ToUri(path)

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		l.pending.Set(uri, UriDelete)
	case event.Has(fsnotify.Create):
		l.pending.Set(uri, UriCreate)
	case event.Has(fsnotify.Write):
		l.pending.Set(uri, UriChange)
	}
}

// flush reads the files of the pending events and sends them. A file that
// vanished before it could be read is sent as deleted.
func (l *Loader) flush(ctx context.Context) error {
	uris, states := l.pending.Take()

	for _, uri := range uris {
		file := File{Uri: uri, Deleted: true}

		if states[uri] != UriDelete {
			path, err := UriToPath(uri)

			if err != nil {
				continue
			}

			data, err := os.ReadFile(path)

			if err == nil {
				file = File{Uri: uri, Text: string(data)}
			} else if !os.IsNotExist(err) {
				log.Warningf("reading %s: %s", path, err)
				continue
			}
		}

		log.Debugf("%s %s", states[uri], uri)

		if err := l.send(ctx, file); err != nil {
			return err
		}
	}

	return nil
}
