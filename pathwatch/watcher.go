// Package pathwatch re-runs the simulation whenever a path file changes on
// disk, debouncing bursts of writes the way the editor debounces model edits.
package pathwatch

import (
	"context"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/edaniels/golog"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.bline.dev/bline/pathio"
	"go.bline.dev/bline/simulation"
	"go.bline.dev/bline/utils"
)

// DefaultDebounceInterval is how long a burst of file writes must settle
// before a re-simulation runs.
const DefaultDebounceInterval = 250 * time.Millisecond

// A Watcher owns one path file: it simulates it on startup and again after
// every debounced change, publishing each trace on Results.
type Watcher struct {
	filename string
	cfg      simulation.Config
	simOpts  simulation.Options
	interval time.Duration
	logger   golog.Logger

	fsWatcher *fsnotify.Watcher
	workers   utils.StoppableWorkers
	results   chan *simulation.Result
}

// Options configure a Watcher.
type Options struct {
	// Config supplies the project defaults for constraint resolution.
	Config simulation.Config
	// Simulation is passed through to every run.
	Simulation simulation.Options
	// DebounceInterval overrides DefaultDebounceInterval when positive.
	DebounceInterval time.Duration
	Logger           golog.Logger
}

// New starts watching the given path file. The first simulation runs
// immediately; call Close to stop watching.
func New(filename string, opts Options) (*Watcher, error) {
	logger := opts.Logger
	if logger == nil {
		logger = golog.Global()
	}
	interval := opts.DebounceInterval
	if interval <= 0 {
		interval = DefaultDebounceInterval
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "cannot create file watcher")
	}
	// Watch the directory: editors commonly replace files by rename, which
	// drops a watch installed on the file itself.
	if err := fsWatcher.Add(filepath.Dir(filename)); err != nil {
		goutils.UncheckedError(fsWatcher.Close())
		return nil, errors.Wrapf(err, "cannot watch %q", filepath.Dir(filename))
	}

	w := &Watcher{
		filename:  filename,
		cfg:       opts.Config,
		simOpts:   opts.Simulation,
		interval:  interval,
		logger:    logger,
		fsWatcher: fsWatcher,
		results:   make(chan *simulation.Result, 1),
	}
	w.workers = utils.NewStoppableWorkers(w.run)
	return w, nil
}

// Results delivers one trace per completed simulation, most recent only: a
// slow consumer sees stale traces replaced, never a backlog. The channel
// closes when the watcher does.
func (w *Watcher) Results() <-chan *simulation.Result {
	return w.results
}

// Close stops watching and closes Results.
func (w *Watcher) Close() error {
	w.workers.Stop()
	err := w.fsWatcher.Close()
	close(w.results)
	return err
}

func (w *Watcher) run(ctx context.Context) {
	w.resimulate()

	// The debounce callback fires on a timer goroutine; it only kicks this
	// loop so simulation and delivery stay on the watcher goroutine.
	kick := make(chan struct{}, 1)
	debounced := debounce.New(w.interval)
	notify := func() {
		select {
		case kick <- struct{}{}:
		default:
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-kick:
			w.resimulate()
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.filename) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounced(notify)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorw("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) resimulate() {
	path, err := pathio.ReadPathFile(w.filename, pathio.ConfigDefaultLookup(w.cfg))
	if err != nil {
		w.logger.Errorw("cannot reload path", "file", w.filename, "error", err)
		return
	}
	result, err := simulation.SimulatePath(path, w.cfg, w.simOpts)
	if err != nil {
		w.logger.Errorw("simulation failed", "file", w.filename, "error", err)
		return
	}
	w.logger.Debugw("re-simulated path",
		"file", w.filename,
		"total_time_s", result.TotalTime,
		"samples", len(result.Times),
	)

	// Replace any stale undelivered trace. run is the only sender.
	select {
	case w.results <- result:
	default:
		select {
		case <-w.results:
		default:
		}
		w.results <- result
	}
}

