package ingest

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchConfig selects what Watch reacts to.
type WatchConfig struct {
	Dir      string        // docs directory (not recursive)
	Families []string      // families to re-run when their ground truth appears
	Debounce time.Duration // coalesce bursts of file events into one trigger
}

// Trigger asks for a re-run of Family after the listed ground-truth files changed.
type Trigger struct {
	Family string
	Paths  []string
}

// Watch emits a Trigger per family, debounced, whenever an expected_<case>.txt
// of that family is created, written or renamed into Dir. Both channels close
// when ctx is done.
func Watch(ctx context.Context, cfg WatchConfig, logger *slog.Logger) (<-chan Trigger, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Dir == "" {
		return nil, nil, errors.New("watch dir is required")
	}
	if len(cfg.Families) == 0 {
		return nil, nil, errors.New("at least one family is required")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("ingest.watch.create_failed", "err", err)
		return nil, nil, err
	}
	if err := w.Add(cfg.Dir); err != nil {
		logger.Error("ingest.watch.add_failed", "dir", cfg.Dir, "err", err)
		_ = w.Close()
		return nil, nil, err
	}

	trigCh := make(chan Trigger, len(cfg.Families))
	errCh := make(chan error, 1)

	go func() {
		defer close(trigCh)
		defer close(errCh)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("ingest.watch.close_failed", "err", err)
			}
		}()

		// pending is only touched by this goroutine
		pending := map[string]map[string]struct{}{}
		var (
			timer  *time.Timer
			fireCh <-chan time.Time
		)
		flush := func() bool {
			families := make([]string, 0, len(pending))
			for f := range pending {
				families = append(families, f)
			}
			slices.Sort(families)
			for _, f := range families {
				paths := make([]string, 0, len(pending[f]))
				for p := range pending[f] {
					paths = append(paths, p)
				}
				slices.Sort(paths)
				select {
				case trigCh <- Trigger{Family: f, Paths: paths}:
					logger.Info("ingest.watch.trigger", "family", f, "files", len(paths))
				case <-ctx.Done():
					return false
				}
				delete(pending, f)
			}
			return true
		}

		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				id, ok := CaseIDFromTruth(e.Name)
				if !ok || IsHidden(e.Name) {
					continue
				}
				matched := false
				for _, f := range cfg.Families {
					if !BelongsTo(id, f) {
						continue
					}
					if pending[f] == nil {
						pending[f] = map[string]struct{}{}
					}
					pending[f][e.Name] = struct{}{}
					matched = true
				}
				if !matched {
					continue
				}
				if cfg.Debounce <= 0 {
					if !flush() {
						return
					}
					continue
				}
				if timer == nil {
					timer = time.NewTimer(cfg.Debounce)
				} else {
					timer.Reset(cfg.Debounce)
				}
				fireCh = timer.C
			case <-fireCh:
				fireCh = nil
				if !flush() {
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("ingest.watch.error", "err", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return trigCh, errCh, nil
}
