// Package poller turns the foreign message log into a de-duplicated event
// stream. Correctness hinges on one ordering rule: a row is persisted
// locally before the checkpoint advances past it. A crash between the two
// re-delivers that row on restart; it is never lost.
package poller

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/profitble/bridge/internal/metrics"
	"github.com/profitble/bridge/internal/models"
	"github.com/profitble/bridge/internal/store"
)

// errorBackoffFactor stretches the sleep after a failed cycle.
const errorBackoffFactor = 5

// LogReader is the read-only view of the foreign message log.
type LogReader interface {
	ListNewRows(ctx context.Context, sinceID int64) ([]models.ForeignRow, error)
}

// Broadcaster receives one event per newly persisted message.
type Broadcaster interface {
	Broadcast(event models.Event)
}

// Poller drives the checkpointed polling loop on a single goroutine.
type Poller struct {
	reader   LogReader
	store    store.MessageStore
	hub      Broadcaster
	interval time.Duration
	logger   zerolog.Logger

	// watchPath, when set, names the foreign database file; writes to it
	// wake the loop immediately instead of waiting out the interval. The
	// checkpoint still de-duplicates, so spurious wakes are harmless.
	watchPath string
}

// New creates a poller. interval must be positive.
func New(reader LogReader, st store.MessageStore, hub Broadcaster, interval time.Duration, logger zerolog.Logger) *Poller {
	return &Poller{
		reader:   reader,
		store:    st,
		hub:      hub,
		interval: interval,
		logger:   logger,
	}
}

// WatchFile enables filesystem wake-ups for the given foreign database path.
func (p *Poller) WatchFile(path string) {
	p.watchPath = path
}

// Run polls until ctx is cancelled. Transient errors back off to a longer
// sleep and the loop keeps going; it never terminates itself.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info().Dur("interval", p.interval).Msg("poll loop started")

	wake := p.startWatcher(ctx)

	sleep := p.interval
	for {
		if err := p.cycle(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			metrics.PollCycles.WithLabelValues("error").Inc()
			p.logger.Error().Err(err).Msg("poll cycle failed")
			sleep = p.interval * errorBackoffFactor
		} else {
			metrics.PollCycles.WithLabelValues("ok").Inc()
			sleep = p.interval
		}

		select {
		case <-ctx.Done():
			p.logger.Info().Msg("poll loop stopped")
			return
		case <-wake:
		case <-time.After(sleep):
		}
	}
	p.logger.Info().Msg("poll loop stopped")
}

// cycle runs one poll pass: read the checkpoint, fetch newer rows, and for
// each row persist, broadcast, then advance. Advancing per row bounds crash
// re-delivery to a single row and preserves per-conversation order.
func (p *Poller) cycle(ctx context.Context) error {
	checkpoint, err := p.store.Checkpoint(ctx)
	if err != nil {
		return err
	}

	rows, err := p.reader.ListNewRows(ctx, checkpoint)
	if err != nil {
		return err
	}

	for _, row := range rows {
		msg, err := p.store.SaveMessage(ctx, row.SenderID, row.Text, row.Direction)
		if err != nil {
			return err
		}

		direction := "outbound"
		if row.Direction == models.Inbound {
			direction = "inbound"
		}
		metrics.MessagesPersisted.WithLabelValues(direction).Inc()

		p.hub.Broadcast(models.EventFromMessage(msg))

		if err := p.store.AdvanceCheckpoint(ctx, row.ForeignID); err != nil {
			return err
		}

		p.logger.Debug().
			Int64("foreign_id", row.ForeignID).
			Str("sender_id", row.SenderID).
			Str("direction", direction).
			Msg("absorbed foreign row")
	}

	return nil
}

// startWatcher sets up the optional fsnotify wake channel. Any failure here
// downgrades to plain interval polling.
func (p *Poller) startWatcher(ctx context.Context) <-chan struct{} {
	if p.watchPath == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		p.logger.Warn().Err(err).Msg("file watcher unavailable, falling back to interval polling")
		return nil
	}

	// Watch the directory: sqlite writes land in chat.db, -wal and -shm,
	// and the file itself may not exist yet.
	dir := filepath.Dir(p.watchPath)
	if err := watcher.Add(dir); err != nil {
		p.logger.Warn().Err(err).Str("dir", dir).Msg("cannot watch foreign database directory")
		watcher.Close()
		return nil
	}

	base := filepath.Base(p.watchPath)
	wake := make(chan struct{}, 1)

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				name := filepath.Base(event.Name)
				if name != base && name != base+"-wal" && name != base+"-shm" {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				select {
				case wake <- struct{}{}:
				default: // a wake is already pending
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				p.logger.Warn().Err(err).Msg("file watcher error")
			}
		}
	}()

	p.logger.Info().Str("path", p.watchPath).Msg("watching foreign database for changes")
	return wake
}
