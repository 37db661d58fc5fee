// Package relay forwards committed ledger events to an external stream.
//
// Delivery is at-least-once: the checkpoint advances only after a page of
// events has been published, so a crash between publish and save resends the
// tail of that page.
package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/louisbranch/objectledger/internal/platform/timeouts"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/event"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/eventlog"
)

// DefaultName is the checkpoint key used when none is configured.
const DefaultName = "redis"

// Publisher delivers one event downstream.
type Publisher interface {
	Publish(ctx context.Context, evt event.Event) (string, error)
}

// Relay polls the event log and publishes new events in order.
type Relay struct {
	Source      eventlog.Source
	Checkpoints Checkpoints
	Publisher   Publisher
	// Name keys the checkpoint; defaults to DefaultName.
	Name string
	// Filter limits which events are published. Skipped events still advance
	// the checkpoint.
	Filter   eventlog.Filter
	PageSize int
	Interval time.Duration
}

func (r *Relay) validate() error {
	switch {
	case r == nil:
		return errors.New("relay is required")
	case r.Source == nil:
		return errors.New("relay event source is required")
	case r.Checkpoints == nil:
		return errors.New("relay checkpoint store is required")
	case r.Publisher == nil:
		return errors.New("relay publisher is required")
	}
	return nil
}

func (r *Relay) name() string {
	if name := strings.TrimSpace(r.Name); name != "" {
		return name
	}
	return DefaultName
}

func (r *Relay) pageSize() int {
	if r.PageSize > 0 {
		return r.PageSize
	}
	return eventlog.DefaultScanPage
}

// RunOnce publishes every event committed after the checkpoint and returns
// how many were published.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	if err := r.validate(); err != nil {
		return 0, err
	}
	name := r.name()
	after, err := r.Checkpoints.GetCheckpoint(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("load relay checkpoint: %w", err)
	}
	latest, err := r.Source.LatestSeq(ctx)
	if err != nil {
		return 0, fmt.Errorf("load latest seq: %w", err)
	}

	published := 0
	for after < latest {
		page, err := r.Source.ListEvents(ctx, after, r.pageSize(), eventlog.Filter{})
		if err != nil {
			return published, fmt.Errorf("list events after %d: %w", after, err)
		}
		if len(page) == 0 {
			break
		}
		for _, evt := range page {
			if evt.Seq > latest {
				break
			}
			if r.Filter.Match(evt) {
				if _, err := r.Publisher.Publish(ctx, evt); err != nil {
					if saveErr := r.save(ctx, name, after); saveErr != nil {
						err = errors.Join(err, saveErr)
					}
					return published, err
				}
				published++
			}
			after = evt.Seq
		}
		if err := r.save(ctx, name, after); err != nil {
			return published, err
		}
	}
	return published, nil
}

func (r *Relay) save(ctx context.Context, name string, seq uint64) error {
	if seq == 0 {
		return nil
	}
	if err := r.Checkpoints.SaveCheckpoint(ctx, name, seq); err != nil {
		return fmt.Errorf("save relay checkpoint: %w", err)
	}
	return nil
}

// Run calls RunOnce every Interval until ctx is cancelled. Publish failures
// are logged and retried on the next tick.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.validate(); err != nil {
		return err
	}
	interval := r.Interval
	if interval <= 0 {
		interval = timeouts.RelayInterval
	}
	logger := log.WithFields(log.Fields{"service": "relay", "relay": r.name()})

	tick := func() {
		n, err := r.RunOnce(ctx)
		if err != nil && ctx.Err() == nil {
			logger.WithError(err).Warn("relay pass failed")
		}
		if n > 0 {
			logger.WithField("published", n).Debug("relayed events")
		}
	}

	tick()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			tick()
		}
	}
}
