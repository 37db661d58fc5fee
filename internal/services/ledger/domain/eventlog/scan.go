package eventlog

import (
	"context"
	"iter"

	"github.com/louisbranch/objectledger/internal/services/ledger/domain/event"
)

// Source pages through a stored log.
type Source interface {
	ListEvents(ctx context.Context, afterSeq uint64, limit int, filter Filter) ([]event.Event, error)
	LatestSeq(ctx context.Context) (uint64, error)
}

// DefaultScanPage is the page size Scan uses when none is given.
const DefaultScanPage = 200

// Scan lazily yields events matching filter in sequence order. The upper bound
// is the latest sequence when iteration starts, so events committed during the
// scan are not observed. Ranging over the result again starts a new scan.
func Scan(ctx context.Context, src Source, filter Filter, pageSize int) iter.Seq2[event.Event, error] {
	if pageSize <= 0 {
		pageSize = DefaultScanPage
	}
	return func(yield func(event.Event, error) bool) {
		bound, err := src.LatestSeq(ctx)
		if err != nil {
			yield(event.Event{}, err)
			return
		}
		var after uint64
		for after < bound {
			page, err := src.ListEvents(ctx, after, pageSize, filter)
			if err != nil {
				yield(event.Event{}, err)
				return
			}
			for _, evt := range page {
				if evt.Seq > bound {
					return
				}
				if !yield(evt, nil) {
					return
				}
				after = evt.Seq
			}
			if len(page) < pageSize {
				return
			}
		}
	}
}
