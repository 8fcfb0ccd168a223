package transfer

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/tablesync/internal/resilience"
)

// SweepResult counts the outcome of a sweep.
type SweepResult struct {
	Updated int64 `json:"updated" yaml:"updated"`
	Skipped int64 `json:"skipped" yaml:"skipped"`
	Failed  int64 `json:"failed" yaml:"failed"`
}

// Progress receives one tick per finished document.
type Progress interface {
	ChangeMax(n int)
	Add(n int) error
}

// SweepOption configures a sweep.
type SweepOption func(*sweepOptions)

type sweepOptions struct {
	progress Progress
}

// WithProgress reports sweep progress to p.
func WithProgress(p Progress) SweepOption {
	return func(o *sweepOptions) { o.progress = p }
}

// Sweep runs UpdateByID for every document in a collection. Documents without
// a best response are skipped. Per-document failures are counted and logged
// but do not stop the sweep.
func (s *Service) Sweep(ctx context.Context, collectionID string, req UpdateRequest, concurrency int, opts ...SweepOption) (*SweepResult, error) {
	var o sweepOptions
	for _, opt := range opts {
		opt(&o)
	}

	refs, err := s.Platform.ListDocuments(ctx, collectionID)
	if err != nil {
		return nil, eris.Wrapf(err, "transfer: list documents in %s", collectionID)
	}
	if len(refs) == 0 {
		zap.L().Info("sweep: no documents found", zap.String("collection", collectionID))
		return &SweepResult{}, nil
	}
	if concurrency < 1 {
		concurrency = 1
	}

	zap.L().Info("sweep: processing collection",
		zap.String("collection", collectionID),
		zap.Int("documents", len(refs)),
		zap.Int("concurrency", concurrency),
	)

	if o.progress != nil {
		o.progress.ChangeMax(len(refs))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var updated, skipped, failed atomic.Int64

	for _, ref := range refs {
		g.Go(func() error {
			log := zap.L().With(zap.String("document", ref.ID), zap.String("name", ref.Name))

			_, err := s.UpdateByID(gctx, ref.ID, req)
			switch {
			case err == nil:
				updated.Add(1)
			case errors.Is(err, ErrNoBestResponse), errors.Is(err, ErrNoPrompts):
				skipped.Add(1)
				log.Debug("sweep: skipped", zap.Error(err))
			default:
				failed.Add(1)
				log.Error("sweep: update failed", zap.Bool("transient", resilience.IsTransient(err)), zap.Error(err))
			}
			if o.progress != nil {
				_ = o.progress.Add(1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "transfer: sweep")
	}

	res := &SweepResult{Updated: updated.Load(), Skipped: skipped.Load(), Failed: failed.Load()}
	zap.L().Info("sweep: complete",
		zap.Int64("updated", res.Updated),
		zap.Int64("skipped", res.Skipped),
		zap.Int64("failed", res.Failed),
	)
	return res, ctx.Err()
}
