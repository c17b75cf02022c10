package broadcast

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	kit "churchbot/internal/transport"
	logx "churchbot/pkg/logx"
)

var errSkipped = errors.New("empty payload")

// run is the state shared by the recipients of one Deliver call.
type run struct {
	svc     *Service
	id      string
	log     logx.Logger
	limiter *rate.Limiter
	timeout time.Duration

	// path -> file id of the first successful upload in this run
	files sync.Map
}

func (r *run) deliver(ctx context.Context, recipient int64, factory Factory) {
	err := r.sendPayload(ctx, recipient, factory)
	if err != nil && !errors.Is(err, errSkipped) {
		r.log.Warn("broadcast delivery failed", logx.Int64("recipient", recipient), logx.Err(err))
	}
	r.svc.mark(r.id, recipient, err)
}

func (r *run) sendPayload(ctx context.Context, recipient int64, factory Factory) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	p := factory(recipient)
	if len(p.Parts) == 0 {
		return errSkipped
	}
	to := kit.ChatTarget{ChatID: recipient}
	for i, part := range p.Parts {
		if err := r.sendPart(ctx, to, part); err != nil {
			return fmt.Errorf("part %d/%d: %w", i+1, len(p.Parts), err)
		}
	}
	return nil
}

func (r *run) sendPart(ctx context.Context, to kit.ChatTarget, part Part) error {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	sctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if part.Media == nil {
		if part.Text == "" {
			return errors.New("empty part")
		}
		_, err := r.svc.out.SendText(sctx, to, part.Text, part.Options)
		return err
	}

	m := *part.Media
	if m.FileID == "" && m.Path != "" {
		if id, ok := r.files.Load(m.Path); ok {
			m.FileID = id.(string)
		}
	}
	ref, err := r.svc.out.SendMedia(sctx, to, m, part.Options)
	if err != nil {
		return err
	}
	if ref.FileID != "" && m.Path != "" {
		r.files.LoadOrStore(m.Path, ref.FileID)
	}
	return nil
}
