package form

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-pickupform/pkg/model"
	"github.com/goliatone/go-pickupform/pkg/postal"
)

// dispatchLocked supersedes any lookup in flight for target and, when zipcode
// is complete, starts a new one. s.mu must be held.
func (s *Session) dispatchLocked(target model.Target, zipcode string) {
	slot := s.slots[target]
	slot.seq++
	if slot.cancel != nil {
		slot.cancel()
		slot.cancel = nil
	}
	if !postal.IsZipcode(zipcode) {
		slot.status = ""
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	slot.cancel = cancel
	slot.status = postal.StatusSearching
	seq := slot.seq

	s.logger.Debug("address lookup dispatched",
		zap.String("target", string(target)),
		zap.String("zipcode", zipcode),
		zap.Uint64("seq", seq))

	s.wg.Add(1)
	go s.runLookup(ctx, cancel, target, zipcode, seq)
}

func (s *Session) runLookup(ctx context.Context, cancel context.CancelFunc, target model.Target, zipcode string, seq uint64) {
	defer s.wg.Done()
	defer cancel()

	if s.debounce > 0 {
		timer := time.NewTimer(s.debounce)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}

	lookupCtx, stop := context.WithTimeout(ctx, s.lookupTimeout)
	res := postal.Resolve(lookupCtx, s.lookuper, zipcode)
	stop()

	s.apply(target, zipcode, seq, res)
}

// apply writes a finished lookup into the request if it is still the
// current lookup for target and the postal code has not changed since.
func (s *Session) apply(target model.Target, zipcode string, seq uint64, res postal.Resolution) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, _ := model.AddressFor(target)
	slot := s.slots[target]
	current, _ := s.req.Get(keys.PostalCode)
	if slot.seq != seq || current != zipcode {
		s.logger.Debug("stale address lookup discarded",
			zap.String("target", string(target)),
			zap.String("zipcode", zipcode),
			zap.Uint64("seq", seq))
		return
	}
	slot.cancel = nil
	slot.status = res.Status()

	switch res.Outcome {
	case postal.Resolved:
		s.mergeLocked(keys, res.Address)
		s.logger.Debug("address resolved",
			zap.String("target", string(target)),
			zap.String("zipcode", zipcode))
	case postal.NotFound:
		s.logger.Info("address not found",
			zap.String("target", string(target)),
			zap.String("zipcode", zipcode))
	default:
		s.logger.Warn("address lookup failed",
			zap.String("target", string(target)),
			zap.String("zipcode", zipcode),
			zap.Error(res.Err))
	}
}

func (s *Session) mergeLocked(keys model.AddressKeys, addr postal.Address) {
	write := func(key model.FieldKey, value string) {
		if s.merge == model.MergeFillIfEmpty {
			if existing, _ := s.req.Get(key); existing != "" {
				return
			}
		}
		s.req.Set(key, value)
	}
	write(keys.Prefecture, addr.Prefecture)
	write(keys.City, addr.City)
}
