package widget

import (
	"context"

	"go.uber.org/zap"
)

// End runs the termination protocol exactly once. A second trigger,
// from any source, is a no-op; input arriving after termination
// started fails with ErrSessionEnded.
func (s *Session) End(ctx context.Context) error {
	var err error
	s.endOnce.Do(func() {
		err = s.end(ctx)
	})
	return err
}

// EndInBackground terminates without a caller to wait for: page
// unload, tab hidden, inactivity. The dispatch runs detached with its
// own deadline so it survives the trigger that fired it.
func (s *Session) EndInBackground() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.EndTimeout)
		defer cancel()
		if err := s.End(ctx); err != nil {
			s.cfg.Logger.Warn("background termination failed",
				zap.String("company_id", s.cfg.CompanyID),
				zap.Error(err),
			)
		}
	}()
}

func (s *Session) end(ctx context.Context) error {
	s.mu.Lock()
	s.ended = true
	s.stage = StageEnded
	if s.inactivity != nil {
		s.inactivity.Stop()
		s.inactivity = nil
	}
	history := make([]Message, len(s.transcript))
	copy(history, s.transcript)
	profile := s.profile
	s.mu.Unlock()

	return s.cfg.Backend.EndSession(ctx, s.cfg.CompanyID, history, profile)
}
