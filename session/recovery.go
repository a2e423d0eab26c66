package session

import (
	"context"
)

// recover brings a stalled link back to a greeted state:
//
//  1. purge both buffers with in-flight I/O aborted, falling back to
//     a clear-errors pass when the purge itself fails
//  2. wait out the recovery window
//  3. reopen the link if the purge had to drop the handle
//  4. re-run the handshake
//
// A handshake failure here faults the session; there is no second
// recovery.
func (s *Session) recover(ctx context.Context, cause error) error {
	s.logWarn("transfer stalled; recovering", "cause", cause)

	if err := s.link.Purge(true, true, true); err != nil {
		s.logDebug("purge failed, clearing errors instead", "error", err)
		if err := s.link.ClearErrors(); err != nil {
			s.toFault(err)
			s.logError("recovery failed", "error", err)
			return err
		}
	}

	if err := s.sleep(ctx, s.cfg.RecoveryDelay); err != nil {
		return err
	}

	if !s.link.Opened() {
		if err := s.link.Open(); err != nil {
			s.toFault(err)
			s.logError("recovery failed", "error", err)
			return err
		}
	}

	if err := s.greet(ctx); err != nil {
		gerr := &GreetError{Err: err}
		s.toFault(gerr)
		s.logError("recovery failed", "error", err)
		return gerr
	}

	s.logInfo("recovered; retrying last chunk")
	return nil
}
