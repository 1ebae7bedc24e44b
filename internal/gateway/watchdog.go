package gateway

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/vovakirdan/sharkord-go/internal/proto"
)

// resetWatchdog restarts the idle period and cancels an outstanding probe.
func (s *session) resetWatchdog() {
	if s.idle != nil {
		s.idle.Stop()
	}
	if s.probe != nil {
		s.probe.Stop()
		s.probe = nil
	}
	s.idle = s.clock.Timer(s.cfg.IdleTimeout)
}

// onIdle arms the probe timer and then sends PING, so a PONG that races the write
// still finds a probe to cancel.
func (s *session) onIdle() {
	s.idle = nil
	s.log.Warn().Dur("idle", s.cfg.IdleTimeout).Msg("watchdog: no traffic, probing server")
	s.metrics.probe()

	s.probe = s.clock.Timer(s.cfg.ProbeTimeout)
	if err := s.write([]byte(proto.HeartbeatPing)); err != nil {
		s.log.Warn().Err(err).Msg("watchdog: failed to send probe")
	}
}

func (s *session) stopTimers() {
	if s.idle != nil {
		s.idle.Stop()
		s.idle = nil
	}
	if s.probe != nil {
		s.probe.Stop()
		s.probe = nil
	}
}

// timerC returns t's channel, or nil so a select never picks a missing timer.
func timerC(t *clock.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}
