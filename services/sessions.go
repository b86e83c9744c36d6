package services

import (
	"context"
	"sync"
	"time"

	"github.com/ceramicnetwork/go-mint/models"
)

type OrchestratorFactory func(sessionId string) *MintOrchestrator

type session struct {
	orchestrator *MintOrchestrator
	lastSeen     time.Time
}

// SessionManager owns one orchestrator per session. Sessions that have been idle for longer than the TTL are dropped,
// unless a run is still in flight.
type SessionManager struct {
	factory       OrchestratorFactory
	ttl           time.Duration
	metricService models.MetricService
	logger        models.Logger

	mu       sync.Mutex
	sessions map[string]*session
	now      func() time.Time
}

func NewSessionManager(factory OrchestratorFactory, ttl time.Duration, metricService models.MetricService, logger models.Logger) *SessionManager {
	if ttl <= 0 {
		ttl = models.DefaultSessionTtl
	}
	return &SessionManager{
		factory:       factory,
		ttl:           ttl,
		metricService: metricService,
		logger:        logger,
		sessions:      make(map[string]*session),
		now:           time.Now,
	}
}

// Get returns the session's orchestrator, creating it if needed.
func (s *SessionManager) Get(sessionId string) *MintOrchestrator {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, found := s.sessions[sessionId]; found {
		sess.lastSeen = s.now()
		return sess.orchestrator
	}
	sess := &session{s.factory(sessionId), s.now()}
	s.sessions[sessionId] = sess
	s.logger.Debugf("sessions: created session %s", sessionId)
	return sess.orchestrator
}

func (s *SessionManager) Lookup(sessionId string) (*MintOrchestrator, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, found := s.sessions[sessionId]; found {
		sess.lastSeen = s.now()
		return sess.orchestrator, true
	}
	return nil, false
}

func (s *SessionManager) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

func (s *SessionManager) Run(ctx context.Context) {
	s.logger.Infof("sessions: started")
	tick := time.NewTicker(s.ttl / 4)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			s.CancelAll()
			s.logger.Infof("sessions: stopped")
			return
		case <-tick.C:
			if numExpired := s.Sweep(); numExpired > 0 {
				s.logger.Infof("sessions: expired %d sessions", numExpired)
			}
		}
	}
}

func (s *SessionManager) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	numExpired := 0
	cutoff := s.now().Add(-s.ttl)
	for sessionId, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) && !sess.orchestrator.Busy() {
			delete(s.sessions, sessionId)
			numExpired++
		}
	}
	if numExpired > 0 {
		if err := s.metricService.Count(context.Background(), models.MetricName_SessionsExpired, numExpired); err != nil {
			s.logger.Warnf("sessions: error counting expired sessions: %v", err)
		}
	}
	return numExpired
}

// CancelAll aborts every run in flight.
func (s *SessionManager) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sess := range s.sessions {
		sess.orchestrator.Cancel()
	}
}
