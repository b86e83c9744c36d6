package services

import (
	"context"
	"testing"
	"time"

	"github.com/ceramicnetwork/go-mint/common/loggers"
)

func TestSessionManager(t *testing.T) {
	p := newTestPipeline()
	numCreated := 0
	factory := func(sessionId string) *MintOrchestrator {
		numCreated++
		return p.build()
	}
	metricService := &FakeMetricService{}
	sessions := NewSessionManager(factory, time.Hour, metricService, loggers.NewTestLogger())
	now := time.Now()
	sessions.now = func() time.Time { return now }

	first := sessions.Get("a")
	if sessions.Get("a") != first {
		t.Errorf("same session should get the same orchestrator")
	}
	if sessions.Get("b") == first {
		t.Errorf("sessions should not share orchestrators")
	}
	if numCreated != 2 || sessions.Len() != 2 {
		t.Errorf("expected 2 sessions, got %d/%d", numCreated, sessions.Len())
	}
	if _, found := sessions.Lookup("c"); found {
		t.Errorf("lookup should not create sessions")
	}

	// Keep "b" busy while both sessions go idle
	p.generator.started = make(chan struct{}, 1)
	p.generator.release = make(chan struct{})
	busy, _ := sessions.Lookup("b")
	if _, err := busy.Start(context.Background(), catRequest); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	<-p.generator.started

	now = now.Add(2 * time.Hour)
	if numExpired := sessions.Sweep(); numExpired != 1 {
		t.Errorf("expected 1 expired session, got %d", numExpired)
	}
	if _, found := sessions.Lookup("a"); found {
		t.Errorf("idle session should have expired")
	}
	if _, found := sessions.Lookup("b"); !found {
		t.Errorf("busy session should not expire")
	}
	if metricService.Counted("sessions_expired") != 1 {
		t.Errorf("expected expiry to be counted")
	}

	sessions.CancelAll()
	waitForStage(t, busy, "error")
}
