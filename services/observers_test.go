package services

import (
	"context"
	"strings"
	"testing"

	"github.com/ceramicnetwork/go-mint/common/loggers"
	"github.com/ceramicnetwork/go-mint/models"
)

func TestRecordingService(t *testing.T) {
	runDb := &FakeMintRepository{runs: make(map[string]models.MintRun)}
	archive := &FakeKeyValueRepository{values: make(map[string]any)}
	p := newTestPipeline()
	orchestrator := NewMintOrchestrator("session", testConfig(), p.generator, p.store, p.wallet, p.metricService, loggers.NewTestLogger(),
		NewRecordingService(runDb, archive, loggers.NewTestLogger()))

	if _, err := orchestrator.SubmitWithRunId(context.Background(), "run-1", catRequest); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	run, found := runDb.runs["run-1"]
	if !found {
		t.Fatalf("run was not recorded")
	}
	if run.Stage != models.Stage_Confirmed || run.SessionId != "session" || run.Cid != "bafy123" || run.TxHash != "0xabc" {
		t.Errorf("unexpected run record: %+v", run)
	}
	if run.TokenUri != "https://ipfs.io/ipfs/bafy123/metadata.json" || run.ImageCid != "bafyimage" {
		t.Errorf("unexpected run record: %+v", run)
	}
	if archived, found := archive.values["mints/run-1.json"]; !found {
		t.Errorf("confirmed run was not archived")
	} else if archivedRun := archived.(*models.MintRun); archivedRun.TxHash != "0xabc" {
		t.Errorf("unexpected archived run: %+v", archivedRun)
	}
	if p.metricService.Counted(models.MetricName_ObserverError) != 0 {
		t.Errorf("recording should not have failed")
	}

	// A redelivered request reuses the existing record
	if _, err := orchestrator.SubmitWithRunId(context.Background(), "run-1", catRequest); err != nil {
		t.Fatalf("resubmit failed: %v", err)
	}
	if p.metricService.Counted(models.MetricName_ObserverError) != 0 {
		t.Errorf("recording should not have failed")
	}
}

func TestEventService(t *testing.T) {
	publisher := &FakePublisher{messages: make(chan any, 10)}
	p := newTestPipeline()
	orchestrator := NewMintOrchestrator("session", testConfig(), p.generator, p.store, p.wallet, p.metricService, loggers.NewTestLogger(),
		NewEventService(publisher, loggers.NewTestLogger()))

	if _, err := orchestrator.SubmitWithRunId(context.Background(), "run-1", catRequest); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	messages := waitForMesssages(publisher.messages, 1)
	event := messages[0].(models.MintEventMessage)
	if event.RunId != "run-1" || event.Stage != models.Stage_Confirmed || event.TxHash != "0xabc" || event.TokenUri != "https://ipfs.io/ipfs/bafy123/metadata.json" {
		t.Errorf("unexpected event: %+v", event)
	}
	if publisher.numAttempts != 1 {
		t.Errorf("only terminal stages should be published, got %d messages", publisher.numAttempts)
	}
}

func TestNotificationService(t *testing.T) {
	notifier := &FakeNotifier{notifs: make(chan notification, 10)}
	notificationService := NewNotificationService(notifier, loggers.NewTestLogger())
	p := newTestPipeline()
	orchestrator := NewMintOrchestrator("session", testConfig(), p.generator, p.store, p.wallet, p.metricService, loggers.NewTestLogger(), notificationService)

	if _, err := orchestrator.SubmitWithRunId(context.Background(), "run-1", catRequest); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	info := <-notifier.notifs
	if info.alert || info.title != models.InfoTitle || !strings.Contains(info.content, "0xabc") {
		t.Errorf("unexpected info notification: %+v", info)
	}

	p.store.err = context.DeadlineExceeded
	if _, err := orchestrator.SubmitWithRunId(context.Background(), "run-2", catRequest); err == nil {
		t.Fatalf("expected upload failure")
	}
	alert := <-notifier.notifs
	if !alert.alert || alert.title != models.AlertTitle || !strings.Contains(alert.content, "run-2") || !strings.Contains(alert.content, "upload") {
		t.Errorf("unexpected alert notification: %+v", alert)
	}
	notificationService.Wait()
	if len(notifier.notifs) != 0 {
		t.Errorf("unexpected extra notifications")
	}
}
