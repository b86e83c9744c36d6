package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ceramicnetwork/go-mint/common/aws/storage"
	"github.com/ceramicnetwork/go-mint/models"
)

var _ models.RunObserver = &RecordingService{}
var _ models.RunObserver = &EventService{}
var _ models.RunObserver = &NotificationService{}

// RecordingService keeps a run record per run, updated at every stage, and archives the record of every confirmed mint.
type RecordingService struct {
	runDb   models.MintRepository
	archive models.KeyValueRepository
	logger  models.Logger
}

func NewRecordingService(runDb models.MintRepository, archive models.KeyValueRepository, logger models.Logger) *RecordingService {
	return &RecordingService{runDb, archive, logger}
}

func (r RecordingService) Observe(ctx context.Context, run *models.MintRun) error {
	if run.Stage == models.Stage_Generating {
		if created, err := r.runDb.CreateRun(ctx, run); err != nil {
			return err
		} else if !created {
			// Redelivered request, carry on with the existing record
			r.logger.Infof("record: run %s already exists", run.Id)
			return r.runDb.UpdateRun(ctx, run)
		}
		return nil
	}
	if err := r.runDb.UpdateRun(ctx, run); err != nil {
		return err
	}
	if run.Stage == models.Stage_Confirmed && r.archive != nil {
		return r.archive.Store(ctx, storage.RunKey(run.Id), run)
	}
	return nil
}

// EventService publishes the outcome of every run.
type EventService struct {
	eventPublisher models.QueuePublisher
	logger         models.Logger
}

func NewEventService(eventPublisher models.QueuePublisher, logger models.Logger) *EventService {
	return &EventService{eventPublisher, logger}
}

func (e EventService) Observe(ctx context.Context, run *models.MintRun) error {
	if !run.Stage.Terminal() {
		return nil
	}
	event := models.MintEventMessage{
		RunId:     run.Id,
		SessionId: run.SessionId,
		Stage:     run.Stage,
		TokenUri:  run.TokenUri,
		TxHash:    run.TxHash,
		Error:     run.Error,
		Timestamp: time.Now(),
	}
	if msgId, err := e.eventPublisher.SendMessage(ctx, event); err != nil {
		return err
	} else {
		e.logger.Debugf("event: published %s for run %s: %s", run.Stage, run.Id, msgId)
	}
	return nil
}

// NotificationService posts failed runs as alerts and confirmed mints as info. Notifications are paced by the
// notifier, so they are sent in the background.
type NotificationService struct {
	notifier models.Notifier
	logger   models.Logger
	wg       sync.WaitGroup
}

func NewNotificationService(notifier models.Notifier, logger models.Logger) *NotificationService {
	return &NotificationService{notifier: notifier, logger: logger}
}

func (n *NotificationService) Observe(_ context.Context, run *models.MintRun) error {
	var send func() error
	switch run.Stage {
	case models.Stage_Error:
		if run.ErrorKind == models.ErrorKind_Cancelled {
			return nil
		}
		content := fmt.Sprintf(models.AlertFmt_RunFailed, run.Id, run.Name, run.ErrorKind, run.Error)
		send = func() error { return n.notifier.SendAlert(models.AlertTitle, models.AlertDesc_RunFailed, content) }
	case models.Stage_Confirmed:
		content := fmt.Sprintf(models.InfoFmt_Confirmed, run.Id, run.Name, run.TokenUri, run.TxHash)
		send = func() error { return n.notifier.SendInfo(models.InfoTitle, models.InfoDesc_Confirmed, content) }
	default:
		return nil
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := send(); err != nil {
			n.logger.Errorf("notify: error sending notification for run %s: %v", run.Id, err)
		}
	}()
	return nil
}

// Wait blocks until all pending notifications have been sent.
func (n *NotificationService) Wait() {
	n.wg.Wait()
}
