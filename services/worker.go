package services

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator"

	"github.com/ceramicnetwork/go-mint/models"
)

type MintWorker struct {
	orchestrator  *MintOrchestrator
	metricService models.MetricService
	logger        models.Logger
	validate      *validator.Validate
}

func NewMintWorker(orchestrator *MintOrchestrator, metricService models.MetricService, logger models.Logger) *MintWorker {
	return &MintWorker{orchestrator, metricService, logger, validator.New()}
}

// Mint processes a mint request received from the queue. Returning an error leaves the message on the queue for
// redelivery, which only happens when the orchestrator was busy or the run was cancelled before a transaction could
// have been sent. Failed runs are not retried.
func (w MintWorker) Mint(ctx context.Context, msgBody string) error {
	if err := w.metricService.Count(ctx, models.MetricName_WorkerMessage, 1); err != nil {
		w.logger.Warnf("worker: error counting message: %v", err)
	}
	mintReq := new(models.MintRequestMessage)
	if err := json.Unmarshal([]byte(msgBody), mintReq); err != nil {
		w.logger.Errorf("worker: dropping malformed message: %s, %v", msgBody, err)
		return nil
	}
	if err := w.validate.Struct(mintReq); err != nil {
		w.logger.Errorf("worker: dropping invalid message: %v, %v", mintReq, err)
		return nil
	}
	request := models.MintRequest{Name: mintReq.Name, Description: mintReq.Description}
	if txHandle, err := w.orchestrator.SubmitWithRunId(ctx, mintReq.Id, request); err != nil {
		if models.IsKind(err, models.ErrorKind_Busy) || cancelledBeforeMint(err) {
			w.logger.Infof("worker: requeueing request %s: %v", mintReq.Id, err)
			return err
		}
		w.logger.Errorf("worker: request %s failed: %v", mintReq.Id, err)
	} else {
		w.logger.Infof("worker: request %s minted in tx %s", mintReq.Id, txHandle.Hash)
	}
	return nil
}

func cancelledBeforeMint(err error) bool {
	var mintErr *models.MintError
	if errors.As(err, &mintErr) && mintErr.Kind == models.ErrorKind_Cancelled {
		return mintErr.Stage == models.Stage_Generating || mintErr.Stage == models.Stage_Uploading
	}
	return false
}
