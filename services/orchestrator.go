package services

import (
	"context"
	"errors"
	"html"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/ceramicnetwork/go-mint/models"
)

// MintOrchestrator drives one session's runs through generate, upload, mint and confirm. Only one run can be in flight
// at a time.
type MintOrchestrator struct {
	sessionId     string
	cfg           models.MintConfig
	generator     models.ImageGenerator
	store         models.MetadataStore
	wallet        models.Wallet
	observers     []models.RunObserver
	metricService models.MetricService
	logger        models.Logger
	validate      *validator.Validate
	sanitizer     *bluemonday.Policy

	busy atomic.Bool

	mu     sync.RWMutex
	status models.PipelineStatus
	image  *models.GeneratedImage
	cancel context.CancelFunc
}

type mintRun struct {
	ctx     context.Context
	cancel  context.CancelFunc
	record  models.MintRun
	started time.Time
}

func NewMintOrchestrator(
	sessionId string,
	cfg models.MintConfig,
	generator models.ImageGenerator,
	store models.MetadataStore,
	wallet models.Wallet,
	metricService models.MetricService,
	logger models.Logger,
	observers ...models.RunObserver,
) *MintOrchestrator {
	return &MintOrchestrator{
		sessionId:     sessionId,
		cfg:           cfg,
		generator:     generator,
		store:         store,
		wallet:        wallet,
		observers:     observers,
		metricService: metricService,
		logger:        logger,
		validate:      validator.New(),
		sanitizer:     bluemonday.StrictPolicy(),
		status:        models.PipelineStatus{Stage: models.Stage_Idle, UpdatedAt: time.Now()},
	}
}

// Submit runs the whole pipeline for the request and returns once the mint is confirmed or the run has failed. Any
// returned error is a *models.MintError.
func (o *MintOrchestrator) Submit(ctx context.Context, request models.MintRequest) (*models.TransactionHandle, error) {
	return o.SubmitWithRunId(ctx, uuid.New().String(), request)
}

func (o *MintOrchestrator) SubmitWithRunId(ctx context.Context, runId string, request models.MintRequest) (*models.TransactionHandle, error) {
	run, err := o.begin(ctx, runId, request)
	if err != nil {
		return nil, err
	}
	return o.execute(ctx, run)
}

// Start validates the request and claims the orchestrator, then runs the pipeline in the background. The returned run
// id can be matched against the status.
func (o *MintOrchestrator) Start(ctx context.Context, request models.MintRequest) (string, error) {
	run, err := o.begin(ctx, uuid.New().String(), request)
	if err != nil {
		return "", err
	}
	go func() {
		if _, err := o.execute(ctx, run); err != nil {
			o.logger.Debugf("orchestrator: background run %s ended: %v", run.record.Id, err)
		}
	}()
	return run.record.Id, nil
}

// Cancel aborts the run in flight, if any.
func (o *MintOrchestrator) Cancel() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cancel != nil && o.status.Busy {
		o.cancel()
		return true
	}
	return false
}

func (o *MintOrchestrator) Status() models.PipelineStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return o.status
}

// Image returns a copy of the most recently generated image, or nil while a new one is being generated.
func (o *MintOrchestrator) Image() *models.GeneratedImage {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.image == nil {
		return nil
	}
	data := make([]byte, len(o.image.Data))
	copy(data, o.image.Data)
	return &models.GeneratedImage{Data: data, ContentType: o.image.ContentType}
}

func (o *MintOrchestrator) Busy() bool {
	return o.busy.Load()
}

func (o *MintOrchestrator) Account(ctx context.Context) (string, bool) {
	return o.wallet.Account(ctx)
}

func (o *MintOrchestrator) begin(ctx context.Context, runId string, request models.MintRequest) (*mintRun, error) {
	if !o.busy.CompareAndSwap(false, true) {
		o.count(ctx, models.MetricName_RunBusy)
		return nil, models.NewMintError(models.ErrorKind_Busy, o.Status().Stage, models.ErrBusy.Error(), nil)
	}
	request = models.MintRequest{
		Name:        o.sanitize(request.Name),
		Description: o.sanitize(request.Description),
	}
	if err := o.validate.Struct(request); err != nil {
		o.busy.Store(false)
		return nil, models.NewMintError(models.ErrorKind_Validation, o.Status().Stage, "Name and description are required", err)
	}
	if _, connected := o.wallet.Account(ctx); !connected {
		o.busy.Store(false)
		return nil, models.NewMintError(models.ErrorKind_Validation, o.Status().Stage, "Connect a wallet to mint", nil)
	}

	runCtx, runCancel := context.WithCancel(ctx)
	now := time.Now()
	run := &mintRun{
		ctx:    runCtx,
		cancel: runCancel,
		record: models.MintRun{
			Id:          runId,
			SessionId:   o.sessionId,
			Name:        request.Name,
			Description: request.Description,
			CreatedAt:   now,
		},
		started: now,
	}

	o.mu.Lock()
	o.cancel = runCancel
	// The previous run's tx hash and preview are only kept until the next run starts
	o.image = nil
	o.status = models.PipelineStatus{RunId: runId, Stage: o.status.Stage}
	o.mu.Unlock()

	o.logger.Infof("orchestrator: session %s starting run %s: %s", o.sessionId, runId, request.Name)
	o.count(ctx, models.MetricName_RunStarted)
	o.transition(ctx, run, models.Stage_Generating, models.StatusText_Generating, nil)
	return run, nil
}

func (o *MintOrchestrator) execute(ctx context.Context, run *mintRun) (*models.TransactionHandle, error) {
	defer run.cancel()

	image, err := o.generator.Generate(run.ctx, run.record.Description)
	if err != nil {
		return nil, o.fail(ctx, run, models.ErrorKind_Generation, "Image generation failed", err)
	}
	o.mu.Lock()
	o.image = image
	o.mu.Unlock()
	o.distribution(ctx, models.MetricName_ImageSizeBytes, len(image.Data))

	o.transition(ctx, run, models.Stage_Uploading, models.StatusText_Uploading, nil)
	receipt, err := o.store.Store(run.ctx, image, run.record.Name, run.record.Description)
	if err != nil {
		return nil, o.fail(ctx, run, models.ErrorKind_Upload, "Image upload failed", err)
	}

	o.transition(ctx, run, models.Stage_MintPending, models.StatusText_MintPending, func(status *models.PipelineStatus, record *models.MintRun) {
		status.TokenUri = receipt.MetadataUrl
		record.TokenUri = receipt.MetadataUrl
		record.Cid = receipt.Cid
		record.ImageCid = receipt.ImageCid
	})
	txHash, err := o.wallet.WriteContract(run.ctx, models.ContractCall{
		Address:      o.cfg.ContractAddress,
		Abi:          o.cfg.Abi,
		FunctionName: models.MintFunctionName,
		Args:         []any{receipt.MetadataUrl},
		Value:        o.cfg.PaymentAmount.String(),
	})
	if err != nil {
		return nil, o.fail(ctx, run, models.ErrorKind_Mint, "Mint rejected", err)
	}

	o.transition(ctx, run, models.Stage_Confirming, models.StatusText_Confirming, func(status *models.PipelineStatus, record *models.MintRun) {
		status.TxHash = txHash
		record.TxHash = txHash
	})
	if err = o.awaitConfirmation(run, txHash); err != nil {
		return nil, o.fail(ctx, run, models.ErrorKind_Confirmation, "Transaction not confirmed", err)
	}

	o.finish(ctx, run, models.Stage_Confirmed, models.StatusText_Confirmed, nil)
	o.count(ctx, models.MetricName_RunConfirmed)
	o.logger.Infof("orchestrator: run %s confirmed: uri=%s, tx=%s", run.record.Id, run.record.TokenUri, txHash)
	return &models.TransactionHandle{Hash: txHash, Status: models.TxStatus_Confirmed}, nil
}

func (o *MintOrchestrator) awaitConfirmation(run *mintRun, txHash string) error {
	timeout := o.cfg.ConfirmationTimeout
	if timeout <= 0 {
		timeout = models.DefaultConfirmationTimeout
	}
	confirmCtx, confirmCancel := context.WithTimeout(run.ctx, timeout)
	defer confirmCancel()

	if txStatus, err := o.wallet.WaitForReceipt(confirmCtx, txHash); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && run.ctx.Err() == nil {
			return errConfirmationTimeout
		}
		return err
	} else if txStatus != models.TxStatus_Confirmed {
		return errTxReverted
	}
	return nil
}

var errConfirmationTimeout = errors.New("timed out waiting for the transaction receipt")
var errTxReverted = errors.New("transaction reverted")

func (o *MintOrchestrator) fail(ctx context.Context, run *mintRun, kind models.ErrorKind, message string, err error) error {
	stage := o.Status().Stage
	if run.ctx.Err() != nil && errors.Is(err, context.Canceled) {
		kind = models.ErrorKind_Cancelled
		message = "Mint cancelled"
		o.count(ctx, models.MetricName_RunCancelled)
	} else {
		o.count(ctx, failureMetrics[kind])
	}
	o.logger.Errorf("orchestrator: run %s failed at %s: %s: %v", run.record.Id, stage, message, err)
	o.count(ctx, models.MetricName_RunFailed)

	mintErr := models.NewMintError(kind, stage, message, err)
	o.finish(ctx, run, models.Stage_Error, message, func(status *models.PipelineStatus, record *models.MintRun) {
		status.Error = errorDetail(err)
		record.ErrorKind = kind
		record.Error = errorDetail(err)
	})
	return mintErr
}

var failureMetrics = map[models.ErrorKind]models.MetricName{
	models.ErrorKind_Generation:   models.MetricName_GenerationFailed,
	models.ErrorKind_Upload:       models.MetricName_UploadFailed,
	models.ErrorKind_Mint:         models.MetricName_MintRejected,
	models.ErrorKind_Confirmation: models.MetricName_ConfirmFailed,
}

func errorDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// finish moves the run into a terminal stage and releases the orchestrator for the next run. The busy flag is cleared
// under the status lock, before the observers are notified, so a non-busy status always means Submit is accepted.
func (o *MintOrchestrator) finish(ctx context.Context, run *mintRun, stage models.Stage, text string, update func(*models.PipelineStatus, *models.MintRun)) {
	o.distribution(ctx, models.MetricName_RunDurationMs, int(time.Since(run.started).Milliseconds()))
	o.transition(ctx, run, stage, text, func(status *models.PipelineStatus, record *models.MintRun) {
		if update != nil {
			update(status, record)
		}
		status.Busy = false
		o.cancel = nil
		o.busy.Store(false)
	})
}

// transition updates the status and run record, then notifies the observers. Observers are notified with the caller's
// context so that they still see the terminal stage of a cancelled run.
func (o *MintOrchestrator) transition(ctx context.Context, run *mintRun, stage models.Stage, text string, update func(*models.PipelineStatus, *models.MintRun)) {
	o.mu.Lock()
	if !o.status.Stage.CanTransition(stage) {
		o.logger.Warnf("orchestrator: run %s: unexpected transition %s -> %s", run.record.Id, o.status.Stage, stage)
	}
	now := time.Now()
	o.status.Stage = stage
	o.status.Text = text
	o.status.Busy = true
	o.status.UpdatedAt = now
	run.record.Stage = stage
	run.record.UpdatedAt = now
	if update != nil {
		update(&o.status, &run.record)
	}
	record := run.record
	o.mu.Unlock()

	o.logger.Debugf("orchestrator: run %s: %s", run.record.Id, stage)
	for _, observer := range o.observers {
		if err := observer.Observe(ctx, &record); err != nil {
			o.logger.Errorf("orchestrator: run %s: observer error at %s: %v", record.Id, stage, err)
			o.count(ctx, models.MetricName_ObserverError)
		}
	}
}

func (o *MintOrchestrator) sanitize(input string) string {
	return strings.TrimSpace(html.UnescapeString(o.sanitizer.Sanitize(input)))
}

func (o *MintOrchestrator) count(ctx context.Context, name models.MetricName) {
	if err := o.metricService.Count(ctx, name, 1); err != nil {
		o.logger.Warnf("orchestrator: error counting %s: %v", name, err)
	}
}

func (o *MintOrchestrator) distribution(ctx context.Context, name models.MetricName, val int) {
	if err := o.metricService.Distribution(ctx, name, val); err != nil {
		o.logger.Warnf("orchestrator: error recording %s: %v", name, err)
	}
}
