package models

import (
	"context"
)

type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (*GeneratedImage, error)
}

type MetadataStore interface {
	Store(ctx context.Context, image *GeneratedImage, name, description string) (*StorageReceipt, error)
}

type Wallet interface {
	Account(ctx context.Context) (string, bool)
	WriteContract(ctx context.Context, call ContractCall) (string, error)
	WaitForReceipt(ctx context.Context, txHash string) (TxStatus, error)
}

// RunObserver is notified of every pipeline stage transition. Observers must not block the pipeline for long and their
// errors never fail a run.
type RunObserver interface {
	Observe(ctx context.Context, run *MintRun) error
}

type MintRepository interface {
	CreateRun(ctx context.Context, run *MintRun) (bool, error)
	UpdateRun(ctx context.Context, run *MintRun) error
	GetRun(ctx context.Context, id string) (*MintRun, error)
}

type KeyValueRepository interface {
	Store(ctx context.Context, key string, value interface{}) error
}

type QueuePublisher interface {
	SendMessage(ctx context.Context, event any) (string, error)
}

type Notifier interface {
	SendAlert(title, desc, content string) error
	SendInfo(title, desc, content string) error
}

type MetricService interface {
	Count(ctx context.Context, name MetricName, val int) error
	Distribution(ctx context.Context, name MetricName, val int) error
	Shutdown(ctx context.Context)
}

type Logger interface {
	Debugf(template string, args ...interface{})
	Debugw(msg string, args ...interface{})
	Errorf(template string, args ...interface{})
	Fatalf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Infoln(args ...interface{})
	Warnf(template string, args ...interface{})
	Sync() error
}
