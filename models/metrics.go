package models

type MetricName string

// Counts
const (
	MetricName_RunStarted       MetricName = "run_started"
	MetricName_RunConfirmed     MetricName = "run_confirmed"
	MetricName_RunFailed        MetricName = "run_failed"
	MetricName_RunBusy          MetricName = "run_busy"
	MetricName_RunCancelled     MetricName = "run_cancelled"
	MetricName_GenerationFailed MetricName = "generation_failed"
	MetricName_UploadFailed     MetricName = "upload_failed"
	MetricName_MintRejected     MetricName = "mint_rejected"
	MetricName_ConfirmFailed    MetricName = "confirmation_failed"
	MetricName_InferenceError   MetricName = "inference_error"
	MetricName_IpfsError        MetricName = "ipfs_error"
	MetricName_ObserverError    MetricName = "observer_error"
	MetricName_WorkerMessage    MetricName = "worker_message"
	MetricName_SessionsExpired  MetricName = "sessions_expired"
)

// Distributions
const (
	MetricName_RunDurationMs  MetricName = "run_duration_ms"
	MetricName_ImageSizeBytes MetricName = "image_size_bytes"
)

const MetricsCallerName = "go-mint"
