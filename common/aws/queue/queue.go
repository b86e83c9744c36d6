package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/abevier/go-sqs/gosqs"

	"github.com/ceramicnetwork/go-mint/models"
)

var _ models.QueuePublisher = &Queue{}

const maxLinger = 250 * time.Millisecond
const defaultNumConsumerWorkers = 1

type RedriveOpts struct {
	DlqId           string
	MaxReceiveCount int
}

type Opts struct {
	QueueType         Type
	VisibilityTimeout *time.Duration
	RedriveOpts       *RedriveOpts
	NumWorkers        *int
}

// Queue publishes JSON messages to an SQS queue and, when created with a callback, consumes them too.
type Queue struct {
	queueType Type
	Url       string
	Arn       string
	publisher *gosqs.SQSPublisher
	consumer  *gosqs.SQSConsumer
	logger    models.Logger
}

func NewQueue(
	ctx context.Context,
	logger models.Logger,
	sqsClient *sqs.Client,
	opts Opts,
	callback gosqs.MessageCallbackFunc,
) (*Queue, error) {
	// Create the queue if it didn't already exist
	if url, arn, err := CreateQueue(ctx, sqsClient, opts); err != nil {
		return nil, err
	} else {
		publisher := gosqs.NewPublisher(
			sqsClient,
			url,
			maxLinger,
		)
		q := &Queue{
			queueType: opts.QueueType,
			Url:       url,
			Arn:       arn,
			publisher: publisher,
			logger:    logger,
		}
		if callback != nil {
			q.consumer = gosqs.NewConsumer(consumerOpts(opts.NumWorkers), publisher, callback)
		}
		return q, nil
	}
}

func consumerOpts(numWorkers *int) gosqs.Opts {
	maxWorkers := defaultNumConsumerWorkers
	if numWorkers != nil && *numWorkers > 0 {
		maxWorkers = *numWorkers
	}
	// Keep a few more messages than workers so that workers don't sit idle between receives
	maxReceivedMessages := maxWorkers + (maxWorkers+4)/5
	return gosqs.Opts{
		MaxReceivedMessages:               maxReceivedMessages,
		MaxWorkers:                        maxWorkers,
		MaxInflightReceiveMessageRequests: (maxReceivedMessages + 9) / 10,
	}
}

func (q *Queue) SendMessage(ctx context.Context, event any) (string, error) {
	if eventBody, err := json.Marshal(event); err != nil {
		return "", err
	} else if msgId, err := q.publisher.SendMessage(ctx, string(eventBody)); err != nil {
		return "", err
	} else {
		return msgId, nil
	}
}

func (q *Queue) Start() {
	if q.consumer != nil {
		q.consumer.Start()
		q.logger.Infof("%s: started", q.queueType)
	}
}

func (q *Queue) Shutdown() {
	if q.consumer != nil {
		q.consumer.Shutdown()
		q.logger.Infof("%s: stopped", q.queueType)
	}
}

func (q *Queue) WaitForRxShutdown() {
	if q.consumer != nil {
		q.consumer.WaitForRxShutdown()
		q.logger.Infof("%s: rx stopped", q.queueType)
	}
}
