package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/ceramicnetwork/go-mint"
	"github.com/ceramicnetwork/go-mint/common"
)

type Type string

const (
	Type_Request Type = "request"
	Type_Event   Type = "event"
	Type_DLQ     Type = "dlq"
)

// Inference and confirmation can each take minutes, so a received mint request stays invisible for a while.
const defaultVisibilityTimeout = 10 * time.Minute
const DefaultMaxReceiveCount = 3

type redrivePolicy struct {
	DeadLetterTargetArn string `json:"deadLetterTargetArn"`
	MaxReceiveCount     int    `json:"maxReceiveCount"`
}

func CreateQueue(ctx context.Context, sqsClient *sqs.Client, opts Opts) (string, string, error) {
	createQueueIn := createQueueInput(opts)

	httpCtx, httpCancel := context.WithTimeout(ctx, common.DefaultRpcWaitTime)
	defer httpCancel()

	if createQueueOut, err := sqsClient.CreateQueue(httpCtx, &createQueueIn); err != nil {
		return "", "", err
	} else if arn, err := getQueueArn(ctx, *createQueueOut.QueueUrl, sqsClient); err != nil {
		return "", "", err
	} else {
		return *createQueueOut.QueueUrl, arn, nil
	}
}

func createQueueInput(opts Opts) sqs.CreateQueueInput {
	visibilityTimeout := defaultVisibilityTimeout
	if opts.VisibilityTimeout != nil {
		visibilityTimeout = *opts.VisibilityTimeout
	}
	createQueueIn := sqs.CreateQueueInput{
		QueueName: aws.String(QueueName(opts.QueueType)),
		Attributes: map[string]string{
			string(types.QueueAttributeNameVisibilityTimeout): strconv.Itoa(int(visibilityTimeout.Seconds())),
		},
	}
	// Configure redrive policy, if specified.
	if opts.RedriveOpts != nil && len(opts.RedriveOpts.DlqId) > 0 && opts.RedriveOpts.MaxReceiveCount > 0 {
		marshaledRedrivePolicy, _ := json.Marshal(redrivePolicy{
			DeadLetterTargetArn: opts.RedriveOpts.DlqId,
			MaxReceiveCount:     opts.RedriveOpts.MaxReceiveCount,
		})
		createQueueIn.Attributes[string(types.QueueAttributeNameRedrivePolicy)] = string(marshaledRedrivePolicy)
	}
	return createQueueIn
}

func getQueueArn(ctx context.Context, queueUrl string, sqsClient *sqs.Client) (string, error) {
	getQueueAttrIn := sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(queueUrl),
		AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameQueueArn},
	}

	httpCtx, httpCancel := context.WithTimeout(ctx, common.DefaultRpcWaitTime)
	defer httpCancel()

	if getQueueAttrOut, err := sqsClient.GetQueueAttributes(httpCtx, &getQueueAttrIn); err != nil {
		return "", err
	} else {
		return getQueueAttrOut.Attributes[string(types.QueueAttributeNameQueueArn)], nil
	}
}

func QueueName(queueType Type) string {
	return fmt.Sprintf("%s-%s-%s", common.ServiceName, os.Getenv(mint.Env_Env), string(queueType))
}
