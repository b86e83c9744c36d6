package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/ceramicnetwork/go-mint"
)

func TestCreateQueueInput(t *testing.T) {
	t.Setenv(mint.Env_Env, "qa")
	visibilityTimeout := 90 * time.Second
	tests := map[string]struct {
		opts               Opts
		expectedName       string
		expectedVisibility string
		expectedRedrive    *redrivePolicy
	}{
		"defaults": {
			opts:               Opts{QueueType: Type_Event},
			expectedName:       "nft-minter-qa-event",
			expectedVisibility: "600",
		},
		"with redrive": {
			opts: Opts{
				QueueType:         Type_Request,
				VisibilityTimeout: &visibilityTimeout,
				RedriveOpts:       &RedriveOpts{DlqId: "arn:aws:sqs:us-east-1:000000000000:dlq", MaxReceiveCount: DefaultMaxReceiveCount},
			},
			expectedName:       "nft-minter-qa-request",
			expectedVisibility: "90",
			expectedRedrive:    &redrivePolicy{"arn:aws:sqs:us-east-1:000000000000:dlq", DefaultMaxReceiveCount},
		},
		"incomplete redrive ignored": {
			opts:               Opts{QueueType: Type_Request, RedriveOpts: &RedriveOpts{MaxReceiveCount: 1}},
			expectedName:       "nft-minter-qa-request",
			expectedVisibility: "600",
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			in := createQueueInput(test.opts)
			if *in.QueueName != test.expectedName {
				t.Errorf("expected name %s, got %s", test.expectedName, *in.QueueName)
			}
			if visibility := in.Attributes[string(types.QueueAttributeNameVisibilityTimeout)]; visibility != test.expectedVisibility {
				t.Errorf("expected visibility %s, got %s", test.expectedVisibility, visibility)
			}
			policyStr, found := in.Attributes[string(types.QueueAttributeNameRedrivePolicy)]
			if test.expectedRedrive == nil {
				if found {
					t.Errorf("unexpected redrive policy %s", policyStr)
				}
				return
			}
			policy := redrivePolicy{}
			if err := json.Unmarshal([]byte(policyStr), &policy); err != nil {
				t.Fatalf("invalid redrive policy: %v", err)
			}
			if policy != *test.expectedRedrive {
				t.Errorf("expected %+v, got %+v", *test.expectedRedrive, policy)
			}
		})
	}
}

func TestConsumerOpts(t *testing.T) {
	numWorkers := 10
	tests := map[string]struct {
		numWorkers *int
		workers    int
		received   int
		inflight   int
	}{
		"default": {nil, 1, 2, 1},
		"ten":     {&numWorkers, 10, 12, 2},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			opts := consumerOpts(test.numWorkers)
			if opts.MaxWorkers != test.workers || opts.MaxReceivedMessages != test.received || opts.MaxInflightReceiveMessageRequests != test.inflight {
				t.Errorf("unexpected opts %+v", opts)
			}
		})
	}
}
