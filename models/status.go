package models

import "time"

type Stage string

const (
	Stage_Idle        Stage = "idle"
	Stage_Generating  Stage = "generating"
	Stage_Uploading   Stage = "uploading"
	Stage_MintPending Stage = "mint_pending"
	Stage_Confirming  Stage = "confirming"
	Stage_Confirmed   Stage = "confirmed"
	Stage_Error       Stage = "error"
)

const (
	StatusText_Generating  = "Generating Image..."
	StatusText_Uploading   = "Uploading Image..."
	StatusText_MintPending = "Waiting for Mint..."
	StatusText_Confirming  = "Confirming..."
	StatusText_Confirmed   = "Confirmed"
)

func (s Stage) Terminal() bool {
	return s == Stage_Confirmed || s == Stage_Error
}

// next lists the only stages reachable from each stage.
var next = map[Stage][]Stage{
	Stage_Idle:        {Stage_Generating},
	Stage_Generating:  {Stage_Uploading, Stage_Error},
	Stage_Uploading:   {Stage_MintPending, Stage_Error},
	Stage_MintPending: {Stage_Confirming, Stage_Error},
	Stage_Confirming:  {Stage_Confirmed, Stage_Error},
	Stage_Confirmed:   {Stage_Generating},
	Stage_Error:       {Stage_Generating},
}

func (s Stage) CanTransition(to Stage) bool {
	for _, stage := range next[s] {
		if stage == to {
			return true
		}
	}
	return false
}

type PipelineStatus struct {
	RunId     string    `json:"runId,omitempty"`
	Stage     Stage     `json:"stage"`
	Text      string    `json:"text"`
	Busy      bool      `json:"busy"`
	Error     string    `json:"error,omitempty"`
	TxHash    string    `json:"txHash,omitempty"`
	TokenUri  string    `json:"tokenUri,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}
