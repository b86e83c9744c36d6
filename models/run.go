package models

import "time"

// MintRun is the record of a single pass through the pipeline, as seen by observers and stored in the run table.
type MintRun struct {
	Id          string    `dynamodbav:"id" json:"id"`
	SessionId   string    `dynamodbav:"sid" json:"sessionId"`
	Name        string    `dynamodbav:"nm" json:"name"`
	Description string    `dynamodbav:"dsc" json:"description"`
	Stage       Stage     `dynamodbav:"stg" json:"stage"`
	ImageCid    string    `dynamodbav:"icid,omitempty" json:"imageCid,omitempty"`
	Cid         string    `dynamodbav:"cid,omitempty" json:"cid,omitempty"`
	TokenUri    string    `dynamodbav:"uri,omitempty" json:"tokenUri,omitempty"`
	TxHash      string    `dynamodbav:"tx,omitempty" json:"txHash,omitempty"`
	ErrorKind   ErrorKind `dynamodbav:"ek,omitempty" json:"errorKind,omitempty"`
	Error       string    `dynamodbav:"err,omitempty" json:"error,omitempty"`
	CreatedAt   time.Time `dynamodbav:"ts,unixtime" json:"createdAt"`
	UpdatedAt   time.Time `dynamodbav:"uts,unixtime" json:"updatedAt"`
}
