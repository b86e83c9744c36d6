package models

import "time"

type MintRequestMessage struct {
	Id          string    `json:"rid" validate:"required"`
	Name        string    `json:"name"`
	Description string    `json:"dsc"`
	Timestamp   time.Time `json:"ts"`
}

type MintEventMessage struct {
	RunId     string    `json:"rid"`
	SessionId string    `json:"sid"`
	Stage     Stage     `json:"stg"`
	TokenUri  string    `json:"uri,omitempty"`
	TxHash    string    `json:"tx,omitempty"`
	Error     string    `json:"err,omitempty"`
	Timestamp time.Time `json:"ts"`
}
