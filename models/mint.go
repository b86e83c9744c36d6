package models

import (
	"encoding/base64"
	"fmt"
)

const (
	MaxNameLength        = 256
	MaxDescriptionLength = 2048
)

type MintRequest struct {
	Name        string `json:"name" validate:"required,max=256"`
	Description string `json:"description" validate:"required,max=2048"`
}

type GeneratedImage struct {
	Data        []byte
	ContentType string
}

// DataUrl renders the image inline so that it can be displayed without another fetch.
func (g *GeneratedImage) DataUrl() string {
	return fmt.Sprintf("data:%s;base64,%s", g.ContentType, base64.StdEncoding.EncodeToString(g.Data))
}

type StorageReceipt struct {
	Cid         string `json:"cid"`
	ImageCid    string `json:"imageCid"`
	MetadataUrl string `json:"metadataUrl"`
}

type TxStatus string

const (
	TxStatus_Pending   TxStatus = "pending"
	TxStatus_Confirmed TxStatus = "confirmed"
	TxStatus_Failed    TxStatus = "failed"
)

type TransactionHandle struct {
	Hash   string   `json:"hash"`
	Status TxStatus `json:"status"`
}

// ContractCall describes a state-changing contract invocation handed to the wallet.
type ContractCall struct {
	Address      string
	Abi          string
	FunctionName string
	Args         []any
	Value        string // wei, base 10
}

type NftMetadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}
