package models

import (
	"math/big"
	"time"
)

const DefaultInferenceEndpoint = "https://api-inference.huggingface.co/models/stabilityai/stable-diffusion-2"
const DefaultStorageGateway = "ipfs.io"
const DefaultPaymentAmount = "0.1"
const DefaultChain = "sepolia"

const DefaultConfirmationTimeout = 2 * time.Minute
const DefaultReceiptPollInterval = 2 * time.Second
const DefaultInferenceTimeout = 2 * time.Minute
const DefaultSessionTtl = time.Hour

// MintAbi is the minimal interface of the NFT contract: a payable mint taking the token URI.
const MintAbi = `[{"inputs":[{"internalType":"string","name":"tokenURI","type":"string"}],"name":"mint","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"payable","type":"function"}]`

const MintFunctionName = "mint"

type Chain struct {
	Name    string `json:"name" validate:"required"`
	ChainId int64  `json:"chainId" validate:"gt=0"`
	Testnet bool   `json:"testnet"`
}

type MintConfig struct {
	ContractAddress   string   `validate:"required,len=42,startswith=0x"`
	Abi               string   `validate:"required"`
	InferenceEndpoint string   `validate:"required,url"`
	StorageGateway    string   `validate:"required"`
	PaymentAmount     *big.Int `validate:"required"` // wei

	Chain               Chain
	ConfirmationTimeout time.Duration
}
