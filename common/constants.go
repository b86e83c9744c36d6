package common

import "time"

const DefaultRpcWaitTime = 30 * time.Second

const ServiceName = "nft-minter"

const (
	Env_MetricsEndpoint = "OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"

	Env_InferenceEndpoint = "INFERENCE_ENDPOINT"
	Env_InferenceToken    = "INFERENCE_API_TOKEN"
	Env_InferenceTimeout  = "INFERENCE_TIMEOUT"

	Env_IpfsApiAddress = "IPFS_API_ADDRESS"
	Env_IpfsApiToken   = "IPFS_API_TOKEN"
	Env_StorageGateway = "STORAGE_GATEWAY"

	Env_EthRpcUrl           = "ETH_RPC_URL"
	Env_EthPrivateKey       = "ETH_PRIVATE_KEY"
	Env_Chain               = "CHAIN"
	Env_EnableTestnets      = "ENABLE_TESTNETS"
	Env_ContractAddress     = "MINT_CONTRACT_ADDRESS"
	Env_ContractAbiFile     = "MINT_CONTRACT_ABI_FILE"
	Env_PaymentAmount       = "MINT_PAYMENT_AMOUNT"
	Env_ConfirmationTimeout = "CONFIRMATION_TIMEOUT"
	Env_ReceiptPollInterval = "RECEIPT_POLL_INTERVAL"

	Env_SessionTtl     = "SESSION_TTL"
	Env_ListenAddress  = "LISTEN_ADDRESS"
	Env_RecordsEnabled = "RECORDS_ENABLED"
	Env_EventsEnabled  = "EVENTS_ENABLED"

	Env_DiscordAlertWebhook   = "DISCORD_ALERT_WEBHOOK"
	Env_DiscordInfoWebhook    = "DISCORD_INFO_WEBHOOK"
	Env_DiscordTestWebhook    = "DISCORD_TEST_WEBHOOK"
)
