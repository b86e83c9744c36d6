package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator"

	mintcommon "github.com/ceramicnetwork/go-mint/common"
	"github.com/ceramicnetwork/go-mint/common/eth"
	"github.com/ceramicnetwork/go-mint/models"
)

// LoadMintConfig builds the orchestrator configuration from the environment. Everything except the contract address has
// a default.
func LoadMintConfig() (*models.MintConfig, error) {
	cfg := models.MintConfig{
		ContractAddress:     os.Getenv(mintcommon.Env_ContractAddress),
		Abi:                 models.MintAbi,
		InferenceEndpoint:   models.DefaultInferenceEndpoint,
		StorageGateway:      models.DefaultStorageGateway,
		ConfirmationTimeout: DurationFromEnv(mintcommon.Env_ConfirmationTimeout, models.DefaultConfirmationTimeout),
	}
	if endpoint, found := os.LookupEnv(mintcommon.Env_InferenceEndpoint); found {
		cfg.InferenceEndpoint = endpoint
	}
	if gateway, found := os.LookupEnv(mintcommon.Env_StorageGateway); found {
		// Only the host is templated into the metadata URL
		cfg.StorageGateway = strings.TrimSuffix(strings.TrimPrefix(gateway, "https://"), "/")
	}
	if abiFile, found := os.LookupEnv(mintcommon.Env_ContractAbiFile); found {
		if abiJson, err := os.ReadFile(abiFile); err != nil {
			return nil, fmt.Errorf("config: error reading abi file %s: %w", abiFile, err)
		} else {
			cfg.Abi = string(abiJson)
		}
	}

	chainName := models.DefaultChain
	if configChain, found := os.LookupEnv(mintcommon.Env_Chain); found {
		chainName = configChain
	}
	if chain, err := eth.LookupChain(chainName, BoolFromEnv(mintcommon.Env_EnableTestnets, false)); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	} else {
		cfg.Chain = chain
	}

	paymentAmount := models.DefaultPaymentAmount
	if configPaymentAmount, found := os.LookupEnv(mintcommon.Env_PaymentAmount); found {
		paymentAmount = configPaymentAmount
	}
	if wei, err := eth.ParseEther(paymentAmount); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	} else {
		cfg.PaymentAmount = wei
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func Validate(cfg *models.MintConfig) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config: invalid mint config: %w", err)
	}
	if !common.IsHexAddress(cfg.ContractAddress) {
		return fmt.Errorf("config: invalid contract address %s", cfg.ContractAddress)
	}
	return nil
}

func DurationFromEnv(name string, defaultValue time.Duration) time.Duration {
	if configValue, found := os.LookupEnv(name); found {
		if parsedValue, err := time.ParseDuration(configValue); err == nil {
			return parsedValue
		}
	}
	return defaultValue
}

func BoolFromEnv(name string, defaultValue bool) bool {
	if configValue, found := os.LookupEnv(name); found {
		if parsedValue, err := strconv.ParseBool(configValue); err == nil {
			return parsedValue
		}
	}
	return defaultValue
}

func IntFromEnv(name string, defaultValue int) int {
	if configValue, found := os.LookupEnv(name); found {
		if parsedValue, err := strconv.Atoi(configValue); err == nil {
			return parsedValue
		}
	}
	return defaultValue
}
