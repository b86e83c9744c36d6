package eth

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	mintcommon "github.com/ceramicnetwork/go-mint/common"
	"github.com/ceramicnetwork/go-mint/models"
)

var _ models.Wallet = &Wallet{}

var ErrNoAccount = errors.New("no wallet account connected")

type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
}

// Wallet signs contract calls with a locally held key and submits them over JSON-RPC.
type Wallet struct {
	backend      Backend
	key          *ecdsa.PrivateKey
	chain        models.Chain
	pollInterval time.Duration
	logger       models.Logger

	abiMu sync.Mutex
	abis  map[string]abi.ABI
}

func NewWallet(ctx context.Context, logger models.Logger, rpcUrl, privateKeyHex string, chain models.Chain, pollInterval time.Duration) (*Wallet, error) {
	httpCtx, httpCancel := context.WithTimeout(ctx, mintcommon.DefaultRpcWaitTime)
	defer httpCancel()

	client, err := ethclient.DialContext(httpCtx, rpcUrl)
	if err != nil {
		return nil, fmt.Errorf("wallet: error connecting to %s: %w", rpcUrl, err)
	}
	if chainId, err := client.ChainID(httpCtx); err != nil {
		return nil, fmt.Errorf("wallet: error querying chain id: %w", err)
	} else if chainId.Int64() != chain.ChainId {
		return nil, fmt.Errorf("wallet: rpc endpoint is on chain %d, expected %s (%d)", chainId, chain.Name, chain.ChainId)
	}
	return NewWalletWithBackend(logger, client, privateKeyHex, chain, pollInterval)
}

func NewWalletWithBackend(logger models.Logger, backend Backend, privateKeyHex string, chain models.Chain, pollInterval time.Duration) (*Wallet, error) {
	w := &Wallet{
		backend:      backend,
		chain:        chain,
		pollInterval: pollInterval,
		logger:       logger,
		abis:         make(map[string]abi.ABI),
	}
	if len(privateKeyHex) > 0 {
		if key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x")); err != nil {
			return nil, fmt.Errorf("wallet: invalid private key: %w", err)
		} else {
			w.key = key
		}
	}
	if w.pollInterval <= 0 {
		w.pollInterval = models.DefaultReceiptPollInterval
	}
	return w, nil
}

func (w *Wallet) Account(_ context.Context) (string, bool) {
	if w.key == nil {
		return "", false
	}
	return crypto.PubkeyToAddress(w.key.PublicKey).Hex(), true
}

func (w *Wallet) WriteContract(ctx context.Context, call models.ContractCall) (string, error) {
	if w.key == nil {
		return "", ErrNoAccount
	}
	if !common.IsHexAddress(call.Address) {
		return "", fmt.Errorf("invalid contract address %s", call.Address)
	}
	parsedAbi, err := w.parseAbi(call.Abi)
	if err != nil {
		return "", err
	}
	opts, err := bind.NewKeyedTransactorWithChainID(w.key, big.NewInt(w.chain.ChainId))
	if err != nil {
		return "", err
	}
	opts.Context = ctx
	if len(call.Value) > 0 {
		if value, ok := new(big.Int).SetString(call.Value, 10); !ok {
			return "", fmt.Errorf("invalid call value %s", call.Value)
		} else {
			opts.Value = value
		}
	}

	contract := bind.NewBoundContract(common.HexToAddress(call.Address), parsedAbi, w.backend, w.backend, w.backend)
	tx, err := contract.Transact(opts, call.FunctionName, call.Args...)
	if err != nil {
		return "", err
	}
	w.logger.Infof("wallet: submitted %s to %s on %s: tx=%s, value=%s", call.FunctionName, call.Address, w.chain.Name, tx.Hash().Hex(), opts.Value)
	return tx.Hash().Hex(), nil
}

// WaitForReceipt polls for the transaction receipt until it is available or the context is done. A missing receipt is
// treated as "still pending".
func (w *Wallet) WaitForReceipt(ctx context.Context, txHash string) (models.TxStatus, error) {
	hash := common.HexToHash(txHash)
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := w.backend.TransactionReceipt(ctx, hash)
		if err == nil {
			if receipt.Status == types.ReceiptStatusSuccessful {
				w.logger.Debugf("wallet: tx %s confirmed in block %s", txHash, receipt.BlockNumber)
				return models.TxStatus_Confirmed, nil
			}
			return models.TxStatus_Failed, nil
		} else if !errors.Is(err, ethereum.NotFound) {
			return models.TxStatus_Pending, err
		}
		select {
		case <-ctx.Done():
			return models.TxStatus_Pending, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *Wallet) parseAbi(abiJson string) (abi.ABI, error) {
	w.abiMu.Lock()
	defer w.abiMu.Unlock()

	if parsed, found := w.abis[abiJson]; found {
		return parsed, nil
	}
	parsed, err := abi.JSON(strings.NewReader(abiJson))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("invalid contract abi: %w", err)
	}
	w.abis[abiJson] = parsed
	return parsed, nil
}
