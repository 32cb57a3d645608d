package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

// EVMConfig configures one EVM chain connection.
type EVMConfig struct {
	RPCURL     string
	ChainID    int64
	PrivateKey string
}

// EVMClient is a Client backed by go-ethereum against a single EVM chain.
type EVMClient struct {
	client     *ethclient.Client
	chainID    *big.Int
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewEVMClient connects to the configured RPC endpoint and derives the
// signing address.
func NewEVMClient(cfg EVMConfig) (*EVMClient, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("RPC URL not configured")
	}
	if cfg.PrivateKey == "" {
		return nil, fmt.Errorf("private key not configured")
	}

	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	publicKey, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("failed to derive public key")
	}

	return &EVMClient{
		client:     client,
		chainID:    big.NewInt(cfg.ChainID),
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(*publicKey),
	}, nil
}

// Addresses returns the single signing address.
func (e *EVMClient) Addresses() []string {
	return []string{e.address.Hex()}
}

// Balance returns the native or ERC20 balance of the signing address in
// smallest units.
func (e *EVMClient) Balance(ctx context.Context, tokenContract string) (decimal.Decimal, error) {
	if tokenContract == "" {
		balance, err := e.client.BalanceAt(ctx, e.address, nil)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
		}
		return decimal.NewFromBigInt(balance, 0), nil
	}

	if !common.IsHexAddress(tokenContract) {
		return decimal.Zero, fmt.Errorf("invalid token contract address: %s", tokenContract)
	}
	data, err := PackBalanceOf(e.address.Hex())
	if err != nil {
		return decimal.Zero, err
	}
	token := common.HexToAddress(tokenContract)
	result, err := e.client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to call balanceOf: %w", err)
	}
	return decimal.NewFromBigInt(new(big.Int).SetBytes(result), 0), nil
}

// GetTransactionByHash resolves a transaction and its confirmation depth.
// A transaction the node has not seen maps to ErrTxNotFound.
func (e *EVMClient) GetTransactionByHash(ctx context.Context, hash string) (*Transaction, error) {
	txHash := common.HexToHash(hash)

	_, isPending, err := e.client.TransactionByHash(ctx, txHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, ErrTxNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	tx := &Transaction{Hash: hash, Status: TxPending}
	if isPending {
		return tx, nil
	}

	receipt, err := e.client.TransactionReceipt(ctx, txHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return tx, nil
		}
		return nil, fmt.Errorf("failed to get transaction receipt: %w", err)
	}

	head, err := e.client.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get block number: %w", err)
	}

	tx.BlockNumber = receipt.BlockNumber.Uint64()
	if head >= tx.BlockNumber {
		tx.Confirmations = head - tx.BlockNumber + 1
	}
	if receipt.Status == types.ReceiptStatusSuccessful {
		tx.Status = TxSuccess
	} else {
		tx.Status = TxFailed
	}
	return tx, nil
}

// SendTransaction signs and submits a transaction. With TokenContract set
// and no explicit Data, an ERC20 transfer to req.To is built; explicit Data
// is sent to req.To (or the token contract) as-is.
func (e *EVMClient) SendTransaction(ctx context.Context, req TxRequest) (string, error) {
	if !common.IsHexAddress(req.To) {
		return "", fmt.Errorf("invalid recipient address: %s", req.To)
	}

	nonce, err := e.client.PendingNonceAt(ctx, e.address)
	if err != nil {
		return "", fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := e.gasPrice(ctx, req.GasPrice)
	if err != nil {
		return "", err
	}

	to := common.HexToAddress(req.To)
	value := req.Value.BigInt()
	data := req.Data

	if req.TokenContract != "" {
		if !common.IsHexAddress(req.TokenContract) {
			return "", fmt.Errorf("invalid token contract address: %s", req.TokenContract)
		}
		if data == nil {
			data, err = PackTransfer(req.To, value)
			if err != nil {
				return "", err
			}
		}
		to = common.HexToAddress(req.TokenContract)
		value = big.NewInt(0)
	}

	gasLimit := req.GasLimit
	if gasLimit == 0 {
		msg := ethereum.CallMsg{From: e.address, To: &to, Value: value, Data: data}
		estimated, err := e.client.EstimateGas(ctx, msg)
		if err != nil {
			return "", fmt.Errorf("failed to estimate gas: %w", err)
		}
		gasLimit = estimated * 120 / 100
	}

	tx := types.NewTransaction(nonce, to, value, gasLimit, gasPrice, data)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(e.chainID), e.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := e.client.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}
	return signedTx.Hash().Hex(), nil
}

// gasPrice converts a gwei tier to wei, falling back to the node suggestion
// when the tier is zero.
func (e *EVMClient) gasPrice(ctx context.Context, gwei decimal.Decimal) (*big.Int, error) {
	if gwei.IsPositive() {
		return gwei.Shift(9).BigInt(), nil
	}
	price, err := e.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	return price, nil
}

// Close closes the underlying RPC connection.
func (e *EVMClient) Close() {
	if e.client != nil {
		e.client.Close()
	}
}
