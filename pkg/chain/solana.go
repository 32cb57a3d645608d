package chain

import (
	"context"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
)

// SolanaConfig configures the Solana connection.
type SolanaConfig struct {
	RPCURL     string
	PrivateKey string
	Commitment string
}

// SolanaClient is a Client backed by solana-go. Token transfers are out of
// scope here; the swap routes that touch Solana move native SOL only.
type SolanaClient struct {
	client     *rpc.Client
	privateKey solana.PrivateKey
	publicKey  solana.PublicKey
	commitment rpc.CommitmentType
}

// NewSolanaClient connects to the configured RPC endpoint.
func NewSolanaClient(cfg SolanaConfig) (*SolanaClient, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("RPC URL not configured")
	}
	if cfg.PrivateKey == "" {
		return nil, fmt.Errorf("private key not configured")
	}

	privateKey, err := solana.PrivateKeyFromBase58(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return &SolanaClient{
		client:     rpc.New(cfg.RPCURL),
		privateKey: privateKey,
		publicKey:  privateKey.PublicKey(),
		commitment: parseCommitment(cfg.Commitment),
	}, nil
}

func parseCommitment(s string) rpc.CommitmentType {
	switch strings.ToLower(s) {
	case "finalized":
		return rpc.CommitmentFinalized
	case "processed":
		return rpc.CommitmentProcessed
	default:
		return rpc.CommitmentConfirmed
	}
}

// Addresses returns the single signing address.
func (s *SolanaClient) Addresses() []string {
	return []string{s.publicKey.String()}
}

// Balance returns the SOL balance in lamports.
func (s *SolanaClient) Balance(ctx context.Context, tokenContract string) (decimal.Decimal, error) {
	if tokenContract != "" {
		return decimal.Zero, fmt.Errorf("token balances not supported on solana client")
	}
	balance, err := s.client.GetBalance(ctx, s.publicKey, rpc.CommitmentFinalized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}
	return decimal.NewFromUint64(balance.Value), nil
}

// GetTransactionByHash resolves a signature's status. Confirmations are
// approximated from the cluster commitment: finalized counts as 32,
// confirmed as 1.
func (s *SolanaClient) GetTransactionByHash(ctx context.Context, hash string) (*Transaction, error) {
	sig, err := solana.SignatureFromBase58(hash)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction signature: %w", err)
	}

	statuses, err := s.client.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return nil, fmt.Errorf("failed to get signature status: %w", err)
	}
	if len(statuses.Value) == 0 || statuses.Value[0] == nil {
		return nil, ErrTxNotFound
	}

	status := statuses.Value[0]
	tx := &Transaction{Hash: hash, Status: TxPending, BlockNumber: status.Slot}
	switch status.ConfirmationStatus {
	case rpc.ConfirmationStatusFinalized:
		tx.Confirmations = 32
	case rpc.ConfirmationStatusConfirmed:
		tx.Confirmations = 1
	}
	if status.Err != nil {
		tx.Status = TxFailed
	} else if tx.Confirmations > 0 {
		tx.Status = TxSuccess
	}
	return tx, nil
}

// SendTransaction submits a native SOL transfer. Value is in lamports.
func (s *SolanaClient) SendTransaction(ctx context.Context, req TxRequest) (string, error) {
	if req.TokenContract != "" {
		return "", fmt.Errorf("token transfers not supported on solana client")
	}
	recipient, err := solana.PublicKeyFromBase58(req.To)
	if err != nil {
		return "", fmt.Errorf("invalid recipient address: %w", err)
	}

	lamports := req.Value.BigInt().Uint64()

	recent, err := s.client.GetRecentBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return "", fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	instruction := system.NewTransferInstruction(lamports, s.publicKey, recipient).Build()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{instruction},
		recent.Value.Blockhash,
		solana.TransactionPayer(s.publicKey),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.publicKey) {
			return &s.privateKey
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := s.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: s.commitment,
	})
	if err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}
	return sig.String(), nil
}
