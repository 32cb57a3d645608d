package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SubgraphClient queries the bridge's per-chain subgraph indexers to match a
// source-chain send with its destination-chain counterpart. Records missing
// from the indexer mean "not yet indexed", never failure.
type SubgraphClient struct {
	urls       map[string]string
	httpClient *http.Client
}

// NewSubgraphClient builds a client over per-chain subgraph endpoints.
func NewSubgraphClient(urls map[string]string) *SubgraphClient {
	return &SubgraphClient{
		urls:       urls,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

func (s *SubgraphClient) query(ctx context.Context, chain, query string, variables map[string]any, out any) error {
	url, ok := s.urls[chain]
	if !ok {
		return fmt.Errorf("no subgraph endpoint for chain %q", chain)
	}

	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to marshal subgraph query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build subgraph request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("subgraph request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("subgraph returned status %d", resp.StatusCode)
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphqlError  `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode subgraph response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("subgraph error: %s", envelope.Errors[0].Message)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to decode subgraph data: %w", err)
	}
	return nil
}

const transferSentQuery = `
query TransferSent($txHash: String!) {
  transferSents(where: { transactionHash: $txHash }) {
    transferId
  }
}`

// TransferID resolves the transfer id emitted by an L2 send transaction.
// Returns "" while the indexer has not seen the transaction.
func (s *SubgraphClient) TransferID(ctx context.Context, chain, txHash string) (string, error) {
	var data struct {
		TransferSents []struct {
			TransferID string `json:"transferId"`
		} `json:"transferSents"`
	}
	if err := s.query(ctx, chain, transferSentQuery, map[string]any{"txHash": txHash}, &data); err != nil {
		return "", err
	}
	if len(data.TransferSents) == 0 {
		return "", nil
	}
	return data.TransferSents[0].TransferID, nil
}

const withdrawalBondedQuery = `
query WithdrawalBonded($transferId: String!) {
  withdrawalBondeds(where: { transferId: $transferId }) {
    transactionHash
  }
}`

// DestinationTxHash resolves the destination-chain bond transaction for an
// L2-originated transfer id. Returns "" while unbonded.
func (s *SubgraphClient) DestinationTxHash(ctx context.Context, destChain, transferID string) (string, error) {
	var data struct {
		WithdrawalBondeds []struct {
			TransactionHash string `json:"transactionHash"`
		} `json:"withdrawalBondeds"`
	}
	if err := s.query(ctx, destChain, withdrawalBondedQuery, map[string]any{"transferId": transferID}, &data); err != nil {
		return "", err
	}
	if len(data.WithdrawalBondeds) == 0 {
		return "", nil
	}
	return data.WithdrawalBondeds[0].TransactionHash, nil
}

const transferFromL1Query = `
query TransferFromL1($recipient: String!) {
  transferFromL1Completeds(where: { recipient: $recipient }, orderBy: timestamp, orderDirection: desc, first: 1) {
    transactionHash
  }
}`

// L1DestinationTxHash resolves the destination transaction for an
// L1-originated transfer by recipient. Returns "" while incomplete.
func (s *SubgraphClient) L1DestinationTxHash(ctx context.Context, destChain, recipient string) (string, error) {
	var data struct {
		TransferFromL1Completeds []struct {
			TransactionHash string `json:"transactionHash"`
		} `json:"transferFromL1Completeds"`
	}
	if err := s.query(ctx, destChain, transferFromL1Query, map[string]any{"recipient": recipient}, &data); err != nil {
		return "", err
	}
	if len(data.TransferFromL1Completeds) == 0 {
		return "", nil
	}
	return data.TransferFromL1Completeds[0].TransactionHash, nil
}
