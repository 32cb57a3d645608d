package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	oneclick "github.com/defuse-protocol/one-click-sdk-go"
)

// QuoteParams carries one quote request to the intents API. Amount is in
// the origin asset's smallest units.
type QuoteParams struct {
	OriginAssetID      string
	DestinationAssetID string
	Amount             string
	Recipient          string
	RefundTo           string
	SlippageBps        int32
	// Dry quotes price the route without reserving a deposit address.
	Dry bool
}

// Client wraps the 1Click SDK with per-call contexts and JWT auth.
type Client struct {
	api   *oneclick.APIClient
	token string
}

// NewClient builds an authenticated API client.
func NewClient(jwtToken string) *Client {
	return &Client{
		api:   oneclick.NewAPIClient(oneclick.NewConfiguration()),
		token: jwtToken,
	}
}

func (c *Client) authed(ctx context.Context) context.Context {
	return context.WithValue(ctx, oneclick.ContextAccessToken, c.token)
}

// Tokens lists the assets the intents API can route.
func (c *Client) Tokens(ctx context.Context) ([]oneclick.TokenResponse, error) {
	resp, httpResp, err := c.api.OneClickAPI.GetTokens(c.authed(ctx)).Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get tokens: %w", err)
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status code %d", httpResp.StatusCode)
	}
	return resp, nil
}

// Quote prices a route. With Dry false the response carries the deposit
// address the swap must fund.
func (c *Client) Quote(ctx context.Context, params QuoteParams) (*oneclick.QuoteResponse, error) {
	refundTo := params.RefundTo
	if refundTo == "" {
		refundTo = params.Recipient
	}
	deadline := time.Now().Add(24 * time.Hour)

	req := oneclick.NewQuoteRequest(
		params.Dry,
		"EXACT_INPUT",
		float32(params.SlippageBps),
		params.OriginAssetID,
		"ORIGIN_CHAIN",
		params.DestinationAssetID,
		params.Amount,
		refundTo,
		"ORIGIN_CHAIN",
		params.Recipient,
		"DESTINATION_CHAIN",
		deadline,
	)

	resp, httpResp, err := c.api.OneClickAPI.GetQuote(c.authed(ctx)).QuoteRequest(*req).Execute()
	if err != nil {
		if httpResp != nil {
			defer httpResp.Body.Close()
			return nil, fmt.Errorf("quote request failed (status %d): %s", httpResp.StatusCode, apiErrorMessage(httpResp))
		}
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("API returned status code %d", httpResp.StatusCode)
	}
	if resp == nil {
		return nil, fmt.Errorf("empty quote response")
	}
	return resp, nil
}

// apiErrorMessage pulls the message field out of an error response body.
func apiErrorMessage(httpResp *http.Response) string {
	body, err := io.ReadAll(httpResp.Body)
	if err != nil || len(body) == 0 {
		return "no error details"
	}
	var parsed map[string]any
	if json.Unmarshal(body, &parsed) == nil {
		if message, ok := parsed["message"].(string); ok {
			return message
		}
	}
	return string(body)
}

// SubmitDepositTx reports the funded deposit to the API so execution can
// begin.
func (c *Client) SubmitDepositTx(ctx context.Context, depositAddress, txHash string) error {
	req := oneclick.NewSubmitDepositTxRequest(depositAddress, txHash)
	_, httpResp, err := c.api.OneClickAPI.SubmitDepositTx(c.authed(ctx)).SubmitDepositTxRequest(*req).Execute()
	if err != nil {
		return fmt.Errorf("failed to submit deposit: %w", err)
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusOK && httpResp.StatusCode != http.StatusCreated {
		return fmt.Errorf("API returned status code %d", httpResp.StatusCode)
	}
	return nil
}

// ExecutionStatus reports how far the intents engine has taken the swap.
func (c *Client) ExecutionStatus(ctx context.Context, depositAddress string) (*oneclick.GetExecutionStatusResponse, error) {
	resp, httpResp, err := c.api.OneClickAPI.GetExecutionStatus(c.authed(ctx)).DepositAddress(depositAddress).Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get execution status: %w", err)
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status code %d", httpResp.StatusCode)
	}
	return resp, nil
}
