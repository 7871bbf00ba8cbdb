package ledgerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/api-sage/transfer-orchestrator/src/internal/adapter/http/models"
	"github.com/api-sage/transfer-orchestrator/src/internal/commons"
	"github.com/api-sage/transfer-orchestrator/src/internal/domain"
	"github.com/api-sage/transfer-orchestrator/src/internal/logger"
	"github.com/api-sage/transfer-orchestrator/src/internal/metrics"
)

const RequestIDHeader = "X-Request-ID"

// Client calls the ledger authority over HTTP. Business refusals come back
// as typed domain errors; anything else is an infrastructure failure.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Transfer(ctx context.Context, requestID string, req models.PostingRequest) (models.TransferResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return models.TransferResponse{}, fmt.Errorf("marshal ledger request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ledger/transfer", bytes.NewReader(payload))
	if err != nil {
		return models.TransferResponse{}, fmt.Errorf("create ledger request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if requestID != "" {
		httpReq.Header.Set(RequestIDHeader, requestID)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		metrics.LedgerCall("network_error")
		logger.Error("ledger call failed", err, logger.Fields{
			"requestId":  requestID,
			"transferId": req.TransferID,
		})
		return models.TransferResponse{}, fmt.Errorf("call ledger: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.LedgerCall("network_error")
		return models.TransferResponse{}, fmt.Errorf("read ledger response: %w", err)
	}

	logger.Info("ledger call completed", logger.Fields{
		"requestId":  requestID,
		"transferId": req.TransferID,
		"status":     resp.StatusCode,
		"durationMs": time.Since(start).Milliseconds(),
	})

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var out models.TransferResponse
		if err := json.Unmarshal(body, &out); err != nil {
			metrics.LedgerCall("decode_error")
			return models.TransferResponse{}, fmt.Errorf("decode ledger response: %w", err)
		}
		metrics.LedgerCall("success")
		return out, nil
	}

	return models.TransferResponse{}, decodeError(resp.StatusCode, body)
}

func decodeError(status int, body []byte) error {
	var apiErr commons.APIError
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Code == "" {
		metrics.LedgerCall("decode_error")
		return fmt.Errorf("ledger returned status %d with unreadable body", status)
	}

	metrics.LedgerCall(string(apiErr.Code))
	if err := domain.FromCode(apiErr.Code, apiErr.Message); err != nil {
		return err
	}
	return fmt.Errorf("ledger returned %s (status %d): %s", apiErr.Code, status, apiErr.Message)
}
