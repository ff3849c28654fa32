package aleo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ExplorerClient fetches finalized transactions from a public Aleo API
// (Provable-compatible: GET /v2/<network>/transaction/<id>).
type ExplorerClient struct {
	baseURL    string
	network    string
	httpClient *http.Client
	log        *zap.Logger
}

func NewExplorerClient(baseURL, network string, log *zap.Logger) *ExplorerClient {
	return &ExplorerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		network: network,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
}

// FetchTransaction returns the raw JSON payload of a finalized transaction.
// Callers must pass the FINAL transaction id resolved by the finality
// tracker, not the pending id the wallet returned at submission.
func (c *ExplorerClient) FetchTransaction(ctx context.Context, finalTxID string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/v2/%s/transaction/%s", c.baseURL, c.network, url.PathEscape(finalTxID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("explorer unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch transaction %s: explorer returned %s", finalTxID, resp.Status)
	}

	return io.ReadAll(resp.Body)
}
