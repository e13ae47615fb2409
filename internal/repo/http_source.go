package repo

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bankinsight/churn-insights/internal/store"
)

// maxDatasetBytes bounds a downloaded dataset.
const maxDatasetBytes = 256 << 20

// DatasetClient downloads a customer CSV export over HTTP.
type DatasetClient struct {
	url        string
	httpClient *http.Client
}

// NewDatasetClient constructs a client for the export at url.
func NewDatasetClient(url string, timeout time.Duration) *DatasetClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &DatasetClient{
		url:        strings.TrimSpace(url),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads the export and returns a CSV source over it. The body is
// buffered so the load does not hold the connection open.
func (c *DatasetClient) Fetch(ctx context.Context) (*store.CSVSource, error) {
	if c == nil {
		return nil, fmt.Errorf("dataset client not initialised")
	}
	if c.url == "" {
		return nil, fmt.Errorf("dataset url not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dataset request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dataset endpoint returned %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDatasetBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	if len(data) > maxDatasetBytes {
		return nil, fmt.Errorf("dataset exceeds %d bytes", maxDatasetBytes)
	}
	return store.NewCSVSource(bytes.NewReader(data)), nil
}
