package aggregator

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/goodnatureofminers/pool-coordinator/internal/model"
)

// HTTPNodeClient polls a node's GET /stats and /workers endpoints.
type HTTPNodeClient struct {
	httpClient *http.Client
	now        func() time.Time
}

// NewHTTPNodeClient bounds connection setup by connectTimeout and the whole
// request, body included, by requestTimeout.
func NewHTTPNodeClient(connectTimeout, requestTimeout time.Duration) *HTTPNodeClient {
	dialer := &net.Dialer{Timeout: connectTimeout}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: requestTimeout,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       90 * time.Second,
	}
	return &HTTPNodeClient{
		httpClient: &http.Client{Transport: transport, Timeout: requestTimeout},
		now:        time.Now,
	}
}

// FetchStats returns the node's normalized stats or an error when the node is unreachable.
func (c *HTTPNodeClient) FetchStats(ctx context.Context, node model.PoolNode) (*model.PoolNodeStats, error) {
	body, endpoint, err := c.get(ctx, node, "/stats", "")
	if err != nil {
		return nil, err
	}
	stats, err := ParseStats(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", endpoint, err)
	}
	stats.URL = node.URL
	stats.Role = node.Role
	stats.RespondedAt = c.now()
	return stats, nil
}

// FetchMinerStats returns what the node knows about one miner.
func (c *HTTPNodeClient) FetchMinerStats(ctx context.Context, node model.PoolNode, address string) (*model.MinerNodeStats, error) {
	body, endpoint, err := c.get(ctx, node, "/stats", address)
	if err != nil {
		return nil, err
	}
	stats, err := ParseMinerStats(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", endpoint, err)
	}
	stats.URL = node.URL
	return stats, nil
}

// FetchWorkers lists the miner's rigs connected to the node, tagged with the node URL.
func (c *HTTPNodeClient) FetchWorkers(ctx context.Context, node model.PoolNode, address string) ([]model.Worker, error) {
	body, endpoint, err := c.get(ctx, node, "/workers", address)
	if err != nil {
		return nil, err
	}
	workers, err := ParseWorkers(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", endpoint, err)
	}
	for i := range workers {
		workers[i].Node = node.URL
	}
	return workers, nil
}

// get reads path from node. A non-empty address is sent as the wa cookie the
// pool uses to select a miner.
func (c *HTTPNodeClient) get(ctx context.Context, node model.PoolNode, path, address string) ([]byte, string, error) {
	endpoint := strings.TrimRight(node.URL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, endpoint, fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if address != "" {
		req.AddCookie(&http.Cookie{Name: AddressCookie, Value: address})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, endpoint, fmt.Errorf("get %s: %w", endpoint, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, endpoint, fmt.Errorf("get %s: unexpected status %d", endpoint, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxStatsBodyBytes))
	if err != nil {
		return nil, endpoint, fmt.Errorf("read %s: %w", endpoint, err)
	}
	return body, endpoint, nil
}
