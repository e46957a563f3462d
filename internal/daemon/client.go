// Package daemon fetches block templates from a CryptoNote daemon over JSON-RPC.
package daemon

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goodnatureofminers/pool-coordinator/internal/jsonx"
	"github.com/goodnatureofminers/pool-coordinator/internal/model"
)

const (
	DefaultReserveSize = 17

	methodGetBlockTemplate = "get_block_template"
	maxResponseBytes       = 16 << 20
)

// ErrRPC is wrapped by errors returned from the daemon itself.
var ErrRPC = errors.New("daemon rpc error")

type (
	// RPCMetrics records metrics for RPC calls.
	RPCMetrics interface {
		Observe(operation string, err error, started time.Time)
	}
)

// Client issues get_block_template calls for one wallet address.
type Client struct {
	endpoint    string
	wallet      string
	reserveSize uint64
	httpClient  *http.Client
	metrics     RPCMetrics
	now         func() time.Time
}

// NewClient validates rawURL and returns a Client posting to its /json_rpc endpoint.
func NewClient(rawURL, wallet string, reserveSize uint64, timeout time.Duration, metrics RPCMetrics) (*Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse daemon url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("daemon url scheme %q not supported, use http or https", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.New("daemon url missing host")
	}
	if wallet == "" {
		return nil, errors.New("pool wallet address is required")
	}
	if metrics == nil {
		return nil, errors.New("daemon rpc metrics is required")
	}
	if parsed.Path == "" || parsed.Path == "/" {
		parsed.Path = "/json_rpc"
	}

	return &Client{
		endpoint:    parsed.String(),
		wallet:      wallet,
		reserveSize: reserveSize,
		httpClient:  &http.Client{Timeout: timeout},
		metrics:     metrics,
		now:         time.Now,
	}, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse[T any] struct {
	Result *T        `json:"result"`
	Error  *rpcError `json:"error"`
}

type blockTemplateParams struct {
	WalletAddress string `json:"wallet_address"`
	ReserveSize   uint64 `json:"reserve_size"`
}

type blockTemplateResult struct {
	BlockTemplateBlob string `json:"blocktemplate_blob"`
	BlockHashingBlob  string `json:"blockhashing_blob"`
	Difficulty        uint64 `json:"difficulty"`
	Height            uint64 `json:"height"`
	PrevHash          string `json:"prev_hash"`
	ReservedOffset    uint32 `json:"reserved_offset"`
	SeedHash          string `json:"seed_hash"`
	NextSeedHash      string `json:"next_seed_hash"`
	Status            string `json:"status"`
}

// Fetch requests a fresh block template paying to the pool wallet.
func (c *Client) Fetch(ctx context.Context) (tpl *model.BlockTemplate, err error) {
	started := time.Now()
	defer func() {
		c.metrics.Observe(methodGetBlockTemplate, err, started)
	}()

	params := blockTemplateParams{WalletAddress: c.wallet, ReserveSize: c.reserveSize}
	res, err := call[blockTemplateResult](ctx, c, methodGetBlockTemplate, params)
	if err != nil {
		return nil, err
	}
	if res.Status != "OK" {
		return nil, fmt.Errorf("%w: %s status %q", ErrRPC, methodGetBlockTemplate, res.Status)
	}

	hashingBlob, err := hex.DecodeString(res.BlockHashingBlob)
	if err != nil {
		return nil, fmt.Errorf("decode hashing blob: %w", err)
	}
	blockBlob, err := hex.DecodeString(res.BlockTemplateBlob)
	if err != nil {
		return nil, fmt.Errorf("decode block blob: %w", err)
	}

	return &model.BlockTemplate{
		Height:         res.Height,
		Difficulty:     res.Difficulty,
		SeedHash:       res.SeedHash,
		NextSeedHash:   res.NextSeedHash,
		PrevHash:       res.PrevHash,
		HashingBlob:    hashingBlob,
		BlockBlob:      blockBlob,
		ReservedOffset: res.ReservedOffset,
		TxCount:        TxCount(hashingBlob),
		FetchedAt:      c.now(),
	}, nil
}

func call[T any](ctx context.Context, c *Client, method string, params any) (*T, error) {
	body, err := jsonx.Marshal(rpcRequest{JSONRPC: "2.0", ID: "0", Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", method, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s http status %d: %s", ErrRPC, method, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var envelope rpcResponse[T]
	if err := jsonx.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", method, err)
	}
	if envelope.Error != nil {
		return nil, fmt.Errorf("%w: %s: code %d: %s", ErrRPC, method, envelope.Error.Code, envelope.Error.Message)
	}
	if envelope.Result == nil {
		return nil, fmt.Errorf("%w: %s: empty result", ErrRPC, method)
	}
	return envelope.Result, nil
}
