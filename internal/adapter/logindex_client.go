package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/time/rate"
)

// IndexedLog is a raw log returned by the log-indexing service.
type IndexedLog struct {
	Address         string   `json:"address"`
	Topics          []string `json:"topics"`
	Data            string   `json:"data"`
	BlockNumber     string   `json:"blockNumber"`
	TransactionHash string   `json:"transactionHash"`
}

// logIndexResponse is the envelope of the log-index API. Result is raw
// because the API returns a string message instead of an array on errors.
type logIndexResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// LogIndexClient queries an Etherscan-style log-indexing HTTP API for
// historical contract events. Used by the reconciler, which cannot afford
// scanning block ranges over raw RPC.
type LogIndexClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

// NewLogIndexClient creates a log-index client.
func NewLogIndexClient(baseURL, apiKey string, requestsPerSecond int) *LogIndexClient {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 3
	}
	return &LogIndexClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}
}

// FilterLogs queries logs emitted by contract with the given topic0 and
// topic1 between fromBlock and the latest block.
func (c *LogIndexClient) FilterLogs(ctx context.Context, contract common.Address, topic0, topic1 common.Hash, fromBlock uint64) ([]IndexedLog, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("module", "logs")
	params.Set("action", "getLogs")
	params.Set("address", strings.ToLower(contract.Hex()))
	params.Set("topic0", topic0.Hex())
	params.Set("topic0_1_opr", "and")
	params.Set("topic1", topic1.Hex())
	params.Set("fromBlock", strconv.FormatUint(fromBlock, 10))
	params.Set("toBlock", "latest")
	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build log-index request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("log-index request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read log-index response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("log-index returned status %d", resp.StatusCode)
	}

	var envelope logIndexResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode log-index response: %w", err)
	}

	// "No records found" comes back as status 0 with an empty result.
	if envelope.Status != "1" {
		if strings.Contains(envelope.Message, "No records") {
			return nil, nil
		}
		return nil, fmt.Errorf("log-index error: %s", envelope.Message)
	}

	var logs []IndexedLog
	if err := json.Unmarshal(envelope.Result, &logs); err != nil {
		return nil, fmt.Errorf("failed to decode log-index result: %w", err)
	}

	return logs, nil
}

// Decode converts the raw indexed log into a typed RewardClaimed event.
func (l *IndexedLog) Decode() (*RewardClaimedEvent, error) {
	topics := make([]common.Hash, 0, len(l.Topics))
	for _, t := range l.Topics {
		topics = append(topics, common.HexToHash(t))
	}
	return DecodeRewardClaimed(topics, common.FromHex(l.Data), l.TransactionHash)
}

// BlockNumberUint parses the hex or decimal block number of the log.
func (l *IndexedLog) BlockNumberUint() (uint64, error) {
	s := l.BlockNumber
	if strings.HasPrefix(s, "0x") {
		n, ok := new(big.Int).SetString(s[2:], 16)
		if !ok {
			return 0, fmt.Errorf("invalid block number %q", s)
		}
		return n.Uint64(), nil
	}
	return strconv.ParseUint(s, 10, 64)
}
