package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/AyuTriphasari/baget/internal/types"
)

// MaxFidsPerLookup is the bulk-lookup ceiling of the social-graph API.
const MaxFidsPerLookup = 100

// NeynarClient resolves FIDs to social profiles and their wallet addresses
// via the Neynar bulk user API.
type NeynarClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewNeynarClient creates a social-graph client.
func NewNeynarClient(baseURL, apiKey string) *NeynarClient {
	return &NeynarClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// neynarUser mirrors the bulk API response shape.
type neynarUser struct {
	FID               uint64 `json:"fid"`
	Username          string `json:"username"`
	PfpURL            string `json:"pfp_url"`
	CustodyAddress    string `json:"custody_address"`
	VerifiedAddresses struct {
		EthAddresses []string `json:"eth_addresses"`
	} `json:"verified_addresses"`
}

type neynarBulkResponse struct {
	Users []neynarUser `json:"users"`
}

// UsersBulk resolves up to MaxFidsPerLookup profiles in one call.
func (c *NeynarClient) UsersBulk(ctx context.Context, fids []uint64) ([]*types.Profile, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("social-graph API key not configured")
	}
	if len(fids) == 0 {
		return nil, nil
	}
	if len(fids) > MaxFidsPerLookup {
		return nil, fmt.Errorf("too many fids: %d (max %d)", len(fids), MaxFidsPerLookup)
	}

	parts := make([]string, len(fids))
	for i, fid := range fids {
		parts[i] = strconv.FormatUint(fid, 10)
	}

	body, _, err := c.get(ctx, "/v2/farcaster/user/bulk?fids="+strings.Join(parts, ","))
	if err != nil {
		return nil, err
	}

	var decoded neynarBulkResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode social-graph response: %w", err)
	}

	profiles := make([]*types.Profile, 0, len(decoded.Users))
	for _, u := range decoded.Users {
		profiles = append(profiles, &types.Profile{
			FID:               u.FID,
			Username:          u.Username,
			AvatarURL:         u.PfpURL,
			CustodyAddress:    u.CustodyAddress,
			VerifiedAddresses: u.VerifiedAddresses.EthAddresses,
		})
	}

	return profiles, nil
}

// User resolves a single profile, or nil when the FID is unknown.
func (c *NeynarClient) User(ctx context.Context, fid uint64) (*types.Profile, error) {
	profiles, err := c.UsersBulk(ctx, []uint64{fid})
	if err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, nil
	}
	return profiles[0], nil
}

// UsersBulkRaw fetches the bulk response body without decoding. Used by the
// user-lookup proxy endpoint, which passes the upstream payload through.
func (c *NeynarClient) UsersBulkRaw(ctx context.Context, fidsParam string) ([]byte, int, error) {
	if c.apiKey == "" {
		return nil, http.StatusInternalServerError, fmt.Errorf("social-graph API key not configured")
	}
	return c.get(ctx, "/v2/farcaster/user/bulk?fids="+url.QueryEscape(fidsParam))
}

func (c *NeynarClient) get(ctx context.Context, path string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build social-graph request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("api_key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("social-graph request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read social-graph response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return body, resp.StatusCode, fmt.Errorf("social-graph returned status %d", resp.StatusCode)
	}

	return body, resp.StatusCode, nil
}
