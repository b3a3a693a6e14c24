// Package adapter provides clients for the external services the giveaway
// core depends on: the blockchain RPC, the log-indexing service and the
// social-graph service.
package adapter

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/time/rate"

	"github.com/AyuTriphasari/baget/internal/types"
)

// giveawayContractABI is the read/event surface of the giveaway contract
// used by this service. The write path (claim) is submitted by clients, not
// by this core.
const giveawayContractABI = `[
	{"inputs":[{"internalType":"uint256","name":"giveawayId","type":"uint256"}],"name":"giveaways","outputs":[
		{"internalType":"address","name":"creator","type":"address"},
		{"internalType":"address","name":"token","type":"address"},
		{"internalType":"uint256","name":"rewardPerClaim","type":"uint256"},
		{"internalType":"uint256","name":"maxClaims","type":"uint256"},
		{"internalType":"uint256","name":"claimedCount","type":"uint256"},
		{"internalType":"uint256","name":"expiresAt","type":"uint256"},
		{"internalType":"bool","name":"isActive","type":"bool"}],
		"stateMutability":"view","type":"function"},
	{"anonymous":false,"inputs":[
		{"indexed":true,"internalType":"uint256","name":"giveawayId","type":"uint256"},
		{"indexed":true,"internalType":"uint256","name":"fid","type":"uint256"},
		{"indexed":true,"internalType":"address","name":"claimer","type":"address"},
		{"indexed":false,"internalType":"uint256","name":"amount","type":"uint256"}],
		"name":"RewardClaimed","type":"event"}
]`

// RewardClaimedSignature is the canonical event signature string.
const RewardClaimedSignature = "RewardClaimed(uint256,uint256,address,uint256)"

// RewardClaimedTopic is topic0 for the claim event.
var RewardClaimedTopic = crypto.Keccak256Hash([]byte(RewardClaimedSignature))

// RewardClaimedEvent is a decoded claim event.
type RewardClaimedEvent struct {
	GiveawayID *big.Int
	FID        uint64
	Claimer    common.Address
	Amount     *big.Int
	TxHash     string
}

// ChainClient wraps the Ethereum RPC client for the two reads this service
// performs: the giveaway status call and transaction receipts. All calls go
// through a shared limiter since the RPC endpoint is rate-limited.
type ChainClient struct {
	client   *ethclient.Client
	contract common.Address
	abi      abi.ABI
	limiter  *rate.Limiter
}

// NewChainClient connects to the RPC endpoint and prepares the contract ABI.
func NewChainClient(rpcURL, contractAddress string, rpcRateLimit int) (*ChainClient, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}

	if !types.IsValidAddress(contractAddress) {
		return nil, fmt.Errorf("invalid contract address: %s", contractAddress)
	}

	parsed, err := abi.JSON(strings.NewReader(giveawayContractABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract ABI: %w", err)
	}

	if rpcRateLimit <= 0 {
		rpcRateLimit = 10
	}

	return &ChainClient{
		client:   client,
		contract: common.HexToAddress(contractAddress),
		abi:      parsed,
		limiter:  rate.NewLimiter(rate.Limit(rpcRateLimit), rpcRateLimit),
	}, nil
}

// ContractAddress returns the configured giveaway contract address.
func (c *ChainClient) ContractAddress() common.Address {
	return c.contract
}

// GiveawayStatus reads {isActive, claimedCount} for a giveaway from the
// contract.
func (c *ChainClient) GiveawayStatus(ctx context.Context, giveawayID *big.Int) (*types.GiveawayStatus, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	data, err := c.abi.Pack("giveaways", giveawayID)
	if err != nil {
		return nil, fmt.Errorf("failed to pack giveaways call: %w", err)
	}

	raw, err := c.client.CallContract(ctx, ethereum.CallMsg{
		To:   &c.contract,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("giveaways call failed: %w", err)
	}

	outputs, err := c.abi.Unpack("giveaways", raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode giveaways result: %w", err)
	}
	if len(outputs) != 7 {
		return nil, fmt.Errorf("unexpected giveaways result arity: %d", len(outputs))
	}

	claimedCount, ok := outputs[4].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected claimedCount type %T", outputs[4])
	}
	isActive, ok := outputs[6].(bool)
	if !ok {
		return nil, fmt.Errorf("unexpected isActive type %T", outputs[6])
	}

	return &types.GiveawayStatus{
		IsActive:     isActive,
		ClaimedCount: claimedCount.Uint64(),
	}, nil
}

// TransactionReceipt fetches a transaction receipt by hash.
func (c *ChainClient) TransactionReceipt(ctx context.Context, txHash string) (*ethtypes.Receipt, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	receipt, err := c.client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch receipt %s: %w", txHash, err)
	}
	return receipt, nil
}

// Close releases the underlying RPC connection.
func (c *ChainClient) Close() {
	c.client.Close()
}

// DecodeRewardClaimed decodes a RewardClaimed log. The giveaway id, fid and
// claimer are indexed topics; the amount is the single data word.
func DecodeRewardClaimed(topics []common.Hash, data []byte, txHash string) (*RewardClaimedEvent, error) {
	if len(topics) != 4 {
		return nil, fmt.Errorf("expected 4 topics, got %d", len(topics))
	}
	if topics[0] != RewardClaimedTopic {
		return nil, fmt.Errorf("not a RewardClaimed log")
	}
	if len(data) < 32 {
		return nil, fmt.Errorf("event data too short: %d bytes", len(data))
	}

	fid := new(big.Int).SetBytes(topics[2].Bytes())
	if !fid.IsUint64() {
		return nil, fmt.Errorf("fid out of range")
	}

	return &RewardClaimedEvent{
		GiveawayID: new(big.Int).SetBytes(topics[1].Bytes()),
		FID:        fid.Uint64(),
		Claimer:    common.BytesToAddress(topics[3].Bytes()),
		Amount:     new(big.Int).SetBytes(data[:32]),
		TxHash:     txHash,
	}, nil
}

// GiveawayIDTopic left-pads the on-chain giveaway id to the 32-byte topic
// form used in log filters.
func GiveawayIDTopic(giveawayID *big.Int) common.Hash {
	return common.BigToHash(giveawayID)
}
