package feed

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// AggregatorV3 ABI (only the functions the validator needs).
const aggregatorABIJSON = `[{
	"constant": true,
	"inputs": [],
	"name": "latestRoundData",
	"outputs": [
		{"internalType": "uint80", "name": "roundId", "type": "uint80"},
		{"internalType": "int256", "name": "answer", "type": "int256"},
		{"internalType": "uint256", "name": "startedAt", "type": "uint256"},
		{"internalType": "uint256", "name": "updatedAt", "type": "uint256"},
		{"internalType": "uint80", "name": "answeredInRound", "type": "uint80"}
	],
	"payable": false,
	"stateMutability": "view",
	"type": "function"
}, {
	"constant": true,
	"inputs": [],
	"name": "decimals",
	"outputs": [{"internalType": "uint8", "name": "", "type": "uint8"}],
	"payable": false,
	"stateMutability": "view",
	"type": "function"
}]`

// ChainlinkFeed reads rounds from a Chainlink-compatible AggregatorV3 contract.
type ChainlinkFeed struct {
	name     string
	rpcURL   string
	address  common.Address
	client   *ethclient.Client
	feedABI  abi.ABI
	decimals uint8
}

// Ensure ChainlinkFeed implements Feed interface.
var _ Feed = (*ChainlinkFeed)(nil)

// NewChainlinkFeed creates a feed client for the aggregator contract at address.
func NewChainlinkFeed(name, rpcURL, address string) (*ChainlinkFeed, error) {
	feedABI, err := abi.JSON(strings.NewReader(aggregatorABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse aggregator ABI: %w", err)
	}

	return &ChainlinkFeed{
		name:    name,
		rpcURL:  rpcURL,
		address: common.HexToAddress(address),
		feedABI: feedABI,
	}, nil
}

// Initialize connects to the EVM RPC endpoint and caches the feed's decimals.
// The decimal scale of an aggregator never changes, so one read at startup is
// enough.
func (f *ChainlinkFeed) Initialize(ctx context.Context) error {
	client, err := ethclient.DialContext(ctx, f.rpcURL)
	if err != nil {
		return fmt.Errorf("failed to connect to RPC: %w", err)
	}
	f.client = client

	data, err := f.feedABI.Pack("decimals")
	if err != nil {
		return fmt.Errorf("failed to pack decimals call: %w", err)
	}

	result, err := f.client.CallContract(ctx, ethereum.CallMsg{
		To:   &f.address,
		Data: data,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to call decimals: %w", err)
	}

	var decimals uint8
	if err := f.feedABI.UnpackIntoInterface(&decimals, "decimals", result); err != nil {
		return fmt.Errorf("failed to unpack decimals result: %w", err)
	}

	f.decimals = decimals
	return nil
}

// Close releases the underlying RPC connection.
func (f *ChainlinkFeed) Close() {
	if f.client != nil {
		f.client.Close()
	}
}

// Name returns the feed identifier.
func (f *ChainlinkFeed) Name() string {
	return f.name
}

// Decimals returns the feed's decimal scale.
func (f *ChainlinkFeed) Decimals() uint8 {
	return f.decimals
}

// LatestRoundData calls latestRoundData() on the aggregator contract.
func (f *ChainlinkFeed) LatestRoundData(ctx context.Context) (RoundData, error) {
	if f.client == nil {
		return RoundData{}, fmt.Errorf("%w: client not initialized", ErrFeedCall)
	}

	data, err := f.feedABI.Pack("latestRoundData")
	if err != nil {
		return RoundData{}, fmt.Errorf("failed to pack latestRoundData call: %w", err)
	}

	result, err := f.client.CallContract(ctx, ethereum.CallMsg{
		To:   &f.address,
		Data: data,
	}, nil) // nil = latest block
	if err != nil {
		return RoundData{}, fmt.Errorf("%w: %s", ErrFeedCall, err)
	}

	var round struct {
		RoundId         *big.Int
		Answer          *big.Int
		StartedAt       *big.Int
		UpdatedAt       *big.Int
		AnsweredInRound *big.Int
	}
	if err := f.feedABI.UnpackIntoInterface(&round, "latestRoundData", result); err != nil {
		return RoundData{}, fmt.Errorf("failed to unpack latestRoundData result: %w", err)
	}

	return RoundData{
		RoundID:         round.RoundId.Uint64(),
		Answer:          round.Answer,
		StartedAt:       unixOrZero(round.StartedAt),
		UpdatedAt:       unixOrZero(round.UpdatedAt),
		AnsweredInRound: round.AnsweredInRound.Uint64(),
	}, nil
}

// unixOrZero converts a unix timestamp to time.Time, keeping zero as the zero
// value so the validator can detect unfinalized rounds.
func unixOrZero(ts *big.Int) time.Time {
	if ts == nil || ts.Sign() == 0 {
		return time.Time{}
	}
	return time.Unix(ts.Int64(), 0)
}
