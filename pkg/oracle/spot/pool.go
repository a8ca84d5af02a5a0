package spot

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

// Uniswap V2 pair ABI (only getReserves).
const pairABIJSON = `[{
	"constant": true,
	"inputs": [],
	"name": "getReserves",
	"outputs": [
		{"internalType": "uint112", "name": "reserve0", "type": "uint112"},
		{"internalType": "uint112", "name": "reserve1", "type": "uint112"},
		{"internalType": "uint32", "name": "blockTimestampLast", "type": "uint32"}
	],
	"payable": false,
	"stateMutability": "view",
	"type": "function"
}]`

// PoolConfig configures a constant-product pool source.
type PoolConfig struct {
	Name           string
	RPCURL         string
	PairAddress    string
	Token0Decimals int
	Token1Decimals int
	// Invert quotes token1 in token0 terms instead of the default
	// token0-in-token1 quote.
	Invert bool
}

// PoolSource reads the instantaneous price from a Uniswap V2 style pair
// contract. It takes no write access to the pool.
type PoolSource struct {
	name    string
	rpcURL  string
	address common.Address
	dec0    int
	dec1    int
	invert  bool
	client  *ethclient.Client
	pairABI abi.ABI
}

// Ensure PoolSource implements Source interface.
var _ Source = (*PoolSource)(nil)

// NewPoolSource creates a pool spot source for the given pair contract.
func NewPoolSource(cfg PoolConfig) (*PoolSource, error) {
	pairABI, err := abi.JSON(strings.NewReader(pairABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pair ABI: %w", err)
	}

	name := cfg.Name
	if name == "" {
		name = "pool"
	}

	return &PoolSource{
		name:    name,
		rpcURL:  cfg.RPCURL,
		address: common.HexToAddress(cfg.PairAddress),
		dec0:    cfg.Token0Decimals,
		dec1:    cfg.Token1Decimals,
		invert:  cfg.Invert,
		pairABI: pairABI,
	}, nil
}

// Initialize connects to the EVM RPC endpoint.
func (s *PoolSource) Initialize(ctx context.Context) error {
	client, err := ethclient.DialContext(ctx, s.rpcURL)
	if err != nil {
		return fmt.Errorf("failed to connect to RPC: %w", err)
	}
	s.client = client
	return nil
}

// Close releases the underlying RPC connection.
func (s *PoolSource) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

// Name returns the source identifier.
func (s *PoolSource) Name() string {
	return s.name
}

// SpotPrice reads the pair reserves and returns the decimal-adjusted
// instantaneous price.
func (s *PoolSource) SpotPrice(ctx context.Context) (decimal.Decimal, error) {
	if s.client == nil {
		return decimal.Zero, ErrClientNotInitialized
	}

	reserve0, reserve1, err := s.getReserves(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	if reserve0.Sign() == 0 || reserve1.Sign() == 0 {
		return decimal.Zero, ErrZeroLiquidity
	}

	// Price = (reserve1 / 10^dec1) / (reserve0 / 10^dec0).
	amount0 := decimal.NewFromBigInt(reserve0, -int32(s.dec0)) // #nosec G115 -- decimals validated at config load
	amount1 := decimal.NewFromBigInt(reserve1, -int32(s.dec1)) // #nosec G115

	if s.invert {
		return amount0.Div(amount1), nil
	}
	return amount1.Div(amount0), nil
}

// getReserves calls getReserves() on the pair contract.
func (s *PoolSource) getReserves(ctx context.Context) (*big.Int, *big.Int, error) {
	data, err := s.pairABI.Pack("getReserves")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to pack getReserves call: %w", err)
	}

	result, err := s.client.CallContract(ctx, ethereum.CallMsg{
		To:   &s.address,
		Data: data,
	}, nil) // nil = latest block
	if err != nil {
		return nil, nil, fmt.Errorf("failed to call getReserves: %w", err)
	}

	var reserves struct {
		Reserve0           *big.Int
		Reserve1           *big.Int
		BlockTimestampLast uint32
	}
	if err := s.pairABI.UnpackIntoInterface(&reserves, "getReserves", result); err != nil {
		return nil, nil, fmt.Errorf("failed to unpack getReserves result: %w", err)
	}

	return reserves.Reserve0, reserves.Reserve1, nil
}
