package evm

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
)

const erc20ReadABI = `[
	{
		"name": "balanceOf",
		"type": "function",
		"stateMutability": "view",
		"inputs": [{"name": "account", "type": "address"}],
		"outputs": [{"name": "", "type": "uint256"}]
	}
]`

const yieldManagerReadABI = `[
	{
		"name": "sharesOf",
		"type": "function",
		"stateMutability": "view",
		"inputs": [{"name": "asset", "type": "address"}],
		"outputs": [{"name": "", "type": "uint256"}]
	},
	{
		"name": "convertToAssets",
		"type": "function",
		"stateMutability": "view",
		"inputs": [
			{"name": "asset", "type": "address"},
			{"name": "shares", "type": "uint256"}
		],
		"outputs": [{"name": "", "type": "uint256"}]
	}
]`

const callTimeout = 10 * time.Second

// ContractReader performs the read-only contract calls the treasury
// aggregation depends on. All methods classify failures via Classify so
// callers never inspect provider error strings.
type ContractReader struct {
	client   *ethclient.Client
	erc20ABI abi.ABI
	yieldABI abi.ABI
}

// NewContractReader creates a reader bound to one chain's client.
func NewContractReader(client *ethclient.Client) (*ContractReader, error) {
	erc20, err := abi.JSON(strings.NewReader(erc20ReadABI))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse ERC20 ABI")
	}

	yield, err := abi.JSON(strings.NewReader(yieldManagerReadABI))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse yield manager ABI")
	}

	return &ContractReader{
		client:   client,
		erc20ABI: erc20,
		yieldABI: yield,
	}, nil
}

// BalanceOf reads an ERC20 balance of the holder.
func (r *ContractReader) BalanceOf(ctx context.Context, token, holder string) (*big.Int, error) {
	out, err := r.call(ctx, r.erc20ABI, token, "balanceOf", common.HexToAddress(holder))
	if err != nil {
		return nil, errors.Wrapf(err, "balanceOf %s for %s", token, holder)
	}
	return out, nil
}

// SharesOf reads the treasury's yield shares for an asset from the yield
// manager.
func (r *ContractReader) SharesOf(ctx context.Context, yieldManager, asset string) (*big.Int, error) {
	out, err := r.call(ctx, r.yieldABI, yieldManager, "sharesOf", common.HexToAddress(asset))
	if err != nil {
		return nil, errors.Wrapf(err, "sharesOf %s", asset)
	}
	return out, nil
}

// ConvertToAssets converts yield shares to underlying asset units at the
// current exchange rate.
func (r *ContractReader) ConvertToAssets(ctx context.Context, yieldManager, asset string, shares *big.Int) (*big.Int, error) {
	out, err := r.call(ctx, r.yieldABI, yieldManager, "convertToAssets", common.HexToAddress(asset), shares)
	if err != nil {
		return nil, errors.Wrapf(err, "convertToAssets %s", asset)
	}
	return out, nil
}

// call packs, executes and unpacks a single-uint256-output view call.
func (r *ContractReader) call(ctx context.Context, contractABI abi.ABI, contract, method string, args ...interface{}) (*big.Int, error) {
	input, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to pack %s call", method)
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	addr := common.HexToAddress(contract)
	raw, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: input}, nil)
	if err != nil {
		return nil, err
	}

	outputs, err := contractABI.Unpack(method, raw)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to unpack %s output", method)
	}
	if len(outputs) != 1 {
		return nil, errors.Errorf("unexpected output count %d from %s", len(outputs), method)
	}

	value, ok := outputs[0].(*big.Int)
	if !ok {
		return nil, errors.Errorf("unexpected output type from %s", method)
	}

	return value, nil
}
