package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const erc20ABI = `[
	{"constant":false,"inputs":[{"name":"_to","type":"address"},{"name":"_value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"_spender","type":"address"},{"name":"_value","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"}
]`

var parsedERC20ABI = mustParseABI(erc20ABI)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("bad embedded ABI: %v", err))
	}
	return parsed
}

// PackTransfer builds ERC20 transfer calldata.
func PackTransfer(to string, amount *big.Int) ([]byte, error) {
	data, err := parsedERC20ABI.Pack("transfer", common.HexToAddress(to), amount)
	if err != nil {
		return nil, fmt.Errorf("failed to pack transfer data: %w", err)
	}
	return data, nil
}

// PackApprove builds ERC20 approve calldata.
func PackApprove(spender string, amount *big.Int) ([]byte, error) {
	data, err := parsedERC20ABI.Pack("approve", common.HexToAddress(spender), amount)
	if err != nil {
		return nil, fmt.Errorf("failed to pack approve data: %w", err)
	}
	return data, nil
}

// PackBalanceOf builds ERC20 balanceOf calldata.
func PackBalanceOf(owner string) ([]byte, error) {
	data, err := parsedERC20ABI.Pack("balanceOf", common.HexToAddress(owner))
	if err != nil {
		return nil, fmt.Errorf("failed to pack balanceOf data: %w", err)
	}
	return data, nil
}
