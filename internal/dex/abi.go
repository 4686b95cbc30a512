package dex

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Canonical signatures used to match decoded items.
const (
	AaveV2FlashLoanSig   = "FlashLoan(address,address,address,uint256,uint256,uint16)"
	BalancerFlashLoanSig = "FlashLoan(address,address,uint256,uint256)"
	DODOFlashLoanSig     = "DODOFlashLoan(address,address,uint256,uint256)"
	V3PoolFlashEventSig  = "Flash(address,address,uint256,uint256,uint256,uint256)"
	V3PoolFlashCallSig   = "flash(address,uint256,uint256,bytes)"
	V3PoolSwapCallSig    = "swap(address,bool,int256,uint160,bytes)"
)

// Zero-argument accessors returning a token address.
const (
	AccessorToken0     = "token0"
	AccessorToken1     = "token1"
	AccessorBaseToken  = "_BASE_TOKEN_"
	AccessorQuoteToken = "_QUOTE_TOKEN_"
)

const aaveV2PoolABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "target", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "initiator", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "asset", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "premium", "type": "uint256"},
      {"indexed": false, "internalType": "uint16", "name": "referralCode", "type": "uint16"}
    ],
    "name": "FlashLoan",
    "type": "event"
  }
]`

const balancerVaultABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "contract IFlashLoanRecipient", "name": "recipient", "type": "address"},
      {"indexed": true, "internalType": "contract IERC20", "name": "token", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "feeAmount", "type": "uint256"}
    ],
    "name": "FlashLoan",
    "type": "event"
  }
]`

const dodoPoolABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "address", "name": "borrower", "type": "address"},
      {"indexed": false, "internalType": "address", "name": "assetTo", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "baseAmount", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "quoteAmount", "type": "uint256"}
    ],
    "name": "DODOFlashLoan",
    "type": "event"
  }
]`

const v3PoolABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "sender", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "recipient", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount0", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "amount1", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "paid0", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "paid1", "type": "uint256"}
    ],
    "name": "Flash",
    "type": "event"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "recipient", "type": "address"},
      {"internalType": "uint256", "name": "amount0", "type": "uint256"},
      {"internalType": "uint256", "name": "amount1", "type": "uint256"},
      {"internalType": "bytes", "name": "data", "type": "bytes"}
    ],
    "name": "flash",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "recipient", "type": "address"},
      {"internalType": "bool", "name": "zeroForOne", "type": "bool"},
      {"internalType": "int256", "name": "amountSpecified", "type": "int256"},
      {"internalType": "uint160", "name": "sqrtPriceLimitX96", "type": "uint160"},
      {"internalType": "bytes", "name": "data", "type": "bytes"}
    ],
    "name": "swap",
    "outputs": [
      {"internalType": "int256", "name": "amount0", "type": "int256"},
      {"internalType": "int256", "name": "amount1", "type": "int256"}
    ],
    "stateMutability": "nonpayable",
    "type": "function"
  }
]`

const accessorABIJSON = `[
  {"inputs": [], "name": "token0", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "token1", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "_BASE_TOKEN_", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "_QUOTE_TOKEN_", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "stateMutability": "view", "type": "function"}
]`

type lazyABI struct {
	json   string
	once   sync.Once
	parsed abi.ABI
	err    error
}

func (l *lazyABI) get() (abi.ABI, error) {
	l.once.Do(func() {
		l.parsed, l.err = abi.JSON(strings.NewReader(l.json))
	})
	return l.parsed, l.err
}

var (
	aaveV2PoolABI    = &lazyABI{json: aaveV2PoolABIJSON}
	balancerVaultABI = &lazyABI{json: balancerVaultABIJSON}
	dodoPoolABI      = &lazyABI{json: dodoPoolABIJSON}
	v3PoolABI        = &lazyABI{json: v3PoolABIJSON}
	accessorABI      = &lazyABI{json: accessorABIJSON}
)

// AaveV2PoolABI returns the parsed lending pool ABI.
func AaveV2PoolABI() (abi.ABI, error) { return aaveV2PoolABI.get() }

// BalancerVaultABI returns the parsed vault ABI.
func BalancerVaultABI() (abi.ABI, error) { return balancerVaultABI.get() }

// DODOPoolABI returns the parsed DODO pool ABI.
func DODOPoolABI() (abi.ABI, error) { return dodoPoolABI.get() }

// V3PoolABI returns the parsed V3 pool ABI.
func V3PoolABI() (abi.ABI, error) { return v3PoolABI.get() }

// AccessorABI returns the ABI of the token accessors used for auxiliary reads.
func AccessorABI() (abi.ABI, error) { return accessorABI.get() }
