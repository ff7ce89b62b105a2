package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// settlementABI covers exactly the entrypoints the Client interface needs
// on the per-chain settlement contract. Amounts are uint256, addresses are
// the standard 20-byte EVM address type.
const settlementABI = `[
  {"type":"function","name":"escrowBalances","stateMutability":"view",
   "inputs":[{"name":"user","type":"address"},{"name":"token","type":"address"}],
   "outputs":[{"name":"total","type":"uint256"}]},
  {"type":"function","name":"lockedBalances","stateMutability":"view",
   "inputs":[{"name":"user","type":"address"},{"name":"token","type":"address"}],
   "outputs":[{"name":"locked","type":"uint256"}]},
  {"type":"function","name":"lockEscrowForOrder","stateMutability":"nonpayable",
   "inputs":[{"name":"user","type":"address"},{"name":"token","type":"address"},
             {"name":"amount","type":"uint256"},{"name":"orderId","type":"uint256"}],
   "outputs":[]},
  {"type":"function","name":"settleSameChainTrade","stateMutability":"nonpayable",
   "inputs":[{"name":"orderId","type":"uint256"},{"name":"seller","type":"address"},
             {"name":"buyer","type":"address"},{"name":"sellerReceiveWallet","type":"address"},
             {"name":"buyerReceiveWallet","type":"address"},{"name":"baseToken","type":"address"},
             {"name":"quoteToken","type":"address"},{"name":"baseAmount","type":"uint256"},
             {"name":"quoteAmount","type":"uint256"}],
   "outputs":[]},
  {"type":"function","name":"settleCrossChainTrade","stateMutability":"nonpayable",
   "inputs":[{"name":"orderId","type":"uint256"},{"name":"sender","type":"address"},
             {"name":"receiveWallet","type":"address"},{"name":"token","type":"address"},
             {"name":"amount","type":"uint256"},{"name":"isSourceChain","type":"bool"}],
   "outputs":[]},
  {"type":"function","name":"reportSettlementFailure","stateMutability":"nonpayable",
   "inputs":[{"name":"orderId","type":"uint256"},{"name":"chainId","type":"uint256"},
             {"name":"isSourceChain","type":"bool"},{"name":"reason","type":"string"}],
   "outputs":[]},
  {"type":"function","name":"emergencyRefundAsymmetricSettlement","stateMutability":"nonpayable",
   "inputs":[{"name":"orderId","type":"uint256"},{"name":"sender","type":"address"},
             {"name":"receiveWallet","type":"address"},{"name":"token","type":"address"},
             {"name":"amount","type":"uint256"}],
   "outputs":[]}
]`

// EVMClient is a real RPC-backed Client for one EVM chain: it dials the
// node, signs transactions with the operator key, and calls the settlement
// contract's lock/settle/refund entrypoints.
type EVMClient struct {
	chainID         string
	rpc             *ethclient.Client
	contractAddress common.Address
	operatorKey     *ecdsa.PrivateKey
	operatorAddr    common.Address
	abi             abi.ABI
	logger          *zap.Logger

	mu      sync.Mutex
	locks   map[uint64]bool
	settled map[uint64]bool
}

// DialEVM connects to rpcURL and loads the operator's signing key.
func DialEVM(ctx context.Context, chainID, rpcURL, contractAddress, operatorPrivateKeyHex string, logger *zap.Logger) (*EVMClient, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", chainID, err)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(operatorPrivateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("operator key for %s: %w", chainID, err)
	}
	parsedABI, err := abi.JSON(strings.NewReader(settlementABI))
	if err != nil {
		return nil, fmt.Errorf("parse settlement abi: %w", err)
	}
	return &EVMClient{
		chainID:         chainID,
		rpc:             client,
		contractAddress: common.HexToAddress(contractAddress),
		operatorKey:     key,
		operatorAddr:    crypto.PubkeyToAddress(key.PublicKey),
		abi:             parsedABI,
		logger:          logger,
		locks:           make(map[uint64]bool),
		settled:         make(map[uint64]bool),
	}, nil
}

func (c *EVMClient) ChainID() string { return c.chainID }

// send builds, signs, and broadcasts a transaction calling method with args,
// then polls for its receipt.
func (c *EVMClient) send(ctx context.Context, method string, args ...interface{}) (*types.Receipt, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	nonce, err := c.rpc.PendingNonceAt(ctx, c.operatorAddr)
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	gasPrice, err := c.rpc.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("gas price: %w", err)
	}
	tx := types.NewTransaction(nonce, c.contractAddress, big.NewInt(0), 300000, gasPrice, data)

	netID, err := c.rpc.NetworkID(ctx)
	if err != nil {
		return nil, fmt.Errorf("network id: %w", err)
	}
	signed, err := types.SignTx(tx, types.NewEIP155Signer(netID), c.operatorKey)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	if err := c.rpc.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}

	deadline := time.Now().Add(2 * time.Minute)
	for time.Now().Before(deadline) {
		receipt, err := c.rpc.TransactionReceipt(ctx, signed.Hash())
		if err == nil {
			return receipt, nil
		}
		time.Sleep(time.Second)
	}
	return nil, fmt.Errorf("timed out waiting for receipt of %s", signed.Hash())
}

func (c *EVMClient) EscrowOf(ctx context.Context, user, token string) (Balance, error) {
	callData, err := c.abi.Pack("escrowBalances", common.HexToAddress(user), common.HexToAddress(token))
	if err != nil {
		return Balance{}, err
	}
	var total big.Int
	if err := c.call(ctx, callData, "escrowBalances", &total); err != nil {
		return Balance{}, err
	}
	lockedData, err := c.abi.Pack("lockedBalances", common.HexToAddress(user), common.HexToAddress(token))
	if err != nil {
		return Balance{}, err
	}
	var locked big.Int
	if err := c.call(ctx, lockedData, "lockedBalances", &locked); err != nil {
		return Balance{}, err
	}
	t := decimal.NewFromBigInt(&total, 0)
	l := decimal.NewFromBigInt(&locked, 0)
	return Balance{Total: t, Locked: l, Available: t.Sub(l)}, nil
}

func (c *EVMClient) call(ctx context.Context, data []byte, method string, out interface{}) error {
	msg := ethereum.CallMsg{To: &c.contractAddress, Data: data}
	res, err := c.rpc.CallContract(ctx, msg, nil)
	if err != nil {
		return fmt.Errorf("call %s: %w", method, err)
	}
	return c.abi.UnpackIntoInterface(out, method, res)
}

func (c *EVMClient) Lock(ctx context.Context, orderID uint64, user, token string, amount decimal.Decimal) error {
	c.mu.Lock()
	if c.locks[orderID] {
		c.mu.Unlock()
		return ErrLockExists
	}
	c.mu.Unlock()

	_, err := c.send(ctx, "lockEscrowForOrder", common.HexToAddress(user), common.HexToAddress(token), amount.BigInt(), new(big.Int).SetUint64(orderID))
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.locks[orderID] = true
	c.mu.Unlock()
	return nil
}

func (c *EVMClient) SettleSameChain(ctx context.Context, trade SameChainTrade) error {
	c.mu.Lock()
	already := c.settled[trade.OrderID]
	c.mu.Unlock()
	if already {
		return nil
	}
	_, err := c.send(ctx, "settleSameChainTrade",
		new(big.Int).SetUint64(trade.OrderID),
		common.HexToAddress(trade.Seller.Account),
		common.HexToAddress(trade.Buyer.Account),
		common.HexToAddress(trade.Seller.ReceiveWallet),
		common.HexToAddress(trade.Buyer.ReceiveWallet),
		common.HexToAddress(trade.BaseToken),
		common.HexToAddress(trade.QuoteToken),
		trade.BaseAmount.BigInt(),
		trade.QuoteAmount.BigInt(),
	)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.settled[trade.OrderID] = true
	c.mu.Unlock()
	return nil
}

func (c *EVMClient) SettleCrossLeg(ctx context.Context, trade CrossLegTrade) error {
	c.mu.Lock()
	already := c.settled[trade.OrderID]
	c.mu.Unlock()
	if already {
		return nil
	}
	_, err := c.send(ctx, "settleCrossChainTrade",
		new(big.Int).SetUint64(trade.OrderID),
		common.HexToAddress(trade.Sender.Account),
		common.HexToAddress(trade.ReceiveWallet),
		common.HexToAddress(trade.Token),
		trade.Amount.BigInt(),
		trade.IsSource,
	)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.settled[trade.OrderID] = true
	c.mu.Unlock()
	c.logger.Info("settled cross-chain leg", zap.String("chain", c.chainID), zap.Uint64("order_id", trade.OrderID))
	return nil
}

func (c *EVMClient) ReportFailure(ctx context.Context, orderID uint64, isSourceChain bool, reason string) error {
	netID, err := c.rpc.NetworkID(ctx)
	if err != nil {
		return err
	}
	_, err = c.send(ctx, "reportSettlementFailure", new(big.Int).SetUint64(orderID), netID, isSourceChain, reason)
	return err
}

func (c *EVMClient) EmergencyRefund(ctx context.Context, orderID uint64, trade CrossLegTrade) error {
	c.mu.Lock()
	settled := c.settled[orderID]
	c.mu.Unlock()
	if !settled {
		return nil
	}
	_, err := c.send(ctx, "emergencyRefundAsymmetricSettlement",
		new(big.Int).SetUint64(orderID),
		common.HexToAddress(trade.Sender.Account),
		common.HexToAddress(trade.ReceiveWallet),
		common.HexToAddress(trade.Token),
		trade.Amount.BigInt(),
	)
	if err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.settled, orderID)
	c.mu.Unlock()
	return nil
}

func (c *EVMClient) Settled(orderID uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settled[orderID]
}
