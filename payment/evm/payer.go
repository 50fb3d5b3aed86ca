// Package evm pays over an EVM JSON-RPC endpoint whose node manages the
// sending account (eth_sendTransaction), then polls for the receipt.
package evm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/xraph/auditledger/id"
	"github.com/xraph/auditledger/payment"
)

// compile-time interface check
var _ payment.Payer = (*Payer)(nil)

// Payer implements payment.Payer against a JSON-RPC node.
type Payer struct {
	client       *rpc.Client
	pollInterval time.Duration
	timeout      time.Duration
	logger       *slog.Logger
}

// Option configures a Payer.
type Option func(*Payer)

// WithPollInterval sets how often the receipt is polled (default: 2s).
func WithPollInterval(d time.Duration) Option {
	return func(p *Payer) { p.pollInterval = d }
}

// WithConfirmTimeout bounds the wait for the transfer to be mined
// (default: 3m).
func WithConfirmTimeout(d time.Duration) Option {
	return func(p *Payer) { p.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Payer) { p.logger = l }
}

// New wraps an existing RPC client.
func New(c *rpc.Client, opts ...Option) *Payer {
	p := &Payer{
		client:       c,
		pollInterval: 2 * time.Second,
		timeout:      3 * time.Minute,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Dial connects to the node at url.
func Dial(ctx context.Context, url string, opts ...Option) (*Payer, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("auditledger/evm: dial %s: %w", url, err)
	}
	return New(c, opts...), nil
}

// Close releases the RPC connection.
func (p *Payer) Close() { p.client.Close() }

type sendArgs struct {
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	Value *hexutil.Big   `json:"value"`
}

type txReceipt struct {
	Status      hexutil.Uint64 `json:"status"`
	BlockNumber hexutil.Uint64 `json:"blockNumber"`
}

// Pay submits the transfer and blocks until it is mined, reverted, or the
// confirm timeout elapses.
func (p *Payer) Pay(ctx context.Context, t payment.Transfer) (*payment.Receipt, error) {
	if !common.IsHexAddress(t.From) || !common.IsHexAddress(t.To) {
		return nil, fmt.Errorf("%w: malformed address", payment.ErrRejected)
	}
	if t.Wei == nil || t.Wei.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", payment.ErrRejected)
	}

	args := sendArgs{
		From:  common.HexToAddress(t.From),
		To:    common.HexToAddress(t.To),
		Value: (*hexutil.Big)(t.Wei),
	}

	var hash common.Hash
	if err := p.client.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrRejected, err)
	}

	p.logger.Info("transfer sent, awaiting confirmation",
		"tx_hash", hash.Hex(),
		"to", args.To.Hex(),
		"wei", t.Wei.String(),
	)

	out := &payment.Receipt{
		ID:     id.NewTransferID(),
		TxHash: hash.Hex(),
		From:   args.From.Hex(),
		To:     args.To.Hex(),
		Wei:    t.Wei,
	}

	rcpt, err := p.waitMined(ctx, hash)
	if err != nil {
		return out, err
	}

	out.BlockNumber = uint64(rcpt.BlockNumber)
	out.ConfirmedAt = time.Now().UTC()
	return out, nil
}

func (p *Payer) waitMined(ctx context.Context, hash common.Hash) (*txReceipt, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		var rcpt *txReceipt
		if err := p.client.CallContext(ctx, &rcpt, "eth_getTransactionReceipt", hash); err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s: %v", payment.ErrUnconfirmed, hash.Hex(), ctx.Err())
			}
			p.logger.Warn("receipt poll failed", "tx_hash", hash.Hex(), "error", err)
		} else if rcpt != nil {
			if rcpt.Status == 0 {
				return nil, fmt.Errorf("%w: %s", payment.ErrReverted, hash.Hex())
			}
			return rcpt, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", payment.ErrUnconfirmed, hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}
