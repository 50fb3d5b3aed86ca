// Package payment defines the funds-transfer boundary. A transfer is
// confirmed once the signer accepted it and it was observed mined; no
// amount or recipient verification happens afterwards.
package payment

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/xraph/auditledger/id"
)

var (
	// ErrRejected is returned when the signer or node refuses the transfer.
	ErrRejected = errors.New("payment: transfer rejected")
	// ErrReverted is returned when the transfer was mined with failure status.
	ErrReverted = errors.New("payment: transfer reverted")
	// ErrUnconfirmed is returned when the transfer was not seen mined in time.
	ErrUnconfirmed = errors.New("payment: transfer not confirmed")
)

// Transfer asks for Wei of the native coin to move From the payer To the
// recipient.
type Transfer struct {
	From string
	To   string
	Wei  *big.Int
}

// Receipt describes a transfer the node accepted. ConfirmedAt is zero
// when the transfer reverted or was not seen mined in time.
type Receipt struct {
	ID          id.TransferID `json:"id"`
	TxHash      string        `json:"tx_hash"`
	From        string        `json:"from"`
	To          string        `json:"to"`
	Wei         *big.Int      `json:"wei"`
	BlockNumber uint64        `json:"block_number"`
	ConfirmedAt time.Time     `json:"confirmed_at"`
}

// Confirmed reports whether the transfer was observed mined with success.
func (r *Receipt) Confirmed() bool { return r != nil && !r.ConfirmedAt.IsZero() }

// Payer moves funds and waits for confirmation. When a sent transfer
// reverts or is not confirmed, Pay returns an unconfirmed receipt carrying
// the transaction hash together with the error.
type Payer interface {
	Pay(ctx context.Context, t Transfer) (*Receipt, error)
}

// PayerFunc adapts a function to Payer.
type PayerFunc func(ctx context.Context, t Transfer) (*Receipt, error)

// Pay implements Payer.
func (f PayerFunc) Pay(ctx context.Context, t Transfer) (*Receipt, error) { return f(ctx, t) }
