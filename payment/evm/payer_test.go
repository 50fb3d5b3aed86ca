package evm

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/auditledger/payment"
)

const (
	fromAddr = "0x000000000000000000000000000000000000dEaD"
	toAddr   = "0x51EA5875D6b7E3B517ddA9fbC1B4FE61d566BF98"
	txHash   = "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// fakeNode answers eth_sendTransaction with txHash and returns a null
// receipt for the first pending polls, then receipt (or sendErr).
func fakeNode(t *testing.T, pending int32, receipt string, sendErr string) *httptest.Server {
	t.Helper()
	var polls atomic.Int32

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")

		var result string
		switch req.Method {
		case "eth_sendTransaction":
			if sendErr != "" {
				_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"error":{"code":4001,"message":"` + sendErr + `"}}`))
				return
			}
			result = `"` + txHash + `"`
		case "eth_getTransactionReceipt":
			if polls.Add(1) <= pending {
				result = "null"
			} else {
				result = receipt
			}
		default:
			t.Errorf("unexpected method %s", req.Method)
		}
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"result":` + result + `}`))
	}))
}

func dial(t *testing.T, url string, opts ...Option) *Payer {
	t.Helper()
	opts = append([]Option{WithPollInterval(10 * time.Millisecond)}, opts...)
	p, err := Dial(context.Background(), url, opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(p.Close)
	return p
}

func transfer() payment.Transfer {
	return payment.Transfer{From: fromAddr, To: toAddr, Wei: big.NewInt(1_250_000_000_000_000_000)}
}

func TestPayConfirmed(t *testing.T) {
	srv := fakeNode(t, 2, `{"status":"0x1","blockNumber":"0x2a"}`, "")
	defer srv.Close()

	rcpt, err := dial(t, srv.URL).Pay(context.Background(), transfer())
	if err != nil {
		t.Fatalf("Pay: %v", err)
	}
	if rcpt.TxHash != txHash {
		t.Errorf("TxHash = %s", rcpt.TxHash)
	}
	if rcpt.BlockNumber != 42 {
		t.Errorf("BlockNumber = %d, want 42", rcpt.BlockNumber)
	}
	if rcpt.To != toAddr {
		t.Errorf("To = %s, want %s", rcpt.To, toAddr)
	}
	if rcpt.ID.IsNil() {
		t.Error("receipt should carry a transfer ID")
	}
	if !rcpt.Confirmed() {
		t.Error("receipt should be confirmed")
	}
}

func TestPayReverted(t *testing.T) {
	srv := fakeNode(t, 0, `{"status":"0x0","blockNumber":"0x2a"}`, "")
	defer srv.Close()

	rcpt, err := dial(t, srv.URL).Pay(context.Background(), transfer())
	if !errors.Is(err, payment.ErrReverted) {
		t.Errorf("got %v, want ErrReverted", err)
	}
	if rcpt == nil || rcpt.TxHash != txHash || rcpt.Confirmed() {
		t.Errorf("want unconfirmed receipt for %s, got %+v", txHash, rcpt)
	}
}

func TestPayRejected(t *testing.T) {
	srv := fakeNode(t, 0, "", "User denied transaction signature")
	defer srv.Close()

	rcpt, err := dial(t, srv.URL).Pay(context.Background(), transfer())
	if !errors.Is(err, payment.ErrRejected) {
		t.Errorf("got %v, want ErrRejected", err)
	}
	if rcpt != nil {
		t.Errorf("rejected transfer should have no receipt, got %+v", rcpt)
	}
}

func TestPayUnconfirmed(t *testing.T) {
	srv := fakeNode(t, 1<<20, "", "")
	defer srv.Close()

	rcpt, err := dial(t, srv.URL, WithConfirmTimeout(60*time.Millisecond)).Pay(context.Background(), transfer())
	if !errors.Is(err, payment.ErrUnconfirmed) {
		t.Errorf("got %v, want ErrUnconfirmed", err)
	}
	if rcpt == nil || rcpt.TxHash != txHash || rcpt.Confirmed() {
		t.Errorf("want unconfirmed receipt for %s, got %+v", txHash, rcpt)
	}
}

func TestPayRejectsBadInput(t *testing.T) {
	p := New(nil)
	bad := []payment.Transfer{
		{From: fromAddr, To: "0x1234", Wei: big.NewInt(1)},
		{From: "nope", To: toAddr, Wei: big.NewInt(1)},
		{From: fromAddr, To: toAddr, Wei: big.NewInt(0)},
		{From: fromAddr, To: toAddr},
	}
	for _, tr := range bad {
		if _, err := p.Pay(context.Background(), tr); !errors.Is(err, payment.ErrRejected) {
			t.Errorf("%+v: got %v, want ErrRejected", tr, err)
		}
	}
}
