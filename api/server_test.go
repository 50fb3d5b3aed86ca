package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/auditledger"
	"github.com/xraph/auditledger/analysis"
	"github.com/xraph/auditledger/api"
	"github.com/xraph/auditledger/export"
	"github.com/xraph/auditledger/id"
	"github.com/xraph/auditledger/payment"
	"github.com/xraph/auditledger/rates"
	"github.com/xraph/auditledger/report"
	"github.com/xraph/auditledger/store/memory"
)

const (
	alice = "0x1111111111111111111111111111111111111111"
	bob   = "0x2222222222222222222222222222222222222222"
	admin = "0x9999999999999999999999999999999999999999"
)

func provider(_ context.Context, _ analysis.Request) (*analysis.Result, error) {
	return &analysis.Result{
		Grade:    "A",
		Summary:  "clean",
		Findings: []report.Finding{{Severity: report.SeverityLow, Title: "Style", Description: "d", Recommendation: "r"}},
	}, nil
}

func payer(_ context.Context, t payment.Transfer) (*payment.Receipt, error) {
	return &payment.Receipt{ID: id.NewTransferID(), TxHash: "0xabc", From: t.From, To: t.To, Wei: t.Wei, ConfirmedAt: time.Now()}, nil
}

func newServer(t *testing.T, opts ...auditledger.Option) *httptest.Server {
	t.Helper()
	base := []auditledger.Option{
		auditledger.WithAnalysisProvider(analysis.ProviderFunc(provider)),
		auditledger.WithPayer(payment.PayerFunc(payer)),
		auditledger.WithRateFeed(rates.Fixed(decimal.NewFromInt(500))),
		auditledger.WithRateRefreshInterval(0),
		auditledger.WithPlugin(export.JSONExporter{}),
		auditledger.WithPlugin(export.XLSXExporter{}),
	}
	l := auditledger.New(memory.New(), append(base, opts...)...)
	if err := l.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = l.Stop() })

	srv := api.New(l,
		api.WithAdmins(auditledger.NewAdminSet(admin)),
		api.WithAnalysisProxy(analysis.ProviderFunc(provider)),
	)
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, ts *httptest.Server, method, path, wallet string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if wallet != "" {
		req.Header.Set(api.WalletHeader, wallet)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func submit(t *testing.T, ts *httptest.Server, wallet string) *report.ServiceReport {
	t.Helper()
	resp := do(t, ts, http.MethodPost, "/reports", wallet, map[string]any{
		"service_type": "SMART_CONTRACT_AUDIT",
		"details":      map[string]string{"projectName": "Vault", "contractCode": "contract V {}"},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit status = %d", resp.StatusCode)
	}
	return decode[*report.ServiceReport](t, resp)
}

func TestSubmitRequiresWallet(t *testing.T) {
	ts := newServer(t)
	resp := do(t, ts, http.MethodPost, "/reports", "", map[string]any{"service_type": "SMART_CONTRACT_AUDIT"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	body := decode[map[string]string](t, resp)
	if body["stage"] != string(auditledger.StageValidating) {
		t.Errorf("body = %v", body)
	}
}

func TestSubmitMissingFields(t *testing.T) {
	ts := newServer(t)
	resp := do(t, ts, http.MethodPost, "/reports", alice, map[string]any{
		"service_type": "KYC_SINGLE",
		"details":      map[string]string{"projectName": "P"},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestInvalidWalletHeader(t *testing.T) {
	ts := newServer(t)
	resp := do(t, ts, http.MethodGet, "/me/reports", "not-an-address", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestReportLifecycle(t *testing.T) {
	ts := newServer(t)
	rep := submit(t, ts, alice)

	if n, ok := rep.Remaining(); !ok || n != 2 {
		t.Errorf("remaining = %d,%v", n, ok)
	}

	// Public search finds it.
	list := decode[[]*report.ServiceReport](t, do(t, ts, http.MethodGet, "/reports?q=vau", "", nil))
	if len(list) != 1 || list[0].ID.String() != rep.ID.String() {
		t.Fatalf("search = %v", list)
	}

	// Only the owner may hide it.
	if resp := do(t, ts, http.MethodPost, "/reports/"+rep.ID.String()+"/visibility", bob, nil); resp.StatusCode != http.StatusForbidden {
		t.Errorf("stranger toggle status = %d, want 403", resp.StatusCode)
	}
	resp := do(t, ts, http.MethodPost, "/reports/"+rep.ID.String()+"/visibility", alice, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("toggle status = %d", resp.StatusCode)
	}
	if decode[*report.ServiceReport](t, resp).IsPublic {
		t.Error("report still public")
	}

	// Hidden from strangers, visible to owner and admin.
	path := "/reports/" + rep.ID.String()
	if resp := do(t, ts, http.MethodGet, path, bob, nil); resp.StatusCode != http.StatusForbidden {
		t.Errorf("stranger get status = %d, want 403", resp.StatusCode)
	}
	if resp := do(t, ts, http.MethodGet, path, alice, nil); resp.StatusCode != http.StatusOK {
		t.Errorf("owner get status = %d", resp.StatusCode)
	}
	if resp := do(t, ts, http.MethodGet, path, admin, nil); resp.StatusCode != http.StatusOK {
		t.Errorf("admin get status = %d", resp.StatusCode)
	}
	if list := decode[[]*report.ServiceReport](t, do(t, ts, http.MethodGet, "/reports", "", nil)); len(list) != 0 {
		t.Errorf("private report listed publicly")
	}

	mine := decode[[]*report.ServiceReport](t, do(t, ts, http.MethodGet, "/me/reports", alice, nil))
	if len(mine) != 1 {
		t.Errorf("me/reports = %d, want 1", len(mine))
	}

	// Delete is admin only.
	if resp := do(t, ts, http.MethodDelete, path, alice, nil); resp.StatusCode != http.StatusForbidden {
		t.Errorf("owner delete status = %d, want 403", resp.StatusCode)
	}
	if resp := do(t, ts, http.MethodDelete, path, admin, nil); resp.StatusCode != http.StatusNoContent {
		t.Errorf("admin delete status = %d, want 204", resp.StatusCode)
	}
	if resp := do(t, ts, http.MethodGet, path, admin, nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestReauditOverHTTP(t *testing.T) {
	ts := newServer(t)
	root := submit(t, ts, alice)

	body := map[string]any{
		"service_type":    "SMART_CONTRACT_AUDIT",
		"details":         map[string]string{"projectName": "Vault", "contractCode": "contract V {}"},
		"parent_audit_id": root.ID.String(),
	}
	if resp := do(t, ts, http.MethodPost, "/reports", bob, body); resp.StatusCode != http.StatusForbidden {
		t.Errorf("stranger re-audit status = %d, want 403", resp.StatusCode)
	}
	if resp := do(t, ts, http.MethodPost, "/reports", alice, body); resp.StatusCode != http.StatusCreated {
		t.Errorf("re-audit status = %d", resp.StatusCode)
	}

	kids := decode[[]*report.ServiceReport](t, do(t, ts, http.MethodGet, "/reports/"+root.ID.String()+"/children", "", nil))
	if len(kids) != 1 {
		t.Errorf("children = %d, want 1", len(kids))
	}
}

func TestQuote(t *testing.T) {
	ts := newServer(t)

	resp := do(t, ts, http.MethodGet, "/quote?service=smart_contract_audit&referral=0xabcdefabcdefabcdefabcdefabcdefabcdefabcd", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	q := decode[auditledger.PriceQuote](t, resp)
	if q.Due != auditledger.Dollars(250) || !q.ReferralApplied {
		t.Errorf("quote = %+v", q)
	}
	if !q.Native.Valid || !q.Native.Decimal.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("native = %v", q.Native)
	}

	if resp := do(t, ts, http.MethodGet, "/quote?service=nope", "", nil); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown service status = %d, want 400", resp.StatusCode)
	}
}

func TestExport(t *testing.T) {
	ts := newServer(t)
	rep := submit(t, ts, alice)

	resp := do(t, ts, http.MethodGet, "/reports/"+rep.ID.String()+"/export.xlsx", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("content type = %q", ct)
	}

	if resp := do(t, ts, http.MethodGet, "/reports/"+rep.ID.String()+"/export.pdf", "", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("pdf status = %d, want 404", resp.StatusCode)
	}
}

func TestReferrals(t *testing.T) {
	ts := newServer(t)
	ref := "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"
	resp := do(t, ts, http.MethodPost, "/reports", alice, map[string]any{
		"service_type":  "SMART_CONTRACT_AUDIT",
		"details":       map[string]string{"projectName": "Vault", "contractCode": "c"},
		"referral_code": ref,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit status = %d", resp.StatusCode)
	}

	got := decode[map[string]any](t, do(t, ts, http.MethodGet, "/referrals/"+strings.ToUpper(ref[2:]), "", nil))
	if got["count"] != float64(0) {
		t.Errorf("address without 0x should not match: %v", got)
	}
	got = decode[map[string]any](t, do(t, ts, http.MethodGet, "/referrals/"+ref, "", nil))
	if got["count"] != float64(1) {
		t.Errorf("count = %v, want 1", got["count"])
	}
}

func TestAnalysisProxy(t *testing.T) {
	ts := newServer(t)

	resp := do(t, ts, http.MethodPost, "/api/audit", "", map[string]any{
		"serviceType": "SMART_CONTRACT_AUDIT",
		"details":     map[string]string{"projectName": "Vault"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	res := decode[analysis.Result](t, resp)
	if res.Grade != "A" {
		t.Errorf("grade = %q", res.Grade)
	}
}

func TestHealthz(t *testing.T) {
	ts := newServer(t)
	if resp := do(t, ts, http.MethodGet, "/healthz", "", nil); resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestErrorsAreJSON(t *testing.T) {
	ts := newServer(t)
	resp := do(t, ts, http.MethodGet, "/reports/not-an-id", "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	body := decode[map[string]string](t, resp)
	if body["error"] == "" {
		t.Error("missing error message")
	}
}

func TestFailureAfterPaymentIsRetryable(t *testing.T) {
	ts := newServer(t, auditledger.WithAnalysisProvider(analysis.ProviderFunc(
		func(context.Context, analysis.Request) (*analysis.Result, error) {
			return nil, errors.New("model overloaded")
		})))

	resp := do(t, ts, http.MethodPost, "/reports", alice, map[string]any{
		"service_type": "SMART_CONTRACT_AUDIT",
		"details":      map[string]string{"projectName": "Vault", "contractCode": "contract V {}"},
	})
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}

	var body struct {
		Stage     string `json:"stage"`
		TxHash    string `json:"tx_hash"`
		Retryable bool   `json:"retryable"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Stage != string(auditledger.StageAnalyzing) || body.TxHash != "0xabc" || !body.Retryable {
		t.Errorf("body = %+v", body)
	}
}

func TestUnconfirmedPaymentReturnsTxHash(t *testing.T) {
	ts := newServer(t, auditledger.WithPayer(payment.PayerFunc(
		func(_ context.Context, tr payment.Transfer) (*payment.Receipt, error) {
			return &payment.Receipt{ID: id.NewTransferID(), TxHash: "0xdead", From: tr.From, To: tr.To, Wei: tr.Wei},
				payment.ErrUnconfirmed
		})))

	resp := do(t, ts, http.MethodPost, "/reports", alice, map[string]any{
		"service_type": "SMART_CONTRACT_AUDIT",
		"details":      map[string]string{"projectName": "Vault", "contractCode": "contract V {}"},
	})
	if resp.StatusCode != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["tx_hash"] != "0xdead" || body["stage"] != string(auditledger.StageAwaitingPayment) {
		t.Errorf("body = %v", body)
	}
}
