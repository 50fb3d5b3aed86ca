// Package auditledger records paid requests for AI-generated security
// reports and tracks the re-audit entitlements they carry.
//
// Auditledger is designed as a library, not a service. Import it directly
// into your Go application, or run cmd/auditd for the HTTP API. It provides:
//
//   - A table-driven price list with referral discounts and payouts
//   - A submission pipeline: validate, pay, analyze, persist
//   - Re-audit allowances decremented atomically with record creation
//   - Pluggable stores that persist the collection as one snapshot
//   - Lifecycle hooks for audit trails and metrics
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/auditledger"
//	    "github.com/xraph/auditledger/analysis/gemini"
//	    "github.com/xraph/auditledger/rates"
//	    "github.com/xraph/auditledger/store/file"
//	)
//
//	provider, err := gemini.New(ctx, apiKey, "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	l := auditledger.New(file.New("data/audits.json"),
//	    auditledger.WithAnalysisProvider(provider),
//	    auditledger.WithRateFeed(rates.NewFeed(rates.NewCoinGecko("binancecoin"), nil)),
//	    auditledger.WithPayer(payer),
//	)
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
// # Submitting
//
// Every submission runs as the identity bound to its context:
//
//	ctx = auditledger.WithIdentity(ctx, auditledger.Identity{Address: wallet})
//	rep, err := l.Submit(ctx, auditledger.Submission{
//	    ServiceType: auditledger.SmartContractAudit,
//	    Details:     map[string]string{"projectName": "Vault", "contractCode": src},
//	})
//
// A root smart-contract or L1/L2 audit carries two free re-audits. Submit
// one by naming the parent:
//
//	again, err := l.Submit(ctx, auditledger.Submission{
//	    ServiceType: rep.ServiceType,
//	    Details:     rep.Details,
//	    ParentID:    rep.ID,
//	})
//
// Failures are returned as *SubmissionError carrying the stage and, if
// funds already moved, the transfer receipt.
package auditledger
