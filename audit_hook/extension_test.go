package audithook

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/xraph/auditledger"
	"github.com/xraph/auditledger/id"
	"github.com/xraph/auditledger/payment"
	"github.com/xraph/auditledger/report"
	"github.com/xraph/auditledger/service"
)

type captured struct {
	events []*AuditEvent
	err    error
}

func (c *captured) recorder() Recorder {
	return RecorderFunc(func(_ context.Context, evt *AuditEvent) error {
		c.events = append(c.events, evt)
		return c.err
	})
}

func TestReportEvents(t *testing.T) {
	c := &captured{}
	e := New(c.recorder())
	ctx := auditledger.WithIdentity(context.Background(), auditledger.Identity{Address: "0xabc", IsAdmin: true})

	root := &report.ServiceReport{ID: id.NewReportID(), ServiceType: service.SmartContractAudit, UserID: "0xabc"}
	child := &report.ServiceReport{ID: id.NewReportID(), IsReaudit: true, ParentID: root.ID}

	_ = e.OnReportCreated(ctx, root)
	_ = e.OnReportCreated(ctx, child)
	_ = e.OnReauditConsumed(ctx, root, 1)
	_ = e.OnReportDeleted(ctx, root.ID)

	if len(c.events) != 4 {
		t.Fatalf("events = %d, want 4", len(c.events))
	}
	if c.events[0].Action != ActionReportCreated || c.events[0].ResourceID != root.ID.String() {
		t.Errorf("first event %+v", c.events[0])
	}
	if c.events[1].Action != ActionReauditCreated || c.events[1].Metadata["parent_audit_id"] != root.ID.String() {
		t.Errorf("second event %+v", c.events[1])
	}
	if c.events[2].Metadata["remaining_submissions"] != 1 {
		t.Errorf("remaining = %v", c.events[2].Metadata["remaining_submissions"])
	}
	for _, evt := range c.events {
		if evt.Actor != "0xabc" || evt.Metadata["admin"] != true {
			t.Errorf("actor not captured: %+v", evt)
		}
	}
}

func TestFailureEvents(t *testing.T) {
	c := &captured{}
	e := New(c.recorder())
	ctx := context.Background()

	_ = e.OnSubmissionFailed(ctx, "analyzing_remote", errors.New("503"))
	_ = e.OnPersistenceFailed(ctx, "submit", errors.New("disk full"))
	_ = e.OnPaymentConfirmed(ctx, &payment.Receipt{ID: id.NewTransferID(), TxHash: "0x1", Wei: big.NewInt(5)})

	if c.events[0].Outcome != OutcomeFailure || c.events[0].Reason != "503" || c.events[0].Category != CategoryReport {
		t.Errorf("submission failure %+v", c.events[0])
	}
	if c.events[1].Severity != SeverityCritical || c.events[1].Outcome != OutcomePartial {
		t.Errorf("persistence failure %+v", c.events[1])
	}
	if c.events[2].Metadata["wei"] != "5" {
		t.Errorf("payment %+v", c.events[2])
	}
}

func TestSubmissionFailureCategories(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		category  string
		retryable bool
	}{
		{"payment", fmt.Errorf("%w: rejected", auditledger.ErrPaymentFailed), CategoryPayment, false},
		{"price", auditledger.ErrPriceUnavailable, CategoryPayment, true},
		{"analysis", fmt.Errorf("%w: 503", auditledger.ErrAnalysisUnavailable), CategoryReport, true},
		{"missing fields", auditledger.ErrMissingFields, CategoryReport, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &captured{}
			e := New(c.recorder())
			_ = e.OnSubmissionFailed(context.Background(), "awaiting_payment", tt.err)

			if len(c.events) != 1 {
				t.Fatalf("events = %d", len(c.events))
			}
			got := c.events[0]
			if got.Category != tt.category {
				t.Errorf("category = %q, want %q", got.Category, tt.category)
			}
			if got.Metadata["retryable"] != tt.retryable {
				t.Errorf("retryable = %v, want %v", got.Metadata["retryable"], tt.retryable)
			}
		})
	}
}

func TestEnabledActions(t *testing.T) {
	c := &captured{}
	e := New(c.recorder(), WithDisabledActions(ActionReportCreated))
	ctx := context.Background()

	_ = e.OnReportCreated(ctx, &report.ServiceReport{ID: id.NewReportID()})
	_ = e.OnReportDeleted(ctx, id.NewReportID())

	if len(c.events) != 1 || c.events[0].Action != ActionReportDeleted {
		t.Errorf("events = %+v", c.events)
	}
}

func TestRecorderErrorSwallowed(t *testing.T) {
	c := &captured{err: errors.New("trail down")}
	e := New(c.recorder())
	if err := e.OnReportDeleted(context.Background(), id.NewReportID()); err != nil {
		t.Errorf("hook returned %v", err)
	}
}
