package query

import (
	"testing"
	"time"

	"github.com/xraph/auditledger/id"
	"github.com/xraph/auditledger/report"
	"github.com/xraph/auditledger/types"
)

const (
	alice = "0xAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAa"
	bob   = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func rec(name, owner string, public bool, age time.Duration) *report.ServiceReport {
	return &report.ServiceReport{
		Entity:      types.Entity{CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(-age)},
		ID:          id.NewReportID(),
		UserID:      owner,
		ProjectName: name,
		IsPublic:    public,
	}
}

func names(rs []*report.ServiceReport) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ProjectName
	}
	return out
}

func equal(t *testing.T, got []*report.ServiceReport, want ...string) {
	t.Helper()
	g := names(got)
	if len(g) != len(want) {
		t.Fatalf("got %v, want %v", g, want)
	}
	for i := range g {
		if g[i] != want[i] {
			t.Fatalf("got %v, want %v", g, want)
		}
	}
}

func fixture() []*report.ServiceReport {
	return []*report.ServiceReport{
		rec("Vault", alice, true, 3*time.Hour),
		rec("Bridge", bob, false, 2*time.Hour),
		rec("Vault Two", bob, true, time.Hour),
		rec("Oracle", alice, true, 0),
	}
}

func TestPublicNewestFirst(t *testing.T) {
	equal(t, Public(fixture()), "Oracle", "Vault Two", "Vault")
}

func TestSearch(t *testing.T) {
	recs := fixture()

	equal(t, Search(recs, "vault"), "Vault Two", "Vault")
	equal(t, Search(recs, "bridge")) // private
	equal(t, Search(recs, "  "), "Oracle", "Vault Two", "Vault")

	byID := Search(recs, recs[3].ID.String())
	equal(t, byID, "Oracle")
}

func TestByOwnerIncludesPrivate(t *testing.T) {
	recs := fixture()
	equal(t, ByOwner(recs, bob), "Vault Two", "Bridge")
	equal(t, ByOwner(recs, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"), "Oracle", "Vault")
	equal(t, ByOwner(recs, ""))
}

func TestLatest(t *testing.T) {
	recs := fixture()
	equal(t, Latest(recs, 2), "Oracle", "Vault Two")
	if got := len(Latest(recs, 0)); got != 3 {
		t.Errorf("Latest(0) = %d reports, want 3", got)
	}
}

func TestTiesKeepInsertionOrderReversed(t *testing.T) {
	a := rec("first", alice, true, 0)
	b := rec("second", alice, true, 0)
	equal(t, Public([]*report.ServiceReport{a, b}), "second", "first")
}

func TestReferralsAndChildren(t *testing.T) {
	root := rec("Root", alice, true, 2*time.Hour)
	child := rec("Child", alice, true, time.Hour)
	child.IsReaudit = true
	child.ParentID = root.ID
	child.ReferralCode = bob
	other := rec("Other", bob, true, 0)
	other.ReferralCode = "0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"

	recs := []*report.ServiceReport{root, child, other}
	equal(t, Children(recs, root.ID), "Child")
	equal(t, Children(recs, other.ID))
	equal(t, Referrals(recs, bob), "Other", "Child")
}

func TestInputUntouched(t *testing.T) {
	recs := fixture()
	_ = Public(recs)
	equal(t, recs, "Vault", "Bridge", "Vault Two", "Oracle")
}

func TestCanView(t *testing.T) {
	private := rec("Bridge", bob, false, 0)

	tests := []struct {
		name    string
		addr    string
		isAdmin bool
		want    bool
	}{
		{"owner", "0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB", false, true},
		{"stranger", alice, false, false},
		{"admin", alice, true, true},
		{"anonymous", "", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanView(private, tt.addr, tt.isAdmin); got != tt.want {
				t.Errorf("CanView = %v, want %v", got, tt.want)
			}
		})
	}
}
