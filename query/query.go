// Package query derives the read views of the report ledger. Every view
// returns newest-first results and never mutates its input.
package query

import (
	"cmp"
	"slices"
	"strings"

	"github.com/xraph/auditledger/id"
	"github.com/xraph/auditledger/report"
)

// DefaultLatest is the number of reports Latest returns for n <= 0.
const DefaultLatest = 10

// Public returns the publicly visible reports.
func Public(records []*report.ServiceReport) []*report.ServiceReport {
	return newestFirst(filter(records, func(r *report.ServiceReport) bool { return r.IsPublic }))
}

// Search matches term against the project name and the report ID,
// case-insensitively, among public reports. An empty term matches all.
func Search(records []*report.ServiceReport, term string) []*report.ServiceReport {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return Public(records)
	}
	return newestFirst(filter(records, func(r *report.ServiceReport) bool {
		if !r.IsPublic {
			return false
		}
		return strings.Contains(strings.ToLower(r.ProjectName), term) ||
			strings.Contains(strings.ToLower(r.ID.String()), term)
	}))
}

// ByOwner returns every report submitted by address, public or not.
func ByOwner(records []*report.ServiceReport, address string) []*report.ServiceReport {
	key := normalize(address)
	if key == "" {
		return []*report.ServiceReport{}
	}
	return newestFirst(filter(records, func(r *report.ServiceReport) bool {
		return normalize(r.UserID) == key
	}))
}

// Latest returns up to n public reports.
func Latest(records []*report.ServiceReport, n int) []*report.ServiceReport {
	if n <= 0 {
		n = DefaultLatest
	}
	out := Public(records)
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Referrals returns the reports that carry address as referral code.
func Referrals(records []*report.ServiceReport, address string) []*report.ServiceReport {
	key := normalize(address)
	if key == "" {
		return []*report.ServiceReport{}
	}
	return newestFirst(filter(records, func(r *report.ServiceReport) bool {
		return r.ReferralCode != "" && normalize(r.ReferralCode) == key
	}))
}

// Children returns the re-audits of parentID.
func Children(records []*report.ServiceReport, parentID id.ReportID) []*report.ServiceReport {
	want := parentID.String()
	return newestFirst(filter(records, func(r *report.ServiceReport) bool {
		return r.IsReaudit && r.ParentID.String() == want
	}))
}

// CanView reports whether address may read r. Private reports are
// visible to their owner and to administrators.
func CanView(r *report.ServiceReport, address string, isAdmin bool) bool {
	if r.IsPublic || isAdmin {
		return true
	}
	key := normalize(address)
	return key != "" && normalize(r.UserID) == key
}

func filter(records []*report.ServiceReport, keep func(*report.ServiceReport) bool) []*report.ServiceReport {
	out := make([]*report.ServiceReport, 0, len(records))
	for _, r := range records {
		if r != nil && keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// newestFirst orders by creation time, later insertions first on ties.
func newestFirst(records []*report.ServiceReport) []*report.ServiceReport {
	slices.Reverse(records)
	slices.SortStableFunc(records, func(a, b *report.ServiceReport) int {
		return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
	})
	return records
}

func normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
