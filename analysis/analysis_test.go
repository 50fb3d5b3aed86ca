package analysis

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/xraph/auditledger/report"
	"github.com/xraph/auditledger/service"
)

func TestValidateResult(t *testing.T) {
	finding := report.Finding{Severity: report.SeverityHigh, Title: "t", Description: "d", Recommendation: "r"}

	tests := []struct {
		name string
		cat  service.Category
		res  *Result
		ok   bool
	}{
		{"audit grade", service.CategoryAudit, &Result{Grade: "A", Summary: "s", Findings: []report.Finding{finding}}, true},
		{"no findings", service.CategoryAudit, &Result{Grade: "D", Summary: "s", Findings: []report.Finding{}}, true},
		{"kyc status", service.CategoryKYC, &Result{Grade: "Needs Review", Summary: "s", Findings: []report.Finding{}}, true},
		{"kyc grade for audit", service.CategoryAudit, &Result{Grade: "Verified", Summary: "s", Findings: []report.Finding{}}, false},
		{"audit grade for kyc", service.CategoryKYC, &Result{Grade: "B", Summary: "s", Findings: []report.Finding{}}, false},
		{"unknown grade", service.CategoryAudit, &Result{Grade: "F", Summary: "s", Findings: []report.Finding{}}, false},
		{"empty summary", service.CategoryAudit, &Result{Grade: "A", Summary: "  ", Findings: []report.Finding{}}, false},
		{"findings absent", service.CategoryAudit, &Result{Grade: "A", Summary: "s"}, false},
		{"bad severity", service.CategoryAudit, &Result{Grade: "A", Summary: "s", Findings: []report.Finding{{Severity: "Severe", Title: "t", Description: "d", Recommendation: "r"}}}, false},
		{"untitled finding", service.CategoryAudit, &Result{Grade: "A", Summary: "s", Findings: []report.Finding{{Severity: report.SeverityLow, Description: "d", Recommendation: "r"}}}, false},
		{"finding without description", service.CategoryAudit, &Result{Grade: "A", Summary: "s", Findings: []report.Finding{{Severity: report.SeverityHigh, Title: "t", Recommendation: "r"}}}, false},
		{"finding without recommendation", service.CategoryAudit, &Result{Grade: "A", Summary: "s", Findings: []report.Finding{{Severity: report.SeverityHigh, Title: "t", Description: "d"}}}, false},
		{"nil", service.CategoryAudit, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ValidateResult(tt.cat, tt.res)
			if tt.ok {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if v.Grade.Category() != tt.cat {
					t.Errorf("grade category = %s, want %s", v.Grade.Category(), tt.cat)
				}
				return
			}
			if !errors.Is(err, ErrInvalidResult) {
				t.Errorf("got %v, want ErrInvalidResult", err)
			}
		})
	}
}

func TestValidateResultDecodedJSON(t *testing.T) {
	tests := []struct {
		name string
		body string
		ok   bool
	}{
		{"empty array", `{"grade":"A","summary":"ok","findings":[]}`, true},
		{"missing key", `{"grade":"A","summary":"ok"}`, false},
		{"null", `{"grade":"A","summary":"ok","findings":null}`, false},
		{"partial finding", `{"grade":"A","summary":"ok","findings":[{"severity":"High","title":"t"}]}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res Result
			if err := json.Unmarshal([]byte(tt.body), &res); err != nil {
				t.Fatal(err)
			}
			_, err := ValidateResult(service.CategoryAudit, &res)
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidResult) {
				t.Errorf("got %v, want ErrInvalidResult", err)
			}
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	def, err := service.Default().Lookup(service.SmartContractAudit)
	if err != nil {
		t.Fatal(err)
	}

	prompt, err := BuildPrompt(def, map[string]string{
		"projectName":  "Vault",
		"chain":        "Solana",
		"contractCode": "pragma solidity ^0.8.0;",
	})
	if err != nil {
		t.Fatalf("BuildPrompt: %v", err)
	}

	for _, want := range []string{
		"specialized in blockchain security auditing",
		"Service: Smart Contract Audit",
		"Project Name: Vault",
		"Chain: Solana",
		"pragma solidity ^0.8.0;",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildPromptMissingKeys(t *testing.T) {
	def, err := service.Default().Lookup(service.KYCSingle)
	if err != nil {
		t.Fatal(err)
	}

	prompt, err := BuildPrompt(def, map[string]string{"projectName": "Acme"})
	if err != nil {
		t.Fatalf("BuildPrompt: %v", err)
	}
	if strings.Contains(prompt, "<no value>") {
		t.Error("missing keys must render empty")
	}
	if !strings.Contains(prompt, "Contact Email: \n") && !strings.HasSuffix(prompt, "Contact Email: ") {
		t.Errorf("contact email line should be empty:\n%s", prompt)
	}
}
