package entity

import (
	"github.com/shopspring/decimal"
)

// ServiceError is one entry of the per-call error ledger
type ServiceError struct {
	Service string `json:"service"`
	Error   string `json:"error"`
}

// CheckData holds whatever each provider returned in this run
type CheckData struct {
	History   *HistoryData   `json:"history,omitempty"`
	Specs     *SpecsData     `json:"specs,omitempty"`
	MOT       *MOTData       `json:"mot,omitempty"`
	Valuation *ValuationData `json:"valuation,omitempty"`
}

// CheckResult is the outcome of one aggregation run.
//
// Success is true whenever the run itself completed, including when some
// provider calls failed; Errors says which ones. Callers decide whether a
// partial result is good enough.
type CheckResult struct {
	Success   bool            `json:"success"`
	VRM       string          `json:"vrm"`
	Cached    bool            `json:"cached"`
	Data      CheckData       `json:"data"`
	Errors    []ServiceError  `json:"errors"`
	APICalls  int             `json:"apiCalls"`
	TotalCost decimal.Decimal `json:"totalCost"`
	Warnings  []string        `json:"warnings,omitempty"`
	Record    *VehicleRecord  `json:"record,omitempty"`
}

// HasError reports whether service appears in the error ledger
func (r *CheckResult) HasError(service string) bool {
	for _, e := range r.Errors {
		if e.Service == service {
			return true
		}
	}
	return false
}
