// Package doctor runs health checks against a sopform setup.
package doctor

import "context"

// Status is the outcome of one check item.
type Status string

const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// CheckItem is a single line item within a check result. Fixable items can be
// repaired by running the check with autofix.
type CheckItem struct {
	Label   string `json:"label"`
	Status  Status `json:"status"`
	Detail  string `json:"detail,omitempty"`
	Fixable bool   `json:"fixable,omitempty"`
}

// Result groups the items reported by one check.
type Result struct {
	Name  string      `json:"name"`
	Items []CheckItem `json:"items"`
}

// Check is one named group of health checks.
type Check interface {
	Name() string
	Run(ctx context.Context) Result
}

// RunAll runs checks in order. A cancelled context stops before the next check.
func RunAll(ctx context.Context, checks []Check) []Result {
	results := make([]Result, 0, len(checks))
	for _, check := range checks {
		if ctx.Err() != nil {
			break
		}
		results = append(results, check.Run(ctx))
	}
	return results
}

// Counts tallies item statuses across results.
type Counts struct {
	Passed  int `json:"passed"`
	Warned  int `json:"warned"`
	Failed  int `json:"failed"`
	Fixable int `json:"-"`
}

// Healthy reports whether no item failed.
func (c Counts) Healthy() bool {
	return c.Failed == 0
}

// Tally counts items by status. Fixable counts unresolved items that autofix
// can repair.
func Tally(results []Result) Counts {
	var c Counts
	for _, r := range results {
		for _, item := range r.Items {
			switch item.Status {
			case StatusPass:
				c.Passed++
				continue
			case StatusWarn:
				c.Warned++
			case StatusFail:
				c.Failed++
			}
			if item.Fixable {
				c.Fixable++
			}
		}
	}
	return c
}
