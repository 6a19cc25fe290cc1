package engine

import (
	"time"

	"github.com/c360studio/hexguard/baseline"
	"github.com/c360studio/hexguard/rule"
)

// RuleResult is the outcome of one rule.
type RuleResult struct {
	RuleID      string           `json:"rule_id"`
	Layer       string           `json:"layer"`
	Description string           `json:"description"`
	State       baseline.State   `json:"state"`
	Violations  []rule.Violation `json:"violations"`
	New         []rule.Violation `json:"new,omitempty"`
	Known       []rule.Violation `json:"known,omitempty"`
}

// Passed reports whether the rule produced no new violations.
func (r RuleResult) Passed() bool {
	return len(r.New) == 0
}

// Report is the outcome of one engine run.
type Report struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Frozen    bool          `json:"frozen,omitempty"`
	Results   []RuleResult  `json:"results"`
}

// Failed reports whether any rule produced new violations.
func (r *Report) Failed() bool {
	for _, res := range r.Results {
		if !res.Passed() {
			return true
		}
	}
	return false
}

// NewCount returns the number of new violations across all rules.
func (r *Report) NewCount() int {
	n := 0
	for _, res := range r.Results {
		n += len(res.New)
	}
	return n
}

// KnownCount returns the number of baselined violations across all rules.
func (r *Report) KnownCount() int {
	n := 0
	for _, res := range r.Results {
		n += len(res.Known)
	}
	return n
}

// FailedRules returns the results with new violations.
func (r *Report) FailedRules() []RuleResult {
	var out []RuleResult
	for _, res := range r.Results {
		if !res.Passed() {
			out = append(out, res)
		}
	}
	return out
}

// Result returns the result of ruleID.
func (r *Report) Result(ruleID string) (RuleResult, bool) {
	for _, res := range r.Results {
		if res.RuleID == ruleID {
			return res, true
		}
	}
	return RuleResult{}, false
}
