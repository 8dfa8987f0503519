package domain

import (
	"fmt"
	"time"
)

// BranchStatus is the per-branch outcome of a fetch or sanity check.
type BranchStatus string

const (
	BranchSuccess BranchStatus = "success"
	BranchFailed  BranchStatus = "failed"
	BranchNoData  BranchStatus = "no_data"
)

// ReportStatus aggregates branch outcomes for one report category.
type ReportStatus string

const (
	ReportSuccess ReportStatus = "success"
	ReportPartial ReportStatus = "partial"
	ReportFailed  ReportStatus = "failed"
)

// RunOutcome is the overall verdict for one refresh run.
type RunOutcome string

const (
	RunSuccess RunOutcome = "success"
	RunPartial RunOutcome = "partial"
	RunFailed  RunOutcome = "failed"
)

// BranchOutcome carries a branch status plus an accumulated reason when
// the branch failed.
type BranchOutcome struct {
	Status BranchStatus `json:"status"`
	Reason string       `json:"reason,omitempty"`
}

// Window is the date range a fetcher asks the upstream for.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// FetchResult is the outcome of one domain fetcher across the branches of
// one tenant.
type FetchResult struct {
	Domain      DataDomain               `json:"domain"`
	Tenant      string                   `json:"tenant"`
	RowsWritten int                      `json:"rows_written"`
	Documents   int                      `json:"documents"`
	PerBranch   map[string]BranchOutcome `json:"per_branch"`
	Error       string                   `json:"error,omitempty"`
}

// Merge folds another result for the same domain (different tenant) into r.
func (r *FetchResult) Merge(other *FetchResult) {
	if other == nil {
		return
	}
	r.RowsWritten += other.RowsWritten
	r.Documents += other.Documents
	if r.PerBranch == nil {
		r.PerBranch = map[string]BranchOutcome{}
	}
	for branch, outcome := range other.PerBranch {
		r.PerBranch[branch] = outcome
	}
	if other.Error != "" {
		if r.Error != "" {
			r.Error += "; "
		}
		r.Error += other.Error
	}
}

// SanityReport is the verdict of the post-run validation.
type SanityReport struct {
	Outcome  RunOutcome               `json:"outcome"`
	Branches map[string]BranchOutcome `json:"branches"`
	Reports  map[string]ReportStatus  `json:"reports"`
}

// RunSummary describes one completed refresh run.
type RunSummary struct {
	StartedAt   time.Time                    `json:"started_at"`
	CompletedAt time.Time                    `json:"completed_at"`
	Outcome     RunOutcome                   `json:"outcome"`
	Results     map[DataDomain]*FetchResult  `json:"results"`
	RowsDeleted map[string]int64             `json:"rows_deleted,omitempty"`
	Sanity      *SanityReport                `json:"sanity,omitempty"`
}

// RefreshStatusSnapshot is the persisted run state. A single record exists
// per deployment; it survives restarts so an interrupted run is visible.
type RefreshStatusSnapshot struct {
	IsRunning        bool                     `json:"is_running"`
	RunStartedAt     *time.Time               `json:"run_started_at,omitempty"`
	Progress         float64                  `json:"progress"`
	Message          string                   `json:"message,omitempty"`
	LastSuccessfulAt *time.Time               `json:"last_successful_at,omitempty"`
	Branches         map[string]BranchOutcome `json:"branches,omitempty"`
	Reports          map[string]ReportStatus  `json:"reports,omitempty"`
}

// DataAge describes how old the last trustworthy refresh is.
type DataAge struct {
	Seconds *int64 `json:"seconds,omitempty"`
	Message string `json:"message"`
	IsStale bool   `json:"is_stale"`
}

// AgeSince computes a DataAge relative to now. A nil last-successful time
// means the data has never been refreshed and is always stale.
func AgeSince(lastSuccessful *time.Time, now time.Time) DataAge {
	if lastSuccessful == nil {
		return DataAge{Message: "Never updated", IsStale: true}
	}

	total := int64(now.Sub(*lastSuccessful).Seconds())
	minutes := total / 60
	hours := minutes / 60
	days := hours / 24

	var message string
	var stale bool
	switch {
	case days > 0:
		message = fmt.Sprintf("%d day%s ago", days, plural(days))
		stale = true
	case hours > 0:
		message = fmt.Sprintf("%d hour%s ago", hours, plural(hours))
		stale = hours >= 3
	case minutes > 0:
		message = fmt.Sprintf("%d minute%s ago", minutes, plural(minutes))
		stale = minutes >= 30
	default:
		message = "Just now"
	}

	return DataAge{Seconds: &total, Message: message, IsStale: stale}
}

func plural(n int64) string {
	if n > 1 {
		return "s"
	}
	return ""
}
