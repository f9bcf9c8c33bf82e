package analytics

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/jobtrack/application-tracker/internal/models"
)

// OtherSource is the bucket for applications without a source.
const OtherSource = "Other"

const (
	monthLayout = "Jan 2006"
	dayLayout   = "2006-01-02"
)

// Slice is one status bucket of the breakdown chart
type Slice struct {
	Name    string `json:"name"`
	Value   int    `json:"value"`
	Percent int    `json:"percent"`
}

// BoardUsage counts applications per job board
type BoardUsage struct {
	Name  string `json:"name"`
	Usage int    `json:"usage"`
}

// MonthBucket counts applications submitted in one calendar month
type MonthBucket struct {
	Month        string `json:"month"`
	Applications int    `json:"applications"`
}

// PlatformStat holds offer counts for one source
type PlatformStat struct {
	Source      string `json:"source"`
	Total       int    `json:"total"`
	Offers      int    `json:"offers"`
	SuccessRate int    `json:"successRate"`
}

// TimelineEntry is one point of the chronological timeline
type TimelineEntry struct {
	Stage string `json:"stage"`
	Date  string `json:"date"`
}

// Totals backs the dashboard counter cards
type Totals struct {
	Total      int `json:"total"`
	Interviews int `json:"interviews"`
	Offers     int `json:"offers"`
	Rejected   int `json:"rejected"`
}

// Report bundles every derived view of an application list
type Report struct {
	Totals          Totals          `json:"totals"`
	StatusBreakdown []Slice         `json:"statusBreakdown"`
	JobBoards       []BoardUsage    `json:"jobBoards"`
	Monthly         []MonthBucket   `json:"monthly"`
	Platforms       []PlatformStat  `json:"platforms"`
	Timeline        []TimelineEntry `json:"timeline"`
	Undated         int             `json:"undated"`
}

// Summarize derives every view from apps. It does not modify apps.
func Summarize(apps []models.Application) Report {
	return Report{
		Totals:          CountTotals(apps),
		StatusBreakdown: StatusBreakdown(apps),
		JobBoards:       JobBoardUsage(apps),
		Monthly:         MonthlySeries(apps),
		Platforms:       PlatformSuccess(apps),
		Timeline:        Timeline(apps),
		Undated:         countUndated(apps),
	}
}

// Percent returns round(count/total*100), or 0 when total is 0.
func Percent(count, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(count) * 100 / float64(total)))
}

// SourceKey normalizes an application source for grouping.
func SourceKey(source string) string {
	if strings.TrimSpace(source) == "" {
		return OtherSource
	}
	return source
}

// ParseDate parses an application date. Both plain dates and RFC 3339
// timestamps are accepted.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(dayLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// CountTotals counts all records and the interview/offer/rejected subsets.
func CountTotals(apps []models.Application) Totals {
	t := Totals{Total: len(apps)}
	for _, a := range apps {
		switch a.Status {
		case models.StatusInterview:
			t.Interviews++
		case models.StatusOffer:
			t.Offers++
		case models.StatusRejected:
			t.Rejected++
		}
	}
	return t
}

// StatusBreakdown groups by status in first-seen order.
func StatusBreakdown(apps []models.Application) []Slice {
	out := make([]Slice, 0)
	index := make(map[string]int)
	for _, a := range apps {
		i, ok := index[a.Status]
		if !ok {
			i = len(out)
			index[a.Status] = i
			out = append(out, Slice{Name: a.Status})
		}
		out[i].Value++
	}
	for i := range out {
		out[i].Percent = Percent(out[i].Value, len(apps))
	}
	return out
}

// JobBoardUsage groups by source in first-seen order.
func JobBoardUsage(apps []models.Application) []BoardUsage {
	out := make([]BoardUsage, 0)
	index := make(map[string]int)
	for _, a := range apps {
		key := SourceKey(a.Source)
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, BoardUsage{Name: key})
		}
		out[i].Usage++
	}
	return out
}

// MonthlySeries buckets records by "Mon YYYY" in first-seen order. Records
// with unparseable dates are skipped.
func MonthlySeries(apps []models.Application) []MonthBucket {
	out := make([]MonthBucket, 0)
	index := make(map[string]int)
	for _, a := range apps {
		d, ok := ParseDate(a.Date)
		if !ok {
			continue
		}
		month := d.Format(monthLayout)
		i, seen := index[month]
		if !seen {
			i = len(out)
			index[month] = i
			out = append(out, MonthBucket{Month: month})
		}
		out[i].Applications++
	}
	return out
}

// PlatformSuccess computes total, offers and success rate per source.
func PlatformSuccess(apps []models.Application) []PlatformStat {
	out := make([]PlatformStat, 0)
	index := make(map[string]int)
	for _, a := range apps {
		key := SourceKey(a.Source)
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, PlatformStat{Source: key})
		}
		out[i].Total++
		if a.Status == models.StatusOffer {
			out[i].Offers++
		}
	}
	for i := range out {
		out[i].SuccessRate = Percent(out[i].Offers, out[i].Total)
	}
	return out
}

// Timeline orders dated records chronologically. Equal dates keep their
// input order.
func Timeline(apps []models.Application) []TimelineEntry {
	type dated struct {
		at    time.Time
		stage string
	}
	var rows []dated
	for _, a := range apps {
		d, ok := ParseDate(a.Date)
		if !ok {
			continue
		}
		rows = append(rows, dated{at: d, stage: a.Status})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].at.Before(rows[j].at) })

	out := make([]TimelineEntry, len(rows))
	for i, r := range rows {
		out[i] = TimelineEntry{Stage: r.stage, Date: r.at.Format(dayLayout)}
	}
	return out
}

func countUndated(apps []models.Application) int {
	n := 0
	for _, a := range apps {
		if _, ok := ParseDate(a.Date); !ok {
			n++
		}
	}
	return n
}

// AutomationStats summarizes automation log outcomes
type AutomationStats struct {
	Total          int `json:"total"`
	Success        int `json:"success"`
	Failed         int `json:"failed"`
	SuccessPercent int `json:"successPercent"`
	FailedPercent  int `json:"failedPercent"`
}

// AutomationSummary counts successful log entries; anything else is a failure.
func AutomationSummary(logs []models.AutomationLog) AutomationStats {
	s := AutomationStats{Total: len(logs)}
	for _, l := range logs {
		if l.Status == models.LogSuccess {
			s.Success++
		}
	}
	s.Failed = s.Total - s.Success
	s.SuccessPercent = Percent(s.Success, s.Total)
	s.FailedPercent = Percent(s.Failed, s.Total)
	return s
}
