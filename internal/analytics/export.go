package analytics

import (
	"strconv"
	"strings"

	"github.com/jobtrack/application-tracker/internal/models"
)

// Export modes
const (
	ModeSummary  = "summary"
	ModeDetailed = "detailed"
)

var detailedHeader = []string{"Company", "Position", "Source", "Date", "Status", "Salary", "Location", "Notes"}

// SummaryCSV renders the monthly series as a Month,Count table.
func SummaryCSV(series []MonthBucket) string {
	rows := make([]string, 0, len(series)+1)
	rows = append(rows, "Month,Count")
	for _, b := range series {
		rows = append(rows, b.Month+","+strconv.Itoa(b.Applications))
	}
	return strings.Join(rows, "\n")
}

// DetailedCSV renders one fully quoted row per application.
func DetailedCSV(apps []models.Application) string {
	rows := make([]string, 0, len(apps)+1)
	rows = append(rows, quoteRow(detailedHeader))
	for _, a := range apps {
		rows = append(rows, quoteRow([]string{
			a.Company,
			a.Position,
			a.Source,
			a.Date,
			a.Status,
			formatSalary(a.Salary),
			deref(a.Location),
			deref(a.Notes),
		}))
	}
	return strings.Join(rows, "\n")
}

func quoteRow(cells []string) string {
	quoted := make([]string, len(cells))
	for i, c := range cells {
		quoted[i] = quote(c)
	}
	return strings.Join(quoted, ",")
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func formatSalary(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
