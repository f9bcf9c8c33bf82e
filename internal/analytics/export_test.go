package analytics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jobtrack/application-tracker/internal/models"
)

func strPtr(s string) *string { return &s }

func TestSummaryCSV(t *testing.T) {
	out := SummaryCSV([]MonthBucket{
		{Month: "Jan 2025", Applications: 2},
		{Month: "Feb 2025", Applications: 1},
	})

	assert.Equal(t, "Month,Count\nJan 2025,2\nFeb 2025,1", out)
}

func TestSummaryCSV_HeaderOnly(t *testing.T) {
	assert.Equal(t, "Month,Count", SummaryCSV(nil))
}

func TestDetailedCSV_EscapesQuotes(t *testing.T) {
	apps := []models.Application{{
		Company:  "Acme, Inc.",
		Position: "Engineer",
		Source:   "LinkedIn",
		Date:     "2025-01-05",
		Status:   "Interview",
		Salary:   50000,
		Notes:    strPtr(`Said "great fit"`),
	}}

	out := DetailedCSV(apps)
	lines := strings.Split(out, "\n")

	assert.Len(t, lines, 2)
	assert.Equal(t, `"Company","Position","Source","Date","Status","Salary","Location","Notes"`, lines[0])
	assert.Equal(t, `"Acme, Inc.","Engineer","LinkedIn","2025-01-05","Interview","50000","","Said ""great fit"""`, lines[1])
}

func TestDetailedCSV_MissingValuesAreEmpty(t *testing.T) {
	out := DetailedCSV([]models.Application{{Company: "A", Position: "B"}})

	assert.NotContains(t, out, "null")
	assert.NotContains(t, out, "undefined")
	assert.False(t, strings.HasSuffix(out, "\n"))
	assert.True(t, strings.HasSuffix(out, `"A","B","","","","0","",""`))
}

func TestDetailedCSV_FractionalSalary(t *testing.T) {
	out := DetailedCSV([]models.Application{{Salary: 1234.5, Location: strPtr("Remote")}})
	assert.Contains(t, out, `"1234.5","Remote"`)
}
