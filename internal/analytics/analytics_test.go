package analytics

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobtrack/application-tracker/internal/models"
)

func app(source, date, status string) models.Application {
	return models.Application{Company: "Acme", Position: "Engineer", Source: source, Date: date, Status: status}
}

func sampleApps() []models.Application {
	return []models.Application{
		app("LinkedIn", "2025-01-05", "Applied"),
		app("JobStreet", "2025-01-28", "Offer"),
		app("", "2025-02-01", "Interview"),
		app("LinkedIn", "2025-02-14", "Offer"),
		app("LinkedIn", "2025-03-02", "Rejected"),
		app("Referral", "2025-03-09", "Ghosted"),
	}
}

func TestStatusBreakdown_SumsToTotal(t *testing.T) {
	apps := sampleApps()
	breakdown := StatusBreakdown(apps)

	sum := 0
	for _, s := range breakdown {
		sum += s.Value
	}
	assert.Equal(t, len(apps), sum)
}

func TestStatusBreakdown_FirstSeenOrderAndUnknownStatus(t *testing.T) {
	breakdown := StatusBreakdown(sampleApps())

	names := make([]string, len(breakdown))
	for i, s := range breakdown {
		names[i] = s.Name
	}
	assert.Equal(t, []string{"Applied", "Offer", "Interview", "Rejected", "Ghosted"}, names)
	assert.Equal(t, 2, breakdown[1].Value)
	assert.Equal(t, 33, breakdown[1].Percent)
	assert.Equal(t, 17, breakdown[0].Percent)
}

func TestStatusBreakdown_PercentsSumToAboutHundred(t *testing.T) {
	even := StatusBreakdown([]models.Application{
		app("LinkedIn", "2025-01-05", "Applied"),
		app("LinkedIn", "2025-01-06", "Offer"),
		app("LinkedIn", "2025-01-07", "Rejected"),
	})
	require.Len(t, even, 3)
	for _, s := range even {
		assert.Equal(t, 33, s.Percent, s.Name)
	}

	for _, apps := range [][]models.Application{sampleApps(), mixedStatusApps(), {app("", "", "Applied")}} {
		breakdown := StatusBreakdown(apps)
		sum := 0
		for _, s := range breakdown {
			sum += s.Percent
		}
		assert.InDelta(t, 100, sum, float64(len(breakdown))/2)
	}
}

func mixedStatusApps() []models.Application {
	return []models.Application{
		app("A", "2025-01-01", "Applied"),
		app("B", "2025-01-02", "Applied"),
		app("C", "2025-01-03", "Interview"),
		app("D", "2025-01-04", "Offer"),
		app("E", "2025-01-05", "Offer"),
		app("F", "2025-01-06", "Offer"),
		app("G", "2025-01-07", "Rejected"),
	}
}

func TestSummarize_EmptyViewsAreJSONArrays(t *testing.T) {
	data, err := json.Marshal(Summarize(nil))
	require.NoError(t, err)

	body := string(data)
	for _, key := range []string{"statusBreakdown", "jobBoards", "monthly", "platforms", "timeline"} {
		assert.Contains(t, body, `"`+key+`":[]`)
	}
	assert.NotContains(t, body, "null")
}

func TestStatusBreakdown_Empty(t *testing.T) {
	assert.Empty(t, StatusBreakdown(nil))
	assert.Equal(t, 0, Percent(0, 0))
	assert.Equal(t, 0, Percent(3, 0))
}

func TestJobBoardUsage_OtherForMissingSource(t *testing.T) {
	usage := JobBoardUsage(sampleApps())

	require.Len(t, usage, 4)
	assert.Equal(t, BoardUsage{Name: "LinkedIn", Usage: 3}, usage[0])
	assert.Equal(t, BoardUsage{Name: "JobStreet", Usage: 1}, usage[1])
	assert.Equal(t, BoardUsage{Name: "Other", Usage: 1}, usage[2])
	assert.Equal(t, BoardUsage{Name: "Referral", Usage: 1}, usage[3])
}

func TestMonthlySeries_Bucketing(t *testing.T) {
	apps := []models.Application{
		app("A", "2025-01-05", "Applied"),
		app("A", "2025-01-28", "Applied"),
		app("A", "2025-02-01", "Applied"),
	}

	series := MonthlySeries(apps)

	assert.Equal(t, []MonthBucket{
		{Month: "Jan 2025", Applications: 2},
		{Month: "Feb 2025", Applications: 1},
	}, series)
}

func TestMonthlySeries_FirstSeenNotSorted(t *testing.T) {
	apps := []models.Application{
		app("A", "2025-03-01", "Applied"),
		app("A", "2025-01-01", "Applied"),
		app("A", "2025-03-20", "Applied"),
	}

	series := MonthlySeries(apps)

	require.Len(t, series, 2)
	assert.Equal(t, "Mar 2025", series[0].Month)
	assert.Equal(t, 2, series[0].Applications)
	assert.Equal(t, "Jan 2025", series[1].Month)
}

func TestPlatformSuccess(t *testing.T) {
	stats := PlatformSuccess(sampleApps())

	require.Len(t, stats, 4)
	linkedin := stats[0]
	assert.Equal(t, "LinkedIn", linkedin.Source)
	assert.Equal(t, 3, linkedin.Total)
	assert.Equal(t, 1, linkedin.Offers)
	assert.Equal(t, 33, linkedin.SuccessRate)

	for _, s := range stats {
		assert.GreaterOrEqual(t, s.SuccessRate, 0)
		assert.LessOrEqual(t, s.SuccessRate, 100)
		assert.Equal(t, Percent(s.Offers, s.Total), s.SuccessRate)
	}
	assert.Equal(t, 100, stats[1].SuccessRate)
}

func TestTimeline_ChronologicalRegardlessOfInput(t *testing.T) {
	orders := [][]string{
		{"2025-03-10", "2025-01-01", "2025-02-15"},
		{"2025-02-15", "2025-03-10", "2025-01-01"},
		{"2025-01-01", "2025-02-15", "2025-03-10"},
	}

	for _, dates := range orders {
		var apps []models.Application
		for _, d := range dates {
			apps = append(apps, app("A", d, "Applied"))
		}

		timeline := Timeline(apps)

		require.Len(t, timeline, 3)
		assert.Equal(t, "2025-01-01", timeline[0].Date)
		assert.Equal(t, "2025-02-15", timeline[1].Date)
		assert.Equal(t, "2025-03-10", timeline[2].Date)
	}
}

func TestTimeline_NotLexical(t *testing.T) {
	apps := []models.Application{
		app("A", "2025-10-01T00:00:00Z", "Offer"),
		app("A", "2025-09-30", "Applied"),
	}

	timeline := Timeline(apps)

	assert.Equal(t, []TimelineEntry{
		{Stage: "Applied", Date: "2025-09-30"},
		{Stage: "Offer", Date: "2025-10-01"},
	}, timeline)
}

func TestTimeline_StableForEqualDates(t *testing.T) {
	apps := []models.Application{
		app("A", "2025-01-01", "Applied"),
		app("A", "2025-01-01", "Interview"),
	}

	timeline := Timeline(apps)

	assert.Equal(t, "Applied", timeline[0].Stage)
	assert.Equal(t, "Interview", timeline[1].Stage)
}

func TestSummarize_UnparseableDatesExcludedFromDateViews(t *testing.T) {
	apps := []models.Application{
		app("A", "2025-01-05", "Applied"),
		app("B", "not-a-date", "Offer"),
		app("", "", "Applied"),
	}

	var report Report
	require.NotPanics(t, func() { report = Summarize(apps) })

	assert.Equal(t, 3, report.Totals.Total)
	assert.Equal(t, 2, report.Undated)
	assert.Len(t, report.Timeline, 1)
	require.Len(t, report.Monthly, 1)
	assert.Equal(t, 1, report.Monthly[0].Applications)
	assert.Len(t, report.StatusBreakdown, 2)
	assert.Len(t, report.JobBoards, 3)
}

func TestCountTotals(t *testing.T) {
	totals := CountTotals(sampleApps())
	assert.Equal(t, Totals{Total: 6, Interviews: 1, Offers: 2, Rejected: 1}, totals)
}

func TestAutomationSummary(t *testing.T) {
	logs := []models.AutomationLog{
		{Status: "Success"},
		{Status: "Success"},
		{Status: "Failed"},
	}

	s := AutomationSummary(logs)

	assert.Equal(t, AutomationStats{Total: 3, Success: 2, Failed: 1, SuccessPercent: 67, FailedPercent: 33}, s)
	assert.Equal(t, AutomationStats{}, AutomationSummary(nil))
}
