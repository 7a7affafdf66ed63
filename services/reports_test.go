package services

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diltak/mindtak-sub001/models"
)

func reportAt(employeeID string, overall float64, risk string, age time.Duration) models.WellnessReport {
	return models.WellnessReport{
		ID:               "r-" + employeeID + "-" + strconv.Itoa(int(age.Seconds())),
		EmployeeID:       employeeID,
		CompanyID:        "c1",
		Mood:             6,
		Stress:           5,
		Anxiety:          4,
		WorkSatisfaction: 7,
		WorkLifeBalance:  6,
		Energy:           6,
		Confidence:       7,
		SleepQuality:     6,
		OverallWellness:  overall,
		RiskLevel:        risk,
		SessionType:      models.SessionTypeText,
		SessionDuration:  300,
		AIAnalysis:       "steady week",
		CreatedAt:        time.Now().Add(-age),
	}
}

func TestGenerateReportsAnalyticsEmpty(t *testing.T) {
	analytics := GenerateReportsAnalytics(nil)

	assert.Equal(t, 0, analytics.TotalReports)
	assert.Equal(t, "no_data", analytics.WellnessTrend)
	assert.Zero(t, analytics.AvgOverall)
	for _, key := range subscoreOrder {
		assert.Zero(t, analytics.AvgSubscores[key])
	}
	assert.Equal(t, 0, analytics.RiskDistribution[models.RiskHigh])
}

func TestGenerateReportsAnalyticsAverages(t *testing.T) {
	reports := []models.WellnessReport{
		reportAt("e1", 8, models.RiskLow, time.Hour),
		reportAt("e2", 6, models.RiskMedium, 2*time.Hour),
		reportAt("e1", 4, models.RiskHigh, 3*time.Hour),
		reportAt("e3", 2, models.RiskHigh, 4*time.Hour),
	}

	analytics := GenerateReportsAnalytics(reports)

	assert.Equal(t, 4, analytics.TotalReports)
	assert.InDelta(t, 5.0, analytics.AvgOverall, 1e-9)
	assert.Equal(t, 3, analytics.UniqueEmployees)
	assert.Equal(t, 1, analytics.RiskDistribution[models.RiskLow])
	assert.Equal(t, 1, analytics.RiskDistribution[models.RiskMedium])
	assert.Equal(t, 2, analytics.RiskDistribution[models.RiskHigh])
	assert.InDelta(t, 6.0, analytics.AvgSubscores["mood"], 1e-9)
}

func TestWellnessTrendDeadband(t *testing.T) {
	// Newer half averages 6.2, older half 6.0: inside the 0.3 deadband.
	stable := []models.WellnessReport{
		reportAt("e1", 6.2, models.RiskLow, time.Hour),
		reportAt("e2", 6.2, models.RiskLow, 2*time.Hour),
		reportAt("e3", 6.0, models.RiskLow, 3*time.Hour),
		reportAt("e4", 6.0, models.RiskLow, 4*time.Hour),
	}
	assert.Equal(t, "stable", wellnessTrend(stable))

	up := []models.WellnessReport{
		reportAt("e1", 8, models.RiskLow, time.Hour),
		reportAt("e2", 8, models.RiskLow, 2*time.Hour),
		reportAt("e3", 5, models.RiskMedium, 3*time.Hour),
		reportAt("e4", 5, models.RiskMedium, 4*time.Hour),
	}
	assert.Equal(t, "up", wellnessTrend(up))

	down := []models.WellnessReport{
		reportAt("e1", 4, models.RiskHigh, time.Hour),
		reportAt("e2", 4, models.RiskHigh, 2*time.Hour),
		reportAt("e3", 7, models.RiskLow, 3*time.Hour),
		reportAt("e4", 7, models.RiskLow, 4*time.Hour),
	}
	assert.Equal(t, "down", wellnessTrend(down))
}

func TestWellnessTrendSplitsByCountNotTime(t *testing.T) {
	// Odd count: newer half is the first len/2 entries.
	reports := []models.WellnessReport{
		reportAt("e1", 9, models.RiskLow, time.Hour),
		reportAt("e2", 5, models.RiskMedium, 48*time.Hour),
		reportAt("e3", 5, models.RiskMedium, 49*time.Hour),
	}
	assert.Equal(t, "up", wellnessTrend(reports))
}

func TestWellnessTrendSingleReport(t *testing.T) {
	reports := []models.WellnessReport{reportAt("e1", 5, models.RiskMedium, time.Hour)}
	assert.Equal(t, "stable", wellnessTrend(reports))
}

func TestSortReportsNewestFirst(t *testing.T) {
	reports := []models.WellnessReport{
		reportAt("old", 5, models.RiskMedium, 72*time.Hour),
		reportAt("new", 6, models.RiskLow, time.Hour),
		reportAt("mid", 7, models.RiskLow, 24*time.Hour),
	}

	sortReportsNewestFirst(reports)

	assert.Equal(t, "new", reports[0].EmployeeID)
	assert.Equal(t, "mid", reports[1].EmployeeID)
	assert.Equal(t, "old", reports[2].EmployeeID)
}

func TestFormatReportsForAIAnonymizes(t *testing.T) {
	report := reportAt("12345678-abcd-efgh", 6, models.RiskLow, time.Hour)
	digest := FormatReportsForAI([]models.WellnessReport{report})

	assert.Contains(t, digest, "12345678")
	assert.NotContains(t, digest, "12345678-abcd-efgh")
	assert.Contains(t, digest, "risk low")
}

func TestFormatReportsForAIEmpty(t *testing.T) {
	assert.Contains(t, FormatReportsForAI(nil), "No wellness reports")
}

func TestRenderReportsCSVRoundTrip(t *testing.T) {
	report := models.WellnessReport{
		ID:               "report-1",
		EmployeeID:       "deadbeef-0000-4000-8000-000000000001",
		Mood:             7,
		Stress:           3,
		Anxiety:          2,
		WorkSatisfaction: 8,
		WorkLifeBalance:  6,
		Energy:           9,
		Confidence:       8,
		SleepQuality:     7,
		OverallWellness:  7.75,
		RiskLevel:        models.RiskLow,
		SessionType:      models.SessionTypeVoice,
		SessionDuration:  540,
		AIAnalysis:       "a positive, energetic session",
		CreatedAt:        time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC),
	}

	data, err := renderReportsCSV([]models.WellnessReport{report})
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	header := rows[0]
	require.Len(t, header, 16)
	assert.Equal(t, "Report ID", header[0])
	assert.Equal(t, "AI Analysis Summary", header[15])

	row := rows[1]
	require.Len(t, row, 16)
	assert.Equal(t, "report-1", row[0])
	assert.Equal(t, "deadbeef", row[1], "employee id must be truncated")

	// The eight subscores survive the round trip exactly.
	want := []int{7, 3, 2, 8, 6, 9, 8, 7}
	for i, expected := range want {
		got, err := strconv.Atoi(row[4+i])
		require.NoError(t, err)
		assert.Equal(t, expected, got)
	}
	assert.Equal(t, models.RiskLow, row[13])
	assert.Equal(t, "540", row[14])
}

func TestRenderReportsCSVEmptyHasHeaderOnly(t *testing.T) {
	data, err := renderReportsCSV(nil)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 1)
}

func TestParseTimeRange(t *testing.T) {
	for input, want := range map[string]int{"7d": 7, "30d": 30, "90d": 90} {
		days, err := parseTimeRange(input)
		require.NoError(t, err)
		assert.Equal(t, want, days)
	}

	_, err := parseTimeRange("365d")
	assert.ErrorIs(t, err, ErrValidation)
}
