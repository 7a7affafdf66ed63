package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diltak/mindtak-sub001/models"
)

const validReportJSON = `{"mood": 7, "stress": 4, "anxiety": 3, "work_satisfaction": 8, "work_life_balance": 6, "energy": 7, "confidence": 8, "sleep_quality": 6, "complete_report": "A good week overall with manageable stress."}`

func TestParseStructuredReportValid(t *testing.T) {
	report, ok := parseStructuredReport(validReportJSON)
	require.True(t, ok)

	assert.Equal(t, 7, report.Mood)
	assert.Equal(t, 4, report.Stress)
	assert.Equal(t, 6, report.SleepQuality)
	assert.Equal(t, "A good week overall with manageable stress.", report.CompleteReport)
}

func TestParseStructuredReportPlainText(t *testing.T) {
	report, ok := parseStructuredReport("Thanks for sharing. How has your sleep been this week?")
	assert.False(t, ok)
	assert.Nil(t, report)
}

func TestParseStructuredReportCodeFence(t *testing.T) {
	fenced := "```json\n" + validReportJSON + "\n```"
	report, ok := parseStructuredReport(fenced)
	require.True(t, ok)
	assert.Equal(t, 8, report.WorkSatisfaction)
}

func TestParseStructuredReportMalformedJSONDegrades(t *testing.T) {
	// Brace-prefixed junk must fall back to a message, never fail the turn.
	report, ok := parseStructuredReport(`{"mood": 7, "stress": broken`)
	assert.False(t, ok)
	assert.Nil(t, report)
}

func TestParseStructuredReportOutOfRangeDegrades(t *testing.T) {
	outOfRange := `{"mood": 11, "stress": 4, "anxiety": 3, "work_satisfaction": 8, "work_life_balance": 6, "energy": 7, "confidence": 8, "sleep_quality": 6, "complete_report": "x"}`
	report, ok := parseStructuredReport(outOfRange)
	assert.False(t, ok)
	assert.Nil(t, report)

	zeroScore := `{"mood": 0, "stress": 4, "anxiety": 3, "work_satisfaction": 8, "work_life_balance": 6, "energy": 7, "confidence": 8, "sleep_quality": 6, "complete_report": "x"}`
	_, ok = parseStructuredReport(zeroScore)
	assert.False(t, ok)
}

func TestParseStructuredReportMissingFieldsDegrades(t *testing.T) {
	// Absent subscores decode to zero and fail range validation.
	partial := `{"mood": 7, "complete_report": "only one score"}`
	_, ok := parseStructuredReport(partial)
	assert.False(t, ok)
}

func TestParseStructuredReportEmptyNarrativeDegrades(t *testing.T) {
	noNarrative := `{"mood": 7, "stress": 4, "anxiety": 3, "work_satisfaction": 8, "work_life_balance": 6, "energy": 7, "confidence": 8, "sleep_quality": 6, "complete_report": "  "}`
	_, ok := parseStructuredReport(noNarrative)
	assert.False(t, ok)
}

func TestStructuredReportValidate(t *testing.T) {
	report := &StructuredReport{
		Mood: 5, Stress: 5, Anxiety: 5, WorkSatisfaction: 5,
		WorkLifeBalance: 5, Energy: 5, Confidence: 5, SleepQuality: 5,
		CompleteReport: "fine",
	}
	assert.NoError(t, report.Validate())

	report.Anxiety = 12
	assert.ErrorIs(t, report.Validate(), ErrValidation)
}

func TestOverallWellnessInvertsStressAndAnxiety(t *testing.T) {
	// All positive dimensions maxed, stress/anxiety minimal: best case.
	best := &StructuredReport{
		Mood: 10, Stress: 1, Anxiety: 1, WorkSatisfaction: 10,
		WorkLifeBalance: 10, Energy: 10, Confidence: 10, SleepQuality: 10,
	}
	assert.InDelta(t, 10.0, best.OverallWellness(), 1e-9)
	assert.Equal(t, models.RiskLow, best.RiskLevel())

	worst := &StructuredReport{
		Mood: 1, Stress: 10, Anxiety: 10, WorkSatisfaction: 1,
		WorkLifeBalance: 1, Energy: 1, Confidence: 1, SleepQuality: 1,
	}
	assert.InDelta(t, 1.0, worst.OverallWellness(), 1e-9)
	assert.Equal(t, models.RiskHigh, worst.RiskLevel())
}

func TestRiskLevelBuckets(t *testing.T) {
	mid := &StructuredReport{
		Mood: 5, Stress: 6, Anxiety: 6, WorkSatisfaction: 5,
		WorkLifeBalance: 5, Energy: 5, Confidence: 5, SleepQuality: 5,
	}
	// Overall (5+5+5+5+5+5+5+5)/8 = 5.0 -> medium.
	assert.InDelta(t, 5.0, mid.OverallWellness(), 1e-9)
	assert.Equal(t, models.RiskMedium, mid.RiskLevel())
}

func TestToWellnessReport(t *testing.T) {
	structured, ok := parseStructuredReport(validReportJSON)
	require.True(t, ok)

	report := structured.ToWellnessReport("emp-1", "comp-1", models.SessionTypeVoice, 600)

	assert.Equal(t, "emp-1", report.EmployeeID)
	assert.Equal(t, "comp-1", report.CompanyID)
	assert.Equal(t, models.SessionTypeVoice, report.SessionType)
	assert.Equal(t, 600, report.SessionDuration)
	assert.Equal(t, 7, report.Mood)
	assert.Equal(t, structured.CompleteReport, report.AIAnalysis)
	assert.Equal(t, structured.OverallWellness(), report.OverallWellness)
	assert.Equal(t, structured.RiskLevel(), report.RiskLevel)
}

func TestChatOutcomeTagging(t *testing.T) {
	msg := ChatOutcome{Message: "hello"}
	assert.False(t, msg.IsReport())

	rep := ChatOutcome{Report: &StructuredReport{}}
	assert.True(t, rep.IsReport())
}
