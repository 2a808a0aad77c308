package screening

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycgate/internal/identity"
	"kycgate/internal/screening/metrics"
)

func applicant() identity.Record {
	return identity.Record{
		CNIC:        "15059-0123456-7",
		FullName:    "Ahmed Khan",
		FatherName:  "Imran Khan",
		DateOfBirth: time.Date(1990, time.May, 15, 0, 0, 0, 0, time.UTC),
		Gender:      identity.GenderMale,
	}
}

func newTestEngine(t *testing.T, lists ListStore, opts ...Option) (*Engine, *InMemoryResultStore) {
	t.Helper()
	results := NewInMemoryResultStore()
	return NewEngine(lists, results, opts...), results
}

func TestScreen_ClearWhenNoEntryScoresAboveThreshold(t *testing.T) {
	lists := NewStaticListStore()
	lists.SetEntries(ListUNSanctions, []Entry{{Name: "Completely Different Person"}})
	engine, _ := newTestEngine(t, lists)

	result, err := engine.Screen(context.Background(), "app-1", applicant(), ListUNSanctions)
	require.NoError(t, err)
	assert.Equal(t, StatusClear, result.Status)
	assert.Equal(t, RiskLow, result.RiskLevel)
	assert.False(t, result.RequiresManualReview)
	assert.Empty(t, result.Matches)
}

func TestScreen_ExactNameMatchIsCritical(t *testing.T) {
	lists := NewStaticListStore()
	lists.SetEntries(ListUNSanctions, []Entry{{Name: "Ahmed Khan"}})
	engine, _ := newTestEngine(t, lists)

	result, err := engine.Screen(context.Background(), "app-1", applicant(), ListUNSanctions)
	require.NoError(t, err)
	assert.Equal(t, StatusMatchFound, result.Status)
	assert.Equal(t, RiskCritical, result.RiskLevel)
	assert.True(t, result.RequiresManualReview)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, 100.0, result.Matches[0].Score)
	assert.Equal(t, BasisName, result.Matches[0].Basis)
}

func TestScreen_AliasOutscoringNameSetsAliasBasis(t *testing.T) {
	lists := NewStaticListStore()
	lists.SetEntries(ListOFAC, []Entry{{
		Name:    "Entirely Unrelated",
		Aliases: []string{"Ahmed Khan"},
	}})
	engine, _ := newTestEngine(t, lists)

	result, err := engine.Screen(context.Background(), "app-1", applicant(), ListOFAC)
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, BasisAlias, result.Matches[0].Basis)
	assert.Equal(t, 100.0, result.Matches[0].Score)
}

func TestScreen_FatherNameAveragesIntoScore(t *testing.T) {
	lists := NewStaticListStore()
	// Name matches exactly but the listed father is unrelated, halving the score
	// below the threshold.
	lists.SetEntries(ListUNSanctions, []Entry{{
		Name:       "Ahmed Khan",
		FatherName: "Zzzzz Qqqqq",
	}})
	engine, _ := newTestEngine(t, lists)

	result, err := engine.Screen(context.Background(), "app-1", applicant(), ListUNSanctions)
	require.NoError(t, err)
	assert.Equal(t, StatusClear, result.Status)
}

func TestScreen_DOBBonusCapsAtHundred(t *testing.T) {
	lists := NewStaticListStore()
	lists.SetEntries(ListUNSanctions, []Entry{{
		Name:        "Ahmed Khan",
		DateOfBirth: "1990-05-15",
	}})
	engine, _ := newTestEngine(t, lists)

	result, err := engine.Screen(context.Background(), "app-1", applicant(), ListUNSanctions)
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, 100.0, result.Matches[0].Score)
}

func TestScreen_DOBBonusLiftsBorderlineMatch(t *testing.T) {
	lists := NewStaticListStore()
	// "Ahmed Khen" vs "Ahmed Khan" is 90; the exact birth date adds 10.
	lists.SetEntries(ListUNSanctions, []Entry{{
		Name:        "Ahmed Khen",
		DateOfBirth: "1990-05-15",
	}})
	engine, _ := newTestEngine(t, lists)

	result, err := engine.Screen(context.Background(), "app-1", applicant(), ListUNSanctions)
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, 100.0, result.Matches[0].Score)
	assert.Equal(t, RiskCritical, result.RiskLevel)
}

func TestScreen_MatchesSortedByScoreDescending(t *testing.T) {
	lists := NewStaticListStore()
	lists.SetEntries(ListUNSanctions, []Entry{
		{Name: "Ahmed Kham"}, // 90
		{Name: "Ahmed Khan"}, // 100
	})
	engine, _ := newTestEngine(t, lists)

	result, err := engine.Screen(context.Background(), "app-1", applicant(), ListUNSanctions)
	require.NoError(t, err)
	require.Len(t, result.Matches, 2)
	assert.Equal(t, 100.0, result.Matches[0].Score)
	assert.Equal(t, 100.0, result.HighestScore)
	assert.GreaterOrEqual(t, result.Matches[0].Score, result.Matches[1].Score)
}

func TestScreen_LocalProscribedMatchEscalatesToCritical(t *testing.T) {
	lists := NewStaticListStore()
	// 70 similarity alone would be medium, not critical.
	lists.SetEntries(ListLocalProscribed, []Entry{{Name: "Ahmed Kkkk"}})
	engine, _ := newTestEngine(t, lists)

	result, err := engine.Screen(context.Background(), "app-1", applicant(), ListLocalProscribed)
	require.NoError(t, err)
	assert.Equal(t, StatusMatchFound, result.Status)
	assert.Equal(t, RiskCritical, result.RiskLevel)
}

func TestScreen_ListLoadFailureParksUnderReview(t *testing.T) {
	lists := NewStaticListStore()
	lists.FailWith(ListTFSRegime, errors.New("feed unreachable"))
	engine, store := newTestEngine(t, lists)

	result, err := engine.Screen(context.Background(), "app-1", applicant(), ListTFSRegime)
	require.NoError(t, err)
	assert.Equal(t, StatusUnderReview, result.Status)
	assert.True(t, result.RequiresManualReview)
	assert.Contains(t, result.FailureReason, "feed unreachable")

	saved, err := store.FindByApplication(context.Background(), "app-1")
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, StatusUnderReview, saved[0].Status)
}

func TestScreen_HighRiskMatchIsReportedToFMU(t *testing.T) {
	lists := NewStaticListStore()
	lists.SetEntries(ListUNSanctions, []Entry{{Name: "Ahmed Khan"}})
	reporter := NewMockFMUReporter()
	reporter.Latency = 0
	engine, _ := newTestEngine(t, lists, WithReporter(reporter))

	result, err := engine.Screen(context.Background(), "app-1", applicant(), ListUNSanctions)
	require.NoError(t, err)
	assert.True(t, result.ReportedToFMU)
	assert.Regexp(t, `^FMU-\d{4}-[0-9A-F]{8}$`, result.FMUReference)
	require.NotNil(t, result.ReportedAt)
}

func TestScreen_RecordsListSizeGauge(t *testing.T) {
	lists := NewStaticListStore()
	lists.SetEntries(ListUNSanctions, []Entry{{Name: "Entry One"}, {Name: "Entry Two"}})
	reg := prometheus.NewRegistry()
	engine, _ := newTestEngine(t, lists, WithMetrics(metrics.New(reg)))

	_, err := engine.Screen(context.Background(), "app-1", applicant(), ListUNSanctions)
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	var gauge float64
	for _, mf := range families {
		if mf.GetName() != "kycgate_screening_list_entries" {
			continue
		}
		require.Len(t, mf.GetMetric(), 1)
		gauge = mf.GetMetric()[0].GetGauge().GetValue()
	}
	assert.Equal(t, 2.0, gauge)
}

func TestScreen_PEPMatchIsNotReportedToFMU(t *testing.T) {
	lists := NewStaticListStore()
	lists.SetEntries(ListPEP, []Entry{{Name: "Ahmed Khan"}})
	reporter := NewMockFMUReporter()
	reporter.Latency = 0
	engine, _ := newTestEngine(t, lists, WithReporter(reporter))

	result, err := engine.Screen(context.Background(), "app-1", applicant(), ListPEP)
	require.NoError(t, err)
	assert.Equal(t, StatusMatchFound, result.Status)
	assert.Equal(t, RiskCritical, result.RiskLevel)
	assert.True(t, result.RequiresManualReview)
	assert.False(t, result.ReportedToFMU)
	assert.Empty(t, result.FMUReference)
}

func TestScreen_OFACMatchIsNotReportedToFMU(t *testing.T) {
	lists := NewStaticListStore()
	lists.SetEntries(ListOFAC, []Entry{{Name: "Ahmed Khan"}})
	reporter := NewMockFMUReporter()
	reporter.Latency = 0
	engine, _ := newTestEngine(t, lists, WithReporter(reporter))

	result, err := engine.Screen(context.Background(), "app-1", applicant(), ListOFAC)
	require.NoError(t, err)
	assert.Equal(t, StatusMatchFound, result.Status)
	assert.False(t, result.ReportedToFMU)
}

func TestScreen_FMUFilingFailureKeepsMatchOpen(t *testing.T) {
	lists := NewStaticListStore()
	lists.SetEntries(ListUNSanctions, []Entry{{Name: "Ahmed Khan"}})
	reporter := &MockFMUReporter{Fail: true}
	engine, _ := newTestEngine(t, lists, WithReporter(reporter))

	result, err := engine.Screen(context.Background(), "app-1", applicant(), ListUNSanctions)
	require.NoError(t, err)
	assert.Equal(t, StatusMatchFound, result.Status)
	assert.False(t, result.ReportedToFMU)
	assert.Empty(t, result.FMUReference)
}

func TestScreenAll_AggregatesFlags(t *testing.T) {
	lists := NewStaticListStore()
	for _, l := range AllLists {
		lists.SetEntries(l, nil)
	}
	lists.SetEntries(ListPEP, []Entry{{Name: "Ahmed Khan"}})
	engine, _ := newTestEngine(t, lists)

	results, flags, err := engine.ScreenAll(context.Background(), "app-1", applicant())
	require.NoError(t, err)
	require.Len(t, results, len(AllLists))
	assert.True(t, flags.SanctionsCleared)
	assert.False(t, flags.PEPCleared)
}

func TestScreenAll_CarriesForwardFalsePositives(t *testing.T) {
	lists := NewStaticListStore()
	for _, l := range AllLists {
		lists.SetEntries(l, nil)
	}
	lists.SetEntries(ListUNSanctions, []Entry{{Name: "Ahmed Khan"}})
	engine, store := newTestEngine(t, lists)
	ctx := context.Background()

	results, flags, err := engine.ScreenAll(ctx, "app-1", applicant())
	require.NoError(t, err)
	assert.False(t, flags.SanctionsCleared)

	var hit *Result
	for _, r := range results {
		if r.List == ListUNSanctions {
			hit = r
		}
	}
	require.NotNil(t, hit)
	_, err = engine.Review(ctx, hit.ID, "analyst-1", "false_positive", "different person, dob mismatch")
	require.NoError(t, err)

	// Re-screening must not reopen the resolved result.
	results, flags, err = engine.ScreenAll(ctx, "app-1", applicant())
	require.NoError(t, err)
	assert.True(t, flags.SanctionsCleared)
	for _, r := range results {
		if r.List == ListUNSanctions {
			assert.Equal(t, StatusFalsePositive, r.Status)
		}
	}

	saved, err := store.FindByApplication(ctx, "app-1")
	require.NoError(t, err)
	assert.Len(t, saved, len(AllLists))
}

func TestReview_EscalateForcesCriticalAndReview(t *testing.T) {
	lists := NewStaticListStore()
	lists.SetEntries(ListOFAC, []Entry{{Name: "Ahmed Kkkk"}}) // 70, medium
	engine, _ := newTestEngine(t, lists)
	ctx := context.Background()

	result, err := engine.Screen(ctx, "app-1", applicant(), ListOFAC)
	require.NoError(t, err)

	reviewed, err := engine.Review(ctx, result.ID, "analyst-2", "escalate", "matches intel report")
	require.NoError(t, err)
	assert.Equal(t, RiskCritical, reviewed.RiskLevel)
	assert.True(t, reviewed.RequiresManualReview)
	assert.Equal(t, "analyst-2", reviewed.ReviewedBy)
}

func TestReview_RejectsUnknownAction(t *testing.T) {
	lists := NewStaticListStore()
	lists.SetEntries(ListOFAC, []Entry{{Name: "Ahmed Khan"}})
	engine, _ := newTestEngine(t, lists)
	ctx := context.Background()

	result, err := engine.Screen(ctx, "app-1", applicant(), ListOFAC)
	require.NoError(t, err)

	_, err = engine.Review(ctx, result.ID, "analyst-1", "shred", "")
	assert.Error(t, err)
}

func TestReview_FalsePositiveIsFinal(t *testing.T) {
	lists := NewStaticListStore()
	lists.SetEntries(ListOFAC, []Entry{{Name: "Ahmed Khan"}})
	engine, _ := newTestEngine(t, lists)
	ctx := context.Background()

	result, err := engine.Screen(ctx, "app-1", applicant(), ListOFAC)
	require.NoError(t, err)

	_, err = engine.Review(ctx, result.ID, "analyst-1", "false_positive", "cleared")
	require.NoError(t, err)
	_, err = engine.Review(ctx, result.ID, "analyst-2", "confirm", "")
	assert.Error(t, err)
}

func TestComputeFlags_MissingListCountsAsNotCleared(t *testing.T) {
	flags := ComputeFlags(nil)
	assert.False(t, flags.SanctionsCleared)
	assert.False(t, flags.PEPCleared)
}

func TestSummarize(t *testing.T) {
	lists := NewStaticListStore()
	for _, l := range AllLists {
		lists.SetEntries(l, nil)
	}
	lists.SetEntries(ListUNSanctions, []Entry{{Name: "Ahmed Khan"}})
	engine, _ := newTestEngine(t, lists)
	ctx := context.Background()

	_, _, err := engine.ScreenAll(ctx, "app-1", applicant())
	require.NoError(t, err)

	summary, err := engine.Summarize(ctx, "app-1")
	require.NoError(t, err)
	assert.Equal(t, RiskCritical, summary.HighestRiskLevel)
	assert.Equal(t, 1, summary.OpenMatches)
	assert.Equal(t, 1, summary.PendingReview)
	assert.False(t, summary.SanctionsCleared)
	assert.True(t, summary.PEPCleared)
	assert.Equal(t, StatusClear, summary.Lists[ListPEP])
}

func TestRiskLevelBoundaries(t *testing.T) {
	assert.Equal(t, RiskLow, riskLevelFromScore(49.9))
	assert.Equal(t, RiskMedium, riskLevelFromScore(50))
	assert.Equal(t, RiskMedium, riskLevelFromScore(74.9))
	assert.Equal(t, RiskHigh, riskLevelFromScore(75))
	assert.Equal(t, RiskHigh, riskLevelFromScore(89.9))
	assert.Equal(t, RiskCritical, riskLevelFromScore(90))
}
