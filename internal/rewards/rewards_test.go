package rewards

import (
	"testing"

	"github.com/andygrunwald/fuelradar/internal/models"
)

func TestPointsFor(t *testing.T) {
	tests := []struct {
		reportType models.ReportType
		want       int
	}{
		{models.ReportManual, 50},
		{models.ReportScan, 50},
		{models.ReportVoice, 50},
		{models.ReportConfirm, 10},
		{models.ReportPioneer, 200},
		{models.ReportType("telepathy"), 50},
		{models.ReportType(""), 50},
	}
	for _, tt := range tests {
		if got := PointsFor(tt.reportType); got != tt.want {
			t.Errorf("PointsFor(%q) = %d, want %d", tt.reportType, got, tt.want)
		}
	}
}

func TestNextLevelXP(t *testing.T) {
	want := map[int]int{1: 100, 2: 150, 3: 200, 12: 650}
	for level, xp := range want {
		if got := NextLevelXP(level); got != xp {
			t.Errorf("NextLevelXP(%d) = %d, want %d", level, got, xp)
		}
	}
}

func TestApplyMultipleLevelUps(t *testing.T) {
	start := models.RewardState{Level: 1, XP: 90, NextLevelXP: 100}

	got := Apply(start, PointsFor(models.ReportPioneer), models.ReportPioneer)

	if got.Level != 3 || got.XP != 40 || got.NextLevelXP != 200 {
		t.Errorf("got level=%d xp=%d next=%d, want level=3 xp=40 next=200", got.Level, got.XP, got.NextLevelXP)
	}
	if got.TotalPoints != 200 {
		t.Errorf("TotalPoints = %d, want 200", got.TotalPoints)
	}
	if got.ReportsCount != 1 || got.VerifiedCount != 0 {
		t.Errorf("counts = %d/%d, want 1/0", got.ReportsCount, got.VerifiedCount)
	}
}

func TestApplyCounters(t *testing.T) {
	tests := []struct {
		reportType   models.ReportType
		wantReports  int
		wantVerified int
	}{
		{models.ReportManual, 1, 0},
		{models.ReportScan, 1, 0},
		{models.ReportVoice, 1, 0},
		{models.ReportPioneer, 1, 0},
		{models.ReportConfirm, 0, 1},
		{models.ReportType("unknown"), 0, 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.reportType), func(t *testing.T) {
			got := Apply(InitialState(), PointsFor(tt.reportType), tt.reportType)
			if got.ReportsCount != tt.wantReports || got.VerifiedCount != tt.wantVerified {
				t.Errorf("counts = %d/%d, want %d/%d", got.ReportsCount, got.VerifiedCount, tt.wantReports, tt.wantVerified)
			}
		})
	}
}

func TestApplyKeepsXPBelowThreshold(t *testing.T) {
	state := InitialState()
	types := []models.ReportType{models.ReportManual, models.ReportConfirm, models.ReportPioneer, models.ReportScan, models.ReportVoice}
	for i := 0; i < 500; i++ {
		rt := types[i%len(types)]
		state = Apply(state, PointsFor(rt), rt)
		if state.XP < 0 || state.XP >= state.NextLevelXP {
			t.Fatalf("step %d: xp=%d next=%d violates 0 <= xp < next", i, state.XP, state.NextLevelXP)
		}
		if state.NextLevelXP != NextLevelXP(state.Level) {
			t.Fatalf("step %d: next=%d does not match level %d", i, state.NextLevelXP, state.Level)
		}
	}

	huge := Apply(InitialState(), 100000, models.ReportManual)
	if huge.XP >= huge.NextLevelXP {
		t.Errorf("xp=%d next=%d after huge award", huge.XP, huge.NextLevelXP)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	start := models.RewardState{Level: 2, XP: 10, NextLevelXP: 150, TotalPoints: 110, ReportsCount: 2, Version: 7}
	copyOfStart := start

	got := Apply(start, 10, models.ReportConfirm)

	if start != copyOfStart {
		t.Errorf("input mutated: %+v", start)
	}
	if got.Version != 7 {
		t.Errorf("Version = %d, want 7 (untouched)", got.Version)
	}
}

func TestApplyNormalizesZeroState(t *testing.T) {
	got := Apply(models.RewardState{}, 50, models.ReportManual)
	if got.Level != 1 || got.XP != 50 || got.NextLevelXP != 100 {
		t.Errorf("got %+v, want level 1, xp 50, next 100", got)
	}
}

func TestReplay(t *testing.T) {
	history := []models.Contribution{
		{ReportType: models.ReportPioneer, PointsEarned: 200},
		{ReportType: models.ReportManual, PointsEarned: 50},
		{ReportType: models.ReportConfirm, PointsEarned: 10},
	}
	got := Replay(history)

	want := models.RewardState{TotalPoints: 260, XP: 10, Level: 3, NextLevelXP: 200, ReportsCount: 2, VerifiedCount: 1}
	if got != want {
		t.Errorf("Replay() = %+v, want %+v", got, want)
	}
}
