// Package rewards computes points for contributions and applies them to a
// user's level progress.
package rewards

import (
	"github.com/andygrunwald/fuelradar/internal/models"
)

const (
	// PointsManual is awarded for a hand-typed price report.
	PointsManual = 50
	// PointsScan is awarded for a price read from a photo.
	PointsScan = 50
	// PointsVoice is awarded for a dictated price.
	PointsVoice = 50
	// PointsConfirm is awarded for confirming the displayed price.
	PointsConfirm = 10
	// PointsPioneer is awarded for adding a new station with its first price.
	PointsPioneer = 200
)

var pointsTable = map[models.ReportType]int{
	models.ReportManual:  PointsManual,
	models.ReportScan:    PointsScan,
	models.ReportVoice:   PointsVoice,
	models.ReportConfirm: PointsConfirm,
	models.ReportPioneer: PointsPioneer,
}

// PointsFor returns the points a contribution of the given type earns.
// Unknown types earn the manual report value so a misclassified
// contribution is never blocked.
func PointsFor(reportType models.ReportType) int {
	if p, ok := pointsTable[reportType]; ok {
		return p
	}
	return PointsManual
}

// NextLevelXP returns the XP needed to advance from level to level+1.
func NextLevelXP(level int) int {
	return 100 + (level-1)*50
}

// InitialState is the reward state of a user who never contributed.
func InitialState() models.RewardState {
	return models.RewardState{
		Level:       1,
		NextLevelXP: NextLevelXP(1),
	}
}

// Apply adds points to state and levels up as often as the XP allows.
// The returned state always satisfies 0 <= XP < NextLevelXP.
func Apply(state models.RewardState, points int, reportType models.ReportType) models.RewardState {
	next := normalize(state)

	next.TotalPoints += points
	next.XP += points

	for next.XP >= next.NextLevelXP {
		next.XP -= next.NextLevelXP
		next.Level++
		next.NextLevelXP = NextLevelXP(next.Level)
	}
	if next.XP < 0 {
		next.XP = 0
	}

	if reportType.IsPriceReport() {
		next.ReportsCount++
	}
	if reportType == models.ReportConfirm {
		next.VerifiedCount++
	}

	return next
}

// Replay rebuilds a reward state from a user's contribution history, oldest
// first, starting from InitialState.
func Replay(history []models.Contribution) models.RewardState {
	state := InitialState()
	for _, c := range history {
		state = Apply(state, c.PointsEarned, c.ReportType)
	}
	return state
}

// normalize repairs states loaded from rows that were never initialised.
func normalize(state models.RewardState) models.RewardState {
	if state.Level < 1 {
		state.Level = 1
	}
	if state.NextLevelXP <= 0 {
		state.NextLevelXP = NextLevelXP(state.Level)
	}
	if state.XP < 0 {
		state.XP = 0
	}
	return state
}
