// Package search samples hyperparameter configurations, runs trials and
// orchestrates autonomous strategy search sessions.
package search

import (
	"math/rand"
	"strings"

	"github.com/google/uuid"

	"github.com/GEJFY/keiba-data-analytics-sub000/internal/models"
)

// Search space dimensions. Every trial draws one value per dimension.
var (
	TrainWindowMonths = []int{3, 6, 9, 12, 18, 24}
	EVThresholds      = []float64{1.05, 1.10, 1.15, 1.20, 1.25, 1.30}
	Regularizations   = []float64{0.01, 0.1, 1.0, 10.0}
	TargetRanks       = []int{1, 3}
	CalibrationMethods = []string{
		models.CalibrationPlatt,
		models.CalibrationIsotonic,
		models.CalibrationNone,
	}
	StakingMethods = []string{
		models.StakingQuarterKelly,
		models.StakingEqual,
	}
	WFWindowCounts   = []int{3, 5, 7}
	MaxBetsPerEvent  = []int{1, 2, 3}
	FactorSelections = []string{
		models.FactorSelectionAll,
		models.FactorSelectionTop10AUC,
		models.FactorSelectionTop15AUC,
		models.FactorSelectionCategory,
	}
)

// Space samples TrialConfigs uniformly over the dimension grid.
type Space struct{}

// NewSpace returns the search space.
func NewSpace() *Space {
	return &Space{}
}

// TotalCombinations returns the size of the full grid.
func (s *Space) TotalCombinations() int {
	return len(TrainWindowMonths) * len(EVThresholds) * len(Regularizations) *
		len(TargetRanks) * len(CalibrationMethods) * len(StakingMethods) *
		len(WFWindowCounts) * len(MaxBetsPerEvent) * len(FactorSelections)
}

// Sample draws one configuration. It consumes a fixed number of draws from
// rng per call, so replaying N calls against a same-seeded source
// reproduces the first N configurations exactly.
func (s *Space) Sample(rng *rand.Rand) models.TrialConfig {
	return models.TrialConfig{
		TrialID:           newTrialID(),
		TrainWindowMonths: TrainWindowMonths[rng.Intn(len(TrainWindowMonths))],
		EVThreshold:       EVThresholds[rng.Intn(len(EVThresholds))],
		Regularization:    Regularizations[rng.Intn(len(Regularizations))],
		TargetRank:        TargetRanks[rng.Intn(len(TargetRanks))],
		CalibrationMethod: CalibrationMethods[rng.Intn(len(CalibrationMethods))],
		StakingMethod:     StakingMethods[rng.Intn(len(StakingMethods))],
		WFNumWindows:      WFWindowCounts[rng.Intn(len(WFWindowCounts))],
		MaxBetsPerEvent:   MaxBetsPerEvent[rng.Intn(len(MaxBetsPerEvent))],
		FactorSelection:   FactorSelections[rng.Intn(len(FactorSelections))],
	}
}

// newTrialID returns a short unique trial identifier.
func newTrialID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}
