package backtest

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/GEJFY/keiba-data-analytics-sub000/internal/models"
	"github.com/GEJFY/keiba-data-analytics-sub000/internal/strategy"
)

// minTestDays is the floor for a window's test span.
const minTestDays = 7

// minDaysPerWindow is the minimum overall span required per requested window.
const minDaysPerWindow = 30

// Window is one train/test partition of the search date range.
type Window struct {
	ID        int
	TrainFrom time.Time
	TrainTo   time.Time
	TestFrom  time.Time
	TestTo    time.Time

	TrainResult *Result
	TestResult  *Result
}

// TrainROI returns the train-range ROI, zero when the train backtest did
// not run.
func (w *Window) TrainROI() float64 {
	if w.TrainResult == nil {
		return 0
	}
	return w.TrainResult.Metrics.ROI
}

// TestROI returns the test-range ROI, zero when the test backtest did not
// run.
func (w *Window) TestROI() float64 {
	if w.TestResult == nil {
		return 0
	}
	return w.TestResult.Metrics.ROI
}

// OverfittingRatio is train ROI over test ROI. +Inf when the test ROI is
// zero while the train ROI is positive, zero when both are flat or
// negative.
func (w *Window) OverfittingRatio() float64 {
	testROI := w.TestROI()
	trainROI := w.TrainROI()
	if testROI == 0 {
		if trainROI > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return trainROI / testROI
}

// GenerateWindows partitions [dateFrom, dateTo] into nWindows back-to-back
// test spans ending at dateTo, each preceded by a train span sized by
// trainRatio and clipped at dateFrom. Windows are returned sorted ascending
// by test start and renumbered from 1.
func GenerateWindows(dateFrom, dateTo time.Time, nWindows int, trainRatio float64) ([]*Window, error) {
	if trainRatio <= 0 || trainRatio >= 1 {
		return nil, models.NewValidationError("train ratio must be strictly between 0 and 1, got %g", trainRatio)
	}
	if nWindows < 1 {
		return nil, models.NewValidationError("window count must be at least 1, got %d", nWindows)
	}

	totalDays := int(dateTo.Sub(dateFrom).Hours() / 24)
	if totalDays < nWindows*minDaysPerWindow {
		return nil, models.NewValidationError("date span of %d days too short, need at least %d", totalDays, nWindows*minDaysPerWindow)
	}

	testDays := totalDays / (nWindows + int(float64(nWindows)*trainRatio))
	if testDays < minTestDays {
		testDays = minTestDays
	}

	windows := make([]*Window, 0, nWindows)
	for i := 0; i < nWindows; i++ {
		testEnd := dateTo.AddDate(0, 0, -i*testDays)
		testStart := testEnd.AddDate(0, 0, -(testDays - 1))

		trainEnd := testStart.AddDate(0, 0, -1)
		trainDays := int(float64(testDays) / (1 - trainRatio) * trainRatio)
		trainStart := trainEnd.AddDate(0, 0, -trainDays)
		if trainStart.Before(dateFrom) {
			trainStart = dateFrom
		}
		if !trainStart.Before(trainEnd) {
			continue
		}

		windows = append(windows, &Window{
			ID:        i + 1,
			TrainFrom: trainStart,
			TrainTo:   trainEnd,
			TestFrom:  testStart,
			TestTo:    testEnd,
		})
	}

	sort.Slice(windows, func(i, j int) bool {
		return windows[i].TestFrom.Before(windows[j].TestFrom)
	})
	for i, w := range windows {
		w.ID = i + 1
	}

	return windows, nil
}

// WalkForwardResult aggregates a walk-forward validation run. Only
// test-range bets feed the aggregate metrics; the train side exists to
// expose overfitting.
type WalkForwardResult struct {
	Windows             []*Window
	AggregateMetrics    Metrics
	TestBets            []*models.Bet
	AvgTrainROI         float64
	AvgTestROI          float64
	AvgOverfittingRatio float64 // infinite per-window ratios excluded
	TotalTrainBets      int
	TotalTestBets       int
}

// IsOverfitting reports whether the train side materially outperformed the
// test side, either through an infinite per-window ratio or an average
// above 2.0.
func (r *WalkForwardResult) IsOverfitting() bool {
	for _, w := range r.Windows {
		if math.IsInf(w.OverfittingRatio(), 1) {
			return true
		}
	}
	return r.AvgOverfittingRatio > 2.0
}

// StrategyFactory builds a strategy fitted on the given train-range events.
// Walk-forward calls it once per window so each window's strategy has only
// seen its own past.
type StrategyFactory func(ctx context.Context, trainEvents []*models.RaceEvent) (strategy.Strategy, error)

// WalkForwardEngine runs train and test backtests per window and aggregates
// the out-of-sample side.
type WalkForwardEngine struct {
	factory StrategyFactory
	logger  *logrus.Logger
}

// NewWalkForwardEngine creates a walk-forward engine with a per-window
// strategy factory.
func NewWalkForwardEngine(factory StrategyFactory, logger *logrus.Logger) *WalkForwardEngine {
	if logger == nil {
		logger = logrus.New()
	}
	return &WalkForwardEngine{factory: factory, logger: logger}
}

// Run executes each window's train and test backtests over the supplied
// events. Windows with no train or test events are skipped.
func (e *WalkForwardEngine) Run(ctx context.Context, events []*models.RaceEvent, windows []*Window, initialBankroll int64) (*WalkForwardResult, error) {
	result := &WalkForwardResult{Windows: windows}

	var trainROIs, testROIs, ofRatios []float64

	for _, window := range windows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		trainEvents := FilterEvents(events, window.TrainFrom, window.TrainTo)
		testEvents := FilterEvents(events, window.TestFrom, window.TestTo)
		if len(trainEvents) == 0 || len(testEvents) == 0 {
			e.logger.WithField("window", window.ID).Debug("skipping window without events")
			continue
		}

		strat, err := e.factory(ctx, trainEvents)
		if err != nil {
			return nil, fmt.Errorf("window %d: building strategy: %w", window.ID, err)
		}
		engine := NewEngine(strat, e.logger)

		trainResult, err := engine.Run(ctx, trainEvents, Config{
			DateFrom:        window.TrainFrom,
			DateTo:          window.TrainTo,
			InitialBankroll: initialBankroll,
		})
		if err != nil {
			return nil, fmt.Errorf("window %d: train backtest: %w", window.ID, err)
		}
		window.TrainResult = trainResult
		trainROIs = append(trainROIs, window.TrainROI())
		result.TotalTrainBets += trainResult.TotalBets

		testResult, err := engine.Run(ctx, testEvents, Config{
			DateFrom:        window.TestFrom,
			DateTo:          window.TestTo,
			InitialBankroll: initialBankroll,
		})
		if err != nil {
			return nil, fmt.Errorf("window %d: test backtest: %w", window.ID, err)
		}
		window.TestResult = testResult
		testROIs = append(testROIs, window.TestROI())
		result.TotalTestBets += testResult.TotalBets
		result.TestBets = append(result.TestBets, testResult.Bets...)

		if ratio := window.OverfittingRatio(); !math.IsInf(ratio, 1) {
			ofRatios = append(ofRatios, ratio)
		}

		e.logger.WithFields(logrus.Fields{
			"window":    window.ID,
			"train_roi": window.TrainROI(),
			"test_roi":  window.TestROI(),
		}).Debug("walk-forward window finished")
	}

	result.AvgTrainROI = meanOf(trainROIs)
	result.AvgTestROI = meanOf(testROIs)
	result.AvgOverfittingRatio = meanOf(ofRatios)
	result.AggregateMetrics = CalculateMetrics(result.TestBets, initialBankroll)

	e.logger.WithFields(logrus.Fields{
		"windows":           len(windows),
		"avg_train_roi":     result.AvgTrainROI,
		"avg_test_roi":      result.AvgTestROI,
		"overfitting_ratio": result.AvgOverfittingRatio,
	}).Info("walk-forward validation finished")

	return result, nil
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
