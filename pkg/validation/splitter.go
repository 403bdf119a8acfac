package validation

import (
	"time"

	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/types"
)

// Fold is one train/test pair of consecutive bar windows
type Fold struct {
	Index      int
	Train      []types.OHLCV
	Test       []types.OHLCV
	TrainStart time.Time
	TrainEnd   time.Time
	TestStart  time.Time
	TestEnd    time.Time
}

func newFold(index int, train, test []types.OHLCV) Fold {
	return Fold{
		Index:      index,
		Train:      train,
		Test:       test,
		TrainStart: train[0].Timestamp,
		TrainEnd:   train[len(train)-1].Timestamp,
		TestStart:  test[0].Timestamp,
		TestEnd:    test[len(test)-1].Timestamp,
	}
}

// Splitter cuts bar histories into folds. Windows shorter than the minimums are dropped.
type Splitter struct {
	MinTrainBars int
	MinTestBars  int
}

// NewSplitter creates a splitter with the given minimum window sizes
func NewSplitter(minTrainBars, minTestBars int) *Splitter {
	return &Splitter{MinTrainBars: minTrainBars, MinTestBars: minTestBars}
}

// minimums never lets a window be empty
func (s *Splitter) minimums() (train, test int) {
	return max(s.MinTrainBars, 1), max(s.MinTestBars, 1)
}

// SplitByRatio returns the first ratio of bars as the training window and the rest as the
// test window. ok is false when either side is below its minimum.
func (s *Splitter) SplitByRatio(bars []types.OHLCV, ratio float64) (fold Fold, ok bool) {
	if ratio <= 0 || ratio >= 1 {
		return Fold{}, false
	}
	n := int(float64(len(bars)) * ratio)
	if n < 1 || n >= len(bars) {
		return Fold{}, false
	}
	minTrain, minTest := s.minimums()
	train, test := bars[:n], bars[n:]
	if len(train) < minTrain || len(test) < minTest {
		return Fold{}, false
	}
	return newFold(1, train, test), true
}

// RollingFolds slides a train window followed by a test window over the bars, advancing the
// start by rollDays each time, until a window no longer fits
func (s *Splitter) RollingFolds(bars []types.OHLCV, trainDays, testDays, rollDays int) []Fold {
	var folds []Fold
	if len(bars) == 0 {
		return folds
	}

	trainDur := time.Duration(trainDays) * 24 * time.Hour
	testDur := time.Duration(testDays) * 24 * time.Hour
	rollDur := time.Duration(rollDays) * 24 * time.Hour

	minTrain, minTest := s.minimums()
	start := 0
	for {
		trainEndTs := bars[start].Timestamp.Add(trainDur)
		trainEnd := advance(bars, start, trainEndTs)
		testEnd := advance(bars, trainEnd, trainEndTs.Add(testDur))

		if trainEnd-start < minTrain || testEnd-trainEnd < minTest {
			break
		}
		folds = append(folds, newFold(len(folds)+1, bars[start:trainEnd], bars[trainEnd:testEnd]))

		next := advance(bars, start, bars[start].Timestamp.Add(rollDur))
		if next <= start {
			next = start + 1
		}
		if next >= len(bars) {
			break
		}
		start = next
	}
	return folds
}

// advance returns the index of the first bar at or after ts, starting the scan at from
func advance(bars []types.OHLCV, from int, ts time.Time) int {
	i := from
	for i < len(bars) && bars[i].Timestamp.Before(ts) {
		i++
	}
	return i
}
