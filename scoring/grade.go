package scoring

import (
	"errors"
	"fmt"
)

type GradeBand struct {
	MinAccuracy float64 `yaml:"min_accuracy" json:"min_accuracy"`
	Letter      string  `yaml:"letter" json:"letter"`
}

// GradeTable is ordered from the highest band down. The last band should
// have MinAccuracy 0 so every accuracy lands somewhere.
type GradeTable []GradeBand

var DefaultGrades = GradeTable{
	{95, "A+"},
	{90, "A"},
	{85, "B+"},
	{80, "B"},
	{75, "C+"},
	{70, "C"},
	{0, "D"},
}

var ErrBadGradeTable = errors.New("scoring: grade bands must be strictly decreasing and end at 0")

func (g GradeTable) Validate() error {
	if len(g) == 0 {
		return ErrBadGradeTable
	}
	for i := 1; i < len(g); i++ {
		if g[i].MinAccuracy >= g[i-1].MinAccuracy {
			return fmt.Errorf("%w: band %q (%v) after %q (%v)", ErrBadGradeTable,
				g[i].Letter, g[i].MinAccuracy, g[i-1].Letter, g[i-1].MinAccuracy)
		}
	}
	if g[len(g)-1].MinAccuracy != 0 {
		return ErrBadGradeTable
	}
	return nil
}

func (g GradeTable) Grade(accuracy float64) string {
	for _, band := range g {
		if accuracy >= band.MinAccuracy {
			return band.Letter
		}
	}
	return g[len(g)-1].Letter
}
