package risk

import "fmt"

// Level is the ordinal risk classification attached to an application.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

func (l Level) rank() int {
	switch l {
	case LevelLow:
		return 1
	case LevelMedium:
		return 2
	case LevelHigh:
		return 3
	case LevelCritical:
		return 4
	}
	return 0
}

// AtMost reports whether l is no more severe than o.
func (l Level) AtMost(o Level) bool {
	return l.rank() <= o.rank()
}

// Max returns the more severe of a and b. An empty level counts as below low.
func Max(a, b Level) Level {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

// ParseLevel validates a level name.
func ParseLevel(s string) (Level, error) {
	l := Level(s)
	if l.rank() == 0 {
		return "", fmt.Errorf("unknown risk level %q", s)
	}
	return l, nil
}

// LevelForScore classifies a fraud score in [0,1].
func LevelForScore(fraudScore float64) Level {
	switch {
	case fraudScore >= 0.6:
		return LevelHigh
	case fraudScore >= 0.3:
		return LevelMedium
	}
	return LevelLow
}
