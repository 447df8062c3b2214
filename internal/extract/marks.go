package extract

import (
	"strconv"
)

// ExtractMarks returns a percentage in [0,100]. The first labeled rule with an
// in-range match wins and contributes its largest value; otherwise the largest
// standalone 1-3 digit number in range; otherwise DefaultMarks.
func (e *Extractor) ExtractMarks(text string) int {
	for _, r := range e.marks {
		if v, ok := maxInRange(r.Pattern.FindAllStringSubmatch(text, -1), 1); ok {
			return v
		}
	}
	if v, ok := maxInRange(wrap(reStandalone.FindAllString(text, -1)), 0); ok {
		return v
	}
	return e.defaultMarks
}

// FinalMarks blends board marks with an entrance score when one is given.
func FinalMarks(marks int, entrance *int) int {
	if entrance == nil {
		return marks
	}
	return (marks + *entrance) / 2
}

func maxInRange(matches [][]string, group int) (int, bool) {
	best, found := 0, false
	for _, m := range matches {
		if len(m) <= group {
			continue
		}
		v, err := strconv.Atoi(m[group])
		if err != nil || v < 0 || v > 100 {
			continue
		}
		if !found || v > best {
			best, found = v, true
		}
	}
	return best, found
}

func wrap(ss []string) [][]string {
	out := make([][]string, len(ss))
	for i, s := range ss {
		out[i] = []string{s}
	}
	return out
}
