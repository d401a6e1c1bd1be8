package pathway

import (
	"fmt"
	"strconv"
	"strings"
)

// Reaction is one row of the reaction table shown next to a diagram.
type Reaction struct {
	ID      string
	Label   string
	ECCodes []string
	RPID    string
	Step    *int
	Score   *float64
}

// ScoreText formats the score with three decimals, or "" when absent.
func (r Reaction) ScoreText() string {
	if r.Score == nil {
		return ""
	}
	return strconv.FormatFloat(*r.Score, 'f', 3, 64)
}

// StepText formats the step, or "" when absent.
func (r Reaction) StepText() string {
	if r.Step == nil {
		return ""
	}
	return strconv.Itoa(*r.Step)
}

// Reactions returns the table rows for every transformation in g, in input
// order.
func Reactions(g Graph) []Reaction {
	var rows []Reaction
	for _, n := range g.Transformations() {
		row := Reaction{
			ID:      n.ID,
			Label:   n.Label(),
			ECCodes: stringList(n.Annotation[AnnotationECCode]),
			RPID:    stringValue(n.Annotation[AnnotationRPID]),
		}
		if v, ok := numberValue(n.Annotation[AnnotationRPStep]); ok {
			step := int(v)
			row.Step = &step
		}
		if v, ok := numberValue(n.Annotation[AnnotationRPScore]); ok {
			row.Score = &v
		}
		rows = append(rows, row)
	}
	return rows
}

func stringList(v any) []string {
	switch x := v.(type) {
	case []string:
		return append([]string(nil), x...)
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			if s := stringValue(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if x == "" {
			return nil
		}
		return []string{x}
	default:
		return nil
	}
}

func stringValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	default:
		return fmt.Sprint(x)
	}
}

func numberValue(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
