package backend

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/metaxime/pathview/pkg/errors"
)

// SortField is a sortable column of a result listing.
type SortField string

const (
	SortByID        SortField = "id"
	SortBySteps     SortField = "steps"
	SortByMeanScore SortField = "mean_score"
	SortByStdScore  SortField = "std_score"
)

// SortKey is one level of a multi-key sort.
type SortKey struct {
	Field SortField
	Desc  bool
}

func (k SortKey) String() string {
	if k.Desc {
		return string(k.Field) + ":desc"
	}
	return string(k.Field) + ":asc"
}

// ParseSortKeys parses a comma separated list of field[:asc|desc] terms,
// for example "steps:desc,id". Field aliases "mean" and "std" are accepted.
func ParseSortKeys(s string) ([]SortKey, error) {
	var keys []SortKey
	for _, term := range strings.Split(s, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		name, dir, _ := strings.Cut(term, ":")
		k := SortKey{}
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "id":
			k.Field = SortByID
		case "steps":
			k.Field = SortBySteps
		case "mean_score", "mean", "score":
			k.Field = SortByMeanScore
		case "std_score", "std":
			k.Field = SortByStdScore
		default:
			return nil, errors.New(errors.ErrCodeInvalidInput, "unknown sort field %q", name)
		}
		switch strings.ToLower(strings.TrimSpace(dir)) {
		case "", "asc":
		case "desc":
			k.Desc = true
		default:
			return nil, errors.New(errors.ErrCodeInvalidInput, "unknown sort direction %q", dir)
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// FormatSortKeys is the inverse of [ParseSortKeys].
func FormatSortKeys(keys []SortKey) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.String()
	}
	return strings.Join(parts, ",")
}

// Toggle returns keys with field moved to the front. A field that is
// already the primary key flips direction; otherwise it sorts ascending.
func Toggle(keys []SortKey, field SortField) []SortKey {
	next := SortKey{Field: field}
	if len(keys) > 0 && keys[0].Field == field {
		next.Desc = !keys[0].Desc
	}
	out := []SortKey{next}
	for _, k := range keys {
		if k.Field != field {
			out = append(out, k)
		}
	}
	return out
}

// SortResults returns a sorted copy of results. Keys are applied in order;
// rows equal on every key keep their input order. A missing score compares
// below every present score, so it sorts first ascending and last
// descending.
func SortResults(results []Result, keys ...SortKey) []Result {
	out := slices.Clone(results)
	if len(keys) == 0 {
		return out
	}
	slices.SortStableFunc(out, func(a, b Result) int {
		for _, k := range keys {
			c := compareField(a, b, k.Field)
			if k.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
	return out
}

func compareField(a, b Result, f SortField) int {
	switch f {
	case SortByID:
		return cmp.Compare(a.ID, b.ID)
	case SortBySteps:
		return cmp.Compare(a.Steps, b.Steps)
	case SortByMeanScore:
		return compareScore(a.MeanScore, b.MeanScore)
	case SortByStdScore:
		return compareScore(a.StdScore, b.StdScore)
	default:
		panic(fmt.Sprintf("backend: unknown sort field %q", f))
	}
}

func compareScore(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	default:
		return cmp.Compare(*a, *b)
	}
}
