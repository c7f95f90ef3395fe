package visits

import (
	"context"
	"errors"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// ErrNotFound is returned when a visit does not exist for the requesting user.
var ErrNotFound = errors.New("visit not found")

// Repository stores visits. Every operation is scoped to the owning user:
// SaveVisit on an id that belongs to another user and Get/Delete of a
// missing or foreign visit return ErrNotFound.
type Repository interface {
	ListVisits(ctx context.Context, userID string) ([]Visit, error)
	GetVisit(ctx context.Context, userID, id string) (Visit, error)
	SaveVisit(ctx context.Context, v Visit) error
	DeleteVisit(ctx context.Context, userID, id string) error
}

// Query filters the visit history.
type Query struct {
	Term     string
	Category Category
}

var folder = cases.Fold()

// Search returns the visits matching q, most recent first. Term matches
// doctor name, reason and diagnosis case-insensitively.
func Search(vs []Visit, q Query) []Visit {
	term := folder.String(strings.TrimSpace(q.Term))
	out := []Visit{}
	for _, v := range vs {
		if q.Category != "" && v.Category != q.Category {
			continue
		}
		if term != "" &&
			!strings.Contains(folder.String(v.DoctorName), term) &&
			!strings.Contains(folder.String(v.Reason), term) &&
			!strings.Contains(folder.String(v.Diagnosis), term) {
			continue
		}
		out = append(out, v)
	}
	SortByDateDesc(out)
	return out
}

// SortByDateDesc orders visits by visit date, newest first. Equal dates keep
// their input order.
func SortByDateDesc(vs []Visit) {
	sort.SliceStable(vs, func(i, j int) bool {
		return vs[i].Date > vs[j].Date
	})
}

// DistinctCategories lists the categories used in vs in order of first use.
func DistinctCategories(vs []Visit) []Category {
	seen := make(map[Category]struct{})
	var out []Category
	for _, v := range vs {
		if _, ok := seen[v.Category]; ok {
			continue
		}
		seen[v.Category] = struct{}{}
		out = append(out, v.Category)
	}
	return out
}
