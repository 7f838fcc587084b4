package records

import (
	"context"
	"errors"
	"sort"
	"strings"

	"renohub/internal/core"
)

var ErrCollectionNotFound = errors.New("collection not found")

type Direction string

const (
	Ascending  Direction = "ascending"
	Descending Direction = "descending"
)

// Filter matches records whose property equals a value. Kind tells remote
// stores how to phrase the condition.
type Filter struct {
	Property string
	Kind     Kind
	Equals   string
}

type Sort struct {
	Property  string
	Direction Direction
}

type Query struct {
	Filter *Filter
	Sorts  []Sort
}

// Store returns every record of a collection, hiding pagination.
type Store interface {
	FetchAll(ctx context.Context, collectionID string, q Query) ([]Record, error)
}

// Writer persists records into a collection, replacing earlier copies.
type Writer interface {
	Replace(ctx context.Context, collectionID string, recs []Record) error
}

// Apply filters and sorts records in memory for stores that cannot do it
// server side. The input slice is not modified.
func Apply(recs []Record, q Query) []Record {
	out := make([]Record, 0, len(recs))
	for _, r := range recs {
		if q.Filter != nil && Extract(r, q.Filter.Property).String() != q.Filter.Equals {
			continue
		}
		out = append(out, r)
	}
	if len(q.Sorts) == 0 {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		for _, s := range q.Sorts {
			c := compare(Extract(out[i], s.Property), Extract(out[j], s.Property))
			if c == 0 {
				continue
			}
			if s.Direction == Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return out
}

// compare orders numbers numerically, dates chronologically and the rest
// lexicographically. Null values sort last in ascending order.
func compare(a, b Value) int {
	an, bn := a.IsNull(), b.IsNull()
	switch {
	case an && bn:
		return 0
	case an:
		return 1
	case bn:
		return -1
	}
	if a.Number != nil && b.Number != nil {
		switch {
		case *a.Number < *b.Number:
			return -1
		case *a.Number > *b.Number:
			return 1
		}
		return 0
	}
	if da, ok := core.ParseDate(a.Text); ok {
		if db, ok := core.ParseDate(b.Text); ok {
			return da.Compare(db.Time)
		}
	}
	return strings.Compare(a.String(), b.String())
}
