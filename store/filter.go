package store

import (
	"fmt"
	"strings"
	"time"
)

// EventFilter is the optional predicate set shared by the list, stats and
// bulk-delete operations. Every present field is ANDed; absent fields impose
// no constraint. Start and End are inclusive bounds on the event timestamp.
type EventFilter struct {
	UserID    *int64
	EventType string
	Start     *time.Time
	End       *time.Time
}

// IsZero reports whether no filter dimension is set.
func (f EventFilter) IsZero() bool {
	return f.UserID == nil && f.EventType == "" && f.Start == nil && f.End == nil
}

// whereClause renders the filter as a SQL WHERE fragment with positional
// placeholders starting at $1. The same fragment backs reads, aggregates and
// deletes so that all three always agree on which rows match.
func (f EventFilter) whereClause() (string, []interface{}) {
	var conds []string
	var args []interface{}

	if f.UserID != nil {
		args = append(args, *f.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if f.EventType != "" {
		args = append(args, f.EventType)
		conds = append(conds, fmt.Sprintf("event_type = $%d", len(args)))
	}
	if f.Start != nil {
		args = append(args, *f.Start)
		conds = append(conds, fmt.Sprintf("timestamp >= $%d", len(args)))
	}
	if f.End != nil {
		args = append(args, *f.End)
		conds = append(conds, fmt.Sprintf("timestamp <= $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
