package hcdp

import "time"

// Filter is the structured constraint set applied to a collection's value
// fields. Each entry is either an exact-match scalar or a rangeExpr.
type Filter map[string]any

func NewFilter() Filter {
	return Filter{}
}

// Eq adds an exact-match constraint on a value field.
func (f Filter) Eq(field, value string) Filter {
	f[field] = value
	return f
}

// Between adds an inclusive date-range constraint on a value field.
func (f Filter) Between(field string, start, end time.Time) Filter {
	f[field] = rangeExpr{
		GTE: start.Format(time.DateOnly),
		LTE: end.Format(time.DateOnly),
	}
	return f
}

// rangeExpr serializes to the service's {"$gte": ..., "$lte": ...} range
// operator.
type rangeExpr struct {
	GTE string `json:"$gte"`
	LTE string `json:"$lte"`
}
