package filter

import "time"

// Well known constructor parameters. Anything else passed to a filter class
// ends up in Filter.Extra.
const (
	ParamFieldName  = "field_name"
	ParamLookupExpr = "lookup_expr"
	ParamLabel      = "label"
	ParamExclude    = "exclude"
	ParamDistinct   = "distinct"
	ParamChoices    = "choices"
	ParamToModel    = "to_model"
)

// Params are the constructor arguments of a filter class.
type Params map[string]interface{}

// Update copies every entry of other into p, overwriting existing keys.
func (p Params) Update(other Params) {
	for k, v := range other {
		p[k] = v
	}
}

// Copy returns a shallow copy of p. A nil receiver yields an empty map.
func (p Params) Copy() Params {
	out := make(Params, len(p))
	out.Update(p)
	return out
}

// TimestampValue represents a parsed timestamp with its original string format.
type TimestampValue struct {
	Time      time.Time
	Original  string
	Precision string
}

// SortOrder represents the sort direction.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// QueryOptions contains sorting and pagination options for queries.
type QueryOptions struct {
	SortBy       string    `json:"sort_by,omitempty"`
	SortOrder    SortOrder `json:"sort_order,omitempty"`
	IncludeCount bool      `json:"include_count,omitempty"`
}

// DefaultSortOrder returns desc if empty, otherwise validates and returns the order.
func (o *QueryOptions) DefaultSortOrder() SortOrder {
	if o.SortOrder == "" || (o.SortOrder != SortAsc && o.SortOrder != SortDesc) {
		return SortDesc
	}
	return o.SortOrder
}

type BuildResult struct {
	Conditions []string
	Args       []interface{}
	NextArgPos int
	OrderBy    string // The ORDER BY clause (without "ORDER BY" prefix)
}

// NamedFilter is a filter together with the query parameter it answers to.
type NamedFilter struct {
	Name   string
	Filter *Filter
}

// FilterValue is a raw query value addressed to a named filter.
type FilterValue struct {
	NamedFilter
	Raw string
}

type ParseOptions struct {
	MaxFilters  int // default 20
	MaxInValues int // default 100
	MaxCharLen  int // default 1000
}

type ParseError struct {
	Param   string `json:"param"`
	Message string `json:"message"`
}

type ParseResult struct {
	Values []FilterValue
	Errors []ParseError
}
