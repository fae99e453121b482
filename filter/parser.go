package filter

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	defaultMaxFilters  = 20
	defaultMaxInValues = 100
	defaultMaxCharLen  = 1000
)

// ParseFromQuery matches URL query parameters against the named filters of
// a filter set. Filters are visited in the order given; parameters that
// name no filter are ignored. Invalid values are reported as errors
// rather than silently dropped.
func ParseFromQuery(queryParams url.Values, filters []NamedFilter, opts *ParseOptions) *ParseResult {
	maxFilters := defaultMaxFilters
	maxInValues := defaultMaxInValues
	maxCharLen := defaultMaxCharLen
	if opts != nil {
		if opts.MaxFilters > 0 {
			maxFilters = opts.MaxFilters
		}
		if opts.MaxInValues > 0 {
			maxInValues = opts.MaxInValues
		}
		if opts.MaxCharLen > 0 {
			maxCharLen = opts.MaxCharLen
		}
	}

	result := &ParseResult{
		Values: make([]FilterValue, 0),
		Errors: make([]ParseError, 0),
	}

	filterCount := 0
	for _, nf := range filters {
		if isReservedParam(nf.Name) {
			continue
		}

		values, ok := queryParams[nf.Name]
		if !ok || len(values) == 0 {
			continue
		}

		value := values[0]
		if value == "" {
			// empty values leave the filter unapplied
			continue
		}

		if filterCount >= maxFilters {
			result.Errors = append(result.Errors, ParseError{
				Param:   nf.Name,
				Message: fmt.Sprintf("exceeded maximum number of filters (%d)", maxFilters),
			})
			continue
		}

		if len(value) > maxCharLen {
			result.Errors = append(result.Errors, ParseError{
				Param:   nf.Name,
				Message: fmt.Sprintf("value exceeds maximum length (%d chars)", maxCharLen),
			})
			continue
		}

		if nf.Filter.takesList() && len(strings.Split(value, ",")) > maxInValues {
			result.Errors = append(result.Errors, ParseError{
				Param:   nf.Name,
				Message: fmt.Sprintf("IN operator exceeds maximum values (%d)", maxInValues),
			})
			continue
		}

		result.Values = append(result.Values, FilterValue{NamedFilter: nf, Raw: value})
		filterCount++
	}

	return result
}

func (f *Filter) takesList() bool {
	if f.csv == csvIn {
		return true
	}
	tokens := strings.Split(f.LookupExpr, "__")
	return tokens[len(tokens)-1] == LookupIn
}
