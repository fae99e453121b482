package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/jerry-enebeli/filtertools/database"
	"github.com/jerry-enebeli/filtertools/filter"
)

// FilterRequest is the JSON body of the query endpoint. Filters are keyed
// by filter name and hold the raw value exactly as it would appear in a
// query string.
type FilterRequest struct {
	Filters      map[string]string `json:"filters"`
	Limit        int               `json:"limit,omitempty"`
	Offset       int               `json:"offset,omitempty"`
	SortBy       string            `json:"sort_by,omitempty"`
	SortOrder    string            `json:"sort_order,omitempty"` // "asc" or "desc"
	IncludeCount bool              `json:"include_count,omitempty"`
}

func (r FilterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Limit, validation.Min(0), validation.Max(database.MaxLimit)),
		validation.Field(&r.Offset, validation.Min(0)),
		validation.Field(&r.SortOrder, validation.In(string(filter.SortAsc), string(filter.SortDesc))),
	)
}

func (a Api) queryRequestFromBody(c *gin.Context) (database.QueryRequest, error) {
	var body FilterRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		return database.QueryRequest{}, err
	}
	if err := body.Validate(); err != nil {
		return database.QueryRequest{}, err
	}

	values := make(map[string][]string, len(body.Filters))
	for name, raw := range body.Filters {
		values[name] = []string{raw}
	}

	return database.QueryRequest{
		Values: values,
		Parse:  a.parse.ParseOptions(),
		Options: &filter.QueryOptions{
			SortBy:       body.SortBy,
			SortOrder:    filter.SortOrder(body.SortOrder),
			IncludeCount: body.IncludeCount,
		},
		Limit:  a.pageSize(body.Limit),
		Offset: body.Offset,
	}, nil
}

// queryRequestFromContext reads filters, paging and sorting from the query
// string. Paging and sorting parameters are reserved, so no filter answers
// to them.
func (a Api) queryRequestFromContext(c *gin.Context) database.QueryRequest {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	return database.QueryRequest{
		Values:  c.Request.URL.Query(),
		Parse:   a.parse.ParseOptions(),
		Options: ParseQueryOptions(c),
		Limit:   a.pageSize(limit),
		Offset:  offset,
	}
}

// ParseQueryOptions extracts sorting options from query parameters.
func ParseQueryOptions(c *gin.Context) *filter.QueryOptions {
	return &filter.QueryOptions{
		SortBy:       c.DefaultQuery("sort_by", ""),
		SortOrder:    filter.SortOrder(c.DefaultQuery("sort_order", "desc")),
		IncludeCount: c.DefaultQuery("include_count", "") == "true",
	}
}

func (a Api) pageSize(limit int) int {
	if a.parse.MaxPageSize > 0 && limit > a.parse.MaxPageSize {
		return a.parse.MaxPageSize
	}
	return limit
}
