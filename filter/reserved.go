package filter

import "strings"

var reservedParams = map[string]bool{
	"page":          true,
	"pagesize":      true,
	"per_page":      true,
	"limit":         true,
	"offset":        true,
	"sort":          true,
	"sort_by":       true,
	"sort_order":    true,
	"order":         true,
	"order_by":      true,
	"include_count": true,
}

func isReservedParam(param string) bool {
	return reservedParams[strings.ToLower(param)]
}
