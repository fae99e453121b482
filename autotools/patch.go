package autotools

import "github.com/jerry-enebeli/filtertools/filter"

// PatchedClass constructs filters with the wrapped class after rewriting
// the trailing OldLookup of the lookup expression into NewLookup.
type PatchedClass struct {
	Wrapped   filter.Class
	OldLookup string
	NewLookup string
}

// PatchClass wraps class. A new wrapper is returned on every call.
func PatchClass(class filter.Class, oldLookup, newLookup string) *PatchedClass {
	return &PatchedClass{Wrapped: class, OldLookup: oldLookup, NewLookup: newLookup}
}

func (c *PatchedClass) String() string {
	return "<" + c.Wrapped.String() + " wrapped by PatchedClass>"
}

// Rewrite drops len(OldLookup) trailing characters of expr and appends NewLookup.
func (c *PatchedClass) Rewrite(expr string) string {
	cut := len(expr) - len(c.OldLookup)
	if cut < 0 {
		cut = 0
	}
	return expr[:cut] + c.NewLookup
}

func (c *PatchedClass) New(params filter.Params) (*filter.Filter, error) {
	if expr, ok := params[filter.ParamLookupExpr].(string); ok {
		params = params.Copy()
		params[filter.ParamLookupExpr] = c.Rewrite(expr)
	}
	return c.Wrapped.New(params)
}
