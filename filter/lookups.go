package filter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jerry-enebeli/filtertools/model"
	"github.com/texttheater/golang-levenshtein/levenshtein"
)

const (
	LookupExact       = "exact"
	LookupIExact      = "iexact"
	LookupContains    = "contains"
	LookupIContains   = "icontains"
	LookupStartsWith  = "startswith"
	LookupIStartsWith = "istartswith"
	LookupEndsWith    = "endswith"
	LookupIEndsWith   = "iendswith"
	LookupGT          = "gt"
	LookupGTE         = "gte"
	LookupLT          = "lt"
	LookupLTE         = "lte"
	LookupIn          = "in"
	LookupRange       = "range"
	LookupIsNull      = "isnull"
	LookupRegex       = "regex"
	LookupIRegex      = "iregex"
)

// DefaultLookupExpr is used for fields declared without lookups.
const DefaultLookupExpr = LookupExact

var fieldLookups = []string{
	LookupExact, LookupIExact, LookupContains, LookupIContains,
	LookupStartsWith, LookupIStartsWith, LookupEndsWith, LookupIEndsWith,
	LookupGT, LookupGTE, LookupLT, LookupLTE,
	LookupIn, LookupRange, LookupIsNull, LookupRegex, LookupIRegex,
}

var relatedLookups = []string{
	LookupExact, LookupGT, LookupGTE, LookupLT, LookupLTE, LookupIn, LookupIsNull,
}

type transform struct {
	output model.Kind
	sql    string
}

// transforms are keyed by the kind that registers them. Kinds inherit the
// transforms of their ancestors.
var transforms = map[model.Kind]map[string]transform{
	model.DateField: {
		"year":     {model.IntegerField, "EXTRACT(YEAR FROM %s)"},
		"month":    {model.IntegerField, "EXTRACT(MONTH FROM %s)"},
		"day":      {model.IntegerField, "EXTRACT(DAY FROM %s)"},
		"week_day": {model.IntegerField, "(EXTRACT(DOW FROM %s) + 1)"},
	},
	model.DateTimeField: {
		"date":   {model.DateField, "(%s)::date"},
		"time":   {model.TimeField, "(%s)::time"},
		"hour":   {model.IntegerField, "EXTRACT(HOUR FROM %s)"},
		"minute": {model.IntegerField, "EXTRACT(MINUTE FROM %s)"},
		"second": {model.IntegerField, "EXTRACT(SECOND FROM %s)"},
	},
	model.TimeField: {
		"hour":   {model.IntegerField, "EXTRACT(HOUR FROM %s)"},
		"minute": {model.IntegerField, "EXTRACT(MINUTE FROM %s)"},
		"second": {model.IntegerField, "EXTRACT(SECOND FROM %s)"},
	},
}

// LookupsFor returns the lookups a field of the given kind supports.
func LookupsFor(kind model.Kind) []string {
	if kind.IsRelation() {
		return relatedLookups
	}
	return fieldLookups
}

func hasLookup(kind model.Kind, name string) bool {
	for _, l := range LookupsFor(kind) {
		if l == name {
			return true
		}
	}
	return false
}

func getTransform(kind model.Kind, name string) (transform, bool) {
	return model.TryDBField(kind, func(k model.Kind) (transform, bool) {
		t, ok := transforms[k][name]
		return t, ok
	})
}

// TransformsFor returns the sorted transform names available on kind.
func TransformsFor(kind model.Kind) []string {
	seen := map[string]bool{}
	var names []string
	for _, k := range kind.Lineage() {
		for name := range transforms[k] {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// LookupError reports a lookup expression that does not resolve on a field.
type LookupError struct {
	Field      *model.Field
	LookupExpr string
	Token      string
	Suggestion string
}

func (e *LookupError) Error() string {
	msg := fmt.Sprintf("unsupported lookup '%s' for field '%s' in expression '%s'", e.Token, e.Field, e.LookupExpr)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean '%s'?)", e.Suggestion)
	}
	return msg
}

// Resolved is the outcome of walking a lookup expression: the transforms
// applied in order, the final lookup and the field describing the value the
// lookup compares against.
type Resolved struct {
	Field      *model.Field
	Transforms []string
	Lookup     string
}

// ResolveField resolves lookupExpr against f. Every token but the last is a
// transform. The last token is a lookup when the transformed field supports
// it, otherwise it is a transform compared with exact.
func ResolveField(f *model.Field, lookupExpr string) (*model.Field, string, error) {
	r, err := Resolve(f, lookupExpr)
	if err != nil {
		return nil, "", err
	}
	return r.Field, r.Lookup, nil
}

// Resolve is ResolveField keeping the transform chain.
func Resolve(f *model.Field, lookupExpr string) (*Resolved, error) {
	tokens := strings.Split(lookupExpr, model.LookupSep)
	out := &Resolved{Field: f}

	for i, token := range tokens {
		last := i == len(tokens)-1
		if last && hasLookup(out.Field.Kind, token) {
			out.Lookup = token
			return out, nil
		}

		t, ok := getTransform(out.Field.Kind, token)
		if !ok {
			return nil, &LookupError{
				Field:      f,
				LookupExpr: lookupExpr,
				Token:      token,
				Suggestion: suggest(token, out.Field.Kind),
			}
		}
		out.Transforms = append(out.Transforms, token)
		out.Field = out.Field.WithKind(t.output)
	}

	out.Lookup = LookupExact
	return out, nil
}

func suggest(token string, kind model.Kind) string {
	if token == "" {
		return ""
	}
	candidates := append(append([]string{}, LookupsFor(kind)...), TransformsFor(kind)...)
	best, bestDistance := "", len(token)/2+1
	for _, c := range candidates {
		d := levenshtein.DistanceForStrings([]rune(token), []rune(c), levenshtein.DefaultOptions)
		if d < bestDistance {
			best, bestDistance = c, d
		}
	}
	return best
}
