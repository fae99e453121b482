package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/jerry-enebeli/filtertools/model"
	"github.com/lib/pq"
)

// Build compiles the given filter values into WHERE conditions on table m.
// Placeholders start at startArgPos.
func Build(m *model.Model, values []FilterValue, alias string, startArgPos int) (*BuildResult, error) {
	result := &BuildResult{
		Conditions: make([]string, 0, len(values)),
		Args:       make([]interface{}, 0),
		NextArgPos: startArgPos,
	}

	argPos := startArgPos
	for _, v := range values {
		cond, args, nextArgPos, err := v.Filter.Condition(m, alias, v.Raw, argPos)
		if err != nil {
			return nil, fmt.Errorf("filter '%s': %w", v.Name, err)
		}
		if cond != "" {
			result.Conditions = append(result.Conditions, cond)
			result.Args = append(result.Args, args...)
			argPos = nextArgPos
		}
	}

	result.NextArgPos = argPos
	return result, nil
}

// BuildWithOptions builds filter conditions and includes sorting options.
// It validates both filters and sort options, returning an error if either is invalid.
func BuildWithOptions(m *model.Model, values []FilterValue, alias string, startArgPos int, opts *QueryOptions) (*BuildResult, error) {
	result, err := Build(m, values, alias, startArgPos)
	if err != nil {
		return nil, err
	}

	order := SortDesc
	sortBy := ""
	if opts != nil {
		order = opts.DefaultSortOrder()
		sortBy = opts.SortBy
	}
	result.OrderBy, err = BuildOrderBy(m, sortBy, order, alias)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ResolveSortField maps a requested sort field to a column of m. An empty
// sortBy selects the primary key.
func ResolveSortField(m *model.Model, sortBy string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(sortBy))
	if normalized == "" {
		return m.PK().Column, nil
	}
	f, ok := m.Field(normalized)
	if !ok || f.Column == "" {
		return "", fmt.Errorf("cannot sort by '%s' for model '%s': not a column", sortBy, m.Name)
	}
	return f.Column, nil
}

// BuildOrderBy constructs an ORDER BY clause using only model columns.
func BuildOrderBy(m *model.Model, sortBy string, sortOrder SortOrder, alias string) (string, error) {
	col, err := ResolveSortField(m, sortBy)
	if err != nil {
		return "", err
	}

	direction := "DESC"
	if sortOrder == SortAsc {
		direction = "ASC"
	}
	return fmt.Sprintf("%s %s", column(alias, col), direction), nil
}

// Condition compiles the filter and a raw query value into a condition on
// the table of m, aliased as alias. Relations in the field name become
// subqueries.
func (f *Filter) Condition(m *model.Model, alias string, raw string, argPos int) (string, []interface{}, int, error) {
	path, err := model.FieldPath(m, f.FieldName)
	if err != nil {
		return "", nil, argPos, err
	}

	last := path[len(path)-1]
	resolved, err := Resolve(last, f.LookupExpr)
	if err != nil {
		return "", nil, argPos, err
	}

	// multi valued relations compare against the related primary key
	target := last
	if last.Kind.IsReverse() || last.Kind.Is(model.ManyToManyField) {
		target = last.RelatedModel.PK()
		path = append(path, target)
	}

	aliasFor := func(depth int) string {
		if depth == 0 {
			return alias
		}
		return fmt.Sprintf("t%d", depth)
	}

	expr := column(aliasFor(len(path)-1), target.Column)
	kind := target.Kind
	for _, name := range resolved.Transforms {
		t, _ := getTransform(kind, name)
		expr = fmt.Sprintf(t.sql, expr)
		kind = t.output
	}

	if target != last && resolved.Lookup == LookupIsNull {
		return f.relationPresence(path, aliasFor, raw, argPos)
	}

	value, values, err := f.parse(resolved.Lookup, raw)
	if err != nil {
		return "", nil, argPos, err
	}

	text := kind.Is(model.CharField) || kind.Is(model.TextField)
	cond, args, next := buildLookupCondition(expr, resolved.Lookup, text, value, values, argPos)
	if cond == "" {
		return "", nil, argPos, fmt.Errorf("lookup '%s' has no SQL form", resolved.Lookup)
	}

	for i := len(path) - 2; i >= 0; i-- {
		cond = wrapRelation(path[i], aliasFor(i), aliasFor(i+1), i+1, cond)
	}

	if f.Exclude {
		cond = fmt.Sprintf("NOT (%s)", cond)
	}
	return cond, args, next, nil
}

// relationPresence compiles isnull on a multi valued relation into a
// membership test against the rows linking back to the outer table.
func (f *Filter) relationPresence(path []*model.Field, aliasFor func(int) string, raw string, argPos int) (string, []interface{}, int, error) {
	isNull, err := parseBool(raw)
	if err != nil {
		return "", nil, argPos, err
	}

	depth := len(path) - 2
	rel := path[depth]
	cond := "TRUE"
	if rel.Kind.Is(model.ManyToOneRel) {
		cond = column(aliasFor(depth+1), rel.Remote.Column) + " IS NOT NULL"
	}
	cond = wrapRelation(rel, aliasFor(depth), aliasFor(depth+1), depth+1, cond)
	if isNull {
		cond = fmt.Sprintf("NOT (%s)", cond)
	}

	for i := depth - 1; i >= 0; i-- {
		cond = wrapRelation(path[i], aliasFor(i), aliasFor(i+1), i+1, cond)
	}
	if f.Exclude {
		cond = fmt.Sprintf("NOT (%s)", cond)
	}
	return cond, []interface{}{}, argPos, nil
}

func (f *Filter) parse(lookup, raw string) (interface{}, []interface{}, error) {
	switch {
	case lookup == LookupIsNull:
		b, err := parseBool(raw)
		return b, nil, err

	case lookup == LookupIn || f.csv == csvIn:
		values, err := parseValues(f.value, raw)
		if err != nil {
			return nil, nil, err
		}
		for _, v := range values {
			if err := f.checkChoice(v); err != nil {
				return nil, nil, err
			}
		}
		return nil, values, nil

	case lookup == LookupRange || f.csv == csvRange:
		values, err := parseValues(f.value, raw)
		if err != nil {
			return nil, nil, err
		}
		if len(values) != 2 {
			return nil, nil, fmt.Errorf("range lookup requires exactly 2 comma-separated values (low,high)")
		}
		return nil, values, nil
	}

	v, err := parseValue(f.value, raw)
	if err != nil {
		return nil, nil, err
	}
	return v, nil, f.checkChoice(v)
}

func (f *Filter) checkChoice(v interface{}) error {
	if f.value != ValueChoice || len(f.Choices) == 0 {
		return nil
	}
	for _, c := range f.Choices {
		if c.Value == v {
			return nil
		}
	}
	return fmt.Errorf("'%v' is not one of the available choices", v)
}

func buildLookupCondition(expr, lookup string, text bool, value interface{}, values []interface{}, argPosition int) (condition string, args []interface{}, newArgPosition int) {
	textExpr := expr
	if !text {
		textExpr = fmt.Sprintf("(%s)::text", expr)
	}

	single := func(format string, arg interface{}) {
		condition = fmt.Sprintf(format, argPosition)
		args = []interface{}{arg}
		newArgPosition = argPosition + 1
	}

	switch lookup {
	case LookupExact:
		if tsVal, ok := value.(TimestampValue); ok {
			floor, ceiling := computeTimestampRange(tsVal)
			condition = fmt.Sprintf("%s >= $%d AND %s < $%d", expr, argPosition, expr, argPosition+1)
			args = []interface{}{floor, ceiling}
			newArgPosition = argPosition + 2
			return
		}
		single(expr+" = $%d", extractValueForSQL(value))

	case LookupIExact:
		single("UPPER("+textExpr+") = UPPER($%d)", extractValueForSQL(value))

	case LookupContains:
		single(textExpr+" LIKE $%d", likePattern(value, "%", "%"))
	case LookupIContains:
		single(textExpr+" ILIKE $%d", likePattern(value, "%", "%"))
	case LookupStartsWith:
		single(textExpr+" LIKE $%d", likePattern(value, "", "%"))
	case LookupIStartsWith:
		single(textExpr+" ILIKE $%d", likePattern(value, "", "%"))
	case LookupEndsWith:
		single(textExpr+" LIKE $%d", likePattern(value, "%", ""))
	case LookupIEndsWith:
		single(textExpr+" ILIKE $%d", likePattern(value, "%", ""))

	case LookupGT:
		single(expr+" > $%d", extractValueForSQL(value))
	case LookupGTE:
		single(expr+" >= $%d", extractValueForSQL(value))
	case LookupLT:
		single(expr+" < $%d", extractValueForSQL(value))
	case LookupLTE:
		single(expr+" <= $%d", extractValueForSQL(value))

	case LookupRegex:
		single(textExpr+" ~ $%d", extractValueForSQL(value))
	case LookupIRegex:
		single(textExpr+" ~* $%d", extractValueForSQL(value))

	case LookupIn:
		if len(values) == 0 {
			return "", nil, argPosition
		}
		if isStringArray(values) {
			condition = fmt.Sprintf("%s = ANY($%d)", expr, argPosition)
			args = []interface{}{pq.Array(convertToStringArray(values))}
			newArgPosition = argPosition + 1
			return
		}
		placeholders := make([]string, len(values))
		args = make([]interface{}, len(values))
		for i, val := range values {
			placeholders[i] = fmt.Sprintf("$%d", argPosition+i)
			args[i] = extractValueForSQL(val)
		}
		condition = fmt.Sprintf("%s IN (%s)", expr, strings.Join(placeholders, ", "))
		newArgPosition = argPosition + len(values)

	case LookupRange:
		if len(values) != 2 {
			return "", nil, argPosition
		}
		low, high := extractValueForSQL(values[0]), extractValueForSQL(values[1])
		if ts, ok := values[1].(TimestampValue); ok {
			_, ceiling := computeTimestampRange(ts)
			high = ceiling.Add(-time.Microsecond)
		}
		condition = fmt.Sprintf("%s BETWEEN $%d AND $%d", expr, argPosition, argPosition+1)
		args = []interface{}{low, high}
		newArgPosition = argPosition + 2

	case LookupIsNull:
		if isNull, _ := value.(bool); isNull {
			condition = fmt.Sprintf("%s IS NULL", expr)
		} else {
			condition = fmt.Sprintf("%s IS NOT NULL", expr)
		}
		args = []interface{}{}
		newArgPosition = argPosition

	default:
		return "", nil, argPosition
	}

	return condition, args, newArgPosition
}

func wrapRelation(rel *model.Field, outer, inner string, depth int, cond string) string {
	switch {
	case rel.Kind.Is(model.ForeignKey):
		target := rel.RelatedModel
		return fmt.Sprintf("%s IN (SELECT %s FROM %s %s WHERE %s)",
			column(outer, rel.Column), column(inner, target.PK().Column), target.Table, inner, cond)

	case rel.Kind.Is(model.ManyToOneRel):
		remote := rel.Remote
		return fmt.Sprintf("%s IN (SELECT %s FROM %s %s WHERE %s)",
			column(outer, rel.Model.PK().Column), column(inner, remote.Column), remote.Model.Table, inner, cond)

	case rel.Kind.Is(model.ManyToManyField):
		join := fmt.Sprintf("j%d", depth)
		target := rel.RelatedModel
		return fmt.Sprintf("%s IN (SELECT %s FROM %s %s WHERE %s IN (SELECT %s FROM %s %s WHERE %s))",
			column(outer, rel.Model.PK().Column), column(join, rel.Through.SourceColumn), rel.Through.Table, join,
			column(join, rel.Through.TargetColumn), column(inner, target.PK().Column), target.Table, inner, cond)

	case rel.Kind.Is(model.ManyToManyRel):
		join := fmt.Sprintf("j%d", depth)
		source := rel.Remote.Model
		return fmt.Sprintf("%s IN (SELECT %s FROM %s %s WHERE %s IN (SELECT %s FROM %s %s WHERE %s))",
			column(outer, rel.Model.PK().Column), column(join, rel.Through.TargetColumn), rel.Through.Table, join,
			column(join, rel.Through.SourceColumn), column(inner, source.PK().Column), source.Table, inner, cond)
	}
	return cond
}
