package filter

import (
	"fmt"

	"github.com/jerry-enebeli/filtertools/model"
)

// ValueKind selects how a raw query value is parsed for a filter.
type ValueKind int

const (
	ValueString ValueKind = iota
	ValueNumber
	ValueBool
	ValueDate
	ValueDateTime
	ValueTime
	ValueDuration
	ValueUUID
	ValueChoice
	ValueRelated
)

// csvMode marks filters that take a comma separated list of values.
type csvMode int

const (
	csvNone csvMode = iota
	csvIn
	csvRange
)

// Class constructs filters. The built-in classes are *BaseClass values;
// other implementations can wrap them to adjust construction.
type Class interface {
	fmt.Stringer
	New(params Params) (*Filter, error)
}

// BaseClass is a concrete filter class.
type BaseClass struct {
	Name  string
	Value ValueKind
	csv   csvMode
	base  *BaseClass
}

func (c *BaseClass) String() string {
	return c.Name
}

// Base returns the class an In or Range class was composed from.
func (c *BaseClass) Base() *BaseClass {
	return c.base
}

var (
	CharFilter                = &BaseClass{Name: "CharFilter", Value: ValueString}
	NumberFilter              = &BaseClass{Name: "NumberFilter", Value: ValueNumber}
	BooleanFilter             = &BaseClass{Name: "BooleanFilter", Value: ValueBool}
	DateFilter                = &BaseClass{Name: "DateFilter", Value: ValueDate}
	DateTimeFilter            = &BaseClass{Name: "DateTimeFilter", Value: ValueDateTime}
	TimeFilter                = &BaseClass{Name: "TimeFilter", Value: ValueTime}
	DurationFilter            = &BaseClass{Name: "DurationFilter", Value: ValueDuration}
	UUIDFilter                = &BaseClass{Name: "UUIDFilter", Value: ValueUUID}
	ChoiceFilter              = &BaseClass{Name: "ChoiceFilter", Value: ValueChoice}
	ModelChoiceFilter         = &BaseClass{Name: "ModelChoiceFilter", Value: ValueRelated}
	ModelMultipleChoiceFilter = &BaseClass{Name: "ModelMultipleChoiceFilter", Value: ValueRelated}
)

// Classes indexes the built-in classes by name.
var Classes = map[string]*BaseClass{}

func init() {
	for _, c := range []*BaseClass{
		CharFilter, NumberFilter, BooleanFilter, DateFilter, DateTimeFilter,
		TimeFilter, DurationFilter, UUIDFilter, ChoiceFilter,
		ModelChoiceFilter, ModelMultipleChoiceFilter,
	} {
		Classes[c.Name] = c
	}
}

// InFilterFor composes c with comma separated list parsing. A new class is
// returned on every call.
func InFilterFor(c *BaseClass) *BaseClass {
	return &BaseClass{Name: csvClassName(c, "In"), Value: c.Value, csv: csvIn, base: c}
}

// RangeFilterFor composes c with a two value "low,high" parsing.
func RangeFilterFor(c *BaseClass) *BaseClass {
	return &BaseClass{Name: csvClassName(c, "Range"), Value: c.Value, csv: csvRange, base: c}
}

func csvClassName(c *BaseClass, lookup string) string {
	name := c.Name
	if len(name) > len("Filter") && name[len(name)-len("Filter"):] == "Filter" {
		name = name[:len(name)-len("Filter")]
	}
	return name + lookup + "Filter"
}

// Filter is one constructed, queryable comparison.
type Filter struct {
	Class      string                 `json:"class"`
	FieldName  string                 `json:"field_name"`
	LookupExpr string                 `json:"lookup_expr"`
	Label      string                 `json:"label,omitempty"`
	Exclude    bool                   `json:"exclude,omitempty"`
	Distinct   bool                   `json:"distinct,omitempty"`
	Choices    []model.Choice         `json:"choices,omitempty"`
	ToModel    string                 `json:"to_model,omitempty"`
	Extra      map[string]interface{} `json:"extra,omitempty"`

	value ValueKind
	csv   csvMode
}

// New builds a filter from params.
func (c *BaseClass) New(params Params) (*Filter, error) {
	f := &Filter{
		Class:      c.Name,
		LookupExpr: DefaultLookupExpr,
		value:      c.Value,
		csv:        c.csv,
	}

	for key, v := range params {
		var err error
		switch key {
		case ParamFieldName:
			f.FieldName, err = stringParam(key, v)
		case ParamLookupExpr:
			f.LookupExpr, err = stringParam(key, v)
		case ParamLabel:
			f.Label, err = stringParam(key, v)
		case ParamToModel:
			f.ToModel, err = stringParam(key, v)
		case ParamExclude:
			f.Exclude, err = boolParam(key, v)
		case ParamDistinct:
			f.Distinct, err = boolParam(key, v)
		case ParamChoices:
			choices, ok := v.([]model.Choice)
			if !ok {
				err = fmt.Errorf("%s: parameter %q must be []model.Choice, got %T", c.Name, key, v)
			}
			f.Choices = choices
		default:
			if f.Extra == nil {
				f.Extra = make(map[string]interface{})
			}
			f.Extra[key] = v
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.Name, err)
		}
	}

	if f.FieldName == "" {
		return nil, fmt.Errorf("%s: parameter %q is required", c.Name, ParamFieldName)
	}
	return f, nil
}

func stringParam(key string, v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("parameter %q must be a string, got %T", key, v)
	}
	return s, nil
}

func boolParam(key string, v interface{}) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("parameter %q must be a bool, got %T", key, v)
	}
	return b, nil
}
