package filtertools

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/jerry-enebeli/filtertools/filter"
	"github.com/jerry-enebeli/filtertools/filterset"
	"github.com/jerry-enebeli/filtertools/model"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Declaration is the YAML form of a catalog: the models and the filter
// sets declared over them.
type Declaration struct {
	Models     []model.ModelDecl `yaml:"models"`
	FilterSets []FilterSetDecl   `yaml:"filtersets"`
}

type FilterSetDecl struct {
	Name              string                        `yaml:"name"`
	Model             string                        `yaml:"model"`
	Fields            FieldsDecl                    `yaml:"fields"`
	AllFields         bool                          `yaml:"all_fields"`
	Exclude           []string                      `yaml:"exclude"`
	DefaultLookupExpr string                        `yaml:"default_lookup_expr"`
	DefaultLookups    map[model.Kind][]string       `yaml:"default_lookups"`
	PseudoLookups     map[string]PseudoLookupDecl   `yaml:"pseudo_lookups"`
	FilterOverrides   map[model.Kind]OverrideDecl   `yaml:"filter_overrides"`
	Declared          map[string]DeclaredFilterDecl `yaml:"declared"`
}

type PseudoLookupDecl struct {
	BehavesLike   string                 `yaml:"behaves_like"`
	FilterClass   string                 `yaml:"filter_class"`
	ReplaceLookup string                 `yaml:"replace_lookup"`
	Extra         map[string]interface{} `yaml:"extra"`
}

type OverrideDecl struct {
	FilterClass string                 `yaml:"filter_class"`
	Extra       map[string]interface{} `yaml:"extra"`
}

// DeclaredFilterDecl is a filter written out by hand rather than generated.
type DeclaredFilterDecl struct {
	FilterClass string                 `yaml:"filter_class"`
	FieldName   string                 `yaml:"field_name"`
	LookupExpr  string                 `yaml:"lookup_expr"`
	Params      map[string]interface{} `yaml:"params"`
}

// FieldsDecl accepts either a list, whose items are field names or
// {name, lookups} mappings, or a mapping of field name to lookups.
type FieldsDecl []filterset.FieldSpec

func (f *FieldsDecl) UnmarshalYAML(node *yaml.Node) error {
	var out FieldsDecl

	switch node.Kind {
	case yaml.SequenceNode:
		for _, item := range node.Content {
			switch item.Kind {
			case yaml.ScalarNode:
				out = append(out, filterset.FieldSpec{Name: item.Value})
			case yaml.MappingNode:
				var spec filterset.FieldSpec
				if err := item.Decode(&spec); err != nil {
					return err
				}
				if spec.Lookups == nil && hasKey(item, "lookups") {
					spec.Lookups = []string{}
				}
				out = append(out, spec)
			default:
				return fmt.Errorf("line %d: field must be a name or a mapping", item.Line)
			}
		}

	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			spec := filterset.FieldSpec{Name: node.Content[i].Value}
			value := node.Content[i+1]
			if value.Tag != "!!null" {
				lookups := []string{}
				if err := value.Decode(&lookups); err != nil {
					return fmt.Errorf("line %d: lookups of %s: %w", value.Line, spec.Name, err)
				}
				spec.Lookups = lookups
			}
			out = append(out, spec)
		}

	default:
		return fmt.Errorf("line %d: fields must be a list or a mapping", node.Line)
	}

	*f = out
	return nil
}

func hasKey(node *yaml.Node, key string) bool {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1].Tag != "!!null"
		}
	}
	return false
}

func (d FilterSetDecl) Validate() error {
	err := validation.ValidateStruct(&d,
		validation.Field(&d.Name, validation.Required),
		validation.Field(&d.Model, validation.Required),
		validation.Field(&d.Fields, validation.When(!d.AllFields, validation.Required.Error("fields are required unless all_fields is set"))),
	)
	if err != nil {
		return err
	}

	for name, pseudo := range d.PseudoLookups {
		if name == "" || strings.Contains(name, model.LookupSep) {
			return fmt.Errorf("pseudo lookup name %q must be a single token", name)
		}
		if err := pseudo.Validate(); err != nil {
			return fmt.Errorf("pseudo lookup %s: %w", name, err)
		}
	}
	for kind, override := range d.FilterOverrides {
		if err := validation.Validate(override.FilterClass, validation.Required); err != nil {
			return fmt.Errorf("filter override %s: filter_class: %w", kind, err)
		}
	}
	for name, declared := range d.Declared {
		if err := declared.Validate(); err != nil {
			return fmt.Errorf("declared filter %s: %w", name, err)
		}
	}
	return nil
}

func (p PseudoLookupDecl) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.BehavesLike, validation.Required),
		validation.Field(&p.ReplaceLookup, validation.By(singleToken)),
	)
}

func (d DeclaredFilterDecl) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.FilterClass, validation.Required),
		validation.Field(&d.FieldName, validation.Required),
	)
}

func singleToken(value interface{}) error {
	s, _ := value.(string)
	if strings.Contains(s, model.LookupSep) {
		return errors.New("must be a single lookup")
	}
	return nil
}

// ClassByName returns the built-in class called name. In and Range
// compositions are accepted by their composed name, e.g. "NumberInFilter".
func ClassByName(name string) (filter.Class, error) {
	if c, ok := filter.Classes[name]; ok {
		return c, nil
	}
	for suffix, compose := range map[string]func(*filter.BaseClass) *filter.BaseClass{
		"InFilter":    filter.InFilterFor,
		"RangeFilter": filter.RangeFilterFor,
	} {
		if !strings.HasSuffix(name, suffix) {
			continue
		}
		if c, ok := filter.Classes[strings.TrimSuffix(name, suffix)+"Filter"]; ok {
			return compose(c), nil
		}
	}
	return nil, fmt.Errorf("unknown filter class %s", name)
}

func staticParams(extra map[string]interface{}) func(*model.Field) filter.Params {
	if len(extra) == 0 {
		return nil
	}
	return func(*model.Field) filter.Params {
		return filter.Params(extra).Copy()
	}
}
