// Package filtertools loads filter set declarations and builds them into a
// catalog of ready to query filter sets.
package filtertools

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/jerry-enebeli/filtertools/autotools"
	"github.com/jerry-enebeli/filtertools/filter"
	"github.com/jerry-enebeli/filtertools/filterset"
	"github.com/jerry-enebeli/filtertools/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var ErrFilterSetNotFound = errors.New("filter set not found")

// Catalog holds the models of a declaration and the filter sets built
// over them. It is read only once built.
type Catalog struct {
	registry *model.Registry
	sets     map[string]*filterset.FilterSet
	names    []string
}

type options struct {
	defaultLookupExpr string
}

type Option func(*options)

// WithDefaultLookupExpr sets the lookup used by filter sets that do not
// declare their own.
func WithDefaultLookupExpr(expr string) Option {
	return func(o *options) {
		if expr != "" {
			o.defaultLookupExpr = expr
		}
	}
}

// Load decodes a YAML declaration and builds it.
func Load(r io.Reader, opts ...Option) (*Catalog, error) {
	var decl Declaration
	if err := yaml.NewDecoder(r).Decode(&decl); err != nil {
		return nil, errors.Wrap(err, "decoding catalog")
	}
	return decl.Build(opts...)
}

func LoadFile(path string, opts ...Option) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c, err := Load(f, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}
	return c, nil
}

// Build links the declared models and builds every filter set in
// declaration order.
func (d Declaration) Build(opts ...Option) (*Catalog, error) {
	o := options{defaultLookupExpr: filter.DefaultLookupExpr}
	for _, opt := range opts {
		opt(&o)
	}

	reg, err := model.SchemaDecl{Models: d.Models}.Build()
	if err != nil {
		return nil, err
	}

	c := &Catalog{registry: reg, sets: make(map[string]*filterset.FilterSet)}
	for _, fsd := range d.FilterSets {
		if err := fsd.Validate(); err != nil {
			return nil, errors.Wrapf(err, "filter set %q", fsd.Name)
		}
		if _, exists := c.sets[fsd.Name]; exists {
			return nil, fmt.Errorf("filter set %s is declared twice", fsd.Name)
		}

		g, err := fsd.Generator(reg, o.defaultLookupExpr)
		if err != nil {
			return nil, errors.Wrapf(err, "filter set %s", fsd.Name)
		}
		fs, err := filterset.Build(g)
		if err != nil {
			return nil, errors.Wrapf(err, "filter set %s", fsd.Name)
		}

		c.sets[fsd.Name] = fs
		c.names = append(c.names, fsd.Name)
		logrus.Debugf("catalog: built %s with %d filters", fsd.Name, len(fs.Filters()))
	}
	return c, nil
}

// Generator assembles the filter generation of the declaration: the
// standard one, wrapped with default lookups and pseudo lookups when the
// declaration has any.
func (d FilterSetDecl) Generator(reg *model.Registry, defaultLookupExpr string) (filterset.Generator, error) {
	m, ok := reg.Model(d.Model)
	if !ok {
		return nil, fmt.Errorf("unknown model %s", d.Model)
	}

	overrides, err := d.overrides()
	if err != nil {
		return nil, err
	}
	declared, err := d.declared()
	if err != nil {
		return nil, err
	}

	if d.DefaultLookupExpr != "" {
		defaultLookupExpr = d.DefaultLookupExpr
	}

	var g filterset.Generator = filterset.NewBase(d.Name, filterset.Meta{
		Model:           m,
		Fields:          []filterset.FieldSpec(d.Fields),
		AllFields:       d.AllFields,
		Exclude:         d.Exclude,
		FilterOverrides: overrides,
		Declared:        declared,
	}, filterset.WithDefaultLookupExpr(defaultLookupExpr))

	if len(d.DefaultLookups) > 0 {
		table := autotools.DefaultLookupTable()
		for kind, lookups := range d.DefaultLookups {
			if !kind.IsKnown() {
				return nil, fmt.Errorf("default lookups for unknown kind %s", kind)
			}
			table[kind] = lookups
		}
		g = autotools.WithDefaultLookups(g, table)
	}

	if len(d.PseudoLookups) > 0 {
		table := make(autotools.PseudoLookupTable, len(d.PseudoLookups))
		for name, pd := range d.PseudoLookups {
			pseudo := autotools.PseudoLookup{
				BehavesLike:   pd.BehavesLike,
				ReplaceLookup: pd.ReplaceLookup,
				Extra:         staticParams(pd.Extra),
			}
			if pd.FilterClass != "" {
				if pseudo.FilterClass, err = ClassByName(pd.FilterClass); err != nil {
					return nil, fmt.Errorf("pseudo lookup %s: %w", name, err)
				}
			}
			table[name] = pseudo
		}
		g = autotools.WithPseudoLookups(g, table)
	}
	return g, nil
}

func (d FilterSetDecl) overrides() (map[model.Kind]filter.Override, error) {
	if len(d.FilterOverrides) == 0 {
		return nil, nil
	}
	out := make(map[model.Kind]filter.Override, len(d.FilterOverrides))
	for kind, od := range d.FilterOverrides {
		if !kind.IsKnown() {
			return nil, fmt.Errorf("filter override for unknown kind %s", kind)
		}
		class, err := ClassByName(od.FilterClass)
		if err != nil {
			return nil, fmt.Errorf("filter override %s: %w", kind, err)
		}
		out[kind] = filter.Override{Class: class, Extra: staticParams(od.Extra)}
	}
	return out, nil
}

func (d FilterSetDecl) declared() (map[string]*filter.Filter, error) {
	if len(d.Declared) == 0 {
		return nil, nil
	}
	out := make(map[string]*filter.Filter, len(d.Declared))
	for name, dd := range d.Declared {
		class, err := ClassByName(dd.FilterClass)
		if err != nil {
			return nil, fmt.Errorf("declared filter %s: %w", name, err)
		}
		params := filter.Params(dd.Params).Copy()
		params[filter.ParamFieldName] = dd.FieldName
		if dd.LookupExpr != "" {
			params[filter.ParamLookupExpr] = dd.LookupExpr
		}
		f, err := class.New(params)
		if err != nil {
			return nil, fmt.Errorf("declared filter %s: %w", name, err)
		}
		out[name] = f
	}
	return out, nil
}

func (c *Catalog) Registry() *model.Registry { return c.registry }

// Names returns the filter set names in declaration order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.names...)
}

func (c *Catalog) FilterSet(name string) (*filterset.FilterSet, error) {
	fs, ok := c.sets[name]
	if !ok {
		return nil, errors.Wrap(ErrFilterSetNotFound, name)
	}
	return fs, nil
}

// DescribedFilter is a generated filter with the query parameter it answers to.
type DescribedFilter struct {
	Name string `json:"name"`
	*filter.Filter
}

type Description struct {
	Name    string            `json:"name"`
	Model   string            `json:"model"`
	Table   string            `json:"table"`
	Filters []DescribedFilter `json:"filters"`
}

// Describe lists the filters of a filter set in generation order.
func (c *Catalog) Describe(name string) (*Description, error) {
	fs, err := c.FilterSet(name)
	if err != nil {
		return nil, err
	}

	d := &Description{Name: fs.Name(), Model: fs.Model().Name, Table: fs.Model().Table}
	for _, nf := range fs.Filters() {
		d.Filters = append(d.Filters, DescribedFilter{Name: nf.Name, Filter: nf.Filter})
	}
	return d, nil
}

// Models lists the model names of the catalog, sorted.
func (c *Catalog) Models() []string {
	var names []string
	for _, m := range c.registry.Models() {
		names = append(names, m.Name)
	}
	sort.Strings(names)
	return names
}
