package filterset

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/jerry-enebeli/filtertools/filter"
	"github.com/jerry-enebeli/filtertools/model"
	"github.com/sirupsen/logrus"
)

// FieldSpec names a model field (possibly through relations) and the
// lookups requested for it. No lookups means "use the default".
type FieldSpec struct {
	Name    string   `json:"name" yaml:"name"`
	Lookups []string `json:"lookups,omitempty" yaml:"lookups"`
}

// Fields declares plain field names without lookups.
func Fields(names ...string) []FieldSpec {
	out := make([]FieldSpec, len(names))
	for i, name := range names {
		out[i] = FieldSpec{Name: name}
	}
	return out
}

// Meta is the declaration of a filter set.
type Meta struct {
	Model           *model.Model
	Fields          []FieldSpec
	AllFields       bool
	Exclude         []string
	FilterOverrides map[model.Kind]filter.Override
	Declared        map[string]*filter.Filter
}

// Lookups returns the lookups the declaration requests for name and
// whether the name is declared at all.
func (m *Meta) Lookups(name string) ([]string, bool) {
	for _, spec := range m.Fields {
		if spec.Name == name {
			return spec.Lookups, true
		}
	}
	return nil, false
}

// FieldLookups is the ordered field name to lookups mapping filters are
// generated from.
type FieldLookups struct {
	names   []string
	lookups map[string][]string
}

func NewFieldLookups() *FieldLookups {
	return &FieldLookups{lookups: make(map[string][]string)}
}

// Set assigns lookups to name, appending name when it is new.
func (fl *FieldLookups) Set(name string, lookups []string) {
	if _, ok := fl.lookups[name]; !ok {
		fl.names = append(fl.names, name)
	}
	fl.lookups[name] = lookups
}

func (fl *FieldLookups) Get(name string) ([]string, bool) {
	l, ok := fl.lookups[name]
	return l, ok
}

func (fl *FieldLookups) Delete(name string) {
	if _, ok := fl.lookups[name]; !ok {
		return
	}
	delete(fl.lookups, name)
	for i, n := range fl.names {
		if n == name {
			fl.names = append(fl.names[:i], fl.names[i+1:]...)
			break
		}
	}
}

// Names returns the field names in order.
func (fl *FieldLookups) Names() []string {
	return append([]string(nil), fl.names...)
}

// Generator is the set of steps filter generation goes through. Base
// implements every step; extensions embed a Generator and replace some of
// them.
type Generator interface {
	Name() string
	Meta() *Meta
	DefaultLookupExpr() string
	GetFields() (*FieldLookups, error)
	ResolveField(f *model.Field, lookupExpr string) (*model.Field, string, error)
	FilterForLookup(f *model.Field, lookupType string) (filter.Class, filter.Params, error)
	FilterForField(f *model.Field, fieldName, lookupExpr string) (*filter.Filter, error)
}

// Base is the standard filter generation.
type Base struct {
	name              string
	meta              Meta
	defaultLookupExpr string
}

type Option func(*Base)

// WithDefaultLookupExpr sets the lookup used for fields declared without one.
func WithDefaultLookupExpr(expr string) Option {
	return func(b *Base) {
		if expr != "" {
			b.defaultLookupExpr = expr
		}
	}
}

func NewBase(name string, meta Meta, opts ...Option) *Base {
	b := &Base{name: name, meta: meta, defaultLookupExpr: filter.DefaultLookupExpr}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Base) Name() string              { return b.name }
func (b *Base) Meta() *Meta               { return &b.meta }
func (b *Base) DefaultLookupExpr() string { return b.defaultLookupExpr }

// GetFields lists the fields to generate filters for. Plain names get the
// default lookup expression, declared lookups are kept as they are.
func (b *Base) GetFields() (*FieldLookups, error) {
	if b.meta.Model == nil {
		return nil, fmt.Errorf("filter set %s: Meta.Model is required", b.name)
	}

	fields := NewFieldLookups()
	if b.meta.AllFields {
		for _, f := range b.meta.Model.ConcreteFields() {
			fields.Set(f.Name, []string{b.defaultLookupExpr})
		}
	}
	for _, spec := range b.meta.Fields {
		if spec.Lookups == nil {
			fields.Set(spec.Name, []string{b.defaultLookupExpr})
			continue
		}
		fields.Set(spec.Name, spec.Lookups)
	}
	for _, name := range b.meta.Exclude {
		fields.Delete(name)
	}
	return fields, nil
}

func (b *Base) ResolveField(f *model.Field, lookupExpr string) (*model.Field, string, error) {
	return filter.ResolveField(f, lookupExpr)
}

func (b *Base) FilterForLookup(f *model.Field, lookupType string) (filter.Class, filter.Params, error) {
	class, params := filter.FilterForLookup(f, lookupType, b.meta.FilterOverrides)
	return class, params, nil
}

// FilterForField builds the filter for fieldName with lookupExpr. An empty
// lookupExpr selects the default lookup expression.
func (b *Base) FilterForField(f *model.Field, fieldName, lookupExpr string) (*filter.Filter, error) {
	return ConstructFilter(b, b.ResolveField, b.FilterForLookup, f, fieldName, lookupExpr)
}

// ConstructFilter runs the steps of FilterForField with the given resolvers.
// Extensions that replace lookup resolution call it with their own steps.
func ConstructFilter(
	g Generator,
	resolve func(*model.Field, string) (*model.Field, string, error),
	filterFor func(*model.Field, string) (filter.Class, filter.Params, error),
	f *model.Field, fieldName, lookupExpr string,
) (*filter.Filter, error) {
	if lookupExpr == "" {
		lookupExpr = g.DefaultLookupExpr()
	}

	resolved, lookupType, err := resolve(f, lookupExpr)
	if err != nil {
		return nil, err
	}

	params := filter.Params{
		filter.ParamFieldName:  fieldName,
		filter.ParamLookupExpr: lookupExpr,
	}

	class, extra, err := filterFor(resolved, lookupType)
	if err != nil {
		return nil, err
	}
	params.Update(extra)

	if class == nil {
		return nil, &UnrecognizedFieldError{
			FilterSet:  g.Name(),
			FieldName:  fieldName,
			LookupExpr: lookupExpr,
			FieldKind:  resolved.Kind,
		}
	}
	return class.New(params)
}

// UnrecognizedFieldError is returned when no filter class exists for the
// resolved field. It is a declaration error, not a request error.
type UnrecognizedFieldError struct {
	FilterSet  string
	FieldName  string
	LookupExpr string
	FieldKind  model.Kind
}

func (e *UnrecognizedFieldError) Error() string {
	return fmt.Sprintf("%s resolved field '%s' with '%s' lookup to an unrecognized field type %s. "+
		"Try adding an override to 'Meta.FilterOverrides'.", e.FilterSet, e.FieldName, e.LookupExpr, e.FieldKind)
}

// FilterName is the query parameter a generated filter answers to.
func FilterName(fieldName, lookupExpr string) string {
	name := fieldName + model.LookupSep + lookupExpr
	return strings.TrimSuffix(name, model.LookupSep+filter.LookupExact)
}

// FilterSet is the prepared, immutable set of filters of a declaration.
type FilterSet struct {
	name    string
	model   *model.Model
	filters []filter.NamedFilter
	byName  map[string]*filter.Filter
}

// Build prepares a filter set: declared filters first, then one filter per
// field and lookup returned by GetFields, skipping names already declared.
func Build(g Generator) (*FilterSet, error) {
	meta := g.Meta()
	fields, err := g.GetFields()
	if err != nil {
		return nil, err
	}

	fs := &FilterSet{name: g.Name(), model: meta.Model, byName: make(map[string]*filter.Filter)}

	declared := make([]string, 0, len(meta.Declared))
	for name := range meta.Declared {
		declared = append(declared, name)
	}
	sort.Strings(declared)
	for _, name := range declared {
		fs.add(name, meta.Declared[name])
	}

	for _, fieldName := range fields.Names() {
		lookups, _ := fields.Get(fieldName)
		f, err := model.GetModelField(meta.Model, fieldName)
		if err != nil {
			return nil, fmt.Errorf("filter set %s: %w", g.Name(), err)
		}

		for _, lookupExpr := range lookups {
			name := FilterName(fieldName, lookupExpr)
			if _, ok := fs.byName[name]; ok {
				continue
			}

			flt, err := g.FilterForField(f, fieldName, lookupExpr)
			if err != nil {
				return nil, err
			}
			logrus.Debugf("filter set %s: %s -> %s(%s)", fs.name, name, flt.Class, flt.LookupExpr)
			fs.add(name, flt)
		}
	}
	return fs, nil
}

// MustBuild is Build for declarations made at program start; it panics on error.
func MustBuild(g Generator) *FilterSet {
	fs, err := Build(g)
	if err != nil {
		panic(err)
	}
	return fs
}

func (fs *FilterSet) add(name string, f *filter.Filter) {
	fs.filters = append(fs.filters, filter.NamedFilter{Name: name, Filter: f})
	fs.byName[name] = f
}

func (fs *FilterSet) Name() string         { return fs.name }
func (fs *FilterSet) Model() *model.Model { return fs.model }

// Filters returns the filters in the order they were generated.
func (fs *FilterSet) Filters() []filter.NamedFilter {
	return append([]filter.NamedFilter(nil), fs.filters...)
}

func (fs *FilterSet) Filter(name string) (*filter.Filter, bool) {
	f, ok := fs.byName[name]
	return f, ok
}

// Apply matches query values against the filters and compiles them.
// Parse errors are returned separately so callers can report every one of
// them; err is set when a matched value fails to compile.
func (fs *FilterSet) Apply(values url.Values, parseOpts *filter.ParseOptions, alias string, startArgPos int, opts *filter.QueryOptions) (*filter.BuildResult, []filter.ParseError, error) {
	parsed := filter.ParseFromQuery(values, fs.filters, parseOpts)
	for _, pe := range parsed.Errors {
		logrus.Warnf("filter set %s: skipped %s: %s", fs.name, pe.Param, pe.Message)
	}

	result, err := filter.BuildWithOptions(fs.model, parsed.Values, alias, startArgPos, opts)
	if err != nil {
		return nil, parsed.Errors, err
	}
	return result, parsed.Errors, nil
}
