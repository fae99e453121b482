package autotools

import (
	"github.com/jerry-enebeli/filtertools/filterset"
	"github.com/jerry-enebeli/filtertools/model"
	"github.com/sirupsen/logrus"
)

// LookupTable maps a field kind to the lookups generated for fields
// declared without any. A nil entry defers to the filter set default.
type LookupTable map[model.Kind][]string

// DefaultLookupTable returns a table listing every built-in kind with no
// lookups set.
func DefaultLookupTable() LookupTable {
	return LookupTable{
		model.AutoField:                  nil,
		model.BigAutoField:               nil,
		model.CharField:                  nil,
		model.TextField:                  nil,
		model.BooleanField:               nil,
		model.DateField:                  nil,
		model.DateTimeField:              nil,
		model.TimeField:                  nil,
		model.DurationField:              nil,
		model.DecimalField:               nil,
		model.SmallIntegerField:          nil,
		model.IntegerField:               nil,
		model.BigIntegerField:            nil,
		model.PositiveIntegerField:       nil,
		model.PositiveSmallIntegerField:  nil,
		model.FloatField:                 nil,
		model.NullBooleanField:           nil,
		model.SlugField:                  nil,
		model.EmailField:                 nil,
		model.FilePathField:              nil,
		model.URLField:                   nil,
		model.GenericIPAddressField:      nil,
		model.CommaSeparatedIntegerField: nil,
		model.UUIDField:                  nil,

		// Forward relationships
		model.OneToOneField:   nil,
		model.ForeignKey:      nil,
		model.ManyToManyField: nil,

		// Reverse relationships
		model.OneToOneRel:   nil,
		model.ManyToOneRel:  nil,
		model.ManyToManyRel: nil,
	}
}

// Get returns the lookups for kind, falling back to its ancestors when the
// kind has no entry of its own.
func (t LookupTable) Get(kind model.Kind) ([]string, bool) {
	return model.TryDBField(kind, func(k model.Kind) ([]string, bool) {
		l := t[k]
		return l, len(l) > 0
	})
}

// DefaultLookups replaces the lookups of fields declared without any with
// the ones its table lists for the field kind.
type DefaultLookups struct {
	filterset.Generator
	Table LookupTable
}

func WithDefaultLookups(g filterset.Generator, table LookupTable) *DefaultLookups {
	return &DefaultLookups{Generator: g, Table: table}
}

func (d *DefaultLookups) GetFields() (*filterset.FieldLookups, error) {
	fields, err := d.Generator.GetFields()
	if err != nil {
		return nil, err
	}

	meta := d.Meta()
	for _, name := range fields.Names() {
		// the table is keyed by the kind at the end of the relation path
		f, err := model.GetModelField(meta.Model, name)
		if err != nil {
			return nil, err
		}

		lookups, ok := d.Table.Get(f.Kind)
		if !ok {
			continue
		}
		if requested, _ := meta.Lookups(name); len(requested) > 0 {
			continue
		}

		logrus.Debugf("filter set %s: default lookups %v for %s (%s)", d.Name(), lookups, name, f.Kind)
		fields.Set(name, append([]string(nil), lookups...))
	}
	return fields, nil
}
