package autotools

import (
	"strings"
	"testing"

	"github.com/jerry-enebeli/filtertools/model"
	"github.com/stretchr/testify/require"
)

// registered once per test binary
var _ = model.RegisterKind("PointField", "")

var scalarKinds = []model.Kind{
	model.BigAutoField, model.CharField, model.TextField, model.BooleanField,
	model.NullBooleanField, model.DateField, model.DateTimeField, model.TimeField,
	model.DurationField, model.DecimalField, model.SmallIntegerField,
	model.IntegerField, model.BigIntegerField, model.PositiveIntegerField,
	model.PositiveSmallIntegerField, model.FloatField, model.SlugField,
	model.EmailField, model.FilePathField, model.URLField,
	model.GenericIPAddressField, model.CommaSeparatedIntegerField, model.UUIDField,
}

func fieldName(kind model.Kind) string {
	return strings.ToLower(string(kind))
}

// specimens builds a model with one field per scalar kind and every kind of
// relation between Specimen, Author and Tag.
func specimens(t *testing.T) *model.Registry {
	t.Helper()

	fields := make([]*model.Field, 0, len(scalarKinds)+3)
	for _, kind := range scalarKinds {
		fields = append(fields, &model.Field{Name: fieldName(kind), Kind: kind})
	}
	fields = append(fields,
		&model.Field{Name: "profile", Kind: model.OneToOneField, To: "Author", RelatedName: "profile_of"},
		&model.Field{Name: "author", Kind: model.ForeignKey, To: "Author", RelatedName: "specimens"},
		&model.Field{Name: "tags", Kind: model.ManyToManyField, To: "Tag", RelatedName: "specimens"},
	)

	specimen, err := model.NewModel("Specimen", "specimens", fields...)
	require.NoError(t, err)
	author, err := model.NewModel("Author", "authors", &model.Field{Name: "name", Kind: model.CharField})
	require.NoError(t, err)
	tag, err := model.NewModel("Tag", "tags", &model.Field{Name: "label", Kind: model.SlugField})
	require.NoError(t, err)

	reg, err := model.NewRegistry(specimen, author, tag)
	require.NoError(t, err)
	return reg
}

const peopleSchema = `
models:
  - name: Company
    table: companies
    fields:
      - {name: name, kind: CharField}
  - name: Person
    table: people
    fields:
      - {name: name, kind: CharField}
      - {name: age, kind: IntegerField}
      - {name: joined, kind: DateTimeField}
      - {name: location, kind: PointField, null: true}
      - {name: employer, kind: ForeignKey, to: Company, related_name: staff}
`

func people(t *testing.T) *model.Registry {
	t.Helper()
	reg, err := model.LoadSchema(strings.NewReader(peopleSchema))
	require.NoError(t, err)
	return reg
}

func modelOf(t *testing.T, reg *model.Registry, name string) *model.Model {
	t.Helper()
	m, ok := reg.Model(name)
	require.True(t, ok)
	return m
}

func fieldOf(t *testing.T, m *model.Model, path string) *model.Field {
	t.Helper()
	f, err := model.GetModelField(m, path)
	require.NoError(t, err)
	return f
}
