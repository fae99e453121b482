package filtertools

import (
	"errors"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/jerry-enebeli/filtertools/filter"
	"github.com/jerry-enebeli/filtertools/filterset"
	"github.com/jerry-enebeli/filtertools/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func library(t *testing.T) *Catalog {
	t.Helper()
	c, err := LoadFile("testdata/library.yaml")
	require.NoError(t, err)
	return c
}

func filterNames(d *Description) []string {
	var names []string
	for _, f := range d.Filters {
		names = append(names, f.Name)
	}
	return names
}

func TestLoadFile(t *testing.T) {
	c := library(t)

	assert.Equal(t, []string{"BookFilter", "AuthorFilter"}, c.Names())
	assert.Equal(t, []string{"Author", "Book", "Tag"}, c.Models())

	_, err := LoadFile("testdata/missing.yaml")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestDescribeBookFilter(t *testing.T) {
	d, err := library(t).Describe("BookFilter")
	require.NoError(t, err)

	assert.Equal(t, "Book", d.Model)
	assert.Equal(t, "books", d.Table)
	assert.Equal(t, []string{
		"title", "title__icontains",
		"pages", "pages__gt", "pages__nonzero",
		"price__lt", "price__range",
		"published__year__gte", "published__date",
		"status", "status__notin",
		"author", "author__in",
		"author__name__istartswith",
		"tags__label", "tags__label__iexact",
	}, filterNames(d))

	byName := map[string]DescribedFilter{}
	for _, f := range d.Filters {
		byName[f.Name] = f
	}

	assert.Equal(t, "ChoiceFilter", byName["status"].Class)
	assert.Equal(t, "CharInFilter", byName["status__notin"].Class)
	assert.Equal(t, "in", byName["status__notin"].LookupExpr)
	assert.True(t, byName["status__notin"].Exclude)

	assert.Equal(t, "NumberFilter", byName["pages__nonzero"].Class)
	assert.Equal(t, "nonzero", byName["pages__nonzero"].LookupExpr)
	assert.Equal(t, "Nonzero", byName["pages__nonzero"].Label)

	assert.Equal(t, "NumberRangeFilter", byName["price__range"].Class)
	assert.Equal(t, "ModelChoiceInFilter", byName["author__in"].Class)
	assert.Equal(t, "Author", byName["author"].ToModel)
}

func TestDescribeAuthorFilter(t *testing.T) {
	d, err := library(t).Describe("AuthorFilter")
	require.NoError(t, err)

	// born is excluded even though it is listed
	assert.Equal(t, []string{
		"name", "name__icontains",
		"books__title", "books__title__icontains",
	}, filterNames(d))
}

func TestDescribeUnknown(t *testing.T) {
	_, err := library(t).Describe("Nope")
	assert.ErrorIs(t, err, ErrFilterSetNotFound)
}

func TestCatalogQuery(t *testing.T) {
	fs, err := library(t).FilterSet("BookFilter")
	require.NoError(t, err)

	values := url.Values{
		"status__notin":  {"d"},
		"tags__label":    {"scifi"},
		"pages__nonzero": {"1"},
	}
	parsed := filter.ParseFromQuery(values, fs.Filters(), nil)
	require.Len(t, parsed.Values, 3)

	result, _, err := fs.Apply(url.Values{"status__notin": {"d"}, "tags__label": {"scifi"}}, nil, "", 1, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"NOT (status = ANY($1))",
		"id IN (SELECT j1.book_id FROM books_tags j1 WHERE j1.tag_id IN (SELECT t1.id FROM tags t1 WHERE t1.label = $2))",
	}, result.Conditions)
}

func TestFieldsDecl(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want FieldsDecl
	}{
		{
			name: "list of names",
			yaml: `fields: [title, pages]`,
			want: FieldsDecl{{Name: "title"}, {Name: "pages"}},
		},
		{
			name: "list with lookups",
			yaml: "fields:\n  - title\n  - {name: pages, lookups: [gt]}\n  - {name: price, lookups: []}",
			want: FieldsDecl{{Name: "title"}, {Name: "pages", Lookups: []string{"gt"}}, {Name: "price", Lookups: []string{}}},
		},
		{
			name: "mapping keeps order",
			yaml: "fields:\n  pages: [gt, lt]\n  title:\n  price: []",
			want: FieldsDecl{{Name: "pages", Lookups: []string{"gt", "lt"}}, {Name: "title"}, {Name: "price", Lookups: []string{}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var decl FilterSetDecl
			require.NoError(t, yamlDecode(tt.yaml, &decl))
			assert.Equal(t, tt.want, decl.Fields)
		})
	}

	var decl FilterSetDecl
	assert.Error(t, yamlDecode("fields: title", &decl))
}

func TestClassByName(t *testing.T) {
	c, err := ClassByName("NumberFilter")
	require.NoError(t, err)
	assert.Same(t, filter.NumberFilter, c)

	c, err = ClassByName("DateRangeFilter")
	require.NoError(t, err)
	assert.Equal(t, "DateRangeFilter", c.String())

	c, err = ClassByName("UUIDInFilter")
	require.NoError(t, err)
	assert.Equal(t, "UUIDInFilter", c.String())

	_, err = ClassByName("GeoFilter")
	assert.Error(t, err)
}

const smallSchema = `
models:
  - name: Place
    table: places
    fields:
      - {name: name, kind: CharField}
      - {name: visits, kind: IntegerField}
`

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name       string
		filtersets string
		wantErr    string
	}{
		{"missing name", "- {model: Place, fields: [name]}", "cannot be blank"},
		{"missing fields", "- {name: F, model: Place}", "fields are required"},
		{"unknown model", "- {name: F, model: Nope, fields: [name]}", "unknown model Nope"},
		{"duplicate", "- {name: F, model: Place, fields: [name]}\n- {name: F, model: Place, fields: [name]}", "declared twice"},
		{"unknown field", "- {name: F, model: Place, fields: [owner]}", "owner"},
		{"unknown lookup", "- {name: F, model: Place, fields: {visits: [gtt]}}", "did you mean 'gt'"},
		{"unknown default lookup kind", "- {name: F, model: Place, fields: [name], default_lookups: {GeoField: [exact]}}", "unknown kind GeoField"},
		{"pseudo without behaves_like", "- {name: F, model: Place, fields: [name], pseudo_lookups: {near: {}}}", "BehavesLike"},
		{"pseudo with separator", "- {name: F, model: Place, fields: [name], pseudo_lookups: {a__b: {behaves_like: exact}}}", "single token"},
		{"pseudo with unknown class", "- {name: F, model: Place, fields: [name], pseudo_lookups: {near: {behaves_like: exact, filter_class: GeoFilter}}}", "unknown filter class GeoFilter"},
		{"override without class", "- {name: F, model: Place, fields: [name], filter_overrides: {CharField: {}}}", "filter_class"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(smallSchema + "filtersets:\n" + indent(tt.filtersets)))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadOverridesAndDeclared(t *testing.T) {
	doc := smallSchema + `
filtersets:
  - name: PlaceFilter
    model: Place
    default_lookup_expr: icontains
    fields: [name, visits]
    filter_overrides:
      IntegerField: {filter_class: CharFilter, extra: {label: Visits}}
    declared:
      q:
        filter_class: CharFilter
        field_name: name
        lookup_expr: istartswith
        params: {label: Search}
`
	c, err := Load(strings.NewReader(doc), WithDefaultLookupExpr("exact"))
	require.NoError(t, err)

	d, err := c.Describe("PlaceFilter")
	require.NoError(t, err)
	assert.Equal(t, []string{"q", "name__icontains", "visits__icontains"}, filterNames(d))
	assert.Equal(t, "Search", d.Filters[0].Label)
	assert.Equal(t, "istartswith", d.Filters[0].LookupExpr)
	assert.Equal(t, "CharFilter", d.Filters[2].Class)
	assert.Equal(t, "Visits", d.Filters[2].Label)
}

func TestUnrecognizedKindSurfacesFromCatalog(t *testing.T) {
	require.NoError(t, registerOnce("LTreeField"))
	doc := `
models:
  - name: Node
    fields:
      - {name: path, kind: LTreeField}
filtersets:
  - {name: NodeFilter, model: Node, fields: [path]}
`
	_, err := Load(strings.NewReader(doc))
	var unrecognized *filterset.UnrecognizedFieldError
	require.True(t, errors.As(err, &unrecognized))
	assert.Equal(t, model.Kind("LTreeField"), unrecognized.FieldKind)
}
