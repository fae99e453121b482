package model

import (
	"fmt"
	"strings"
)

// Choice is one allowed value of a field declared with choices.
type Choice struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// Through describes the join table backing a many-to-many relation.
// SourceColumn points at the model declaring the relation, TargetColumn at
// the related model.
type Through struct {
	Table        string
	SourceColumn string
	TargetColumn string
}

// Field is a single column or relation of a model.
type Field struct {
	Name       string
	Column     string
	Kind       Kind
	Null       bool
	PrimaryKey bool
	Choices    []Choice

	// To names the related model of a forward relation.
	To string
	// RelatedName is the name the reverse relation gets on the related model.
	RelatedName string

	Model        *Model
	RelatedModel *Model
	// Remote is the forward field a reverse relation mirrors.
	Remote  *Field
	Through *Through
}

func (f *Field) String() string {
	if f.Model == nil {
		return f.Name
	}
	return f.Model.Name + "." + f.Name
}

// IsRelation reports whether the field links to another model.
func (f *Field) IsRelation() bool {
	return f.Kind.IsRelation()
}

// WithKind returns a detached copy of the field carrying a different kind.
// Transforms use it to describe the output of an expression such as year().
func (f *Field) WithKind(kind Kind) *Field {
	out := *f
	out.Kind = kind
	out.Choices = nil
	out.PrimaryKey = false
	return &out
}

// Model is a table and its fields.
type Model struct {
	Name   string
	Table  string
	fields []*Field
	byName map[string]*Field
}

// NewModel creates a model. An "id" AutoField primary key is added when no
// field is marked as primary key, and relation columns default to
// "<name>_id".
func NewModel(name, table string, fields ...*Field) (*Model, error) {
	if name == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if table == "" {
		table = strings.ToLower(name)
	}

	m := &Model{Name: name, Table: table, byName: make(map[string]*Field)}

	var pk, id *Field
	for _, f := range fields {
		if f.PrimaryKey {
			pk = f
		}
		if f.Name == "id" {
			id = f
		}
	}
	switch {
	case pk != nil:
	case id != nil:
		id.PrimaryKey = true
	default:
		fields = append([]*Field{{Name: "id", Kind: AutoField, PrimaryKey: true}}, fields...)
	}

	for _, f := range fields {
		if err := m.addField(f); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Model) addField(f *Field) error {
	if f.Name == "" {
		return fmt.Errorf("model %s: field name is required", m.Name)
	}
	if strings.Contains(f.Name, LookupSep) {
		return fmt.Errorf("model %s: field name %q must not contain %q", m.Name, f.Name, LookupSep)
	}
	if _, exists := m.byName[f.Name]; exists {
		return fmt.Errorf("model %s: duplicate field %s", m.Name, f.Name)
	}
	if !f.Kind.IsKnown() {
		return fmt.Errorf("model %s: field %s has unknown kind %s", m.Name, f.Name, f.Kind)
	}
	if f.Kind.IsForward() && f.To == "" {
		return fmt.Errorf("model %s: relation %s does not name a related model", m.Name, f.Name)
	}
	if f.Column == "" && !f.Kind.IsReverse() && !f.Kind.Is(ManyToManyField) {
		f.Column = f.Name
		if f.Kind.Is(ForeignKey) {
			f.Column = f.Name + "_id"
		}
	}
	f.Model = m
	m.fields = append(m.fields, f)
	m.byName[f.Name] = f
	return nil
}

// Field returns the field called name, including reverse relations.
func (m *Model) Field(name string) (*Field, bool) {
	f, ok := m.byName[name]
	return f, ok
}

// Fields returns every field in declaration order, reverse relations last.
func (m *Model) Fields() []*Field {
	return m.fields
}

// PK returns the primary key field.
func (m *Model) PK() *Field {
	for _, f := range m.fields {
		if f.PrimaryKey {
			return f
		}
	}
	return nil
}

// ConcreteFields returns the fields a filter set gets when it asks for
// all fields: forward fields without the auto primary key.
func (m *Model) ConcreteFields() []*Field {
	out := make([]*Field, 0, len(m.fields))
	for _, f := range m.fields {
		if f.Kind.IsReverse() || f.Kind.Is(AutoField) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Columns returns the columns stored on the model's own table.
func (m *Model) Columns() []string {
	cols := make([]string, 0, len(m.fields))
	for _, f := range m.fields {
		if f.Column != "" {
			cols = append(cols, f.Column)
		}
	}
	return cols
}
