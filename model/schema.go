package model

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// SchemaDecl is the YAML form of a set of models.
type SchemaDecl struct {
	Models []ModelDecl `yaml:"models"`
}

type ModelDecl struct {
	Name   string      `yaml:"name"`
	Table  string      `yaml:"table"`
	Fields []FieldDecl `yaml:"fields"`
}

type FieldDecl struct {
	Name        string   `yaml:"name"`
	Kind        Kind     `yaml:"kind"`
	Column      string   `yaml:"column"`
	Null        bool     `yaml:"null"`
	PrimaryKey  bool     `yaml:"primary_key"`
	Choices     []Choice `yaml:"choices"`
	To          string   `yaml:"to"`
	RelatedName string   `yaml:"related_name"`
}

// LoadSchema decodes a YAML schema and builds a linked registry from it.
func LoadSchema(r io.Reader) (*Registry, error) {
	var decl SchemaDecl
	if err := yaml.NewDecoder(r).Decode(&decl); err != nil {
		return nil, fmt.Errorf("decoding schema: %w", err)
	}
	return decl.Build()
}

// Build turns the declarations into models and links them.
func (d SchemaDecl) Build() (*Registry, error) {
	models := make([]*Model, 0, len(d.Models))
	for _, md := range d.Models {
		fields := make([]*Field, 0, len(md.Fields))
		for _, fd := range md.Fields {
			fields = append(fields, &Field{
				Name:        fd.Name,
				Column:      fd.Column,
				Kind:        fd.Kind,
				Null:        fd.Null,
				PrimaryKey:  fd.PrimaryKey,
				Choices:     fd.Choices,
				To:          fd.To,
				RelatedName: fd.RelatedName,
			})
		}
		m, err := NewModel(md.Name, md.Table, fields...)
		if err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	return NewRegistry(models...)
}
