package model

import (
	"fmt"
	"strings"
)

// Registry holds a closed set of models and wires the relations between them.
type Registry struct {
	models map[string]*Model
	order  []string
}

// NewRegistry registers models and links their relations: forward
// relations get their related model, related models get the matching
// reverse field, and many-to-many relations get a through table.
func NewRegistry(models ...*Model) (*Registry, error) {
	r := &Registry{models: make(map[string]*Model)}
	for _, m := range models {
		if _, exists := r.models[m.Name]; exists {
			return nil, fmt.Errorf("model %s registered twice", m.Name)
		}
		r.models[m.Name] = m
		r.order = append(r.order, m.Name)
	}

	for _, name := range r.order {
		if err := r.link(r.models[name]); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) link(m *Model) error {
	// reverse fields are appended while iterating, only walk the declared ones
	declared := append([]*Field(nil), m.fields...)
	for _, f := range declared {
		if !f.Kind.IsForward() {
			continue
		}

		target, ok := r.models[f.To]
		if !ok {
			return fmt.Errorf("model %s: relation %s points at unknown model %s", m.Name, f.Name, f.To)
		}
		f.RelatedModel = target

		if f.Kind.Is(ManyToManyField) && f.Through == nil {
			f.Through = &Through{
				Table:        m.Table + "_" + f.Name,
				SourceColumn: strings.ToLower(m.Name) + "_id",
				TargetColumn: strings.ToLower(target.Name) + "_id",
			}
		}

		reverse := &Field{
			Name:         reverseName(m, f),
			Kind:         reverseKind(f.Kind),
			Null:         true,
			RelatedModel: m,
			Remote:       f,
			Through:      f.Through,
		}
		if err := target.addField(reverse); err != nil {
			return err
		}
	}
	return nil
}

func reverseName(m *Model, f *Field) string {
	if f.RelatedName != "" {
		return f.RelatedName
	}
	return strings.ToLower(m.Name)
}

func reverseKind(kind Kind) Kind {
	switch {
	case kind.Is(OneToOneField):
		return OneToOneRel
	case kind.Is(ManyToManyField):
		return ManyToManyRel
	default:
		return ManyToOneRel
	}
}

// Model returns the registered model called name.
func (r *Registry) Model(name string) (*Model, bool) {
	m, ok := r.models[name]
	return m, ok
}

// Models returns the registered models in registration order.
func (r *Registry) Models() []*Model {
	out := make([]*Model, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.models[name])
	}
	return out
}
