package model

import (
	"strings"

	"github.com/pkg/errors"
)

// LookupSep joins relation names, transforms and lookups in an expression.
const LookupSep = "__"

// ErrFieldNotFound is returned when a field path does not resolve on a model.
var ErrFieldNotFound = errors.New("field not found")

// GetModelField resolves a field path such as "author__name" on m,
// following relations, and returns the final field.
func GetModelField(m *Model, path string) (*Field, error) {
	fields, err := FieldPath(m, path)
	if err != nil {
		return nil, err
	}
	return fields[len(fields)-1], nil
}

// FieldPath resolves path on m and returns every field visited, the
// relations first and the final field last.
func FieldPath(m *Model, path string) ([]*Field, error) {
	if m == nil {
		return nil, errors.Wrapf(ErrFieldNotFound, "no model to resolve %q on", path)
	}
	if path == "" {
		return nil, errors.Wrap(ErrFieldNotFound, "empty field path")
	}

	names := strings.Split(path, LookupSep)
	fields := make([]*Field, 0, len(names))
	cur := m
	for i, name := range names {
		if cur == nil {
			return nil, errors.Wrapf(ErrFieldNotFound, "%s: %q is not a relation", strings.Join(names[:i], LookupSep), names[i-1])
		}
		f, ok := cur.Field(name)
		if !ok {
			return nil, errors.Wrapf(ErrFieldNotFound, "%s has no field %q (path %q)", cur.Name, name, path)
		}
		fields = append(fields, f)
		cur = f.RelatedModel
	}
	return fields, nil
}
