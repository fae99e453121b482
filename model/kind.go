package model

import (
	"fmt"
	"sync"
)

// Kind identifies the storage type of a model field.
type Kind string

const (
	AutoField                  Kind = "AutoField"
	BigAutoField               Kind = "BigAutoField"
	CharField                  Kind = "CharField"
	TextField                  Kind = "TextField"
	BooleanField               Kind = "BooleanField"
	NullBooleanField           Kind = "NullBooleanField"
	DateField                  Kind = "DateField"
	DateTimeField              Kind = "DateTimeField"
	TimeField                  Kind = "TimeField"
	DurationField              Kind = "DurationField"
	DecimalField               Kind = "DecimalField"
	SmallIntegerField          Kind = "SmallIntegerField"
	IntegerField               Kind = "IntegerField"
	BigIntegerField            Kind = "BigIntegerField"
	PositiveIntegerField       Kind = "PositiveIntegerField"
	PositiveSmallIntegerField  Kind = "PositiveSmallIntegerField"
	FloatField                 Kind = "FloatField"
	SlugField                  Kind = "SlugField"
	EmailField                 Kind = "EmailField"
	FilePathField              Kind = "FilePathField"
	URLField                   Kind = "URLField"
	GenericIPAddressField      Kind = "GenericIPAddressField"
	CommaSeparatedIntegerField Kind = "CommaSeparatedIntegerField"
	UUIDField                  Kind = "UUIDField"

	// Forward relations
	OneToOneField   Kind = "OneToOneField"
	ForeignKey      Kind = "ForeignKey"
	ManyToManyField Kind = "ManyToManyField"

	// Reverse relations
	OneToOneRel   Kind = "OneToOneRel"
	ManyToOneRel  Kind = "ManyToOneRel"
	ManyToManyRel Kind = "ManyToManyRel"
)

// kindParents records the lineage of every known kind. A kind without an
// entry is a root.
var (
	kindMu      sync.RWMutex
	kindParents = map[Kind]Kind{
		BigAutoField:               AutoField,
		AutoField:                  IntegerField,
		SmallIntegerField:          IntegerField,
		BigIntegerField:            IntegerField,
		PositiveIntegerField:       IntegerField,
		PositiveSmallIntegerField:  IntegerField,
		NullBooleanField:           BooleanField,
		DateTimeField:              DateField,
		SlugField:                  CharField,
		EmailField:                 CharField,
		URLField:                   CharField,
		CommaSeparatedIntegerField: CharField,
		OneToOneField:              ForeignKey,
		OneToOneRel:                ManyToOneRel,
	}
	knownKinds = map[Kind]bool{
		AutoField: true, BigAutoField: true, CharField: true, TextField: true,
		BooleanField: true, NullBooleanField: true, DateField: true,
		DateTimeField: true, TimeField: true, DurationField: true,
		DecimalField: true, SmallIntegerField: true, IntegerField: true,
		BigIntegerField: true, PositiveIntegerField: true,
		PositiveSmallIntegerField: true, FloatField: true, SlugField: true,
		EmailField: true, FilePathField: true, URLField: true,
		GenericIPAddressField: true, CommaSeparatedIntegerField: true,
		UUIDField: true, OneToOneField: true, ForeignKey: true,
		ManyToManyField: true, OneToOneRel: true, ManyToOneRel: true,
		ManyToManyRel: true,
	}
)

// RegisterKind adds a custom kind that behaves like parent wherever a
// table keyed by kind has no entry of its own. Registration is meant to
// happen during program initialization.
func RegisterKind(kind, parent Kind) error {
	kindMu.Lock()
	defer kindMu.Unlock()

	if kind == "" {
		return fmt.Errorf("kind name is required")
	}
	if knownKinds[kind] {
		return fmt.Errorf("kind %s is already registered", kind)
	}
	if parent != "" && !knownKinds[parent] {
		return fmt.Errorf("parent kind %s of %s is not registered", parent, kind)
	}

	knownKinds[kind] = true
	if parent != "" {
		kindParents[kind] = parent
	}
	return nil
}

// IsKnown reports whether kind is built in or was registered.
func (k Kind) IsKnown() bool {
	kindMu.RLock()
	defer kindMu.RUnlock()
	return knownKinds[k]
}

// Lineage returns the kind followed by its ancestors, nearest first.
func (k Kind) Lineage() []Kind {
	kindMu.RLock()
	defer kindMu.RUnlock()

	lineage := []Kind{k}
	seen := map[Kind]bool{k: true}
	for cur := k; ; {
		parent, ok := kindParents[cur]
		if !ok || seen[parent] {
			break
		}
		lineage = append(lineage, parent)
		seen[parent] = true
		cur = parent
	}
	return lineage
}

// Is reports whether k is other or descends from it.
func (k Kind) Is(other Kind) bool {
	for _, kind := range k.Lineage() {
		if kind == other {
			return true
		}
	}
	return false
}

// IsRelation reports whether the kind links to another model.
func (k Kind) IsRelation() bool {
	return k.IsForward() || k.IsReverse()
}

// IsForward reports whether the kind is a relation declared on the model itself.
func (k Kind) IsForward() bool {
	return k.Is(ForeignKey) || k.Is(ManyToManyField)
}

// IsReverse reports whether the kind is the far side of a relation declared elsewhere.
func (k Kind) IsReverse() bool {
	return k.Is(ManyToOneRel) || k.Is(ManyToManyRel)
}

// IsMultiValued reports whether following the relation can yield more than one row.
func (k Kind) IsMultiValued() bool {
	switch {
	case k.Is(OneToOneRel):
		return false
	case k.Is(ManyToOneRel), k.Is(ManyToManyRel), k.Is(ManyToManyField):
		return true
	}
	return false
}

// TryDBField consults fn with kind and then each of its ancestors and
// returns the first value fn reports as present.
func TryDBField[T any](kind Kind, fn func(Kind) (T, bool)) (T, bool) {
	for _, k := range kind.Lineage() {
		if v, ok := fn(k); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}
