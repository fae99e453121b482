package autotools

import (
	"strings"

	"github.com/jerry-enebeli/filtertools/filter"
	"github.com/jerry-enebeli/filtertools/filterset"
	"github.com/jerry-enebeli/filtertools/model"
	"github.com/sirupsen/logrus"
)

// PseudoLookup describes a lookup name unknown to the filter library.
type PseudoLookup struct {
	// BehavesLike is the real lookup the pseudo lookup is resolved as.
	BehavesLike string
	// FilterClass, when set, is used instead of the class BehavesLike resolves to.
	FilterClass filter.Class
	// Extra supplies constructor parameters from the resolved field. They
	// win over the parameters BehavesLike resolves to.
	Extra func(f *model.Field) filter.Params
	// ReplaceLookup, when set, replaces the pseudo lookup in the lookup
	// expression the filter is constructed with.
	ReplaceLookup string
}

type PseudoLookupTable map[string]PseudoLookup

// PseudoLookups routes lookup resolution and filter construction through
// the pseudo lookup table before falling back to the wrapped generator.
// When stacked with other generators it should be the outermost one that
// changes resolution.
type PseudoLookups struct {
	filterset.Generator
	Lookups PseudoLookupTable
}

func WithPseudoLookups(g filterset.Generator, lookups PseudoLookupTable) *PseudoLookups {
	return &PseudoLookups{Generator: g, Lookups: lookups}
}

// ResolveField resolves lookupExpr on f. A trailing pseudo lookup is swapped
// for the lookup it behaves like for resolution, and reported back as the
// lookup type. Only the last token is checked.
func (p *PseudoLookups) ResolveField(f *model.Field, lookupExpr string) (*model.Field, string, error) {
	parts := strings.Split(lookupExpr, model.LookupSep)
	last := parts[len(parts)-1]

	pseudo, isPseudo := p.Lookups[last]
	if isPseudo {
		substituted := lookupExpr[:len(lookupExpr)-len(last)] + pseudo.BehavesLike
		logrus.Debugf("filter set %s: resolving %s as %s", p.Name(), lookupExpr, substituted)
		lookupExpr = substituted
	}

	resolved, lookupType, err := p.Generator.ResolveField(f, lookupExpr)
	if err != nil {
		return nil, "", err
	}

	// TODO: reject a BehavesLike that resolves to a lookup type other than itself.
	if isPseudo {
		lookupType = last
	}
	return resolved, lookupType, nil
}

func (p *PseudoLookups) FilterForLookup(f *model.Field, lookupType string) (filter.Class, filter.Params, error) {
	if _, ok := p.Lookups[lookupType]; ok {
		return p.FilterForPseudoLookup(f, lookupType)
	}
	return p.Generator.FilterForLookup(f, lookupType)
}

// FilterForPseudoLookup returns the class and parameters for a pseudo
// lookup on the field resolved after all transforms.
func (p *PseudoLookups) FilterForPseudoLookup(f *model.Field, lookupType string) (filter.Class, filter.Params, error) {
	pseudo := p.Lookups[lookupType]

	params := filter.Params{}
	if pseudo.Extra != nil {
		params = pseudo.Extra(f).Copy()
	}

	class := pseudo.FilterClass
	if class == nil {
		resolved, base, err := p.Generator.FilterForLookup(f, pseudo.BehavesLike)
		if err != nil {
			return nil, nil, err
		}
		merged := base.Copy()
		merged.Update(params)
		class, params = resolved, merged
	}

	if pseudo.ReplaceLookup != "" && class != nil {
		class = PatchClass(class, lookupType, pseudo.ReplaceLookup)
	}
	return class, params, nil
}

// FilterForField is the standard construction with pseudo lookup aware
// resolution.
func (p *PseudoLookups) FilterForField(f *model.Field, fieldName, lookupExpr string) (*filter.Filter, error) {
	return filterset.ConstructFilter(p, p.ResolveField, p.FilterForLookup, f, fieldName, lookupExpr)
}
