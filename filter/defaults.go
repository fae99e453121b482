package filter

import "github.com/jerry-enebeli/filtertools/model"

// Override selects the filter class for a field kind, optionally adding
// constructor parameters derived from the field.
type Override struct {
	Class Class
	Extra func(f *model.Field) Params
}

func (o Override) params(f *model.Field) Params {
	if o.Extra == nil {
		return Params{}
	}
	return o.Extra(f).Copy()
}

func relatedModel(f *model.Field) Params {
	if f.RelatedModel == nil {
		return Params{}
	}
	return Params{ParamToModel: f.RelatedModel.Name}
}

// DBFieldDefaults maps every built-in kind to the class used to filter it.
var DBFieldDefaults = map[model.Kind]Override{
	model.AutoField:                  {Class: NumberFilter},
	model.CharField:                  {Class: CharFilter},
	model.TextField:                  {Class: CharFilter},
	model.BooleanField:               {Class: BooleanFilter},
	model.DateField:                  {Class: DateFilter},
	model.DateTimeField:              {Class: DateTimeFilter},
	model.TimeField:                  {Class: TimeFilter},
	model.DurationField:              {Class: DurationFilter},
	model.DecimalField:               {Class: NumberFilter},
	model.SmallIntegerField:          {Class: NumberFilter},
	model.IntegerField:               {Class: NumberFilter},
	model.PositiveIntegerField:       {Class: NumberFilter},
	model.PositiveSmallIntegerField:  {Class: NumberFilter},
	model.FloatField:                 {Class: NumberFilter},
	model.NullBooleanField:           {Class: BooleanFilter},
	model.SlugField:                  {Class: CharFilter},
	model.EmailField:                 {Class: CharFilter},
	model.FilePathField:              {Class: CharFilter},
	model.URLField:                   {Class: CharFilter},
	model.GenericIPAddressField:      {Class: CharFilter},
	model.CommaSeparatedIntegerField: {Class: CharFilter},
	model.UUIDField:                  {Class: UUIDFilter},

	model.OneToOneField:   {Class: ModelChoiceFilter, Extra: relatedModel},
	model.ForeignKey:      {Class: ModelChoiceFilter, Extra: relatedModel},
	model.ManyToManyField: {Class: ModelMultipleChoiceFilter, Extra: relatedModel},

	model.OneToOneRel:   {Class: ModelChoiceFilter, Extra: relatedModel},
	model.ManyToOneRel:  {Class: ModelMultipleChoiceFilter, Extra: relatedModel},
	model.ManyToManyRel: {Class: ModelMultipleChoiceFilter, Extra: relatedModel},
}

// FilterForLookup picks the class and constructor parameters for a
// resolved field and lookup. overrides take precedence over
// DBFieldDefaults. A nil class means the kind is not filterable.
func FilterForLookup(f *model.Field, lookupType string, overrides map[model.Kind]Override) (Class, Params) {
	table := func(k model.Kind) (Override, bool) {
		if o, ok := overrides[k]; ok && o.Class != nil {
			return o, true
		}
		o, ok := DBFieldDefaults[k]
		return o, ok && o.Class != nil
	}

	data, ok := model.TryDBField(f.Kind, table)
	if !ok {
		return nil, Params{}
	}
	class, params := data.Class, data.params(f)

	if lookupType == LookupExact && len(f.Choices) > 0 {
		return ChoiceFilter, Params{ParamChoices: f.Choices}
	}

	if lookupType == LookupIsNull {
		data, _ := model.TryDBField(model.BooleanField, table)
		return data.Class, data.params(f)
	}

	base, composable := class.(*BaseClass)
	switch {
	case lookupType == LookupIn && composable:
		return InFilterFor(base), params
	case lookupType == LookupRange && composable:
		return RangeFilterFor(base), params
	}

	return class, params
}
