// Package autotools extends filter sets with two independent components.
//
// DefaultLookups fills in per kind lookups for fields declared without any.
//
// PseudoLookups lets a filter set accept lookup names the filter library
// does not know. Each pseudo lookup behaves like a real lookup during
// resolution, keeps its own name on the way out, and can adjust the
// constructed filter: a different class, extra constructor parameters, or a
// replacement lookup written into the filter at construction time.
//
// Both wrap a filterset.Generator and can be stacked in either order:
//
//	g := autotools.WithPseudoLookups(
//		autotools.WithDefaultLookups(filterset.NewBase("BookFilter", meta), table),
//		autotools.PseudoLookupTable{
//			"nonzero": {BehavesLike: "gt", Extra: func(*model.Field) filter.Params {
//				return filter.Params{"label": "Nonzero"}
//			}},
//		},
//	)
//	fs, err := filterset.Build(g)
package autotools
