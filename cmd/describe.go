package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jerry-enebeli/filtertools"
	"github.com/spf13/cobra"
)

func describeCommands(app *filtertoolsInstance) *cobra.Command {
	return &cobra.Command{
		Use:   "describe [filterset...]",
		Short: "list the filters generated for a filter set",
		Long:  "Lists the generated filters of the named filter sets, or of every filter set in the catalog when none is named.",
		RunE: func(cmd *cobra.Command, args []string) error {
			names := args
			if len(names) == 0 {
				names = app.catalog.Names()
			}
			for _, name := range names {
				d, err := app.catalog.Describe(name)
				if err != nil {
					return err
				}
				if err := writeDescription(cmd.OutOrStdout(), d); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// writeDescription prints one line per filter in generation order.
func writeDescription(w io.Writer, d *filtertools.Description) error {
	if _, err := fmt.Fprintf(w, "%s (model %s, table %s)\n", d.Name, d.Model, d.Table); err != nil {
		return err
	}
	for _, f := range d.Filters {
		parts := []string{
			"  " + f.Name + ":",
			f.Class,
			"field=" + f.FieldName,
			"lookup=" + f.LookupExpr,
		}
		if f.Label != "" {
			parts = append(parts, fmt.Sprintf("label=%q", f.Label))
		}
		if f.ToModel != "" {
			parts = append(parts, "to="+f.ToModel)
		}
		if f.Exclude {
			parts = append(parts, "exclude")
		}
		if len(f.Choices) > 0 {
			values := make([]string, 0, len(f.Choices))
			for _, c := range f.Choices {
				values = append(values, c.Value)
			}
			parts = append(parts, "choices="+strings.Join(values, ","))
		}
		if _, err := fmt.Fprintln(w, strings.Join(parts, " ")); err != nil {
			return err
		}
	}
	return nil
}
