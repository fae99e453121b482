package main

import (
	"fmt"
	"io"
	"net/url"

	"github.com/jerry-enebeli/filtertools/database"
	"github.com/jerry-enebeli/filtertools/filter"
	"github.com/spf13/cobra"
)

func sqlCommands(app *filtertoolsInstance) *cobra.Command {
	var req database.QueryRequest
	opts := &filter.QueryOptions{}
	var sortOrder string

	cmd := &cobra.Command{
		Use:   "sql <filterset> [query]",
		Short: "print the SQL a filter query compiles to",
		Long:  `Compiles a query string such as "title__icontains=dune&pages__gt=100" against a filter set and prints the statement with its arguments.`,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := app.catalog.FilterSet(args[0])
			if err != nil {
				return err
			}

			req.Values = url.Values{}
			if len(args) == 2 {
				if req.Values, err = url.ParseQuery(args[1]); err != nil {
					return fmt.Errorf("invalid query %q: %w", args[1], err)
				}
			}
			opts.SortOrder = filter.SortOrder(sortOrder)
			req.Options = opts
			req.Parse = app.cnf.Parse.ParseOptions()

			stmt, parseErrs, err := database.Compile(fs, req)
			if err != nil {
				return err
			}
			return writeStatement(cmd.OutOrStdout(), stmt, parseErrs)
		},
	}

	cmd.Flags().IntVar(&req.Limit, "limit", 0, "page size")
	cmd.Flags().IntVar(&req.Offset, "offset", 0, "rows to skip")
	cmd.Flags().StringVar(&opts.SortBy, "sort-by", "", "field to order by")
	cmd.Flags().StringVar(&sortOrder, "sort-order", "desc", "asc or desc")
	cmd.Flags().BoolVar(&opts.IncludeCount, "count", false, "also print the count statement")

	return cmd
}

func writeStatement(w io.Writer, stmt *database.Statement, parseErrs []filter.ParseError) error {
	if _, err := fmt.Fprintln(w, stmt.Select); err != nil {
		return err
	}
	if stmt.Count != "" {
		if _, err := fmt.Fprintln(w, stmt.Count); err != nil {
			return err
		}
	}
	for i, arg := range stmt.Args {
		if _, err := fmt.Fprintf(w, "-- $%d = %v\n", i+1, arg); err != nil {
			return err
		}
	}
	for _, pe := range parseErrs {
		if _, err := fmt.Fprintf(w, "-- ignored %s: %s\n", pe.Param, pe.Message); err != nil {
			return err
		}
	}
	return nil
}
