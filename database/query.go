package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/jerry-enebeli/filtertools/filter"
	"github.com/jerry-enebeli/filtertools/filterset"
	"github.com/jerry-enebeli/filtertools/internal/apierror"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100

	tableAlias = "t0"
)

type QueryRequest struct {
	Values  url.Values
	Parse   *filter.ParseOptions
	Options *filter.QueryOptions
	Limit   int
	Offset  int
}

type QueryResult struct {
	Rows        []map[string]interface{} `json:"rows"`
	Total       *int64                   `json:"total,omitempty"`
	Limit       int                      `json:"limit"`
	Offset      int                      `json:"offset"`
	ParseErrors []filter.ParseError      `json:"parse_errors,omitempty"`
}

// Statement is a compiled query over the table of a filter set.
type Statement struct {
	Select string
	Count  string
	Args   []interface{}
}

// Compile builds the SELECT (and COUNT) statements for req. The page bounds
// are the last two arguments of Select.
func Compile(fs *filterset.FilterSet, req QueryRequest) (*Statement, []filter.ParseError, error) {
	result, parseErrs, err := fs.Apply(req.Values, req.Parse, tableAlias, 1, req.Options)
	if err != nil {
		return nil, parseErrs, apierror.NewAPIError(apierror.ErrInvalidInput, "Failed to compile filters", err.Error())
	}

	m := fs.Model()
	cols := make([]string, 0)
	for _, c := range m.Columns() {
		cols = append(cols, tableAlias+"."+c)
	}

	from := fmt.Sprintf("FROM %s %s", m.Table, tableAlias)
	if len(result.Conditions) > 0 {
		from += " WHERE " + strings.Join(result.Conditions, " AND ")
	}

	limit, offset := pageBounds(req.Limit, req.Offset)
	stmt := &Statement{
		Select: fmt.Sprintf("SELECT %s %s ORDER BY %s LIMIT $%d OFFSET $%d",
			strings.Join(cols, ", "), from, result.OrderBy, result.NextArgPos, result.NextArgPos+1),
		Args: append(result.Args, limit, offset),
	}
	if req.Options != nil && req.Options.IncludeCount {
		stmt.Count = "SELECT COUNT(*) " + from
	}
	return stmt, parseErrs, nil
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Query runs the filter set against its table and returns the page of rows
// as column name to value maps.
func (d Datasource) Query(ctx context.Context, fs *filterset.FilterSet, req QueryRequest) (*QueryResult, error) {
	ctx, span := otel.Tracer("filtertools.database").Start(ctx, "Querying filter set")
	defer span.End()
	span.SetAttributes(attribute.String("filterset", fs.Name()), attribute.String("table", fs.Model().Table))

	stmt, parseErrs, err := Compile(fs, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "compile")
		return nil, err
	}

	limit, offset := pageBounds(req.Limit, req.Offset)
	out := &QueryResult{Limit: limit, Offset: offset, ParseErrors: parseErrs}

	rows, err := d.Conn.QueryContext(ctx, stmt.Select, stmt.Args...)
	if err != nil {
		span.RecordError(err)
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to query rows", err)
	}
	defer rows.Close()

	out.Rows, err = scanRows(rows)
	if err != nil {
		span.RecordError(err)
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan rows", err)
	}

	if stmt.Count != "" {
		var total int64
		// the count shares the filter arguments, not the page bounds
		err = d.Conn.QueryRowContext(ctx, stmt.Count, stmt.Args[:len(stmt.Args)-2]...).Scan(&total)
		if err != nil {
			span.RecordError(err)
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to count rows", err)
		}
		out.Total = &total
	}

	span.SetAttributes(attribute.Int("rows", len(out.Rows)))
	return out, nil
}

func scanRows(rows *sql.Rows) ([]map[string]interface{}, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := make([]map[string]interface{}, 0)
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
