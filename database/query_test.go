package database

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jerry-enebeli/filtertools"
	"github.com/jerry-enebeli/filtertools/filter"
	"github.com/jerry-enebeli/filtertools/filterset"
	"github.com/jerry-enebeli/filtertools/internal/apierror"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bookColumns = "t0.id, t0.title, t0.pages, t0.price, t0.published, t0.status, t0.author_id"

func bookFilter(t *testing.T) *filterset.FilterSet {
	t.Helper()
	c, err := filtertools.LoadFile("../testdata/library.yaml")
	require.NoError(t, err)
	fs, err := c.FilterSet("BookFilter")
	require.NoError(t, err)
	return fs
}

func newMock(t *testing.T) (Datasource, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return Datasource{Conn: db}, mock
}

func TestQuery_Success(t *testing.T) {
	ds, mock := newMock(t)
	published := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT "+bookColumns+" FROM books t0 WHERE t0.title ILIKE $1 AND t0.pages > $2 ORDER BY t0.pages ASC LIMIT $3 OFFSET $4").
		WithArgs("%dune%", decimal.RequireFromString("100"), 10, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "pages", "price", "published", "status", "author_id"}).
			AddRow(int64(1), "Dune", int64(412), []byte("9.99"), published, "p", int64(3)))

	result, err := ds.Query(context.Background(), bookFilter(t), QueryRequest{
		Values:  url.Values{"title__icontains": {"dune"}, "pages__gt": {"100"}},
		Options: &filter.QueryOptions{SortBy: "pages", SortOrder: filter.SortAsc},
		Limit:   10,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, result.Rows, 1)
	assert.Equal(t, "Dune", result.Rows[0]["title"])
	assert.Equal(t, "9.99", result.Rows[0]["price"])
	assert.Equal(t, int64(3), result.Rows[0]["author_id"])
	assert.Nil(t, result.Total)
	assert.Equal(t, 10, result.Limit)
	assert.Empty(t, result.ParseErrors)
}

func TestQuery_WithCount(t *testing.T) {
	ds, mock := newMock(t)

	mock.ExpectQuery("SELECT "+bookColumns+" FROM books t0 WHERE NOT (t0.status = ANY($1)) ORDER BY t0.id DESC LIMIT $2 OFFSET $3").
		WithArgs(sqlmock.AnyArg(), DefaultLimit, 40).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("SELECT COUNT(*) FROM books t0 WHERE NOT (t0.status = ANY($1))").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(42)))

	result, err := ds.Query(context.Background(), bookFilter(t), QueryRequest{
		Values:  url.Values{"status__notin": {"d"}},
		Options: &filter.QueryOptions{IncludeCount: true},
		Offset:  40,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Empty(t, result.Rows)
	require.NotNil(t, result.Total)
	assert.Equal(t, int64(42), *result.Total)
}

func TestQuery_InvalidValue(t *testing.T) {
	ds, mock := newMock(t)

	_, err := ds.Query(context.Background(), bookFilter(t), QueryRequest{
		Values: url.Values{"pages__gt": {"many"}},
	})
	var apiErr apierror.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, apierror.ErrInvalidInput, apiErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_DatabaseError(t *testing.T) {
	ds, mock := newMock(t)

	mock.ExpectQuery("SELECT " + bookColumns + " FROM books t0 ORDER BY t0.id DESC LIMIT $1 OFFSET $2").
		WithArgs(DefaultLimit, 0).
		WillReturnError(errors.New("connection reset"))

	_, err := ds.Query(context.Background(), bookFilter(t), QueryRequest{})
	var apiErr apierror.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, apierror.ErrInternalServer, apiErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompile(t *testing.T) {
	fs := bookFilter(t)

	stmt, parseErrs, err := Compile(fs, QueryRequest{
		Values: url.Values{"tags__label": {"scifi"}, "author__name__istartswith": {strings50()}},
		Parse:  &filter.ParseOptions{MaxCharLen: 10},
		Limit:  1000,
	})
	require.NoError(t, err)
	require.Len(t, parseErrs, 1)
	assert.Equal(t, "author__name__istartswith", parseErrs[0].Param)

	assert.Equal(t, "SELECT "+bookColumns+" FROM books t0 WHERE "+
		"t0.id IN (SELECT j1.book_id FROM books_tags j1 WHERE j1.tag_id IN (SELECT t1.id FROM tags t1 WHERE t1.label = $1)) "+
		"ORDER BY t0.id DESC LIMIT $2 OFFSET $3", stmt.Select)
	assert.Equal(t, []interface{}{"scifi", MaxLimit, 0}, stmt.Args)
	assert.Empty(t, stmt.Count)
}

func TestPageBounds(t *testing.T) {
	limit, offset := pageBounds(0, -5)
	assert.Equal(t, DefaultLimit, limit)
	assert.Equal(t, 0, offset)

	limit, offset = pageBounds(MaxLimit+1, 7)
	assert.Equal(t, MaxLimit, limit)
	assert.Equal(t, 7, offset)
}

func TestPing(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	assert.NoError(t, Datasource{Conn: db}.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func strings50() string {
	b := make([]byte, 50)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}
