package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/gin-gonic/gin"
	"github.com/jerry-enebeli/filtertools"
	"github.com/jerry-enebeli/filtertools/api/middleware"
	"github.com/jerry-enebeli/filtertools/config"
	"github.com/jerry-enebeli/filtertools/database"
	"github.com/jerry-enebeli/filtertools/filter"
	"github.com/jerry-enebeli/filtertools/filterset"
	"github.com/jerry-enebeli/filtertools/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bookColumns = "t0.id, t0.title, t0.pages, t0.price, t0.published, t0.status, t0.author_id"

type TestRequest struct {
	Payload  io.Reader
	Router   *gin.Engine
	Response interface{}
	Method   string
	Route    string
	Header   map[string]string
}

func SetUpTestRequest(s TestRequest) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(s.Method, s.Route, s.Payload)
	for key, value := range s.Header {
		req.Header.Set(key, value)
	}
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	s.Router.ServeHTTP(resp, req)

	err := json.NewDecoder(bytes.NewReader(resp.Body.Bytes())).Decode(s.Response)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// recordingSource answers every query with rows and keeps the last request.
type recordingSource struct {
	rows []map[string]interface{}
	last *database.QueryRequest
}

func (r *recordingSource) Query(_ context.Context, _ *filterset.FilterSet, req database.QueryRequest) (*database.QueryResult, error) {
	r.last = &req
	return &database.QueryResult{Rows: r.rows, Limit: req.Limit, Offset: req.Offset}, nil
}

func (r *recordingSource) Ping(context.Context) error { return nil }

func setupRouter(t *testing.T, db database.IDataSource, cnf *config.Configuration) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	catalog, err := filtertools.LoadFile("../testdata/library.yaml")
	require.NoError(t, err)
	if cnf == nil {
		cnf = &config.Configuration{ProjectName: "filtertools"}
	}
	config.MockConfig(cnf)
	return NewAPI(catalog, db, cnf).Router()
}

func TestListFilterSets(t *testing.T) {
	router := setupRouter(t, nil, nil)

	var response struct {
		FilterSets []string `json:"filtersets"`
		Models     []string `json:"models"`
	}
	resp, err := SetUpTestRequest(TestRequest{Router: router, Method: http.MethodGet, Route: "/filtersets", Response: &response})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, []string{"BookFilter", "AuthorFilter"}, response.FilterSets)
	assert.Equal(t, []string{"Author", "Book", "Tag"}, response.Models)
}

func TestDescribeFilterSet(t *testing.T) {
	router := setupRouter(t, nil, nil)

	tests := []struct {
		name         string
		route        string
		expectedCode int
		firstFilter  string
	}{
		{name: "Known filter set", route: "/filtersets/AuthorFilter", expectedCode: http.StatusOK, firstFilter: "name"},
		{name: "Unknown filter set", route: "/filtersets/" + gofakeit.Word(), expectedCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var response map[string]interface{}
			resp, err := SetUpTestRequest(TestRequest{Router: router, Method: http.MethodGet, Route: tt.route, Response: &response})
			require.NoError(t, err)
			assert.Equal(t, tt.expectedCode, resp.Code)

			if tt.expectedCode != http.StatusOK {
				assert.Contains(t, response["error"], "filter set not found")
				return
			}
			assert.Equal(t, "Author", response["model"])
			assert.Equal(t, "authors", response["table"])
			filters := response["filters"].([]interface{})
			require.Len(t, filters, 4)
			first := filters[0].(map[string]interface{})
			assert.Equal(t, tt.firstFilter, first["name"])
			assert.Equal(t, "name", first["field_name"])
			assert.Equal(t, "exact", first["lookup_expr"])
		})
	}
}

func TestCompileFilterSet(t *testing.T) {
	router := setupRouter(t, nil, nil)

	t.Run("Valid filters", func(t *testing.T) {
		var response struct {
			SQL         string              `json:"sql"`
			Count       string              `json:"count"`
			Args        []interface{}       `json:"args"`
			ParseErrors []filter.ParseError `json:"parse_errors"`
		}
		resp, err := SetUpTestRequest(TestRequest{
			Router:   router,
			Method:   http.MethodGet,
			Route:    "/filtersets/BookFilter/sql?title__icontains=dune&pages__gt=100&sort_by=pages&sort_order=asc&limit=10&include_count=true",
			Response: &response,
		})
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "SELECT "+bookColumns+" FROM books t0 WHERE t0.title ILIKE $1 AND t0.pages > $2 ORDER BY t0.pages ASC LIMIT $3 OFFSET $4", response.SQL)
		assert.Equal(t, "SELECT COUNT(*) FROM books t0 WHERE t0.title ILIKE $1 AND t0.pages > $2", response.Count)
		assert.Equal(t, []interface{}{"%dune%", "100", float64(10), float64(0)}, response.Args)
		assert.Empty(t, response.ParseErrors)
	})

	t.Run("Invalid value", func(t *testing.T) {
		var response map[string]interface{}
		resp, err := SetUpTestRequest(TestRequest{
			Router:   router,
			Method:   http.MethodGet,
			Route:    "/filtersets/BookFilter/sql?pages__gt=many",
			Response: &response,
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Contains(t, response["error"], "INVALID_INPUT")
	})
}

func TestQueryFilterSet(t *testing.T) {
	t.Run("Without data source", func(t *testing.T) {
		router := setupRouter(t, nil, nil)
		var response map[string]interface{}
		resp, err := SetUpTestRequest(TestRequest{Router: router, Method: http.MethodGet, Route: "/filtersets/BookFilter/rows", Response: &response})
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	})

	t.Run("Page size is capped", func(t *testing.T) {
		source := &recordingSource{}
		router := setupRouter(t, source, &config.Configuration{
			ProjectName: "filtertools",
			Parse:       config.ParseConfig{MaxPageSize: 5},
		})

		title := gofakeit.Word()
		var response database.QueryResult
		resp, err := SetUpTestRequest(TestRequest{
			Router:   router,
			Method:   http.MethodGet,
			Route:    "/filtersets/BookFilter/rows?title=" + title + "&limit=50&offset=3",
			Response: &response,
		})
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.Code)
		require.NotNil(t, source.last)
		assert.Equal(t, 5, source.last.Limit)
		assert.Equal(t, 3, source.last.Offset)
		assert.Equal(t, title, source.last.Values.Get("title"))
		assert.Equal(t, filter.SortDesc, source.last.Options.SortOrder)
	})

	t.Run("Against the database", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT "+bookColumns+" FROM books t0 WHERE t0.title ILIKE $1 ORDER BY t0.id DESC LIMIT $2 OFFSET $3").
			WithArgs("%dune%", database.DefaultLimit, 0).
			WillReturnRows(sqlmock.NewRows([]string{"id", "title"}).AddRow(int64(1), "Dune"))

		router := setupRouter(t, database.Datasource{Conn: db}, nil)
		var response database.QueryResult
		resp, err := SetUpTestRequest(TestRequest{
			Router:   router,
			Method:   http.MethodGet,
			Route:    "/filtersets/BookFilter/rows?title__icontains=dune",
			Response: &response,
		})
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.Code)
		require.Len(t, response.Rows, 1)
		assert.Equal(t, "Dune", response.Rows[0]["title"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestQueryFilterSetWithBody(t *testing.T) {
	source := &recordingSource{rows: []map[string]interface{}{{"id": float64(1)}}}
	router := setupRouter(t, source, nil)
	author := gofakeit.Name()

	tests := []struct {
		name         string
		payload      interface{}
		expectedCode int
	}{
		{
			name: "Valid request",
			payload: FilterRequest{
				Filters:      map[string]string{"author__name__istartswith": author, "status__notin": "d"},
				Limit:        10,
				Offset:       20,
				SortBy:       "title",
				SortOrder:    "asc",
				IncludeCount: true,
			},
			expectedCode: http.StatusOK,
		},
		{name: "Limit too large", payload: FilterRequest{Limit: database.MaxLimit + 1}, expectedCode: http.StatusBadRequest},
		{name: "Negative offset", payload: FilterRequest{Offset: -1}, expectedCode: http.StatusBadRequest},
		{name: "Unknown sort order", payload: FilterRequest{SortOrder: "sideways"}, expectedCode: http.StatusBadRequest},
		{name: "Malformed body", payload: "not an object", expectedCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source.last = nil
			payload, err := json.Marshal(tt.payload)
			require.NoError(t, err)

			var response map[string]interface{}
			resp, err := SetUpTestRequest(TestRequest{
				Router:   router,
				Method:   http.MethodPost,
				Route:    "/filtersets/BookFilter/query",
				Payload:  bytes.NewReader(payload),
				Response: &response,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.expectedCode, resp.Code)

			if tt.expectedCode != http.StatusOK {
				assert.Nil(t, source.last)
				assert.NotEmpty(t, response["errors"])
				return
			}
			require.NotNil(t, source.last)
			assert.Equal(t, author, source.last.Values.Get("author__name__istartswith"))
			assert.Equal(t, "d", source.last.Values.Get("status__notin"))
			assert.Equal(t, 10, source.last.Limit)
			assert.Equal(t, 20, source.last.Offset)
			assert.Equal(t, filter.SortAsc, source.last.Options.SortOrder)
			assert.True(t, source.last.Options.IncludeCount)
			assert.Len(t, response["rows"], 1)
		})
	}
}

func TestSecureRouter(t *testing.T) {
	router := setupRouter(t, nil, &config.Configuration{
		ProjectName: "filtertools",
		Server:      config.ServerConfig{Secure: true, SecretKey: "master-key"},
	})

	var response map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{Router: router, Method: http.MethodGet, Route: "/filtersets", Response: &response})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp, err = SetUpTestRequest(TestRequest{
		Router:   router,
		Method:   http.MethodGet,
		Route:    "/filtersets",
		Header:   map[string]string{middleware.KeyHeader: "master-key"},
		Response: &response,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestQueryFilterSet_Cached(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	cnf := &config.Configuration{ProjectName: "filtertools", Redis: config.RedisConfig{Dns: mr.Addr()}}
	config.MockConfig(cnf)

	queryCache, err := cache.NewCache(context.Background(), cnf)
	require.NoError(t, err)

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	// a second identical request must not reach the database
	mock.ExpectQuery("SELECT "+bookColumns+" FROM books t0 WHERE t0.pages > $1 ORDER BY t0.id DESC LIMIT $2 OFFSET $3").
		WithArgs(sqlmock.AnyArg(), database.DefaultLimit, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}).AddRow(int64(7), "Hyperion"))

	catalog, err := filtertools.LoadFile("../testdata/library.yaml")
	require.NoError(t, err)
	router := NewAPI(catalog, database.Datasource{Conn: db}, cnf).UseCache(queryCache, time.Minute).Router()

	var bodies []string
	for i := 0; i < 2; i++ {
		var response database.QueryResult
		resp, err := SetUpTestRequest(TestRequest{
			Router:   router,
			Method:   http.MethodGet,
			Route:    "/filtersets/BookFilter/rows?pages__gt=300",
			Response: &response,
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		require.Len(t, response.Rows, 1)
		assert.Equal(t, "Hyperion", response.Rows[0]["title"])
		bodies = append(bodies, resp.Body.String())
	}

	assert.JSONEq(t, bodies[0], bodies[1])
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Len(t, mr.Keys(), 1)
}

func TestQueryCacheKey(t *testing.T) {
	base := database.QueryRequest{
		Values:  map[string][]string{"pages__gt": {"300"}, "title": {"Dune"}},
		Options: &filter.QueryOptions{SortBy: "title"},
		Limit:   10,
	}
	reordered := base
	reordered.Values = map[string][]string{"title": {"Dune"}, "pages__gt": {"300"}}
	assert.Equal(t, queryCacheKey("BookFilter", base), queryCacheKey("BookFilter", reordered))

	nextPage := base
	nextPage.Offset = 10
	assert.NotEqual(t, queryCacheKey("BookFilter", base), queryCacheKey("BookFilter", nextPage))
	assert.NotEqual(t, queryCacheKey("BookFilter", base), queryCacheKey("AuthorFilter", base))
}
