package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jerry-enebeli/filtertools/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeDataSource_Disabled(t *testing.T) {
	db, err := initializeDataSource(context.Background(), &config.Configuration{})
	require.NoError(t, err)
	assert.Nil(t, db)
}

func TestInitializeRouter(t *testing.T) {
	mr := miniredis.RunT(t)
	app := newInstance(t, &config.Configuration{
		ProjectName: "filtertools",
		Redis:       config.RedisConfig{Dns: mr.Addr(), CacheTTLSec: 30},
	})
	config.MockConfig(app.cnf)

	router, err := initializeRouter(context.Background(), app, nil)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/filtersets/AuthorFilter", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"table":"authors"`)
}

func TestInitializeRouter_UnreachableCache(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	app := newInstance(t, &config.Configuration{Redis: config.RedisConfig{Dns: addr}})
	_, err := initializeRouter(context.Background(), app, nil)
	assert.Error(t, err)
}
