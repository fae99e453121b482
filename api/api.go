package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jerry-enebeli/filtertools"
	"github.com/jerry-enebeli/filtertools/api/middleware"
	"github.com/jerry-enebeli/filtertools/config"
	"github.com/jerry-enebeli/filtertools/database"
	"github.com/jerry-enebeli/filtertools/internal/cache"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type Api struct {
	catalog  *filtertools.Catalog
	db       database.IDataSource
	parse    config.ParseConfig
	cache    cache.Cache
	cacheTTL time.Duration
	router   *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.GET("/filtersets", a.ListFilterSets)
	router.GET("/filtersets/:name", a.DescribeFilterSet)
	router.GET("/filtersets/:name/sql", a.CompileFilterSet)
	router.GET("/filtersets/:name/rows", a.QueryFilterSet)
	router.POST("/filtersets/:name/query", a.QueryFilterSetWithBody)
	return a.router
}

// NewAPI serves the filter sets of catalog. db may be nil, in which case
// only the endpoints that do not touch the database are usable.
func NewAPI(catalog *filtertools.Catalog, db database.IDataSource, cnf *config.Configuration) *Api {
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()
	r.Use(otelgin.Middleware(cnf.ProjectName))
	r.Use(middleware.RateLimitMiddleware(cnf))
	if cnf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, "server running...")
	})

	return &Api{catalog: catalog, db: db, parse: cnf.Parse, router: r}
}

// UseCache keeps row query results in c for ttl. Identical requests within
// ttl are answered without touching the database.
func (a *Api) UseCache(c cache.Cache, ttl time.Duration) *Api {
	a.cache = c
	a.cacheTTL = ttl
	return a
}
