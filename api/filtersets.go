package api

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jerry-enebeli/filtertools"
	"github.com/jerry-enebeli/filtertools/database"
	"github.com/jerry-enebeli/filtertools/filterset"
	"github.com/jerry-enebeli/filtertools/internal/apierror"
	"github.com/jerry-enebeli/filtertools/internal/cache"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func (a Api) ListFilterSets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"filtersets": a.catalog.Names(), "models": a.catalog.Models()})
}

func (a Api) DescribeFilterSet(c *gin.Context) {
	resp, err := a.catalog.Describe(c.Param("name"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CompileFilterSet returns the statements a query would run, without
// running them.
func (a Api) CompileFilterSet(c *gin.Context) {
	fs, ok := a.filterSet(c)
	if !ok {
		return
	}

	req := a.queryRequestFromContext(c)
	stmt, parseErrs, err := database.Compile(fs, req)
	if err != nil {
		a.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sql":          stmt.Select,
		"count":        stmt.Count,
		"args":         stmt.Args,
		"parse_errors": parseErrs,
	})
}

func (a Api) QueryFilterSet(c *gin.Context) {
	fs, ok := a.filterSet(c)
	if !ok {
		return
	}
	a.runQuery(c, fs, a.queryRequestFromContext(c))
}

func (a Api) QueryFilterSetWithBody(c *gin.Context) {
	fs, ok := a.filterSet(c)
	if !ok {
		return
	}

	req, err := a.queryRequestFromBody(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}
	a.runQuery(c, fs, req)
}

func (a Api) runQuery(c *gin.Context, fs *filterset.FilterSet, req database.QueryRequest) {
	if a.db == nil {
		a.respondError(c, apierror.NewAPIError(apierror.ErrUnavailable, "No data source configured", fs.Name()))
		return
	}

	ctx := c.Request.Context()
	key := queryCacheKey(fs.Name(), req)
	if a.cache != nil {
		var cached database.QueryResult
		err := a.cache.Get(ctx, key, &cached)
		if err == nil {
			c.JSON(http.StatusOK, &cached)
			return
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			logrus.Warnf("query cache read %s: %v", fs.Name(), err)
		}
	}

	resp, err := a.db.Query(ctx, fs, req)
	if err != nil {
		a.respondError(c, err)
		return
	}

	if a.cache != nil {
		if err := a.cache.Set(ctx, key, resp, a.cacheTTL); err != nil {
			logrus.Warnf("query cache write %s: %v", fs.Name(), err)
		}
	}
	c.JSON(http.StatusOK, resp)
}

// queryCacheKey identifies a request by everything that shapes its result.
func queryCacheKey(filterSet string, req database.QueryRequest) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\n%d\n%d\n", req.Values.Encode(), req.Limit, req.Offset)
	if req.Options != nil {
		fmt.Fprintf(h, "%s\n%s\n%t\n", req.Options.SortBy, req.Options.SortOrder, req.Options.IncludeCount)
	}
	return "filtertools:rows:" + filterSet + ":" + hex.EncodeToString(h.Sum(nil))
}

func (a Api) filterSet(c *gin.Context) (*filterset.FilterSet, bool) {
	fs, err := a.catalog.FilterSet(c.Param("name"))
	if err != nil {
		a.respondError(c, err)
		return nil, false
	}

	span := trace.SpanFromContext(c.Request.Context())
	span.SetAttributes(attribute.String("filterset", fs.Name()))
	return fs, true
}

func (a Api) respondError(c *gin.Context, err error) {
	status := apierror.MapErrorToHTTPStatus(err)
	if errors.Is(err, filtertools.ErrFilterSetNotFound) {
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
