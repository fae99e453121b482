package database

import (
	"context"

	"github.com/jerry-enebeli/filtertools/filterset"
)

// IDataSource is what the API needs from the database.
type IDataSource interface {
	Query(ctx context.Context, fs *filterset.FilterSet, req QueryRequest) (*QueryResult, error)
	Ping(ctx context.Context) error
}
