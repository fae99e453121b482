package database

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jerry-enebeli/filtertools/config"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// Declare a package-level variable to hold the singleton instance.
// Ensure the instance is not accessible outside the package.
var instance *Datasource
var once sync.Once

const connectRetries = 5

type Datasource struct {
	Conn *sql.DB
}

func NewDataSource(ctx context.Context, configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(ctx, configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
func GetDBConnection(ctx context.Context, configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(ctx, configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		instance = &Datasource{Conn: con}
	})
	if err != nil {
		return nil, err
	}
	if instance == nil {
		return nil, errors.New("database connection failed earlier in this process")
	}
	return instance, nil
}

// ConnectDB opens a Postgres connection and pings it, retrying with
// exponential backoff while the server comes up.
func ConnectDB(ctx context.Context, dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	retry := backoff.WithContext(backoff.WithMaxRetries(policy, connectRetries), ctx)

	err = backoff.RetryNotify(func() error {
		return db.PingContext(ctx)
	}, retry, func(err error, wait time.Duration) {
		logrus.Warnf("database not ready, retrying in %s: %v", wait, err)
	})
	if err != nil {
		logrus.Errorf("database Connection error ❌: %v", err)
		db.Close()
		return nil, err
	}
	return db, nil
}

func (d Datasource) Ping(ctx context.Context) error {
	return d.Conn.PingContext(ctx)
}
