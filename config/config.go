package config

import (
	"encoding/json"
	"errors"
	"log"
	"math"
	"os"
	"regexp"
	"strings"
	"sync/atomic"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/jerry-enebeli/filtertools/filter"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT             = "5004"
	DEFAULT_CATALOG_FILE     = "filtertools.yaml"
	DEFAULT_LOOKUP_EXPR      = "exact"
	DEFAULT_CACHE_TTL_SEC    = 30
	DEFAULT_CLEANUP_INTERVAL = 600
)

var ConfigStore atomic.Value

var lookupExprPattern = regexp.MustCompile(`^[a-z_]+$`)

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"FILTERTOOLS_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"FILTERTOOLS_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"FILTERTOOLS_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"FILTERTOOLS_SERVER_DOMAIN"`
	Email     string `json:"email" envconfig:"FILTERTOOLS_SERVER_EMAIL"`
	Port      string `json:"port" envconfig:"FILTERTOOLS_SERVER_PORT"`
}

// RedisConfig enables the row query cache when Dns is set.
type RedisConfig struct {
	Dns         string `json:"dns" envconfig:"FILTERTOOLS_REDIS_DNS"`
	CacheTTLSec int    `json:"cache_ttl_sec" envconfig:"FILTERTOOLS_REDIS_CACHE_TTL_SEC"`
}

// RateLimitConfig limits requests per client IP. A zero RequestsPerSecond
// disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond  float64 `json:"requests_per_second" envconfig:"FILTERTOOLS_RATE_LIMIT_RPS"`
	Burst              int     `json:"burst" envconfig:"FILTERTOOLS_RATE_LIMIT_BURST"`
	CleanupIntervalSec int     `json:"cleanup_interval_sec" envconfig:"FILTERTOOLS_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"FILTERTOOLS_DATA_SOURCE_DNS"`
}

// ParseConfig bounds what a single request may ask for.
type ParseConfig struct {
	MaxFilters  int `json:"max_filters" envconfig:"FILTERTOOLS_MAX_FILTERS"`
	MaxInValues int `json:"max_in_values" envconfig:"FILTERTOOLS_MAX_IN_VALUES"`
	MaxCharLen  int `json:"max_char_len" envconfig:"FILTERTOOLS_MAX_CHAR_LEN"`
	MaxPageSize int `json:"max_page_size" envconfig:"FILTERTOOLS_MAX_PAGE_SIZE"`
}

type Configuration struct {
	ProjectName       string           `json:"project_name" envconfig:"FILTERTOOLS_PROJECT_NAME"`
	CatalogFile       string           `json:"catalog_file" envconfig:"FILTERTOOLS_CATALOG_FILE"`
	DefaultLookupExpr string           `json:"default_lookup_expr" envconfig:"FILTERTOOLS_DEFAULT_LOOKUP_EXPR"`
	LogLevel          string           `json:"log_level" envconfig:"FILTERTOOLS_LOG_LEVEL"`
	Server            ServerConfig     `json:"server"`
	DataSource        DataSourceConfig `json:"data_source"`
	Redis             RedisConfig      `json:"redis"`
	RateLimit         RateLimitConfig  `json:"rate_limit"`
	Parse             ParseConfig      `json:"parse"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("filtertools", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return nil
}

func InitConfig(configFile string) error {
	logger()
	if err := loadConfigFromFile(configFile); err != nil {
		return err
	}
	cnf, _ := Fetch()
	return cnf.applyLogLevel()
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called filtertools.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		cnf.ProjectName = "Filtertools"
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)
	cnf.CatalogFile = strings.TrimSpace(cnf.CatalogFile)
	cnf.DefaultLookupExpr = strings.TrimSpace(cnf.DefaultLookupExpr)

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}
	if cnf.CatalogFile == "" {
		cnf.CatalogFile = DEFAULT_CATALOG_FILE
	}
	if cnf.DefaultLookupExpr == "" {
		cnf.DefaultLookupExpr = DEFAULT_LOOKUP_EXPR
	}
	if cnf.LogLevel == "" {
		cnf.LogLevel = logrus.InfoLevel.String()
	}

	if cnf.Redis.Dns != "" && cnf.Redis.CacheTTLSec == 0 {
		cnf.Redis.CacheTTLSec = DEFAULT_CACHE_TTL_SEC
	}
	if cnf.RateLimit.RequestsPerSecond > 0 {
		if cnf.RateLimit.Burst == 0 {
			cnf.RateLimit.Burst = int(math.Ceil(cnf.RateLimit.RequestsPerSecond))
		}
		if cnf.RateLimit.CleanupIntervalSec == 0 {
			cnf.RateLimit.CleanupIntervalSec = DEFAULT_CLEANUP_INTERVAL
		}
	}

	if cnf.Server.Secure && cnf.Server.SecretKey == "" {
		return errors.New("secret key is required when the server is secure")
	}

	// zero leaves the filter package defaults in place
	return validation.ValidateStruct(cnf,
		validation.Field(&cnf.DefaultLookupExpr, validation.Match(lookupExprPattern).Error("must be a lookup expression such as exact or date__gte")),
		validation.Field(&cnf.LogLevel, validation.By(func(value interface{}) error {
			_, err := logrus.ParseLevel(value.(string))
			return err
		})),
		validation.Field(&cnf.Redis),
		validation.Field(&cnf.RateLimit),
		validation.Field(&cnf.Parse),
	)
}

func (r RedisConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CacheTTLSec, validation.Min(0)),
	)
}

func (r RateLimitConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RequestsPerSecond, validation.Min(0.0)),
		validation.Field(&r.Burst, validation.Min(0)),
		validation.Field(&r.CleanupIntervalSec, validation.Min(0)),
	)
}

func (p ParseConfig) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.MaxFilters, validation.Min(0)),
		validation.Field(&p.MaxInValues, validation.Min(0)),
		validation.Field(&p.MaxCharLen, validation.Min(0)),
		validation.Field(&p.MaxPageSize, validation.Min(0)),
	)
}

// ParseOptions converts the limits for the filter parser.
func (p ParseConfig) ParseOptions() *filter.ParseOptions {
	return &filter.ParseOptions{
		MaxFilters:  p.MaxFilters,
		MaxInValues: p.MaxInValues,
		MaxCharLen:  p.MaxCharLen,
	}
}

func (cnf *Configuration) applyLogLevel() error {
	level, err := logrus.ParseLevel(cnf.LogLevel)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
