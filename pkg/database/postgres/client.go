package pg

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/rds/rdsutils"
	"github.com/pkg/errors"

	_ "github.com/newrelic/go-agent/v3/integrations/nrpgx"
)

// DriverName is the instrumented pgx driver every pool is opened with.
const DriverName = "nrpgx"

// Config describes a connection pool to the account table database.
type Config struct {
	User     string
	Password string
	Host     string
	Port     int
	DbName   string

	// UseIamAuth swaps the password for a short lived RDS IAM token.
	UseIamAuth bool

	MaxOpenConnections int
	MaxIdleConnections int
}

func (c *Config) Validate() error {
	if len(c.User) == 0 {
		return errors.New("user is required")
	}
	if len(c.Host) == 0 {
		return errors.New("host is required")
	}
	if c.Port <= 0 {
		return errors.Errorf("invalid port: %d", c.Port)
	}
	if len(c.DbName) == 0 {
		return errors.New("database name is required")
	}
	if !c.UseIamAuth && len(c.Password) == 0 {
		return errors.New("password is required without iam auth")
	}
	return nil
}

// Open connects using the credentials the config selects. awsConfig is only
// consulted for IAM auth.
func Open(c *Config, awsConfig aws.Config) (*sql.DB, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid postgres config")
	}

	port := strconv.Itoa(c.Port)

	var db *sql.DB
	var err error
	if c.UseIamAuth {
		db, err = NewWithAwsIam(c.User, c.Host, port, c.DbName, awsConfig)
	} else {
		db, err = NewWithUsernameAndPassword(c.User, c.Password, c.Host, port, c.DbName)
	}
	if err != nil {
		return nil, err
	}

	if c.MaxOpenConnections > 0 {
		db.SetMaxOpenConns(c.MaxOpenConnections)
	}
	if c.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(c.MaxIdleConnections)
	}
	return db, nil
}

// NewWithAwsIam opens a pool authenticated with an RDS IAM token. Only
// provisioned Aurora clusters support this.
//
// https://docs.aws.amazon.com/AmazonRDS/latest/AuroraUserGuide/UsingWithRDS.IAMDBAuth.Connecting.Go.html
func NewWithAwsIam(username, hostname, port, dbname string, config aws.Config) (*sql.DB, error) {
	rdsClient := rds.New(config)

	endpoint := fmt.Sprintf("%s:%s", hostname, port)
	authToken, err := rdsutils.BuildAuthToken(endpoint, rdsClient.Region, username, rdsClient.Credentials)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build rds auth token")
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s",
		hostname, port, username, authToken, dbname,
	)
	return connect(dsn)
}

// NewWithUsernameAndPassword opens a pool with password authentication.
func NewWithUsernameAndPassword(username, password, hostname, port, dbname string) (*sql.DB, error) {
	// TODO: enable sslmode=verify-full once the RDS CA bundle ships with the deploy image.
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		username, password, hostname, port, dbname,
	)
	return connect(dsn)
}

func connect(dsn string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open connection pool")
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to reach database")
	}
	return db, nil
}
