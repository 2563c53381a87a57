// Command movswap-local boots a local bank, deploys the swap program and runs
// an initialize, swap and withdraw flow against it.
package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/external"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	pg "github.com/code-payments/mov-swap/pkg/database/postgres"
	"github.com/code-payments/mov-swap/pkg/metrics"
	"github.com/code-payments/mov-swap/pkg/solana/runtime/accounts"
	accounts_memory "github.com/code-payments/mov-swap/pkg/solana/runtime/accounts/memory"
	accounts_postgres "github.com/code-payments/mov-swap/pkg/solana/runtime/accounts/postgres"
	"github.com/code-payments/mov-swap/pkg/solana/runtime/bank"
)

var configPath = flag.String("config", "config.yaml", "configuration file path")

func main() {
	flag.Parse()

	log := logrus.StandardLogger().WithField("type", "cmd/movswap-local")

	config, err := loadConfig()
	if err != nil {
		log.WithError(err).Error("failed to load config")
		os.Exit(1)
	}

	var metricsProvider *newrelic.Application
	if len(config.NewRelicLicenseKey) > 0 {
		metricsProvider, err = newrelic.NewApplication(
			newrelic.ConfigFromEnvironment(),
			newrelic.ConfigAppName(config.AppName),
			newrelic.ConfigLicense(config.NewRelicLicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.WithError(err).Error("error connecting to new relic")
			os.Exit(1)
		}
		defer metricsProvider.Shutdown(0)
	}

	configureLogger(config, metricsProvider)

	ctx := metrics.NewContext(context.Background(), metricsProvider)
	ctx, end := metrics.StartTransaction(ctx, "movswap-local")
	defer end()

	store, closeStore, err := openAccountStore(config.Postgres)
	if err != nil {
		log.WithError(err).Error("failed to open account store")
		os.Exit(1)
	}
	defer closeStore()

	b := bank.New(store, bankConfigProvider(config.Bank))

	f, err := newFlow(b, config.Flow)
	if err != nil {
		log.WithError(err).Error("failed to prepare flow")
		os.Exit(1)
	}

	if _, err := f.run(ctx); err != nil {
		log.WithError(err).Error("flow failed")
		closeStore()
		os.Exit(1)
	}
}

func loadConfig() (Config, error) {
	// An explicitly set config file that doesn't exist is not reported as
	// ConfigFileNotFoundError, so only set it when present.
	if _, err := os.Stat(*configPath); err == nil {
		viper.SetConfigFile(*configPath)
	} else if !os.IsNotExist(err) {
		return Config{}, errors.Wrap(err, "failed to check if config exists")
	}

	err := viper.ReadInConfig()
	if _, isConfigNotFound := err.(viper.ConfigFileNotFoundError); err != nil && !isConfigNotFound {
		return Config{}, errors.Wrap(err, "failed to read config")
	}

	config := defaultConfig
	if err := viper.Unmarshal(&config); err != nil {
		return Config{}, errors.Wrap(err, "failed to unmarshal config")
	}
	return config, nil
}

func configureLogger(config Config, metricsProvider *newrelic.Application) {
	if metricsProvider != nil {
		logrus.SetFormatter(metrics.NewNewRelicLogFormatter(metricsProvider, &logrus.JSONFormatter{}))
	} else {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(strings.ToLower(config.LogLevel))
	if err != nil {
		logrus.StandardLogger().WithField("log_level", config.LogLevel).Warn("unknown log level, ignoring")
	} else {
		logrus.SetLevel(level)
	}

	logrus.SetOutput(os.Stdout)
}

// bankConfigProvider prefers values from the config file and falls back to
// the bank's own environment variables when the file sets none.
func bankConfigProvider(config BankConfig) bank.ConfigProvider {
	if config == (BankConfig{}) {
		return bank.WithEnvConfigs()
	}

	return bank.WithOverrides(&bank.Overrides{
		LamportsPerByteYear: config.LamportsPerByteYear,
		ExemptionThreshold:  config.ExemptionThreshold,
		MaxCallDepth:        config.MaxCallDepth,
		LockTimeout:         config.LockTimeout,
	})
}

// openAccountStore returns the postgres account table when a host is
// configured and an in-memory one otherwise.
func openAccountStore(config PostgresConfig) (accounts.Store, func(), error) {
	if len(config.Host) == 0 {
		return accounts_memory.New(), func() {}, nil
	}

	var awsConfig aws.Config
	if config.UseIamAuth {
		var err error
		awsConfig, err = external.LoadDefaultAWSConfig()
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to load aws config")
		}
	}

	db, err := pg.Open(&pg.Config{
		User:               config.User,
		Password:           config.Password,
		Host:               config.Host,
		Port:               config.Port,
		DbName:             config.DbName,
		UseIamAuth:         config.UseIamAuth,
		MaxOpenConnections: config.MaxOpenConnections,
		MaxIdleConnections: config.MaxIdleConnections,
	}, awsConfig)
	if err != nil {
		return nil, nil, err
	}

	return accounts_postgres.New(db), closeDB(db), nil
}

func closeDB(db *sql.DB) func() {
	return func() {
		if err := db.Close(); err != nil {
			logrus.StandardLogger().WithError(err).Warn("failed to close database")
		}
	}
}
