package main

import (
	"time"

	"github.com/spf13/viper"
)

// Config is the command configuration, read from the -config file and
// overridden by environment variables.
type Config struct {
	LogLevel string `mapstructure:"log_level"`

	AppName            string `mapstructure:"app_name"`
	NewRelicLicenseKey string `mapstructure:"new_relic_license_key"`

	// Postgres backs the account table when a host is set. Otherwise accounts
	// live in memory for the life of the process.
	Postgres PostgresConfig `mapstructure:"postgres"`

	Bank BankConfig `mapstructure:"bank"`

	Flow FlowConfig `mapstructure:"flow"`
}

type PostgresConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	DbName             string `mapstructure:"db_name"`
	UseIamAuth         bool   `mapstructure:"use_iam_auth"`
	MaxOpenConnections int    `mapstructure:"max_open_connections"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections"`
}

type BankConfig struct {
	LamportsPerByteYear uint64        `mapstructure:"lamports_per_byte_year"`
	ExemptionThreshold  float64       `mapstructure:"exemption_threshold"`
	MaxCallDepth        int64         `mapstructure:"max_call_depth"`
	LockTimeout         time.Duration `mapstructure:"lock_timeout"`
}

// FlowConfig sizes the scripted admin/swap/withdraw run.
type FlowConfig struct {
	Airdrop        uint64 `mapstructure:"airdrop"`
	TokenSupply    uint64 `mapstructure:"token_supply"`
	StoreSurplus   uint64 `mapstructure:"store_surplus"`
	SwapLamports   uint64 `mapstructure:"swap_lamports"`
	WithdrawAmount uint64 `mapstructure:"withdraw_amount"`
}

var defaultConfig = Config{
	LogLevel: "info",
	AppName:  "movswap-local",

	Postgres: PostgresConfig{
		Port:   5432,
		DbName: "movswap",
	},

	Flow: FlowConfig{
		Airdrop:        10_000_000_000,
		TokenSupply:    1_000_000,
		StoreSurplus:   5,
		SwapLamports:   5,
		WithdrawAmount: 10,
	},
}

func init() {
	_ = viper.BindEnv("log_level", "LOG_LEVEL")

	_ = viper.BindEnv("app_name", "APP_NAME")
	_ = viper.BindEnv("new_relic_license_key", "NEW_RELIC_LICENSE_KEY")

	_ = viper.BindEnv("postgres.host", "POSTGRES_HOST")
	_ = viper.BindEnv("postgres.port", "POSTGRES_PORT")
	_ = viper.BindEnv("postgres.user", "POSTGRES_USER")
	_ = viper.BindEnv("postgres.password", "POSTGRES_PASSWORD")
	_ = viper.BindEnv("postgres.db_name", "POSTGRES_DB_NAME")
	_ = viper.BindEnv("postgres.use_iam_auth", "POSTGRES_USE_IAM_AUTH")

	_ = viper.BindEnv("bank.lamports_per_byte_year", "BANK_LAMPORTS_PER_BYTE_YEAR")
	_ = viper.BindEnv("bank.exemption_threshold", "BANK_EXEMPTION_THRESHOLD")
	_ = viper.BindEnv("bank.max_call_depth", "BANK_MAX_CALL_DEPTH")
	_ = viper.BindEnv("bank.lock_timeout", "BANK_LOCK_TIMEOUT")
}
