package bank

import (
	"time"

	"github.com/code-payments/mov-swap/pkg/config"
	"github.com/code-payments/mov-swap/pkg/config/env"
	"github.com/code-payments/mov-swap/pkg/config/memory"
	"github.com/code-payments/mov-swap/pkg/config/wrapper"
	"github.com/code-payments/mov-swap/pkg/solana/system"
)

const (
	envConfigPrefix = "BANK_"

	LamportsPerByteYearConfigEnvName = envConfigPrefix + "LAMPORTS_PER_BYTE_YEAR"
	defaultLamportsPerByteYear       = system.DefaultLamportsPerByteYear

	ExemptionThresholdConfigEnvName = envConfigPrefix + "EXEMPTION_THRESHOLD"
	defaultExemptionThreshold       = system.DefaultExemptionThreshold

	MaxCallDepthConfigEnvName = envConfigPrefix + "MAX_CALL_DEPTH"
	defaultMaxCallDepth       = 4

	LockTimeoutConfigEnvName = envConfigPrefix + "LOCK_TIMEOUT"
	defaultLockTimeout       = 10 * time.Second
)

type conf struct {
	lamportsPerByteYear config.Uint64
	exemptionThreshold  config.Float64
	maxCallDepth        config.Int64
	lockTimeout         config.Duration
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			lamportsPerByteYear: env.NewUint64Config(LamportsPerByteYearConfigEnvName, defaultLamportsPerByteYear),
			exemptionThreshold:  env.NewFloat64Config(ExemptionThresholdConfigEnvName, defaultExemptionThreshold),
			maxCallDepth:        env.NewInt64Config(MaxCallDepthConfigEnvName, defaultMaxCallDepth),
			lockTimeout:         env.NewDurationConfig(LockTimeoutConfigEnvName, defaultLockTimeout),
		}
	}
}

// Overrides are explicit configuration values, used by tests and by commands
// that source configuration from somewhere other than the environment.
type Overrides struct {
	LamportsPerByteYear uint64
	ExemptionThreshold  float64
	MaxCallDepth        int64
	LockTimeout         time.Duration
}

// WithOverrides returns configuration backed by fixed values. Zero values fall
// back to the defaults.
func WithOverrides(overrides *Overrides) ConfigProvider {
	return func() *conf {
		lamportsPerByteYear := overrides.LamportsPerByteYear
		if lamportsPerByteYear == 0 {
			lamportsPerByteYear = defaultLamportsPerByteYear
		}

		exemptionThreshold := overrides.ExemptionThreshold
		if exemptionThreshold == 0 {
			exemptionThreshold = defaultExemptionThreshold
		}

		maxCallDepth := overrides.MaxCallDepth
		if maxCallDepth == 0 {
			maxCallDepth = defaultMaxCallDepth
		}

		lockTimeout := overrides.LockTimeout
		if lockTimeout == 0 {
			lockTimeout = defaultLockTimeout
		}

		return &conf{
			lamportsPerByteYear: wrapper.NewUint64Config(memory.NewConfig(lamportsPerByteYear), lamportsPerByteYear),
			exemptionThreshold:  wrapper.NewFloat64Config(memory.NewConfig(exemptionThreshold), exemptionThreshold),
			maxCallDepth:        wrapper.NewInt64Config(memory.NewConfig(maxCallDepth), maxCallDepth),
			lockTimeout:         wrapper.NewDurationConfig(memory.NewConfig(lockTimeout), lockTimeout),
		}
	}
}
