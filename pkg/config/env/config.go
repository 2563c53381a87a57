// Package env sources configuration values from environment variables.
package env

import (
	"context"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/code-payments/mov-swap/pkg/config"
	"github.com/code-payments/mov-swap/pkg/config/wrapper"
)

type conf struct {
	key      string
	shutdown atomic.Bool
}

// NewConfig returns a config backed by the upper cased environment variable.
// The variable is looked up on every Get, so values set after construction are
// observed.
func NewConfig(key string) config.Config {
	return &conf{key: strings.ToUpper(key)}
}

// Get implements Config.Get. Empty variables count as unset.
func (c *conf) Get(_ context.Context) (interface{}, error) {
	if c.shutdown.Load() {
		return nil, config.ErrShutdown
	}

	val, ok := os.LookupEnv(c.key)
	if !ok || len(val) == 0 {
		return nil, config.ErrNoValue
	}
	return []byte(val), nil
}

// Shutdown implements Config.Shutdown
func (c *conf) Shutdown() {
	c.shutdown.Store(true)
}

func NewBoolConfig(key string, defaultValue bool) config.Bool {
	return wrapper.NewBoolConfig(NewConfig(key), defaultValue)
}

func NewInt64Config(key string, defaultValue int64) config.Int64 {
	return wrapper.NewInt64Config(NewConfig(key), defaultValue)
}

func NewUint64Config(key string, defaultValue uint64) config.Uint64 {
	return wrapper.NewUint64Config(NewConfig(key), defaultValue)
}

func NewFloat64Config(key string, defaultValue float64) config.Float64 {
	return wrapper.NewFloat64Config(NewConfig(key), defaultValue)
}

func NewStringConfig(key string, defaultValue string) config.String {
	return wrapper.NewStringConfig(NewConfig(key), defaultValue)
}

func NewDurationConfig(key string, defaultValue time.Duration) config.Duration {
	return wrapper.NewDurationConfig(NewConfig(key), defaultValue)
}
