// Package config loads environment configuration with a fail-open strategy:
// an invalid value never stops the process, it is replaced by the default,
// logged, and counted in Prometheus.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Result is the outcome of loading one environment variable.
// Warning is set only when FallbackApplied is true.
type Result[T any] struct {
	Value           T
	Warning         string
	FallbackApplied bool
}

// LoadEnvString returns the variable's value, or defaultValue when unset.
// No validation is performed.
func LoadEnvString(envKey, defaultValue string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return defaultValue
}

// LoadEnvWithFallback loads a string and validates it.
//
//	r := LoadEnvWithFallback("REFRESH_SCHEDULE", "* * * * *", ValidateCronSchedule)
//	schedule := r.Value
func LoadEnvWithFallback(envKey, defaultValue string, validator func(string) error) Result[string] {
	return load(envKey, defaultValue, func(s string) (string, error) { return s, nil }, validator)
}

// LoadEnvDuration loads a Go duration string ("30s", "1h30m").
func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) Result[time.Duration] {
	return load(envKey, defaultValue, time.ParseDuration, validator)
}

// LoadEnvInt loads a base-10 integer. Surrounding whitespace is rejected.
func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) Result[int] {
	return load(envKey, defaultValue, func(s string) (int, error) {
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("invalid integer format")
		}
		return n, nil
	}, validator)
}

// LoadEnvInt64 loads a base-10 64-bit integer, used for byte sizes.
func LoadEnvInt64(envKey string, defaultValue int64, validator func(int64) error) Result[int64] {
	return load(envKey, defaultValue, func(s string) (int64, error) {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid integer format")
		}
		return n, nil
	}, validator)
}

// LoadEnvFloat loads a decimal number.
func LoadEnvFloat(envKey string, defaultValue float64, validator func(float64) error) Result[float64] {
	return load(envKey, defaultValue, func(s string) (float64, error) {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number format")
		}
		return f, nil
	}, validator)
}

// LoadEnvBool accepts the strconv.ParseBool spellings.
func LoadEnvBool(envKey string, defaultValue bool) Result[bool] {
	return load(envKey, defaultValue, func(s string) (bool, error) {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return false, fmt.Errorf("invalid boolean format, expected 'true' or 'false'")
		}
		return b, nil
	}, nil)
}

// LoadEnvList splits a comma-separated variable, dropping blank entries.
// An unset variable yields defaultValue.
func LoadEnvList(envKey string, defaultValue []string) []string {
	raw := os.Getenv(envKey)
	if raw == "" {
		return defaultValue
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func load[T any](envKey string, defaultValue T, parse func(string) (T, error), validator func(T) error) Result[T] {
	raw := os.Getenv(envKey)
	if raw == "" {
		return Result[T]{Value: defaultValue}
	}

	v, err := parse(raw)
	if err == nil && validator != nil {
		err = validator(v)
	}
	if err != nil {
		return Result[T]{
			Value:           defaultValue,
			Warning:         fmt.Sprintf("Invalid %s='%s': %v, falling back to default '%v'", envKey, raw, err, defaultValue),
			FallbackApplied: true,
		}
	}
	return Result[T]{Value: v}
}

// Env reports every fallback of a configuration load to a logger and to
// ConfigMetrics. Either may be nil.
type Env struct {
	logger   *slog.Logger
	metrics  *ConfigMetrics
	fallback bool
}

// NewEnv starts a configuration load.
func NewEnv(logger *slog.Logger, metrics *ConfigMetrics) *Env {
	return &Env{logger: logger, metrics: metrics}
}

// Track records r under field and returns its value.
func Track[T any](e *Env, field string, r Result[T]) T {
	if !r.FallbackApplied {
		return r.Value
	}
	e.fallback = true
	if e.metrics != nil {
		e.metrics.RecordValidationError(field)
		e.metrics.RecordFallback(field)
	}
	if e.logger != nil {
		e.logger.Warn("Configuration fallback applied",
			slog.String("field", field),
			slog.String("warning", r.Warning))
	}
	return r.Value
}

// FallbackApplied reports whether any tracked field fell back.
func (e *Env) FallbackApplied() bool {
	return e.fallback
}

// Finish publishes the fallback gauge and the load timestamp.
func (e *Env) Finish() {
	if e.metrics == nil {
		return
	}
	e.metrics.SetFallbackActive(e.fallback)
	e.metrics.RecordLoadTimestamp()
}
