package config

import (
	"time"

	"github.com/spf13/cast"
)

func panicOnErr(err error) {
	if err != nil {
		panic(err)
	}
}

// String reads configuration value
// from c by name and casts it to string.
//
// Panics if value can not be casted.
func String(c *Config, name string) string {
	x, err := cast.ToStringE(c.Value(name))
	panicOnErr(err)

	return x
}

// StringSafe reads configuration value
// from c by name and casts it to string.
//
// Returns "" if value can not be casted.
func StringSafe(c *Config, name string) string {
	return cast.ToString(c.Value(name))
}

// StringSlice reads configuration value
// from c by name and casts it to []string.
//
// Panics if value can not be casted.
func StringSlice(c *Config, name string) []string {
	x, err := cast.ToStringSliceE(c.Value(name))
	panicOnErr(err)

	return x
}

// StringSliceSafe reads configuration value
// from c by name and casts it to []string.
//
// Returns nil if value can not be casted.
func StringSliceSafe(c *Config, name string) []string {
	return cast.ToStringSlice(c.Value(name))
}

// Duration reads configuration value
// from c by name and casts it to time.Duration.
//
// Panics if value can not be casted.
func Duration(c *Config, name string) time.Duration {
	x, err := cast.ToDurationE(c.Value(name))
	panicOnErr(err)

	return x
}

// DurationSafe reads configuration value
// from c by name and casts it to time.Duration.
//
// Returns 0 if value can not be casted.
func DurationSafe(c *Config, name string) time.Duration {
	return cast.ToDuration(c.Value(name))
}

// Float reads configuration value
// from c by name and casts it to float64.
//
// Panics if value can not be casted.
func Float(c *Config, name string) float64 {
	x, err := cast.ToFloat64E(c.Value(name))
	panicOnErr(err)

	return x
}

// FloatSafe reads configuration value
// from c by name and casts it to float64.
//
// Returns 0 if value can not be casted.
func FloatSafe(c *Config, name string) float64 {
	return cast.ToFloat64(c.Value(name))
}

// Uint32 reads configuration value
// from c by name and casts it to uint32.
//
// Panics if value can not be casted.
func Uint32(c *Config, name string) uint32 {
	x, err := cast.ToUint32E(c.Value(name))
	panicOnErr(err)

	return x
}

// Uint32Safe reads configuration value
// from c by name and casts it to uint32.
//
// Returns 0 if value can not be casted.
func Uint32Safe(c *Config, name string) uint32 {
	return cast.ToUint32(c.Value(name))
}

// IntSafe reads configuration value
// from c by name and casts it to int.
//
// Returns 0 if value can not be casted.
func IntSafe(c *Config, name string) int {
	return cast.ToInt(c.Value(name))
}

// StringMapSafe reads configuration value
// from c by name and casts it to map[string]interface{}.
//
// Returns nil if value can not be casted.
func StringMapSafe(c *Config, name string) map[string]interface{} {
	return cast.ToStringMap(c.Value(name))
}
