package config

import (
	"reflect"
	"strconv"

	"github.com/pkg/errors"
)

// fromEnv fills cfg's fields from their `env` tags, leaving unset
// variables at the zero value so defaults.Set can take over. Only the
// field kinds Config actually uses are supported.
func fromEnv(cfg *Config, lookup func(string) string) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		key := t.Field(i).Tag.Get("env")
		if key == "" {
			continue
		}

		raw := lookup(key)
		if raw == "" {
			continue
		}

		field := v.Field(i)
		switch field.Kind() {
		case reflect.String:
			field.SetString(raw)

		case reflect.Uint64:
			parsed, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				return errors.Wrapf(err, "%s must be an unsigned integer", key)
			}
			field.SetUint(parsed)

		case reflect.Int64:
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return errors.Wrapf(err, "%s must be an integer", key)
			}
			field.SetInt(parsed)

		case reflect.Bool:
			parsed, err := strconv.ParseBool(raw)
			if err != nil {
				return errors.Wrapf(err, "%s must be a boolean", key)
			}
			field.SetBool(parsed)

		default:
			return errors.Errorf("unsupported config field kind %s for %s", field.Kind(), key)
		}
	}

	return nil
}

// L1Name and L2Name are the operator-facing names of the two fixed legs,
// used in logs.
const (
	L1Name = "l1"
	L2Name = "l2"
)
