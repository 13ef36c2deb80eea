package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"

	"gopkg.in/yaml.v3"
)

const configPathEnv = "CONFIG_FILE"

// load fills the struct from an optional YAML file named by CONFIG_FILE,
// then overrides any field carrying an `env:` tag from the environment.
// Only the field kinds Config actually uses are handled: strings and ints.
func load(target interface{}) error {
	val := reflect.ValueOf(target)
	if target == nil || val.Kind() != reflect.Ptr || val.Elem().Kind() != reflect.Struct {
		return errors.New("config: target must be a struct pointer")
	}

	if path := os.Getenv(configPathEnv); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, target); err != nil {
			return fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	return overrideFromEnv(val.Elem())
}

func overrideFromEnv(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}
		if field.Kind() == reflect.Struct {
			if err := overrideFromEnv(field); err != nil {
				return err
			}
			continue
		}

		key := t.Field(i).Tag.Get("env")
		if key == "" {
			continue
		}
		raw, ok := os.LookupEnv(key)
		if !ok {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(raw)
		case reflect.Int:
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("config: %s: %w", key, err)
			}
			field.SetInt(int64(parsed))
		default:
			return fmt.Errorf("config: %s: unsupported field kind %s", key, field.Kind())
		}
	}
	return nil
}
