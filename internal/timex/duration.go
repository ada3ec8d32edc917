// Package timex holds small time helpers used by the config loaders.
package timex

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalidDuration = errors.New("invalid duration")

// Duration is a time.Duration that can be read from config files either as
// a string understood by time.ParseDuration ("3s", "1m30s") or as an integer
// number of nanoseconds.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	return d.set(v)
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var v any
	if err := value.Decode(&v); err != nil {
		return err
	}
	return d.set(v)
}

func (d *Duration) set(v any) error {
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
	case int:
		d.Duration = time.Duration(value)
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidDuration, err)
		}
		d.Duration = parsed
	default:
		return fmt.Errorf("%w: %v", ErrInvalidDuration, v)
	}
	return nil
}
