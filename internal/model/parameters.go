package model

import (
	"fmt"
	"strconv"
)

// Parameters holds the parameter values of a job, keyed by the human-readable
// parameter names the Qiita command declares (e.g. "Number of threads").
// Values arrive as strings from the server and are converted on access.
type Parameters map[string]string

// String returns the value for key, or def when the key is absent or empty.
func (p Parameters) String(key, def string) string {
	if v, ok := p[key]; ok && v != "" {
		return v
	}
	return def
}

// Int returns the integer value for key.
func (p Parameters) Int(key string) (int, error) {
	v, ok := p[key]
	if !ok {
		return 0, fmt.Errorf("parameter %q is missing", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parameter %q: %w", key, err)
	}
	return n, nil
}

// Bool interprets the value for key as a flag. Absent keys and the literal
// "False" are false; "True" is true.
func (p Parameters) Bool(key string) bool {
	return p[key] == "True" || p[key] == "true"
}

// Require returns the values for the given keys, erroring on the first one
// that is missing or empty.
func (p Parameters) Require(keys ...string) ([]string, error) {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		v, ok := p[k]
		if !ok || v == "" {
			return nil, fmt.Errorf("parameter %q is required", k)
		}
		out = append(out, v)
	}
	return out, nil
}

// Clone returns a copy of the parameter map.
func (p Parameters) Clone() Parameters {
	out := make(Parameters, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
