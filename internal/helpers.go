package internal

import "strconv"

// ContextValue returns the value stored under key with Set, or the zero value of T.
func ContextValue[T any](c Context, key any) T {
	v, _ := c.Get(key).(T)
	return v
}

// QueryDefault returns a typed query parameter, or def when it is missing or malformed.
func QueryDefault[T ~string | ~int | ~bool](c Context, name string, def T) T {
	raw := c.Query(name)
	if raw == "" {
		return def
	}

	var out any
	switch any(def).(type) {
	case string:
		out = raw
	case int:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return def
		}
		out = n
	case bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return def
		}
		out = b
	}
	if v, ok := out.(T); ok {
		return v
	}
	return def
}
