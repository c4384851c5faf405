// Package maputils reads typed values from decoded JSON objects.
package maputils

import "fmt"

// StrVal returns the value of key as string.
// If the key does not exist or is null an empty string is returned.
// If the key exists but has a different type an error is returned.
func StrVal(m map[string]any, key string) (string, error) {
	val, ok := m[key]
	if !ok || val == nil {
		return "", nil
	}

	str, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("value of key %q has type %T, expected string", key, val)
	}

	return str, nil
}

// FirstStrVal returns the first non-empty string value of keys.
// Keys are aliases of the same setting, the first one takes precedence.
// An error is returned if one of the keys has a non-string value.
func FirstStrVal(m map[string]any, keys ...string) (string, error) {
	var result string

	for _, key := range keys {
		val, err := StrVal(m, key)
		if err != nil {
			return "", err
		}

		if result == "" {
			result = val
		}
	}

	return result, nil
}
