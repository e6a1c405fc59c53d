package check

import (
	"encoding/json"
	"fmt"
)

// RequireKeys fails when any key is absent from body.
func RequireKeys(body Body, keys ...string) error {
	for _, k := range keys {
		if _, ok := body[k]; !ok {
			return fmt.Errorf("missing required field %q", k)
		}
	}
	return nil
}

// List returns body[key] as a JSON array.
func List(body Body, key string) ([]interface{}, error) {
	v, ok := body[key]
	if !ok {
		return nil, fmt.Errorf("no %s field in response", key)
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("field %q is %T, want array", key, v)
	}
	return list, nil
}

// Object returns body[key] as a JSON object.
func Object(body Body, key string) (Body, error) {
	v, ok := body[key]
	if !ok {
		return nil, fmt.Errorf("no %s in response", key)
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("field %q is %T, want object", key, v)
	}
	return obj, nil
}

// String returns body[key] when it is a string.
func String(body Body, key string) (string, bool) {
	s, ok := body[key].(string)
	return s, ok
}

// Compact renders body as single-line JSON for details.
func Compact(body Body) string {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Sprint(body)
	}
	return string(b)
}

// FieldEquals accepts bodies whose key holds exactly want.
func FieldEquals(key, want string) Validator {
	return func(body Body) (string, error) {
		got, ok := String(body, key)
		if !ok || got != want {
			return "", fmt.Errorf("unexpected response: want %s=%q", key, want)
		}
		return "Response: " + Compact(body), nil
	}
}

// ListField accepts bodies carrying key as an array and reports its length.
func ListField(key, noun string) Validator {
	return func(body Body) (string, error) {
		list, err := List(body, key)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Found %d %s", len(list), noun), nil
	}
}

// ObjectField accepts bodies carrying key as an object and echoes one of its
// string fields.
func ObjectField(key, field, label string) Validator {
	return func(body Body) (string, error) {
		obj, err := Object(body, key)
		if err != nil {
			return "", err
		}
		v, _ := String(obj, field)
		return fmt.Sprintf("%s: %s", label, v), nil
	}
}

// StringField extracts body[key] when it is a non-empty string.
func StringField(key string) Extractor {
	return func(body Body) (string, bool) {
		s, ok := String(body, key)
		return s, ok && s != ""
	}
}
