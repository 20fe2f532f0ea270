package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"contacts-service/internal/apperror"
)

// MaxBodyBytes bounds JSON request bodies.
const MaxBodyBytes = 1 << 20

// DecodeOptions tunes Decode for a schema.
type DecodeOptions struct {
	// AllowUnknown accepts keys the target struct does not declare.
	AllowUnknown bool
	// MinKeys is the minimum number of keys the object must carry.
	MinKeys int
}

// Decode reads a JSON object from body into dst. An empty body is treated as
// an empty object. Unknown keys and type mismatches become validation errors.
func Decode(body io.Reader, dst any, opts DecodeOptions) error {
	data, err := io.ReadAll(io.LimitReader(body, MaxBodyBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		data = []byte("{}")
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil || keys == nil {
		return apperror.Validation("value", `"value" must be of type object`)
	}

	if len(keys) < opts.MinKeys {
		noun := "keys"
		if opts.MinKeys == 1 {
			noun = "key"
		}
		return apperror.Validation("value", `"value" must have at least %d %s`, opts.MinKeys, noun)
	}

	// encoding/json matches keys case-insensitively, so only exact names pass.
	if unknown := unknownKeys(keys, dst); len(unknown) > 0 {
		if !opts.AllowUnknown {
			return apperror.Validation(unknown[0], "%q is not allowed", unknown[0])
		}
		for _, k := range unknown {
			delete(keys, k)
		}
		if data, err = json.Marshal(keys); err != nil {
			return fmt.Errorf("re-encode body: %w", err)
		}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if !opts.AllowUnknown {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	return nil
}

// unknownKeys returns, sorted, the keys of body that are not the exact json
// name of a field of the struct dst points to.
func unknownKeys(body map[string]json.RawMessage, dst any) []string {
	t := reflect.TypeOf(dst)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}

	known := make(map[string]struct{}, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		known[name] = struct{}{}
	}

	var unknown []string
	for k := range body {
		if _, ok := known[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	return unknown
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "value"
		}
		return apperror.Validation(field, "%q must be a %s", field, typeName(typeErr.Type))
	}

	// encoding/json reports unknown keys only through the message text.
	const unknownPrefix = "json: unknown field "
	if msg := err.Error(); strings.HasPrefix(msg, unknownPrefix) {
		field := strings.Trim(strings.TrimPrefix(msg, unknownPrefix), `"`)
		return apperror.Validation(field, "%q is not allowed", field)
	}

	return apperror.Validation("value", `"value" must be of type object`)
}

func typeName(t reflect.Type) string {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil {
		return "value"
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return "object"
	}
}
