package canonical

import (
	"github.com/tidwall/gjson"

	migerrors "github.com/heymumford/migrationcore/infrastructure/errors"
)

// RawField reads a single dotted-path field out of a provider's raw JSON
// payload without requiring a FieldMapper to unmarshal into a struct first.
// Provider adapters hand SourceToCanonical whatever shape their wire format
// produces; when that shape is already JSON (bytes or string), mappers can
// reach into it directly instead of round-tripping through encoding/json.
func RawField(raw any, path string) (string, bool) {
	data, ok := asJSONBytes(raw)
	if !ok {
		return "", false
	}
	result := gjson.GetBytes(data, path)
	if !result.Exists() {
		return "", false
	}
	return result.String(), true
}

// RawFieldStrict is RawField but returns a MappingError when the path is
// absent, for mappers that treat a missing required field as fatal rather
// than falling back to a default.
func RawFieldStrict(raw any, path string) (string, error) {
	v, ok := RawField(raw, path)
	if !ok {
		return "", migerrors.New(migerrors.MappingError, "required field "+path+" missing from source payload")
	}
	return v, nil
}

func asJSONBytes(raw any) ([]byte, bool) {
	switch v := raw.(type) {
	case []byte:
		return v, true
	case string:
		return []byte(v), true
	default:
		return nil, false
	}
}
