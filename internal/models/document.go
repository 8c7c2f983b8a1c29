package models

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Document is an opaque JSON value (resources, evaluation, submission, recording).
// It is stored and returned as-is and only parsed where a caller needs a typed view.
type Document []byte

// NewDocument marshals v into a Document
func NewDocument(v any) (Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Document(data), nil
}

// IsEmpty reports whether the document holds no value. JSON null counts as empty.
func (d Document) IsEmpty() bool {
	trimmed := bytes.TrimSpace(d)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// Decode parses the document into v. A JSON string whose content is itself
// JSON is unwrapped first, since older records stored blobs stringified.
func (d Document) Decode(v any) error {
	if d.IsEmpty() {
		return errors.New("document is empty")
	}

	data := bytes.TrimSpace(d)
	if data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return err
		}
		data = []byte(inner)
	}

	return json.Unmarshal(data, v)
}

// MarshalJSON implements json.Marshaler
func (d Document) MarshalJSON() ([]byte, error) {
	if d.IsEmpty() {
		return []byte("null"), nil
	}
	if !json.Valid(d) {
		return nil, errors.New("document is not valid JSON")
	}
	return []byte(d), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Document) UnmarshalJSON(data []byte) error {
	if d == nil {
		return errors.New("models.Document: UnmarshalJSON on nil pointer")
	}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*d = nil
		return nil
	}
	*d = append((*d)[0:0], data...)
	return nil
}

// Value returns the raw bytes for storage, or nil when empty
func (d Document) Value() []byte {
	if d.IsEmpty() {
		return nil
	}
	return []byte(d)
}
