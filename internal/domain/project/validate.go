package project

import (
	"encoding/json"
)

// ParseDocument decodes and validates a full document payload. Validation is
// field by field with named failure reasons rather than a single boolean.
func ParseDocument(data []byte) (*Project, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &FieldError{Field: "document", Reason: "body is not a JSON object"}
	}

	if err := requireString(raw, "modelName"); err != nil {
		return nil, err
	}
	if err := requireNumber(raw, "numLayers"); err != nil {
		return nil, err
	}
	if err := requireNumber(raw, "numHeads"); err != nil {
		return nil, err
	}
	if err := requireObject(raw, "annotations"); err != nil {
		return nil, err
	}
	if err := requireStringArray(raw, "tags"); err != nil {
		return nil, err
	}
	if err := requireString(raw, "createdAt"); err != nil {
		return nil, err
	}
	if _, ok := raw["updatedAt"]; ok {
		if err := requireString(raw, "updatedAt"); err != nil {
			return nil, err
		}
	}

	return decodeProject(data)
}

// ParseImportFile decodes a user-selected file. The file is accepted only
// when the three required top-level fields are present; anything else is
// rejected with ErrNotAProject so the current document stays untouched.
func ParseImportFile(data []byte) (*Project, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, ErrNotAProject
	}
	for _, field := range []string{"modelName", "annotations", "tags"} {
		if _, ok := raw[field]; !ok {
			return nil, ErrNotAProject
		}
	}
	doc, err := decodeProject(data)
	if err != nil {
		return nil, ErrNotAProject
	}
	return doc, nil
}

func decodeProject(data []byte) (*Project, error) {
	var doc Project
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &FieldError{Field: "document", Reason: err.Error()}
	}
	if doc.Annotations == nil {
		doc.Annotations = map[string]Annotation{}
	}
	if doc.Tags == nil {
		doc.Tags = []string{}
	}
	return &doc, nil
}

func requireString(raw map[string]json.RawMessage, field string) error {
	msg, ok := raw[field]
	if !ok {
		return &FieldError{Field: field, Reason: "missing"}
	}
	var s string
	if err := json.Unmarshal(msg, &s); err != nil {
		return &FieldError{Field: field, Reason: "expected string"}
	}
	return nil
}

func requireNumber(raw map[string]json.RawMessage, field string) error {
	msg, ok := raw[field]
	if !ok {
		return &FieldError{Field: field, Reason: "missing"}
	}
	var n float64
	if err := json.Unmarshal(msg, &n); err != nil {
		return &FieldError{Field: field, Reason: "expected number"}
	}
	return nil
}

func requireObject(raw map[string]json.RawMessage, field string) error {
	msg, ok := raw[field]
	if !ok {
		return &FieldError{Field: field, Reason: "missing"}
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(msg, &obj); err != nil {
		return &FieldError{Field: field, Reason: "expected object"}
	}
	return nil
}

func requireStringArray(raw map[string]json.RawMessage, field string) error {
	msg, ok := raw[field]
	if !ok {
		return &FieldError{Field: field, Reason: "missing"}
	}
	var arr []string
	if err := json.Unmarshal(msg, &arr); err != nil {
		return &FieldError{Field: field, Reason: "expected array of strings"}
	}
	return nil
}
