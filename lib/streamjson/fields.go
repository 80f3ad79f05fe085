// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

package streamjson

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// fields is a JSON object decoded one level deep. Each accessor decodes
// a single field and treats a field of an unexpected type as absent, so
// one odd field never costs the rest of the message.
type fields map[string]json.RawMessage

// parseFields decodes raw as a JSON object. It fails only when raw is
// not valid JSON or not an object.
func parseFields(raw []byte) (fields, bool) {
	var object fields
	if json.Unmarshal(raw, &object) != nil {
		return nil, false
	}
	return object, true
}

// present returns the raw value of name, or nil when the field is
// missing or null.
func (object fields) present(name string) json.RawMessage {
	raw := bytes.TrimSpace(object[name])
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	return raw
}

// str returns a string field. Numbers are accepted in their literal
// form ("session_id": 42 reads as "42").
func (object fields) str(name string) (string, bool) {
	raw := object.present(name)
	if raw == nil {
		return "", false
	}
	var value string
	if json.Unmarshal(raw, &value) == nil {
		return value, true
	}
	var number json.Number
	if json.Unmarshal(raw, &number) == nil {
		return number.String(), true
	}
	return "", false
}

// text returns a string field, or the compact JSON of any other
// non-null value.
func (object fields) text(name string) (string, bool) {
	if value, ok := object.str(name); ok {
		return value, true
	}
	raw := object.present(name)
	if raw == nil {
		return "", false
	}
	return compactJSON(raw), true
}

// flag reports whether a field is true. The string "true" counts.
func (object fields) flag(name string) bool {
	raw := object.present(name)
	if raw == nil {
		return false
	}
	var value bool
	if json.Unmarshal(raw, &value) == nil {
		return value
	}
	var quoted string
	if json.Unmarshal(raw, &quoted) == nil {
		value, _ = strconv.ParseBool(quoted)
	}
	return value
}

// float returns a numeric field. Numeric strings are accepted.
func (object fields) float(name string) *float64 {
	raw := object.present(name)
	if raw == nil {
		return nil
	}
	var value float64
	if json.Unmarshal(raw, &value) != nil {
		var quoted string
		if json.Unmarshal(raw, &quoted) != nil {
			return nil
		}
		parsed, err := strconv.ParseFloat(quoted, 64)
		if err != nil {
			return nil
		}
		value = parsed
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil
	}
	return &value
}

// integer returns a count field. Exponent forms (1.52e4) and numeric
// strings are accepted; fractions are rounded.
func (object fields) integer(name string) *int64 {
	value := object.float(name)
	if value == nil || math.Abs(*value) >= math.MaxInt64 {
		return nil
	}
	count := int64(math.Round(*value))
	return &count
}

// object returns a nested object field, or nil.
func (object fields) object(name string) fields {
	raw := object.present(name)
	if raw == nil {
		return nil
	}
	nested, _ := parseFields(raw)
	return nested
}

// blocks returns the elements of an array field, each decoded as an
// object. Elements that are not objects are skipped.
func (object fields) blocks(name string) []fields {
	raw := object.present(name)
	if raw == nil || raw[0] != '[' {
		return nil
	}
	var elements []json.RawMessage
	if json.Unmarshal(raw, &elements) != nil {
		return nil
	}
	blocks := make([]fields, 0, len(elements))
	for _, element := range elements {
		if block, ok := parseFields(element); ok && block != nil {
			blocks = append(blocks, block)
		}
	}
	return blocks
}
