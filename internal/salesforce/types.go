// Package salesforce provides a minimal REST client for the Salesforce
// data API covering the three operations the sync engine needs: object
// describe, SOQL query, and record upsert.
//
// Authentication uses the OAuth 2.0 username/password token flow. The
// client holds the access token and instance URL for the lifetime of the
// process; token refresh across runs is not needed because the tool is a
// poll-on-invocation batch job.
package salesforce

import (
	"fmt"
	"time"
)

// FieldType enumerates the Salesforce field types the mapper understands.
// Describe metadata carries more tags than these; anything unrecognized
// parses to FieldTypeOther so that mapping falls through to the rich-text
// branch instead of failing.
type FieldType string

const (
	FieldTypeString    FieldType = "string"
	FieldTypeTextarea  FieldType = "textarea"
	FieldTypePicklist  FieldType = "picklist"
	FieldTypeID        FieldType = "id"
	FieldTypeURL       FieldType = "url"
	FieldTypeReference FieldType = "reference"
	FieldTypeEmail     FieldType = "email"
	FieldTypePhone     FieldType = "phone"
	FieldTypeBoolean   FieldType = "boolean"
	FieldTypeInt       FieldType = "int"
	FieldTypeDouble    FieldType = "double"
	FieldTypeCurrency  FieldType = "currency"
	FieldTypePercent   FieldType = "percent"
	FieldTypeDate      FieldType = "date"
	FieldTypeDatetime  FieldType = "datetime"
	FieldTypeBase64    FieldType = "base64"
	FieldTypeOther     FieldType = "other"
)

// ParseFieldType normalizes a describe type tag to a FieldType.
func ParseFieldType(s string) FieldType {
	switch t := FieldType(s); t {
	case FieldTypeString, FieldTypeTextarea, FieldTypePicklist, FieldTypeID,
		FieldTypeURL, FieldTypeReference, FieldTypeEmail, FieldTypePhone,
		FieldTypeBoolean, FieldTypeInt, FieldTypeDouble, FieldTypeCurrency,
		FieldTypePercent, FieldTypeDate, FieldTypeDatetime, FieldTypeBase64:
		return t
	default:
		return FieldTypeOther
	}
}

// Field describes one field of a Salesforce object, as returned by the
// describe endpoint. Label is the display key on the Notion side; Salesforce
// guarantees label uniqueness per object.
type Field struct {
	Name       string    `json:"name"`
	Label      string    `json:"label"`
	Type       FieldType `json:"type"`
	Nillable   bool      `json:"nillable"`
	Updateable bool      `json:"updateable"`
}

// Validate checks that the field carries the pieces the engine relies on.
func (f Field) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("field name is required")
	}
	if f.Label == "" {
		return fmt.Errorf("field %s: label is required", f.Name)
	}
	return nil
}

// Record is one Salesforce record as returned by a SOQL query: a mapping
// from field name to value. Records are transient; they live for one sync
// pass and are never persisted.
type Record map[string]any

// ID returns the record's Salesforce Id, or "" if absent.
func (r Record) ID() string {
	id, _ := r["Id"].(string)
	return id
}

// DisplayName returns the record's Name field, or "" if absent.
func (r Record) DisplayName() string {
	name, _ := r["Name"].(string)
	return name
}

// timestampLayouts covers the formats Salesforce emits for datetime fields.
// The REST API uses a fixed-offset form without a colon in the zone.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	time.RFC3339Nano,
	time.RFC3339,
}

// ParseTimestamp parses a Salesforce datetime string.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// LastModified returns the record's LastModifiedDate, if present and parseable.
func (r Record) LastModified() (time.Time, bool) {
	s, ok := r["LastModifiedDate"].(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := ParseTimestamp(s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
