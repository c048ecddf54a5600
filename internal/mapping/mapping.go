// Package mapping translates Salesforce field values to Notion property
// values and back. All functions are pure and never return errors: a value
// that cannot be mapped precisely falls through to the rich-text branch
// rather than failing the record.
package mapping

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jomei/notionapi"

	"github.com/tmcallister/sfbridge/internal/salesforce"
)

// Reserved Notion property labels. DisplayNameLabel is the Salesforce
// display-name label that maps to the database's title property;
// SalesforceIDLabel and LastSyncedLabel are reserved properties every
// synced database carries.
const (
	DisplayNameLabel  = "Name"
	SalesforceIDLabel = "Salesforce ID"
	LastSyncedLabel   = "Last Synced"
)

// addressFields are the composite Salesforce fields flattened to a single
// human-readable line instead of being JSON-serialized.
var addressFields = map[string]bool{
	"MailingAddress": true,
	"OtherAddress":   true,
}

// addressKeys is the flattening order for address components.
var addressKeys = [...]string{"street", "city", "state", "postalCode", "country"}

// ToProperty maps a Salesforce field value to a Notion property value.
// A nil value returns (nil, false): the property is omitted from the write.
func ToProperty(field salesforce.Field, value any) (notionapi.Property, bool) {
	if value == nil {
		return nil, false
	}

	// Composite (non-array object) values.
	if m, ok := value.(map[string]any); ok {
		if addressFields[field.Name] {
			return RichText(flattenAddress(m)), true
		}
		serialized, err := json.Marshal(m)
		if err != nil {
			return RichText(fmt.Sprintf("%v", m)), true
		}
		return RichText(string(serialized)), true
	}

	switch field.Type {
	case salesforce.FieldTypeString, salesforce.FieldTypeTextarea,
		salesforce.FieldTypePicklist, salesforce.FieldTypeID,
		salesforce.FieldTypeURL, salesforce.FieldTypeReference:
		if field.Label == DisplayNameLabel {
			return Title(stringify(value)), true
		}
		return RichText(stringify(value)), true

	case salesforce.FieldTypeEmail:
		return &notionapi.EmailProperty{
			Type:  notionapi.PropertyTypeEmail,
			Email: stringify(value),
		}, true

	case salesforce.FieldTypePhone:
		return &notionapi.PhoneNumberProperty{
			Type:        notionapi.PropertyTypePhoneNumber,
			PhoneNumber: stringify(value),
		}, true

	case salesforce.FieldTypeBoolean:
		b, ok := toBool(value)
		if !ok {
			return RichText(stringify(value)), true
		}
		return &notionapi.CheckboxProperty{
			Type:     notionapi.PropertyTypeCheckbox,
			Checkbox: b,
		}, true

	case salesforce.FieldTypeInt, salesforce.FieldTypeDouble,
		salesforce.FieldTypeCurrency, salesforce.FieldTypePercent:
		n, ok := toNumber(value)
		if !ok {
			return RichText(stringify(value)), true
		}
		return &notionapi.NumberProperty{
			Type:   notionapi.PropertyTypeNumber,
			Number: n,
		}, true

	case salesforce.FieldTypeDate, salesforce.FieldTypeDatetime:
		t, err := parseDateValue(stringify(value))
		if err != nil {
			return RichText(stringify(value)), true
		}
		return DateAt(t), true

	default:
		// base64, other, and anything describe invents later.
		return RichText(stringify(value)), true
	}
}

// ToPropertyConfig maps a Salesforce field to the Notion property type
// declaration used when creating or extending a database schema.
func ToPropertyConfig(field salesforce.Field) notionapi.PropertyConfig {
	switch field.Type {
	case salesforce.FieldTypeEmail:
		return &notionapi.EmailPropertyConfig{Type: notionapi.PropertyConfigTypeEmail}
	case salesforce.FieldTypePhone:
		return &notionapi.PhoneNumberPropertyConfig{Type: notionapi.PropertyConfigTypePhoneNumber}
	case salesforce.FieldTypeDate, salesforce.FieldTypeDatetime:
		return &notionapi.DatePropertyConfig{Type: notionapi.PropertyConfigTypeDate}
	case salesforce.FieldTypeBoolean:
		return &notionapi.CheckboxPropertyConfig{Type: notionapi.PropertyConfigTypeCheckbox}
	case salesforce.FieldTypeInt, salesforce.FieldTypeDouble,
		salesforce.FieldTypeCurrency, salesforce.FieldTypePercent:
		return &notionapi.NumberPropertyConfig{
			Type:   notionapi.PropertyConfigTypeNumber,
			Number: notionapi.NumberFormat{Format: notionapi.FormatNumber},
		}
	default:
		if field.Label == DisplayNameLabel {
			return &notionapi.TitlePropertyConfig{Type: notionapi.PropertyConfigTypeTitle}
		}
		return &notionapi.RichTextPropertyConfig{Type: notionapi.PropertyConfigTypeRichText}
	}
}

// ToSourceValue maps a Notion property value back to a Salesforce field
// value. Only the scalar table is supported: composites do not round-trip.
// Absent or malformed properties return nil, as does the title property on
// the display-name field (the title is reconstructed separately during the
// reverse pass).
func ToSourceValue(field salesforce.Field, property notionapi.Property) any {
	if property == nil {
		return nil
	}
	if field.Label == DisplayNameLabel {
		if _, ok := property.(*notionapi.TitleProperty); ok {
			return nil
		}
	}

	switch field.Type {
	case salesforce.FieldTypeString, salesforce.FieldTypeTextarea,
		salesforce.FieldTypePicklist, salesforce.FieldTypeID,
		salesforce.FieldTypeURL, salesforce.FieldTypeReference:
		switch p := property.(type) {
		case *notionapi.RichTextProperty:
			return textContent(p.RichText)
		case *notionapi.TitleProperty:
			return textContent(p.Title)
		default:
			return nil
		}

	case salesforce.FieldTypeEmail:
		if p, ok := property.(*notionapi.EmailProperty); ok && p.Email != "" {
			return p.Email
		}
		return nil

	case salesforce.FieldTypePhone:
		if p, ok := property.(*notionapi.PhoneNumberProperty); ok && p.PhoneNumber != "" {
			return p.PhoneNumber
		}
		return nil

	case salesforce.FieldTypeBoolean:
		if p, ok := property.(*notionapi.CheckboxProperty); ok {
			return p.Checkbox
		}
		return nil

	case salesforce.FieldTypeInt, salesforce.FieldTypeDouble,
		salesforce.FieldTypeCurrency, salesforce.FieldTypePercent:
		if p, ok := property.(*notionapi.NumberProperty); ok {
			return p.Number
		}
		return nil

	case salesforce.FieldTypeDate, salesforce.FieldTypeDatetime:
		if p, ok := property.(*notionapi.DateProperty); ok && p.Date != nil && p.Date.Start != nil {
			return time.Time(*p.Date.Start).UTC().Format(time.RFC3339)
		}
		return nil

	default:
		return nil
	}
}

// RichText builds a rich-text property holding a single text run.
func RichText(s string) *notionapi.RichTextProperty {
	return &notionapi.RichTextProperty{
		Type:     notionapi.PropertyTypeRichText,
		RichText: []notionapi.RichText{{Text: &notionapi.Text{Content: s}}},
	}
}

// Title builds a title property holding a single text run.
func Title(s string) *notionapi.TitleProperty {
	return &notionapi.TitleProperty{
		Type:  notionapi.PropertyTypeTitle,
		Title: []notionapi.RichText{{Text: &notionapi.Text{Content: s}}},
	}
}

// DateAt builds a date property for the given instant, normalized to UTC.
func DateAt(t time.Time) *notionapi.DateProperty {
	start := notionapi.Date(t.UTC())
	return &notionapi.DateProperty{
		Type: notionapi.PropertyTypeDate,
		Date: &notionapi.DateObject{Start: &start},
	}
}

// textContent extracts the first text run's content, or nil when empty.
func textContent(runs []notionapi.RichText) any {
	if len(runs) == 0 || runs[0].Text == nil || runs[0].Text.Content == "" {
		return nil
	}
	return runs[0].Text.Content
}

func flattenAddress(m map[string]any) string {
	line := ""
	for _, key := range addressKeys {
		part, _ := m[key].(string)
		if part == "" {
			continue
		}
		if line != "" {
			line += ", "
		}
		line += part
	}
	return line
}

func stringify(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}

func toBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(v)
		return b, err == nil
	default:
		return false, false
	}
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// parseDateValue accepts both date-only and datetime forms.
func parseDateValue(s string) (time.Time, error) {
	if t, err := salesforce.ParseTimestamp(s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
