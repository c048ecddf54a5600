package mapping

import "github.com/tmcallister/sfbridge/internal/salesforce"

// GoType returns the Go type name used when generating a struct definition
// for a described object (the gen-types command).
func GoType(field salesforce.Field) string {
	switch field.Type {
	case salesforce.FieldTypeInt, salesforce.FieldTypeDouble,
		salesforce.FieldTypeCurrency, salesforce.FieldTypePercent:
		return "float64"
	case salesforce.FieldTypeBoolean:
		return "bool"
	case salesforce.FieldTypeString, salesforce.FieldTypeTextarea,
		salesforce.FieldTypePhone, salesforce.FieldTypePicklist,
		salesforce.FieldTypeID, salesforce.FieldTypeURL,
		salesforce.FieldTypeEmail, salesforce.FieldTypeReference,
		salesforce.FieldTypeDate, salesforce.FieldTypeDatetime,
		salesforce.FieldTypeBase64:
		return "string"
	default:
		return "any"
	}
}
