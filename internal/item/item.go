package item

import "maps"

// Field names of a stored item
const (
	FieldID           = "_id"
	FieldCKANID       = "ckan_id"
	FieldTitle        = "title"
	FieldDescription  = "description"
	FieldCreated      = "created"
	FieldUpdated      = "updated"
	FieldURL          = "url"
	FieldFormat       = "format"
	FieldGroups       = "groups"
	FieldOrganization = "organization"
	FieldPackage      = "package"
	FieldNotes        = "notes"
	FieldExtras       = "extras"
	FieldResources    = "resources"
	FieldData         = "data"
)

// DefaultFacet receives tags that belong to no vocabulary
const DefaultFacet = "tags"

// Item is one record of the main collection
type Item map[string]any

// CKANID returns the external identifier of the item
func (i Item) CKANID() string {
	return i.String(FieldCKANID)
}

// String returns the value of a string field, or "" when absent or not a string
func (i Item) String(field string) string {
	s, _ := i[field].(string)
	return s
}

// Clone returns a shallow copy of the item
func (i Item) Clone() Item {
	return maps.Clone(i)
}
