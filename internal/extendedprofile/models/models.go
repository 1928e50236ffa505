// Package models holds the extended-profile data shapes. Entries are opaque
// JSON objects; only uuid and the per-category sort keys are interpreted.
package models

// Entry is one item in a profile section: a JSON object carrying a uuid plus
// category-specific fields.
type Entry = map[string]any

// MutationRequest is the decoded body of a create, update, or delete call:
// the target user plus per-section entry arrays.
type MutationRequest struct {
	UserID   string
	Sections map[string][]Entry
}
