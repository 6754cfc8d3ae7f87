// Package contact holds the partial contact record assembled from chat
// conversations and the payloads exchanged with the submission pipeline.
package contact

import (
	"strings"
	"unicode/utf8"
)

// Info is a possibly incomplete contact record. An empty field means the
// value is absent; blank values never survive a Merge.
type Info struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
	Message string `json:"message,omitempty"`
}

func (i *Info) fields() []*string {
	return []*string{&i.Name, &i.Email, &i.Phone, &i.Company, &i.Message}
}

// HasAny reports whether at least one field carries a non-blank value.
func (i Info) HasAny() bool {
	for _, f := range i.fields() {
		if !isBlank(*f) {
			return true
		}
	}
	return false
}

// IsComplete reports whether the record can be submitted: a name of at
// least two characters plus an email containing "@" or a phone whose
// trimmed length is at least ten characters.
//
// The phone rule counts raw characters, not digits, so "(555) 12-34" passes
// while holding only eight digits.
func (i Info) IsComplete() bool {
	hasName := utf8.RuneCountInString(i.Name) >= 2
	hasEmail := i.Email != "" && strings.Contains(i.Email, "@")
	hasPhone := utf8.RuneCountInString(strings.TrimSpace(i.Phone)) >= 10
	return hasName && (hasEmail || hasPhone)
}

// Merge overlays extracted onto stored field by field. A non-blank
// extracted value replaces the stored one; a blank or absent one leaves it
// alone. Blank values are pruned from the result.
func Merge(stored, extracted Info) Info {
	merged := stored
	dst := merged.fields()
	for idx, src := range extracted.fields() {
		if !isBlank(*src) {
			*dst[idx] = *src
		}
	}
	return Normalize(merged)
}

// Normalize clears whitespace-only fields.
func Normalize(info Info) Info {
	for _, f := range info.fields() {
		if isBlank(*f) {
			*f = ""
		}
	}
	return info
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
