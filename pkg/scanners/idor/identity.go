// pkg/scanners/idor/identity.go
package idor

import (
	"encoding/json"
)

// MaxIdentityDepth bounds how deep identity fields are searched in a
// response document. Deeper documents yield VerdictUncertain.
const MaxIdentityDepth = 128

// identityFields carry the owner or an actor of the object they sit in.
// Keys are matched case-sensitively.
var identityFields = map[string]IdentityFieldWeight{
	"id":         WeightCritical,
	"userId":     WeightCritical,
	"user_id":    WeightCritical,
	"uid":        WeightCritical,
	"ownerId":    WeightCritical,
	"owner_id":   WeightCritical,
	"accountId":  WeightCritical,
	"account_id": WeightCritical,

	"created_by":  WeightMetadata,
	"createdBy":   WeightMetadata,
	"updated_by":  WeightMetadata,
	"updatedBy":   WeightMetadata,
	"author_id":   WeightMetadata,
	"authorId":    WeightMetadata,
	"modified_by": WeightMetadata,
	"modifiedBy":  WeightMetadata,
}

// editableFields hold user-supplied content. They are neither matched nor
// descended into, so an attacker who writes the victim's id into a profile
// field cannot make a response look like a leak.
var editableFields = map[string]bool{
	"firstName":     true,
	"lastName":      true,
	"first_name":    true,
	"last_name":     true,
	"name":          true,
	"email":         true,
	"phone":         true,
	"phoneNumber":   true,
	"phone_number":  true,
	"address":       true,
	"bio":           true,
	"description":   true,
	"notes":         true,
	"content":       true,
	"message":       true,
	"text":          true,
	"title":         true,
	"dateOfBirth":   true,
	"date_of_birth": true,
}

// identityMatch records where an identifier was seen
type identityMatch struct {
	critical bool
	metadata bool
}

func (m identityMatch) any() bool { return m.critical || m.metadata }

// identityScan is the outcome of one traversal for both identities
type identityScan struct {
	victim    identityMatch
	attacker  identityMatch
	truncated bool // the document nests deeper than the limit
}

type frame struct {
	value any
	depth int
}

// scanIdentityFields walks doc with an explicit stack and records which
// identity fields hold attackerID or victimID.
func scanIdentityFields(doc any, attackerID, victimID string, maxDepth int) identityScan {
	var scan identityScan
	stack := []frame{{value: doc, depth: 0}}

	push := func(v any, depth int) bool {
		switch v.(type) {
		case map[string]any, []any:
		default:
			return true
		}
		if depth > maxDepth {
			scan.truncated = true
			return false
		}
		stack = append(stack, frame{value: v, depth: depth})
		return true
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch node := top.value.(type) {
		case map[string]any:
			for key, val := range node {
				if editableFields[key] {
					continue
				}
				if weight, ok := identityFields[key]; ok {
					if s, ok := scalarString(val); ok {
						mark(&scan.victim, weight, s == victimID)
						mark(&scan.attacker, weight, s == attackerID)
					}
				}
				if !push(val, top.depth+1) {
					return scan
				}
			}
		case []any:
			for _, val := range node {
				if !push(val, top.depth+1) {
					return scan
				}
			}
		}
	}

	return scan
}

func mark(m *identityMatch, weight IdentityFieldWeight, hit bool) {
	if !hit {
		return
	}
	switch weight {
	case WeightCritical:
		m.critical = true
	case WeightMetadata:
		m.metadata = true
	}
}

// scalarString renders JSON strings and numbers for id comparison
func scalarString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case json.Number:
		return s.String(), true
	default:
		return "", false
	}
}
