// Package auth covers credential resolution: classifying login identifiers,
// verifying passwords and issuing/parsing JWT pairs.
package auth

import "strings"

// IdentifierKind tags how a login identifier must be resolved.
type IdentifierKind int

const (
	// KindEmail resolves against the email field (staff/psychologists).
	KindEmail IdentifierKind = iota
	// KindToken resolves against the token field (anonymous students).
	KindToken
)

// Identifier is a classified login handle.
type Identifier struct {
	Kind  IdentifierKind
	Value string
}

// ClassifyIdentifier splits the unified login input into its variant.
// Presence of "@" is the sole discriminator: anything containing it is an
// email lookup, everything else is a token lookup.
func ClassifyIdentifier(raw string) Identifier {
	if strings.Contains(raw, "@") {
		return Identifier{Kind: KindEmail, Value: raw}
	}
	return Identifier{Kind: KindToken, Value: raw}
}
