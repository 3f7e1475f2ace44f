// Package fingerprint computes the content fingerprint ("DNA") of a selection.
//
// A fingerprint is the lowercase hex SHA-256 of the canonical identity string
// of the chosen files: "{id}:{name}" tokens joined by "-", in selection order.
// Identical selections always yield identical fingerprints.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

const (
	fileSeparator  = "-"
	fieldSeparator = ":"
	nameSeparator  = ":"
	shortLen       = 6
)

// Fingerprint is a 64 character lowercase hex SHA-256 digest.
type Fingerprint string

// String returns the full digest.
func (f Fingerprint) String() string {
	return string(f)
}

// Short returns the first six hex characters. It is for display only and
// must never be used as a dedup key.
func (f Fingerprint) Short() string {
	if len(f) < shortLen {
		return string(f)
	}
	return string(f[:shortLen])
}

// Token is the identity of one chosen file.
type Token struct {
	ID   int
	Name string
}

// Canonical returns the pre-image hashed by Of.
func Canonical(tokens []Token) string {
	var b strings.Builder
	for i, t := range tokens {
		if i > 0 {
			b.WriteString(fileSeparator)
		}
		b.WriteString(strconv.Itoa(t.ID))
		b.WriteString(fieldSeparator)
		b.WriteString(t.Name)
	}
	return b.String()
}

// Of returns the fingerprint of tokens in the given order.
func Of(tokens []Token) Fingerprint {
	return sum(Canonical(tokens))
}

// OfNames fingerprints an ordered list of names joined by ":". It identifies
// an edition group by its layer order.
func OfNames(names []string) Fingerprint {
	return sum(strings.Join(names, nameSeparator))
}

// OfGroup fingerprints a group by its position in the run followed by its
// layer order: "{position}:{name}:{name}...".
func OfGroup(position int, names []string) Fingerprint {
	return OfNames(append([]string{strconv.Itoa(position)}, names...))
}

func sum(s string) Fingerprint {
	h := sha256.Sum256([]byte(s))
	return Fingerprint(hex.EncodeToString(h[:]))
}
