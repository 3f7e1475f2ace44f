package fingerprint

import (
	"crypto/sha256"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonical(t *testing.T) {
	tokens := []Token{{ID: 0, Name: "blue.png"}, {ID: 2, Name: "open#5.png"}}
	assert.Equal(t, "0:blue.png-2:open#5.png", Canonical(tokens))
	assert.Equal(t, "", Canonical(nil))
}

func TestOf_MatchesSHA256OfCanonical(t *testing.T) {
	tokens := []Token{{ID: 1, Name: "red.png"}}
	want := fmt.Sprintf("%x", sha256.Sum256([]byte("1:red.png")))

	fp := Of(tokens)
	assert.Equal(t, want, fp.String())
	assert.Len(t, fp.String(), 64)
	assert.Regexp(t, `^[0-9a-f]{64}$`, fp.String())
}

func TestOf_Deterministic(t *testing.T) {
	a := []Token{{ID: 0, Name: "a.png"}, {ID: 1, Name: "b.png"}}
	b := []Token{{ID: 0, Name: "a.png"}, {ID: 1, Name: "b.png"}}
	assert.Equal(t, Of(a), Of(b))
}

func TestOf_SensitiveToEveryIdentityField(t *testing.T) {
	base := []Token{{ID: 0, Name: "a.png"}, {ID: 1, Name: "b.png"}}

	tests := []struct {
		name   string
		tokens []Token
	}{
		{name: "different id", tokens: []Token{{ID: 0, Name: "a.png"}, {ID: 2, Name: "b.png"}}},
		{name: "different name", tokens: []Token{{ID: 0, Name: "a.png"}, {ID: 1, Name: "c.png"}}},
		{name: "different order", tokens: []Token{{ID: 1, Name: "b.png"}, {ID: 0, Name: "a.png"}}},
		{name: "extra file", tokens: append([]Token{}, append(base, Token{ID: 3, Name: "d.png"})...)},
		{name: "missing file", tokens: base[:1]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, Of(base), Of(tt.tokens))
		})
	}
}

func TestShort(t *testing.T) {
	fp := Of([]Token{{ID: 0, Name: "a.png"}})
	assert.Equal(t, fp.String()[:6], fp.Short())
	assert.Equal(t, "abc", Fingerprint("abc").Short())
}

func TestOfNames(t *testing.T) {
	want := fmt.Sprintf("%x", sha256.Sum256([]byte("background:eyes")))
	assert.Equal(t, want, OfNames([]string{"background", "eyes"}).String())
	assert.NotEqual(t, OfNames([]string{"eyes", "background"}), OfNames([]string{"background", "eyes"}))
}

func TestOfGroup(t *testing.T) {
	want := fmt.Sprintf("%x", sha256.Sum256([]byte("1:background:eyes")))
	assert.Equal(t, want, OfGroup(1, []string{"background", "eyes"}).String())
	assert.NotEqual(t, OfGroup(0, []string{"background", "eyes"}), OfGroup(1, []string{"background", "eyes"}))
}
