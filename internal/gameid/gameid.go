// Package gameid mints time-ordered identifiers for blackjack tables.
//
// An ID is a UUIDv7 (48-bit millisecond timestamp, version and variant
// bits, random tail) rendered as 26 characters of Crockford base32, so IDs
// sort by creation time and survive being typed into chat.
package gameid

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/coder/quartz"
)

const (
	alphabet = "0123456789abcdefghjkmnpqrstvwxyz"
	// Length is the number of characters in an ID.
	Length = 26
)

// Generator mints IDs from a clock and a source of random bytes.
type Generator struct {
	mu      sync.Mutex
	clock   quartz.Clock
	entropy io.Reader
}

// NewGenerator returns a generator. A nil clock uses the real clock and a
// nil entropy source uses crypto/rand.
func NewGenerator(clock quartz.Clock, entropy io.Reader) *Generator {
	if clock == nil {
		clock = quartz.NewReal()
	}
	if entropy == nil {
		entropy = rand.Reader
	}
	return &Generator{clock: clock, entropy: entropy}
}

// Generate returns an ID using the real clock and crypto/rand.
func Generate() string {
	return NewGenerator(nil, nil).Next()
}

// Next returns a fresh ID.
func (g *Generator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var id [16]byte
	ms := g.clock.Now().UnixMilli()
	for i := range 6 {
		id[i] = byte(ms >> (40 - 8*i))
	}
	if _, err := io.ReadFull(g.entropy, id[6:]); err != nil {
		panic("gameid: reading entropy: " + err.Error())
	}
	id[6] = id[6]&0x0f | 0x70
	id[8] = id[8]&0x3f | 0x80
	return encode(id)
}

// encode packs 128 bits into 26 five-bit symbols, most significant first.
// The final symbol carries the last three bits shifted left by two.
func encode(id [16]byte) string {
	var b strings.Builder
	b.Grow(Length)
	var acc uint16
	bits := 0
	for _, x := range id {
		acc = acc<<8 | uint16(x)
		bits += 8
		for bits >= 5 {
			bits -= 5
			b.WriteByte(alphabet[(acc>>bits)&0x1f])
		}
	}
	if bits > 0 {
		b.WriteByte(alphabet[(acc<<(5-bits))&0x1f])
	}
	return b.String()
}

// Validate reports whether s could have been produced by Next. Matching is
// case-insensitive.
func Validate(s string) error {
	if len(s) != Length {
		return fmt.Errorf("game ID must be %d characters, got %d", Length, len(s))
	}
	for i, r := range strings.ToLower(s) {
		if !strings.ContainsRune(alphabet, r) {
			return fmt.Errorf("invalid character %q at position %d", r, i)
		}
	}
	return nil
}

// Normalize lower-cases s so IDs typed in chat match generated ones.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
