// Package tracking issues the human-readable identifiers bound to paid parcels.
package tracking

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"
)

const Prefix = "PRCL"

// Generator builds ids of the form PRCL-YYYYMMDD-XXXXXX. Uniqueness rests on
// three random bytes per call within a UTC day and is not checked anywhere.
type Generator struct {
	Now  func() time.Time
	Rand io.Reader
}

// New returns a Generator backed by the wall clock and crypto/rand.
func New() *Generator {
	return &Generator{Now: time.Now, Rand: rand.Reader}
}

// Generate panics when the random source fails: there is no safe fallback.
func (g *Generator) Generate() string {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	src := g.Rand
	if src == nil {
		src = rand.Reader
	}

	buf := make([]byte, 3)
	if _, err := io.ReadFull(src, buf); err != nil {
		panic(fmt.Sprintf("tracking: read random suffix: %v", err))
	}
	return fmt.Sprintf("%s-%s-%s", Prefix, now().UTC().Format("20060102"), strings.ToUpper(hex.EncodeToString(buf)))
}
