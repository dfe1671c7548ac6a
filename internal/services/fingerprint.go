package services

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"

	"storefront/internal/models"
)

// Fingerprint derives a stable key from the session and cart contents. Line
// order does not affect the result.
func Fingerprint(sessionID, currency string, lines []models.CartLine) string {
	entries := make([]string, 0, len(lines))
	for _, l := range lines {
		entries = append(entries, fmt.Sprintf("%s|%s|%s|%d", l.ItemID, l.Option, l.UnitPrice.String(), l.Qty()))
	}
	sort.Strings(entries)

	var b strings.Builder
	b.WriteString(sessionID)
	b.WriteByte(0)
	b.WriteString(currency)
	for _, e := range entries {
		b.WriteByte(0)
		b.WriteString(e)
	}

	sum := blake2b.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
