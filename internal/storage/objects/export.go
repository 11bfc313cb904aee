// Package objects renders a drawn wishlist as a downloadable file and
// optionally archives it in S3-compatible object storage.
package objects

import (
	"context"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/gravadigital/wishdraw-api/internal/domain/draw"
)

// ContentType of rendered exports
const ContentType = "text/plain; charset=utf-8"

// Exporter stores a rendered export and returns a URL the participant can fetch it from
type Exporter interface {
	Export(ctx context.Context, participantID uuid.UUID, pick *draw.Pick) (string, error)
}

// Render returns the export body for a pick
func Render(pick *draw.Pick) []byte {
	var b strings.Builder
	b.WriteString("Name: ")
	b.WriteString(pick.Name)
	b.WriteString("\nWishlist: ")
	b.WriteString(pick.Content)
	b.WriteString("\n")
	return []byte(b.String())
}

// Filename returns "<name>-wishlist.txt" with the name reduced to a safe
// header and object-key token
func Filename(name string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.TrimSpace(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.':
			b.WriteRune(r)
			lastDash = false
		case !lastDash && b.Len() > 0:
			b.WriteRune('-')
			lastDash = true
		}
	}
	base := strings.Trim(b.String(), "-.")
	if base == "" {
		return "wishlist.txt"
	}
	return base + "-wishlist.txt"
}

// ObjectKey is where a participant's export is stored
func ObjectKey(participantID uuid.UUID, pick *draw.Pick) string {
	return "exports/" + participantID.String() + "/" + Filename(pick.Name)
}
