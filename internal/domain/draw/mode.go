package draw

import (
	"fmt"
	"strings"
)

// Mode selects whether a wishlist can be drawn more than once
type Mode string

const (
	// ModeClosed hands every entry to at most one participant
	ModeClosed Mode = "closed"
	// ModeOpen lets several participants draw the same entry
	ModeOpen Mode = "open"
)

func (m Mode) String() string {
	return string(m)
}

// ParseMode converts a config value into a Mode
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeClosed, "":
		return ModeClosed, nil
	case ModeOpen:
		return ModeOpen, nil
	default:
		return "", fmt.Errorf("unsupported draw mode: %q (expected %q or %q)", value, ModeClosed, ModeOpen)
	}
}
