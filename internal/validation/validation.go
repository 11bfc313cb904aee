package validation

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// ValidateRequired valida que un campo no esté vacío
func ValidateRequired(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New(fieldName + " is required")
	}
	return nil
}

// ValidateMinLength checks the minimum length of a string, in runes
func ValidateMinLength(value string, minLength int, fieldName string) error {
	if utf8.RuneCountInString(value) < minLength {
		return fmt.Errorf("%s must be at least %d characters long", fieldName, minLength)
	}
	return nil
}

// ValidateMaxLength checks the maximum length of a string, in runes
func ValidateMaxLength(value string, maxLength int, fieldName string) error {
	if utf8.RuneCountInString(value) > maxLength {
		return fmt.Errorf("%s must be at most %d characters long", fieldName, maxLength)
	}
	return nil
}

// ValidateEmail checks the address parses as a bare RFC 5322 address
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != strings.TrimSpace(email) {
		return errors.New("email must have a valid format")
	}
	return nil
}

// ParticipantValidation holds the signup rules
type ParticipantValidation struct{}

// ValidateName validates a participant display name
func (v ParticipantValidation) ValidateName(name string) error {
	if err := ValidateRequired(name, "name"); err != nil {
		return err
	}
	return ValidateMaxLength(strings.TrimSpace(name), 100, "name")
}

// ValidateEmail validates a participant email
func (v ParticipantValidation) ValidateEmail(email string) error {
	if err := ValidateRequired(email, "email"); err != nil {
		return err
	}
	return ValidateEmail(strings.TrimSpace(email))
}

// ValidatePassword validates a signup password
func (v ParticipantValidation) ValidatePassword(password string) error {
	if err := ValidateMinLength(password, 6, "password"); err != nil {
		return err
	}
	// bcrypt ignores everything past 72 bytes
	if len(password) > 72 {
		return errors.New("password must be at most 72 bytes long")
	}
	return nil
}

// WishlistValidation holds the submission rules
type WishlistValidation struct{}

// ValidateContent validates wishlist text, already trimmed by the caller
func (v WishlistValidation) ValidateContent(content string, maxLength int) error {
	if err := ValidateRequired(content, "wishlist content"); err != nil {
		return err
	}
	return ValidateMaxLength(content, maxLength, "wishlist content")
}
