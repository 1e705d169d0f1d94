package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

const (
	minUsernameLength = 3
	maxUsernameLength = 50
	minPasswordLength = 8
	maxPasswordLength = 50
	maxEmailLength    = 255
)

// AuthRequestValidator validates authentication-related requests
type AuthRequestValidator struct{}

// NewAuthRequestValidator creates a new AuthRequestValidator
func NewAuthRequestValidator() *AuthRequestValidator {
	return &AuthRequestValidator{}
}

// ValidateUsername validates a username
func (v *AuthRequestValidator) ValidateUsername(username string) error {
	switch {
	case username == "":
		return errors.New("username cannot be empty")
	case len(username) < minUsernameLength:
		return fmt.Errorf("username must be at least %d characters long, got %d", minUsernameLength, len(username))
	case len(username) > maxUsernameLength:
		return fmt.Errorf("username must be at most %d characters long, got %d", maxUsernameLength, len(username))
	case !usernamePattern.MatchString(username):
		return errors.New("username can only contain letters, numbers, underscores, and hyphens")
	}
	return nil
}

// ValidatePassword validates a password
func (v *AuthRequestValidator) ValidatePassword(password string) error {
	switch {
	case password == "":
		return errors.New("password cannot be empty")
	case len(password) < minPasswordLength:
		return fmt.Errorf("password must be at least %d characters long, got %d", minPasswordLength, len(password))
	case len(password) > maxPasswordLength:
		return fmt.Errorf("password must be at most %d characters long, got %d", maxPasswordLength, len(password))
	}
	return nil
}

// ValidateEmail validates a required email address
func (v *AuthRequestValidator) ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("email cannot be empty")
	}
	if len(email) > maxEmailLength {
		return fmt.Errorf("email must be at most %d characters long, got %d", maxEmailLength, len(email))
	}
	if !emailPattern.MatchString(email) {
		return errors.New("invalid email format")
	}
	return nil
}

// ValidateLoginRequest validates a login request
func (v *AuthRequestValidator) ValidateLoginRequest(username, password string) error {
	if username == "" {
		return errors.New("username cannot be empty")
	}
	if password == "" {
		return errors.New("password cannot be empty")
	}
	return nil
}

// ValidateRegisterRequest validates a registration request
func (v *AuthRequestValidator) ValidateRegisterRequest(username, email, password string) error {
	if err := v.ValidateUsername(username); err != nil {
		return err
	}
	if err := v.ValidateEmail(email); err != nil {
		return err
	}
	return v.ValidatePassword(password)
}
