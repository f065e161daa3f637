package users

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const (
	minPasswordLen = 8
	// bcrypt refuses longer input.
	maxPasswordBytes = 72
)

// ValidatePassword returns nil or an ErrInvalidInput listing every unmet rule.
func ValidatePassword(pw string) error {
	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, r := range pw {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if len(pw) > maxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, maxPasswordBytes)
	}

	var missing []string
	if len([]rune(pw)) < minPasswordLen {
		missing = append(missing, fmt.Sprintf("at least %d characters", minPasswordLen))
	}
	if !hasLower {
		missing = append(missing, "a lowercase letter")
	}
	if !hasUpper {
		missing = append(missing, "an uppercase letter")
	}
	if !hasDigit {
		missing = append(missing, "a number")
	}
	if !hasSpecial {
		missing = append(missing, "a special character")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: password must contain %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

func isEmail(s string) bool { return emailRe.MatchString(s) }

// Hasher hashes and verifies passwords using bcrypt. Plaintext passwords are never
// logged or stored.
type Hasher struct {
	Cost int
}

// NewHasher clamps cost into bcrypt's accepted range; zero means bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	cost = min(max(cost, bcrypt.MinCost), bcrypt.MaxCost)
	return &Hasher{Cost: cost}
}

func (h *Hasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare returns nil when password matches hash.
func (h *Hasher) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
