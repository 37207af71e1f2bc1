package ldapsync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/gotrs-io/gotrs-ldapsync/internal/repository"
)

// ScreenNameGenerator produces a screen name for a user whose directory
// entry has none.
type ScreenNameGenerator interface {
	Generate(ctx context.Context, companyID, userID int64, emailAddress string) (string, error)
}

// ScreenNameGeneratorFunc adapts a function to ScreenNameGenerator.
type ScreenNameGeneratorFunc func(ctx context.Context, companyID, userID int64, emailAddress string) (string, error)

func (f ScreenNameGeneratorFunc) Generate(ctx context.Context, companyID, userID int64, emailAddress string) (string, error) {
	return f(ctx, companyID, userID, emailAddress)
}

const maxScreenNameAttempts = 100

// DefaultScreenNameGenerator derives the screen name from the local part of
// the email address, folded to ASCII lower case. Collisions with other users
// get a numeric suffix.
type DefaultScreenNameGenerator struct {
	users repository.UserStore
}

// NewDefaultScreenNameGenerator checks uniqueness against users. A nil store
// skips the check.
func NewDefaultScreenNameGenerator(users repository.UserStore) *DefaultScreenNameGenerator {
	return &DefaultScreenNameGenerator{users: users}
}

func (g *DefaultScreenNameGenerator) Generate(ctx context.Context, companyID, userID int64, emailAddress string) (string, error) {
	base := NormalizeScreenName(emailLocalPart(emailAddress))
	switch {
	case base == "":
		base = strconv.FormatInt(userID, 10)
	case isDigits(base):
		base = "user." + base
	}
	if g.users == nil {
		return base, nil
	}

	candidate := base
	for i := 1; i <= maxScreenNameAttempts; i++ {
		existing, err := g.users.FindUser(ctx, companyID, candidate, "")
		if errors.Is(err, repository.ErrUserNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("check screen name %q: %w", candidate, err)
		}
		if existing.ID == userID {
			return candidate, nil
		}
		candidate = base + "." + strconv.Itoa(i)
	}
	return "", fmt.Errorf("no free screen name for %q after %d attempts", base, maxScreenNameAttempts)
}

// NormalizeScreenName strips accents, lower-cases and replaces characters
// outside [a-z0-9._-] with a period.
func NormalizeScreenName(s string) string {
	// chains keep state, so one per call
	foldAccents := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(foldAccents, s)
	if err != nil {
		folded = s
	}
	folded = cases.Lower(language.Und).String(folded)

	var b strings.Builder
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('.')
		}
	}
	return strings.Trim(b.String(), ".")
}

func emailLocalPart(email string) string {
	if i := strings.LastIndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
