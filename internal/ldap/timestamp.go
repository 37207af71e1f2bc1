package ldap

import (
	"fmt"
	"strings"
	"time"

	ber "github.com/go-asn1-ber/asn1-ber"
)

// ParseGeneralizedTime parses an LDAP GeneralizedTime value such as
// modifyTimestamp ("20240501120000Z") or whenChanged ("20240501120000.0Z").
// A time zone designator is required.
func ParseGeneralizedTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty generalized time")
	}
	t, err := ber.ParseGeneralizedTime([]byte(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid generalized time %q: %w", value, err)
	}
	return t.UTC(), nil
}

// FormatGeneralizedTime renders t in UTC as YYYYMMDDHHMMSSZ.
func FormatGeneralizedTime(t time.Time) string {
	return t.UTC().Format("20060102150405Z")
}
