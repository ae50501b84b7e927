package intake

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "BE"

// NormalizePhone formats a phone number to E.164. If parsing fails, it returns the trimmed input.
func NormalizePhone(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}
