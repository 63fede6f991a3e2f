package shared

import (
	"strings"

	"golang.org/x/text/cases"
)

// NormalizeEmail case-folds and trims an address so it can serve as a key.
// A Caser is stateful, so one is built per call.
func NormalizeEmail(email string) string {
	return cases.Fold().String(strings.TrimSpace(email))
}
