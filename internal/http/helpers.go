package http

import (
	"errors"
	"net/http"
	"strings"

	"monthlynet/internal/core"
)

const (
	themeCookie = "theme"
	themeDark   = "dark"
	themeLight  = "light"
)

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// themeFromRequest returns "dark" or "light" from the theme cookie.
func themeFromRequest(r *http.Request) string {
	if c, err := r.Cookie(themeCookie); err == nil && c.Value == themeDark {
		return themeDark
	}
	return themeLight
}

// isHTMX reports whether the request was issued by htmx.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// validationMessage maps domain validation errors to user-facing text.
// ok is false for errors that are not caused by the input.
func validationMessage(err error) (msg string, ok bool) {
	switch {
	case errors.Is(err, core.ErrEmptyName):
		return "Please enter a bill name.", true
	case errors.Is(err, core.ErrNameTooLong):
		return "Bill names are limited to 200 characters.", true
	case errors.Is(err, core.ErrInvalidAmount):
		return "Please enter a valid, non-negative amount.", true
	case errors.Is(err, core.ErrInvalidDueDay):
		return "Due day must be between 1 and 31.", true
	case errors.Is(err, core.ErrNonFiniteBalance):
		return "Balances must be finite numbers.", true
	}
	return "", false
}
