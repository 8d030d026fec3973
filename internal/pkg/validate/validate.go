// Package validate holds the pure field validators for the checkout form.
//
// Each function returns a human-readable reason string, or "" when the
// value is valid. Reasons are user-facing and rendered inline by the
// checkout views, so they are never wrapped in errors.
package validate

import (
	"regexp"
	"strings"
)

// User-facing validation messages.
const (
	MsgAddressRequired = "Необходимо указать адрес"
	MsgAddressTooShort = "Укажите настоящий адрес"
	MsgEmailRequired   = "Необходимо указать email"
	MsgEmailInvalid    = "Некорректный email"
	MsgPhoneRequired   = "Необходимо указать телефон"
	MsgPhoneInvalid    = "Некорректный телефон"
	MsgPaymentRequired = "Выберите способ оплаты"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
)

// Address requires a non-blank value of at least 5 trimmed characters.
func Address(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return MsgAddressRequired
	}
	if len([]rune(trimmed)) < 5 {
		return MsgAddressTooShort
	}
	return ""
}

// Email is the strict form used at the submission gate: empty fails.
func Email(s string) string {
	if strings.TrimSpace(s) == "" {
		return MsgEmailRequired
	}
	return EmailLenient(s)
}

// EmailLenient accepts an empty value and otherwise checks the
// local@domain.tld shape.
func EmailLenient(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	if !emailPattern.MatchString(s) {
		return MsgEmailInvalid
	}
	return ""
}

// Phone is the strict form used at the submission gate: empty fails.
func Phone(s string) string {
	if strings.TrimSpace(s) == "" {
		return MsgPhoneRequired
	}
	return PhoneLenient(s)
}

// PhoneLenient accepts an empty value and otherwise requires 10-15 digits
// with an optional leading +.
func PhoneLenient(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	if !phonePattern.MatchString(s) {
		return MsgPhoneInvalid
	}
	return ""
}
