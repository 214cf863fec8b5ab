package http

import "strings"

// NormalizeCommand maps common natural phrasings onto slash commands so
// webhook users can type "balance" instead of "/balance". Anything not
// recognized is returned unchanged.
func NormalizeCommand(text string) string {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	switch lower {
	case "register", "onboard", "profile", "balance", "loans", "start", "help":
		return "/" + lower
	case "apply loan", "loan", "apply for a loan":
		return "/apply_loan"
	case "send otp", "otp":
		return "/send_otp"
	}

	if strings.HasPrefix(lower, "verify otp ") {
		return "/verify_otp " + strings.TrimSpace(trimmed[len("verify otp "):])
	}

	return trimmed
}
