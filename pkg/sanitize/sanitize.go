// Package sanitize cleans visitor input before it is stored or emailed.
package sanitize

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

var (
	validate = validator.New()

	entityReplacer = strings.NewReplacer(
		"&", "&amp;",
		`"`, "&quot;",
		"'", "&#x27;",
		"<", "&lt;",
		">", "&gt;",
		"/", "&#x2F;",
		`\`, "&#x5C;",
		"`", "&#96;",
	)

	emailPolicy = newEmailPolicy()
)

func newEmailPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "strong", "em", "h1", "h2", "h3", "ul", "ol", "li")
	return p
}

// String trims input and escapes HTML-significant characters.
func String(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}
	return entityReplacer.Replace(trimmed)
}

// Email validates and normalizes an address. Invalid input yields "".
func Email(input string) string {
	trimmed := strings.ToLower(strings.TrimSpace(input))
	if trimmed == "" {
		return ""
	}
	if err := validate.Var(trimmed, "email"); err != nil {
		return ""
	}
	return normalizeEmail(trimmed)
}

// normalizeEmail applies the gmail canonicalization rules: googlemail.com
// becomes gmail.com, dots and "+tag" sub-addresses are dropped.
func normalizeEmail(addr string) string {
	at := strings.LastIndex(addr, "@")
	local, domain := addr[:at], addr[at+1:]
	if domain != "gmail.com" && domain != "googlemail.com" {
		return addr
	}
	if plus := strings.Index(local, "+"); plus >= 0 {
		local = local[:plus]
	}
	local = strings.ReplaceAll(local, ".", "")
	if local == "" {
		return addr
	}
	return local + "@gmail.com"
}

// HTML strips everything except a small set of formatting tags. Used for
// notification email bodies.
func HTML(input string) string {
	if input == "" {
		return ""
	}
	return emailPolicy.Sanitize(input)
}
