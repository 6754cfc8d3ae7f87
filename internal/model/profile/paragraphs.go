package profile

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Paragraphs is a bio stored as a JSON array of strings. Reads also accept a
// JSON string or plain text, split on blank lines.
type Paragraphs []string

// Value implements driver.Valuer
func (p Paragraphs) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(p))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (p *Paragraphs) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*p = Paragraphs{}
		return nil
	case []byte:
		*p = ParseParagraphs(string(v))
		return nil
	case string:
		*p = ParseParagraphs(v)
		return nil
	default:
		return fmt.Errorf("unsupported bio column type %T", value)
	}
}

// ParseParagraphs decodes raw into paragraphs, tolerating every historic
// storage format.
func ParseParagraphs(raw string) Paragraphs {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Paragraphs{}
	}

	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		return compact(list)
	}

	var text string
	if err := json.Unmarshal([]byte(raw), &text); err == nil {
		if inner := strings.TrimSpace(text); strings.HasPrefix(inner, "[") {
			if err := json.Unmarshal([]byte(inner), &list); err == nil {
				return compact(list)
			}
		}
		raw = text
	}

	return compact(strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n\n"))
}

// String joins the paragraphs with blank lines.
func (p Paragraphs) String() string {
	return strings.Join(p, "\n\n")
}

func compact(parts []string) Paragraphs {
	out := make(Paragraphs, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
