package churches

import (
	"regexp"
	"strings"

	"github.com/bengobox/church-admin/internal/errs"
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	nonSlug    = regexp.MustCompile(`[^a-z0-9_-]+`)
)

// FormatCNPJ strips punctuation and renders the 14 digits as 00.000.000/0000-00.
func FormatCNPJ(raw string) (string, error) {
	digits := onlyDigits(raw)
	if len(digits) != 14 {
		return "", errs.Invalid("cnpj", "must contain 14 digits")
	}
	return digits[0:2] + "." + digits[2:5] + "." + digits[5:8] + "/" + digits[8:12] + "-" + digits[12:14], nil
}

// Slugify derives a URL slug from a church name.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = whitespace.ReplaceAllString(slug, "-")
	slug = nonSlug.ReplaceAllString(slug, "")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "igreja"
	}
	if len(slug) > 80 {
		slug = strings.TrimRight(slug[:80], "-")
	}
	return slug
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
