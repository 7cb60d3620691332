package utils

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

const slugMaxLen = 120

// GenerateSlug lower-cases s and turns every run of non-alphanumerics into a
// single dash.
func GenerateSlug(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}
	return cutSlug(strings.Trim(b.String(), "-"), slugMaxLen)
}

func cutSlug(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Avoid splitting a multi-byte rune.
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return strings.Trim(s[:n], "-")
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

// EnsureUniqueSlug derives a slug from base and appends -2, -3, ... until
// exists reports it free. fallback is used when base has no usable characters.
func EnsureUniqueSlug(ctx context.Context, base, fallback string, exists func(context.Context, string) (bool, error)) (string, error) {
	slug := GenerateSlug(base)
	if slug == "" {
		slug = fallback
	}
	taken, err := exists(ctx, slug)
	if err != nil {
		return "", err
	}
	if !taken {
		return slug, nil
	}
	for i := 2; i < 1000; i++ {
		suffix := fmt.Sprintf("-%d", i)
		candidate := cutSlug(slug, slugMaxLen-len(suffix)) + suffix
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free slug for %q", slug)
}
