// Package utils holds the identifier helpers used to name exported
// operations.
package utils

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonAlnum   = regexp.MustCompile(`[^A-Za-z0-9]+`)
	camelSplit = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

// RemoveAccents folds accented letters to their base form.
func RemoveAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// SplitWords splits a schema name into words. camelCase humps and every run of
// non-alphanumeric characters are word boundaries.
func SplitWords(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	s = camelSplit.ReplaceAllString(RemoveAccents(s), "$1 $2")

	var words []string
	for _, p := range nonAlnum.Split(s, -1) {
		if p != "" {
			words = append(words, p)
		}
	}
	return words
}

// ToPascalCase joins the words of s, each capitalized.
func ToPascalCase(s string) string {
	var b strings.Builder
	for _, w := range SplitWords(s) {
		b.WriteString(strings.ToUpper(w[:1]))
		b.WriteString(strings.ToLower(w[1:]))
	}
	return b.String()
}

// ToCamelCase is ToPascalCase with a lower-case first letter.
func ToCamelCase(s string) string {
	p := ToPascalCase(s)
	if p == "" {
		return ""
	}
	return strings.ToLower(p[:1]) + p[1:]
}

// OperationID names a class method as a single camelCase identifier, e.g.
// Inventory.get_items becomes inventoryGetItems.
func OperationID(class, method string) string {
	return ToCamelCase(class + " " + method)
}
