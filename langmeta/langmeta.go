// Package langmeta provides the registry of languages supported by Paradox
// localisation files and maps any accepted spelling of a language (ISO
// code, display name, native name, or filename token) to the token used in
// localisation filenames and headers, e.g. "english" or "simp_chinese".
package langmeta

import (
	"strings"

	"golang.org/x/text/language"
)

// DefaultToken is returned for input that cannot be resolved.
const DefaultToken = "english"

// Meta describes one supported localisation language.
type Meta struct {
	// Token is the filename/header token ("simp_chinese").
	Token string
	// Code is the ISO/BCP-47 code used by project settings ("zh-CN").
	Code string
	// Name is the native display name.
	Name string
	// EnglishName is the English display name.
	EnglishName string
}

// HeaderKey returns the file header marker, e.g. "l_english".
func (m Meta) HeaderKey() string {
	return HeaderKey(m.Token)
}

// Registry lists the supported languages in header order.
var Registry = []Meta{
	{Token: "english", Code: "en", Name: "English", EnglishName: "English"},
	{Token: "simp_chinese", Code: "zh-CN", Name: "简体中文", EnglishName: "Simplified Chinese"},
	{Token: "french", Code: "fr", Name: "Français", EnglishName: "French"},
	{Token: "german", Code: "de", Name: "Deutsch", EnglishName: "German"},
	{Token: "spanish", Code: "es", Name: "Español", EnglishName: "Spanish"},
	{Token: "russian", Code: "ru", Name: "Русский", EnglishName: "Russian"},
	{Token: "polish", Code: "pl", Name: "Polski", EnglishName: "Polish"},
	{Token: "japanese", Code: "ja", Name: "日本語", EnglishName: "Japanese"},
	{Token: "korean", Code: "ko", Name: "한국어", EnglishName: "Korean"},
	{Token: "turkish", Code: "tr", Name: "Türkçe", EnglishName: "Turkish"},
	{Token: "braz_por", Code: "pt-BR", Name: "Português do Brasil", EnglishName: "Brazilian Portuguese"},
}

// aliases maps every lowercased spelling to its registry entry.
var aliases = buildAliases()

func buildAliases() map[string]Meta {
	m := make(map[string]Meta, len(Registry)*5)
	for _, meta := range Registry {
		for _, alias := range []string{
			meta.Token,
			meta.HeaderKey(),
			meta.Code,
			strings.ReplaceAll(meta.Code, "-", "_"),
			meta.Name,
			meta.EnglishName,
		} {
			m[strings.ToLower(alias)] = meta
		}
	}
	// Common spellings that are not derivable from the table.
	m["chinese"] = m["simp_chinese"]
	m["zh"] = m["simp_chinese"]
	m["zh-hans"] = m["simp_chinese"]
	m["portuguese"] = m["braz_por"]
	m["pt"] = m["braz_por"]
	return m
}

// HeaderKey returns the header marker for a token, e.g. "l_english".
func HeaderKey(token string) string {
	return "l_" + token
}

// Headers returns the reserved header markers of all supported languages.
// Lines whose key starts with one of these are file headers, not entries.
func Headers() []string {
	headers := make([]string, len(Registry))
	for i, m := range Registry {
		headers[i] = m.HeaderKey()
	}
	return headers
}

func canonicalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

// Lookup resolves a language identifier to its registry entry.
// The second return value is false when nothing matched.
func Lookup(id string) (Meta, bool) {
	key := strings.ToLower(strings.TrimSpace(id))
	if key == "" {
		return Meta{}, false
	}
	if m, ok := aliases[key]; ok {
		return m, true
	}
	if m, ok := aliases[strings.ToLower(canonicalize(key))]; ok {
		return m, true
	}

	// BCP-47 fallback: "en-GB", "zh-Hans-CN", "pt-PT" resolve by base language.
	tag, err := language.Parse(canonicalize(key))
	if err != nil {
		return Meta{}, false
	}
	base, _ := tag.Base()
	if m, ok := aliases[base.String()]; ok {
		return m, true
	}
	return Meta{}, false
}

// ToLanguageToken maps a project's configured source language to the
// filename token. It never fails: unknown input yields DefaultToken, so a
// misconfigured project degrades to "no files grouped".
func ToLanguageToken(id string) string {
	if m, ok := Lookup(id); ok {
		return m.Token
	}
	return DefaultToken
}

// Resolve returns best-effort metadata for a language identifier.
// Unknown identifiers are passed through as the token.
func Resolve(id string) Meta {
	if m, ok := Lookup(id); ok {
		return m
	}
	return Meta{Token: id, Name: id, EnglishName: id}
}
