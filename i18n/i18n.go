// Package i18n translates the remis command line.
//
// T and N wrap gotext. Catalogs are embedded and selected by Init:
//
//	i18n.Init("")  // LANGUAGE, LC_ALL, LC_MESSAGES, LANG
//	fmt.Println(i18n.T("Saved"))
//	fmt.Println(i18n.N("%d file", "%d files", count))
package i18n

import (
	"embed"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/leonelquinteros/gotext"
)

// locales embeds the translation catalogs:
// locales/{lang}/LC_MESSAGES/remis.po
//
//go:embed all:locales
var locales embed.FS

const domain = "remis"

var (
	po   *gotext.Locale
	lang = "en"
)

// Init loads the catalog for l, or for the environment's language when
// l is empty. A language without its own catalog uses a catalog of the
// same base language, so "zh" and "zh-Hans" pick up zh_CN. Call Init
// once before T or N.
func Init(l string) {
	if l == "" {
		l = detectLanguage()
	} else {
		l = normalize(l)
	}
	lang = match(l, Languages())

	po = gotext.NewLocaleFSWithPath(lang, locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
}

// Lang returns the language selected by Init.
func Lang() string {
	return lang
}

// Languages returns the languages with an embedded catalog, sorted.
func Languages() []string {
	entries, err := fs.ReadDir(locales, "locales")
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out
}

// T translates a string. Untranslated strings are returned unchanged.
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	return po.Get(msgid)
}

// N translates a string with plural forms; without a catalog the
// singular is used for n == 1.
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

// match returns the catalog for l: an exact match, else the first
// catalog with the same base language, else l itself.
func match(l string, available []string) string {
	base, _, _ := strings.Cut(l, "_")
	for _, a := range available {
		if strings.EqualFold(a, l) {
			return a
		}
	}
	for _, a := range available {
		if ab, _, _ := strings.Cut(a, "_"); strings.EqualFold(ab, base) {
			return a
		}
	}
	return l
}

// normalize turns "zh-CN.UTF-8" or "sr_RS@latin" into "zh_CN" / "sr_RS".
func normalize(val string) string {
	if idx := strings.IndexAny(val, ".@"); idx >= 0 {
		val = val[:idx]
	}
	return strings.ReplaceAll(val, "-", "_")
}

// detectLanguage follows GNU gettext: LANGUAGE, LC_ALL, LC_MESSAGES,
// then LANG.
func detectLanguage() string {
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		val := os.Getenv(env)
		if env == "LANGUAGE" {
			// colon-separated preference list
			val, _, _ = strings.Cut(val, ":")
		}
		val = normalize(val)
		// "C" and "POSIX" mean no translation
		if val == "C" || val == "POSIX" || val == "" {
			continue
		}
		return val
	}
	return "en"
}
