package i18n

import "testing"

func clearLocaleEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LANGUAGE", "")
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LANG", "")
}

func TestDetectLanguagePriorityAndNormalization(t *testing.T) {
	t.Run("LANGUAGE has highest priority", func(t *testing.T) {
		clearLocaleEnv(t)
		t.Setenv("LANGUAGE", "ru_RU.UTF-8:en_US")
		t.Setenv("LC_ALL", "de_DE.UTF-8")

		if got := detectLanguage(); got != "ru_RU" {
			t.Fatalf("detectLanguage() = %q, want %q", got, "ru_RU")
		}
	})

	t.Run("C and POSIX are skipped", func(t *testing.T) {
		clearLocaleEnv(t)
		t.Setenv("LANGUAGE", "C")
		t.Setenv("LC_ALL", "POSIX")
		t.Setenv("LC_MESSAGES", "fr_FR.UTF-8")

		if got := detectLanguage(); got != "fr_FR" {
			t.Fatalf("detectLanguage() = %q, want %q", got, "fr_FR")
		}
	})

	t.Run("falls back to en", func(t *testing.T) {
		clearLocaleEnv(t)
		if got := detectLanguage(); got != "en" {
			t.Fatalf("detectLanguage() = %q, want %q", got, "en")
		}
	})
}

func TestTAndNFallbackWhenUninitialized(t *testing.T) {
	old := po
	po = nil
	t.Cleanup(func() { po = old })

	if got := T("Hello"); got != "Hello" {
		t.Fatalf("T fallback = %q, want %q", got, "Hello")
	}

	if got := N("file", "files", 1); got != "file" {
		t.Fatalf("N singular fallback = %q, want %q", got, "file")
	}

	if got := N("file", "files", 2); got != "files" {
		t.Fatalf("N plural fallback = %q, want %q", got, "files")
	}
}

func TestEmbeddedCatalog(t *testing.T) {
	old := po
	t.Cleanup(func() { po = old })

	Init("zh_CN")
	if got := T("Saved"); got != "已保存" {
		t.Fatalf("T(Saved) = %q, want the zh_CN translation", got)
	}
	if got := N("%d file changed", "%d files changed", 3); got != "%d 个文件已更改" {
		t.Fatalf("N() = %q", got)
	}
	if got := T("not in the catalog"); got != "not in the catalog" {
		t.Fatalf("T(unknown) = %q, want passthrough", got)
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"zh-CN":       "zh_CN",
		"de_DE.UTF-8": "de_DE",
		"sr_RS@latin": "sr_RS",
		"fr":          "fr",
		"":            "",
	}
	for in, want := range cases {
		if got := normalize(in); got != want {
			t.Fatalf("normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMatchFallsBackToBaseLanguage(t *testing.T) {
	available := []string{"de_DE", "zh_CN"}
	cases := []struct{ in, want string }{
		{"zh_CN", "zh_CN"},
		{"zh_cn", "zh_CN"},
		{"zh", "zh_CN"},
		{"zh_TW", "zh_CN"},
		{"de", "de_DE"},
		{"ru_RU", "ru_RU"},
	}
	for _, tc := range cases {
		if got := match(tc.in, available); got != tc.want {
			t.Fatalf("match(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestInitSelectsCatalogForBaseLanguage(t *testing.T) {
	oldPo, oldLang := po, lang
	t.Cleanup(func() { po, lang = oldPo, oldLang })

	Init("zh-Hans")
	if Lang() != "zh_CN" {
		t.Fatalf("Lang() = %q, want zh_CN", Lang())
	}
	if got := T("Saved"); got != "已保存" {
		t.Fatalf("T(Saved) = %q", got)
	}

	if langs := Languages(); len(langs) == 0 || langs[0] != "zh_CN" {
		t.Fatalf("Languages() = %v", langs)
	}
}
