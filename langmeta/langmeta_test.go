package langmeta

import "testing"

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "pt_br", want: "pt-BR"},
		{in: " ZH-cn ", want: "zh-CN"},
		{in: "ru", want: "ru"},
		{in: "", want: ""},
	}

	for _, tc := range cases {
		got := canonicalize(tc.in)
		if got != tc.want {
			t.Fatalf("canonicalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestToLanguageToken(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "english", want: "english"},
		{in: "en", want: "english"},
		{in: "English", want: "english"},
		{in: "zh-CN", want: "simp_chinese"},
		{in: "zh_cn", want: "simp_chinese"},
		{in: "简体中文", want: "simp_chinese"},
		{in: "l_simp_chinese", want: "simp_chinese"},
		{in: "pt-BR", want: "braz_por"},
		{in: "Brazilian Portuguese", want: "braz_por"},
		{in: "en-GB", want: "english"},
		{in: "de-AT", want: "german"},
		{in: "zh-Hans-CN", want: "simp_chinese"},
		{in: "klingon", want: DefaultToken},
		{in: "", want: DefaultToken},
	}

	for _, tc := range cases {
		if got := ToLanguageToken(tc.in); got != tc.want {
			t.Fatalf("ToLanguageToken(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestHeaders(t *testing.T) {
	want := []string{
		"l_english", "l_simp_chinese", "l_french", "l_german", "l_spanish",
		"l_russian", "l_polish", "l_japanese", "l_korean", "l_turkish", "l_braz_por",
	}
	got := Headers()
	if len(got) != len(want) {
		t.Fatalf("Headers() returned %d markers, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Headers()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestResolve(t *testing.T) {
	t.Run("known", func(t *testing.T) {
		got := Resolve("fr")
		if got.Token != "french" || got.HeaderKey() != "l_french" {
			t.Fatalf("unexpected result: %#v", got)
		}
	})

	t.Run("unknown passthrough", func(t *testing.T) {
		got := Resolve("zz")
		if got.Token != "zz" || got.Name != "zz" {
			t.Fatalf("unexpected unknown result: %#v", got)
		}
	})
}
