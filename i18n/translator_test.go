package i18n

import (
	"testing"

	"golang.org/x/text/language"
)

func TestTranslator_DefaultAndLocalized(t *testing.T) {
	data := map[string]string{"received": "15", "limit": "10"}
	if msg := T("maximum", data); msg != "15 is greater than 10" {
		t.Fatalf("unexpected english message %q", msg)
	}
	es := Default().For(language.MustParse("es-ES"))
	if msg := es.Message("minimum", map[string]string{"received": "5", "limit": "10"}); msg != "5 es menor que 10" {
		t.Fatalf("unexpected spanish message %q", msg)
	}
	ja := Default().For(language.Japanese)
	if msg := ja.Message("maximum", data); msg == T("maximum", data) {
		t.Fatalf("expected japanese message, got %q", msg)
	}
	// unsupported languages fall back to english
	fr := Default().For(language.French)
	if msg := fr.Message("maximum", data); msg != "15 is greater than 10" {
		t.Fatalf("unexpected fallback %q", msg)
	}
}

func TestCatalog_CloneSetDoesNotLeak(t *testing.T) {
	c := Default().Clone().Set(language.English, "minimum", "This is a custom error message with [[received]] and [[limit]]")
	got := c.For(language.English).Message("minimum", map[string]string{"received": "5", "limit": "10"})
	if got != "This is a custom error message with 5 and 10" {
		t.Fatalf("unexpected custom message %q", got)
	}
	if T("minimum", map[string]string{"received": "5", "limit": "10"}) != "5 is less than 10" {
		t.Fatal("default catalog was modified")
	}
}

func TestRender(t *testing.T) {
	cases := map[string]string{
		"[[a]] and [[b]]": "1 and [[b]]",
		"no tokens":       "no tokens",
		"[[a]":            "[[a]",
	}
	for in, want := range cases {
		if got := Render(in, map[string]string{"a": "1"}); got != want {
			t.Errorf("Render(%q) = %q, want %q", in, got, want)
		}
	}
	if Default().Template(language.English, "nope") != "nope" {
		t.Error("unknown key should render as itself")
	}
}
