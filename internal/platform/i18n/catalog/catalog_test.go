package catalog

import (
	"testing"
	"testing/fstest"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"locales/en-US/ledger.yaml": {Data: []byte(`locale: "en-US"
namespace: "ledger"
messages:
  "greeting": "Hello %s"
  "coins": "%d coins"
`)},
		"locales/id-ID/ledger.yaml": {Data: []byte(`locale: "id-ID"
namespace: "ledger"
messages:
  "greeting": "Halo %s"
`)},
	}
}

func TestLoadFromFS(t *testing.T) {
	t.Parallel()

	bundle, err := LoadFromFS(testFS())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := bundle.Locales(); len(got) != 2 || got[0] != "en-US" || got[1] != "id-ID" {
		t.Fatalf("locales = %v", got)
	}
	if got := len(bundle.NamespaceMessages("id-ID", "ledger")); got != 1 {
		t.Fatalf("id-ID ledger messages = %d, want 1", got)
	}
}

func TestLoadFromFSRequiresBaseLocale(t *testing.T) {
	t.Parallel()

	fsys := testFS()
	delete(fsys, "locales/en-US/ledger.yaml")
	if _, err := LoadFromFS(fsys); err == nil {
		t.Fatal("expected missing base locale error")
	}
}

func TestLoadFromFSRejectsMismatchedLocale(t *testing.T) {
	t.Parallel()

	fsys := testFS()
	fsys["locales/pt-BR/ledger.yaml"] = &fstest.MapFile{Data: []byte(`locale: "en-US"
namespace: "ledger"
messages:
  "x": "y"
`)}
	if _, err := LoadFromFS(fsys); err == nil {
		t.Fatal("expected locale mismatch error")
	}
}

func TestLoadFromFSRejectsDuplicateKeysAcrossNamespaces(t *testing.T) {
	t.Parallel()

	fsys := testFS()
	fsys["locales/en-US/extra.yaml"] = &fstest.MapFile{Data: []byte(`locale: "en-US"
namespace: "extra"
messages:
  "greeting": "again"
`)}
	if _, err := LoadFromFS(fsys); err == nil {
		t.Fatal("expected duplicate key error")
	}
}

func TestPrinterFallsBackToBaseLocale(t *testing.T) {
	t.Parallel()

	bundle := MustLoadFromFS(testFS())
	if got := bundle.Printer("id-ID").Sprintf("greeting", "Sari"); got != "Halo Sari" {
		t.Fatalf("id greeting = %q", got)
	}
	if got := bundle.Printer("id-ID").Sprintf("coins", 1500); got != "1.500 coins" {
		t.Fatalf("id coins = %q", got)
	}
	if got := bundle.Printer("fr-FR").Sprintf("coins", 1500); got != "1,500 coins" {
		t.Fatalf("fallback coins = %q", got)
	}
}

func TestMatch(t *testing.T) {
	t.Parallel()

	bundle := MustLoadFromFS(testFS())
	tests := map[string]string{
		"":                        BaseLocale,
		"id":                      "id-ID",
		"id-ID,id;q=0.9,en;q=0.8": "id-ID",
		"fr-FR":                   BaseLocale,
		"en-GB":                   BaseLocale,
	}
	for input, want := range tests {
		if got := bundle.Match(input); got != want {
			t.Fatalf("Match(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestMessageFallback(t *testing.T) {
	t.Parallel()

	bundle := MustLoadFromFS(testFS())
	if got, ok := bundle.Message("id-ID", "coins"); !ok || got != "%d coins" {
		t.Fatalf("Message fallback = %q, %v", got, ok)
	}
	if _, ok := bundle.Message("id-ID", "missing"); ok {
		t.Fatal("expected missing key")
	}
}
