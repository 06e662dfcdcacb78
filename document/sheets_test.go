package document

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func sheetSources(d *Document) []string {
	out := make([]string, 0, len(d.Sheets))
	for _, s := range d.Sheets {
		out = append(out, s.Source)
	}
	return out
}

func TestCollectSheets_Embedded(t *testing.T) {
	d := parseDoc(t, `<html><head><style>p { color: red; }</style></head><body><p>x</p></body></html>`)
	d.CollectSheets(t.TempDir(), false, nil)

	if len(d.Sheets) != 1 {
		t.Fatalf("expected 1 sheet, got %d", len(d.Sheets))
	}
	if !strings.Contains(string(d.Sheets[0].Data), "color: red") {
		t.Errorf("sheet data = %q", d.Sheets[0].Data)
	}
	if findElement(d.Root, "style") != nil {
		t.Error("consumed <style> element still in tree")
	}
}

func TestCollectSheets_LinkedDisabled(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "site.css"), []byte("em { color: blue; }"), 0644); err != nil {
		t.Fatal(err)
	}

	d := parseDoc(t, `<html><head><link rel="stylesheet" href="site.css"></head><body><p>x</p></body></html>`)
	d.CollectSheets(dir, false, nil)

	if len(d.Sheets) != 0 {
		t.Fatalf("expected no sheets with external loading disabled, got %v", sheetSources(d))
	}
	if findElement(d.Root, "link") != nil {
		t.Error("consumed <link> element still in tree")
	}
}

func TestCollectSheets_Linked(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "site.css"), []byte("em { color: blue; }"), 0644); err != nil {
		t.Fatal(err)
	}

	d := parseDoc(t, `<html><head><link rel="stylesheet" href="site.css"></head><body><p>x</p></body></html>`)
	d.CollectSheets(dir, true, nil)

	if len(d.Sheets) != 1 {
		t.Fatalf("expected 1 sheet, got %v", sheetSources(d))
	}
	if d.Sheets[0].Source != "site.css" {
		t.Errorf("sheet source = %q, want %q", d.Sheets[0].Source, "site.css")
	}
}

func TestCollectSheets_ImportsPrecedeImporter(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "base.css"), []byte("p { color: green; }"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "site.css"), []byte(`@import "base.css"; em { color: blue; }`), 0644); err != nil {
		t.Fatal(err)
	}

	d := parseDoc(t, `<html><head><link rel="stylesheet" href="site.css"></head><body><p>x</p></body></html>`)
	d.CollectSheets(dir, true, nil)

	want := []string{"base.css", "site.css"}
	got := sheetSources(d)
	if len(got) != len(want) {
		t.Fatalf("sheets = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sheet %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCollectSheets_MissingFileContinues(t *testing.T) {
	d := parseDoc(t, `<html><head>
<link rel="stylesheet" href="missing.css">
<style>p { color: red; }</style>
</head><body><p>x</p></body></html>`)
	d.CollectSheets(t.TempDir(), true, nil)

	if len(d.Sheets) != 1 {
		t.Fatalf("expected embedded sheet only, got %v", sheetSources(d))
	}
}

func TestCollectSheets_EscapeRefused(t *testing.T) {
	dir := t.TempDir()
	secret := filepath.Join(dir, "secret.css")
	if err := os.WriteFile(secret, []byte("p { color: red; }"), 0644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}

	d := parseDoc(t, `<html><head><link rel="stylesheet" href="../secret.css"></head><body><p>x</p></body></html>`)
	d.CollectSheets(sub, true, nil)

	if len(d.Sheets) != 0 {
		t.Fatalf("expected path escape to be refused, got %v", sheetSources(d))
	}
}

func TestCollectSheets_ImportCycle(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.css"), []byte(`@import "b.css"; p { color: red; }`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.css"), []byte(`@import "a.css"; em { color: blue; }`), 0644); err != nil {
		t.Fatal(err)
	}

	d := parseDoc(t, `<html><head><link rel="stylesheet" href="a.css"></head><body><p>x</p></body></html>`)
	d.CollectSheets(dir, true, nil)

	got := sheetSources(d)
	if len(got) != 2 {
		t.Fatalf("expected 2 sheets from cyclic imports, got %v", got)
	}
}
