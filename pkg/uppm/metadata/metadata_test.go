package metadata

import (
	"strings"
	"testing"

	"uppm/pkg/uppm/reference"
)

func csup() Delimiters { return Delimiters{Open: "/*", Close: "*/"} }
func ps1() Delimiters  { return Delimiters{Open: "<#", Close: "#>"} }

func TestExtractBasicCsup(t *testing.T) {
	text := `/*
uppm 1.0.0.0
{
  name: hello-world
  version: 1.0.0
  author: someone
  license: MIT
  dependencies: [
    other-pkg:1.2.3
  ]
}
*/
Write-Host "hello"
`
	self := reference.Complete{Name: "hello-world", Version: "1.0.0", RepositoryURL: "https://example.com/repo.git"}
	meta, err := Extract(text, csup(), self)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if meta.Name != "hello-world" {
		t.Errorf("Name = %q", meta.Name)
	}
	if meta.Author != "someone" {
		t.Errorf("Author = %q", meta.Author)
	}
	if meta.License != "MIT" {
		t.Errorf("License = %q", meta.License)
	}
	if len(meta.Dependencies) != 1 || meta.Dependencies[0].Name != "other-pkg" {
		t.Errorf("Dependencies = %+v", meta.Dependencies)
	}
	if meta.Self.RepositoryURL != self.RepositoryURL {
		t.Errorf("Self.RepositoryURL = %q", meta.Self.RepositoryURL)
	}
	if !strings.Contains(meta.RawText, "hello-world") {
		t.Errorf("RawText missing expected content: %q", meta.RawText)
	}
}

func TestExtractPs1Delimiters(t *testing.T) {
	text := `<#
uppm 1.0.0.0
{ name: "foo", version: "2.0.0" }
#>
Write-Output "hi"
`
	self := reference.Complete{Name: "foo", Version: "2.0.0"}
	meta, err := Extract(text, ps1(), self)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if meta.Name != "foo" {
		t.Errorf("Name = %q", meta.Name)
	}
}

func TestExtractMalformedHeaderNoMatch(t *testing.T) {
	_, err := Extract("no header here at all", csup(), reference.Complete{})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestExtractMalformedHeaderBadVersion(t *testing.T) {
	text := `/*
uppm not-a-version
{ name: foo, version: 1.0.0 }
*/`
	_, err := Extract(text, csup(), reference.Complete{})
	if err == nil {
		t.Fatal("expected error for unparsable min-core-version")
	}
}

func TestExtractIncompatibleCore(t *testing.T) {
	text := `/*
uppm 999.0.0.0
{ name: "foo", version: "1.0.0" }
*/`
	_, err := Extract(text, csup(), reference.Complete{})
	if err == nil {
		t.Fatal("expected incompatible-core error")
	}
}

func TestExtractMalformedMetadataMissingFields(t *testing.T) {
	cases := []string{
		`/*
uppm 1.0.0.0
{ version: "1.0.0" }
*/`,
		`/*
uppm 1.0.0.0
{ name: "foo" }
*/`,
	}
	for _, text := range cases {
		if _, err := Extract(text, csup(), reference.Complete{}); err == nil {
			t.Errorf("expected error for %q", text)
		}
	}
}

func TestExtractTagsAndImports(t *testing.T) {
	text := `/*
uppm 1.0.0.0
{
  name: foo
  version: 1.0.0
  tags: ["alpha", "beta"]
  imports: ["lib-a:1.0", "lib-b"]
}
*/`
	meta, err := Extract(text, csup(), reference.Complete{Name: "foo", Version: "1.0.0"})
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if len(meta.Tags) != 2 || meta.Tags[0] != "alpha" {
		t.Errorf("Tags = %+v", meta.Tags)
	}
	if len(meta.Imports) != 2 || meta.Imports[1].Name != "lib-b" {
		t.Errorf("Imports = %+v", meta.Imports)
	}
}
