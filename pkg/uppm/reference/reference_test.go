package reference

import "testing"

func TestParseTextBasic(t *testing.T) {
	cases := []struct {
		in   string
		want Partial
	}{
		{"foo", Partial{Name: "foo"}},
		{"foo:1.2.3", Partial{Name: "foo", Version: "1.2.3"}},
		{"foo@https://example.com/repo.git", Partial{Name: "foo", RepositoryURL: "https://example.com/repo.git"}},
		{"foo:1.2.3@https://example.com/repo.git", Partial{Name: "foo", Version: "1.2.3", RepositoryURL: "https://example.com/repo.git"}},
		{" foo : nightly build @ https://example.com ", Partial{Name: "foo", Version: "nightly build", RepositoryURL: "https://example.com"}},
	}

	for _, c := range cases {
		got, err := ParseText(c.in)
		if err != nil {
			t.Fatalf("ParseText(%q) error: %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("ParseText(%q) = %+v, want %+v", c.in, got, c.want)
		}
	}
}

func TestParseTextInvalid(t *testing.T) {
	cases := []string{"", "  ", "foo:bad:version", "fo/o", "na*me"}
	for _, s := range cases {
		if _, err := ParseText(s); err == nil {
			t.Errorf("ParseText(%q) expected error", s)
		}
	}
}

func TestParseURI(t *testing.T) {
	got, err := ParseURI("uppm-ref:myapp/foo:1.2.3@https%3A%2F%2Fexample.com%2Frepo.git")
	if err != nil {
		t.Fatalf("ParseURI error: %v", err)
	}
	want := Partial{Name: "foo", Version: "1.2.3", RepositoryURL: "https://example.com/repo.git", TargetApp: "myapp"}
	if got != want {
		t.Errorf("ParseURI = %+v, want %+v", got, want)
	}
}

func TestParseURIMissingTargetApp(t *testing.T) {
	cases := []string{"uppm-ref:foo", "notauri:myapp/foo", "uppm-ref:"}
	for _, s := range cases {
		if _, err := ParseURI(s); err == nil {
			t.Errorf("ParseURI(%q) expected error", s)
		}
	}
}

func TestParseTextRoundTripsThroughURI(t *testing.T) {
	orig := "uppm-ref:myapp/foo:1.2.3@https%3A%2F%2Fexample.com%2Frepo.git"
	p, err := ParseURI(orig)
	if err != nil {
		t.Fatal(err)
	}
	// Reconstructing the text form (ignoring the URI scheme/target-app
	// wrapper, which ParseText never produces) should parse back to the
	// same Partial.
	reparsed, err := ParseText(p.String())
	if err != nil {
		t.Fatal(err)
	}
	if !reparsed.Equal(p) {
		t.Errorf("round-trip mismatch: %+v vs %+v", reparsed, p)
	}
}

func TestEqualityCaseInsensitive(t *testing.T) {
	a := Partial{Name: "Foo", Version: "1.2.3", RepositoryURL: "HTTPS://Example.com"}
	b := Partial{Name: "foo", Version: "1.2.3", RepositoryURL: "https://example.com"}
	if !a.Equal(b) {
		t.Error("expected case-insensitive equality")
	}
}

func TestClassify(t *testing.T) {
	cases := map[string]Class{
		"":        ClassEmpty,
		"latest":  ClassLatest,
		"Latest":  ClassLatest,
		"LATEST":  ClassLatest,
		"1.2.3":   ClassSemantical,
		"1":       ClassSemantical,
		"nightly": ClassSpecial,
		"2.3-rc1": ClassSpecial,
	}
	for v, want := range cases {
		if got := Classify(v); got != want {
			t.Errorf("Classify(%q) = %v, want %v", v, got, want)
		}
	}
}

func TestMatchesDefaultComparator(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"1.2.3", "1.2.3", true},
		{"1.2", "1.2.0", true},
		{"latest", "latest", true},
		{"nightly", "nightly", true},
		{"Nightly", "nightly", true},
		{"nightly", "beta", false},
		{"", "", true},
		{"1.2.3", "nightly", false},
		{"", "1.2.3", false},
	}
	for _, c := range cases {
		if got := DefaultVersionComparator(c.a, c.b); got != c.want {
			t.Errorf("DefaultVersionComparator(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestPartialMatches(t *testing.T) {
	p := Partial{Name: "Foo", Version: "1.2.3"}
	other := Partial{Name: "foo", Version: "1.2.3"}
	if !p.Matches(other, nil) {
		t.Error("expected match")
	}

	withRepo := Partial{Name: "foo", Version: "1.2.3", RepositoryURL: "https://example.com"}
	if p.Matches(withRepo, nil) {
		t.Error("expected mismatch: one has a repository, the other doesn't")
	}
}
