package constants

import "testing"

func TestLookup(t *testing.T) {
	c, ok := Lookup("pi")
	if !ok {
		t.Fatal("pi should be known")
	}
	if c.Name != "Pi" || c.Symbol != "π" || c.Filename != "pi_digits.txt" {
		t.Fatalf("pi = %+v", c)
	}
	if _, ok := Lookup("tau"); ok {
		t.Fatal("tau should be unknown")
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName("e"); got != "Euler's number (e)" {
		t.Fatalf("got %q", got)
	}
	if got := DisplayName("nope"); got != "nope" {
		t.Fatalf("unknown id should pass through, got %q", got)
	}
}

func TestIdentify(t *testing.T) {
	c, ok := Identify("31415926535897932384626433832795028841971693993751")
	if !ok || c.ID != "pi" {
		t.Fatalf("got %+v ok=%v", c, ok)
	}
	if _, ok := Identify("00000000000000000000000000000000000000000000000000"); ok {
		t.Fatal("unknown prefix should not identify")
	}
}

func TestCatalogIntegrity(t *testing.T) {
	seen := make(map[string]bool, len(All))
	for _, c := range All {
		if seen[c.ID] {
			t.Fatalf("duplicate id %q", c.ID)
		}
		seen[c.ID] = true
		if len(c.KnownPrefix) != 50 {
			t.Fatalf("%s prefix length = %d", c.ID, len(c.KnownPrefix))
		}
		for _, r := range c.KnownPrefix {
			if r < '0' || r > '9' {
				t.Fatalf("%s prefix has non-digit %q", c.ID, r)
			}
		}
	}
}
