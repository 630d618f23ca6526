package strtab

import "testing"

func TestInternIdempotent(t *testing.T) {
	tab := New()
	h1 := tab.Intern("update_player")
	h2 := tab.Intern("update_player")
	if h1 != h2 {
		t.Fatalf("interning the same string twice gave different handles: %v vs %v", h1, h2)
	}
	s, ok := tab.Lookup(h1)
	if !ok || s != "update_player" {
		t.Fatalf("Lookup(%v) = %q, %v; want %q, true", h1, s, ok, "update_player")
	}
}

func TestInternDistinctStrings(t *testing.T) {
	tab := New()
	names := []string{"a", "b", "ab", "ba", "foo.bar", "foo_bar", ""}
	seen := map[Handle]string{}
	for _, n := range names {
		h := tab.Intern(n)
		if prev, ok := seen[h]; ok && prev != n {
			t.Fatalf("hash collision in test fixture: %q and %q both hash to %v", prev, n, h)
		}
		seen[h] = n
	}
	for _, n := range names {
		h := Hash(n)
		s, ok := tab.Lookup(h)
		if !ok || s != n {
			t.Fatalf("Lookup(Hash(%q)) = %q, %v", n, s, ok)
		}
	}
}

func TestHashMatchesIntern(t *testing.T) {
	tab := New()
	h := tab.Intern("Sonic")
	if Hash("Sonic") != h {
		t.Fatalf("Hash and Intern disagree: %v vs %v", Hash("Sonic"), h)
	}
}

func TestLookupMissing(t *testing.T) {
	tab := New()
	if _, ok := tab.Lookup(Handle(0xdeadbeef)); ok {
		t.Fatalf("Lookup of a never-interned handle should report false")
	}
}

func TestOverflowBucket(t *testing.T) {
	// Force many strings through the same fixed-size bucket array to
	// exercise the overflow linked list, not just the empty-bucket path.
	tab := New()
	const n = 5000
	strs := make([]string, n)
	for i := 0; i < n; i++ {
		strs[i] = string(rune('a'+i%26)) + itoa(i)
	}
	handles := make([]Handle, n)
	for i, s := range strs {
		handles[i] = tab.Intern(s)
	}
	for i, s := range strs {
		got, ok := tab.Lookup(handles[i])
		if !ok || got != s {
			t.Fatalf("entry %d: Lookup = %q, %v; want %q, true", i, got, ok, s)
		}
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	neg := n < 0
	if neg {
		n = -n
	}
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
