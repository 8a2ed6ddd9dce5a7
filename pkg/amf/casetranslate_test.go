package amf

import "testing"

func TestCaseTranslateRoundTrip(t *testing.T) {
	cases := []struct {
		host string // what the host-language (snake_case) name looks like (encode input / decode output)
		wire string // what appears on the wire (encode output / decode input)
	}{
		{"a_b", "aB"},
		{"c_d_e", "cDE"},
		{"already_plain", "alreadyPlain"},
		{"no_underscores_here_at_all_x", "noUnderscoresHereAtAllX"},
		{"x", "x"},
		{"", ""},
	}
	for _, c := range cases {
		if got := decodeTranslateCase(c.wire); got != c.host {
			t.Errorf("decodeTranslateCase(%q) = %q, want %q", c.wire, got, c.host)
		}
		if got := encodeTranslateCase(c.host); got != c.wire {
			t.Errorf("encodeTranslateCase(%q) = %q, want %q", c.host, got, c.wire)
		}
	}

	// A trailing underscore has no letter after it, so encoding drops it
	// and decoding cannot bring it back: this case only holds one way.
	if got := encodeTranslateCase("trailing_"); got != "trailing" {
		t.Errorf("encodeTranslateCase(%q) = %q, want %q", "trailing_", got, "trailing")
	}
}

func TestCaseTranslateNonASCIIPassesThrough(t *testing.T) {
	in := "café_x"
	if got := decodeTranslateCase(in); got != "café_x" {
		t.Errorf("decodeTranslateCase(%q) = %q", in, got)
	}
}
