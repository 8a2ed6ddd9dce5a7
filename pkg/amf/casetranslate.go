package amf

import "strings"

// decodeTranslateCase rewrites an inbound wire property name by replacing
// every uppercase ASCII letter X with "_x" (spec §4.4). Non-ASCII bytes
// pass through unchanged (spec §9: "explicit ASCII-only transforms, no
// locale-dependent case operations").
func decodeTranslateCase(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 4)
	for _, r := range name {
		if r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
			b.WriteByte(byte(r - 'A' + 'a'))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// encodeTranslateCase rewrites an outbound property name by stripping
// each underscore and uppercasing the letter that follows it (spec
// §4.4). A trailing underscore with nothing after it is dropped.
func encodeTranslateCase(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	runes := []rune(name)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '_' && i+1 < len(runes) {
			next := runes[i+1]
			if next >= 'a' && next <= 'z' {
				b.WriteRune(next - 'a' + 'A')
			} else {
				b.WriteRune(next)
			}
			i++
			continue
		}
		if r == '_' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
