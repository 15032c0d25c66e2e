//go:build go1.18

package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseFieldID tests that parsing never panics on arbitrary input
// and always returns either a valid ID or an error.
func FuzzParseFieldID(f *testing.F) {
	f.Add("")
	f.Add("username")
	f.Add("id_username_1")
	f.Add("'; DROP TABLE users;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))
	f.Add("email\x00suffix")

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseFieldID(input)
		if err == nil {
			roundTrip, err2 := ParseFieldID(id.String())
			if err2 != nil {
				t.Errorf("valid field id failed round-trip: %v", err2)
			}
			if roundTrip != id {
				t.Error("round-trip changed field id")
			}
		}

		if !utf8.ValidString(input) && err == nil {
			t.Error("non-UTF8 input was accepted")
		}
	})
}

// FuzzParseSessionID checks that accepted session IDs round-trip.
func FuzzParseSessionID(f *testing.F) {
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("invalid")

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseSessionID(input)
		if err != nil {
			return
		}
		if id.IsNil() {
			t.Error("nil session id was accepted")
		}
		roundTrip, err := ParseSessionID(id.String())
		if err != nil || roundTrip != id {
			t.Errorf("session id failed round-trip: %v", err)
		}
	})
}
