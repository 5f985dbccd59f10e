//go:build go1.18

package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParsePrincipalID checks that parsing never panics and valid ids round-trip.
func FuzzParsePrincipalID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")
	f.Add("'; DROP TABLE principals;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParsePrincipalID(input)
		if err == nil {
			roundTrip, err2 := ParsePrincipalID(id.String())
			if err2 != nil {
				t.Errorf("Valid ID failed round-trip: %v", err2)
			}
			if roundTrip != id {
				t.Error("Round-trip changed ID value")
			}
		}
		if !utf8.ValidString(input) && err == nil {
			t.Error("Non-UTF8 input was accepted")
		}
	})
}

// FuzzParseCertificateID checks certificate tokens are either rejected or canonical.
func FuzzParseCertificateID(f *testing.F) {
	f.Add("")
	f.Add("GEZDGNBVGY3TQOJQGEZDGNBVGY")
	f.Add("https://verify.example.com/verify?cert=ABC")
	f.Add("sn-001")

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseCertificateID(input)
		if err != nil {
			return
		}
		again, err := ParseCertificateID(id.String())
		if err != nil || again != id {
			t.Errorf("canonical token %q did not round-trip", id)
		}
	})
}
