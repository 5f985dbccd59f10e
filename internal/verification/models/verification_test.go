package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeIdentifier(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"trims bare token", "  GEZDGNBVGY3TQOJQGEZDGNBVGY \n", "GEZDGNBVGY3TQOJQGEZDGNBVGY"},
		{"serial passes through", "SN-001", "SN-001"},
		{"verify url cert param", "https://verify.example.com/verify?cert=GEZDGNBVGY3TQOJQGEZDGNBVGY", "GEZDGNBVGY3TQOJQGEZDGNBVGY"},
		{"certificate_id param", "HTTP://verify.example.com/v?certificate_id=abc", "abc"},
		{"cert wins over certificate_id", "https://x.test/verify?certificate_id=b&cert=a", "a"},
		{"url without token", "https://verify.example.com/verify", ""},
		{"malformed url", "http://%zz", ""},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeIdentifier(tt.raw))
		})
	}
}

func TestReasonCoversEveryStatus(t *testing.T) {
	for _, s := range []Status{StatusValid, StatusExpired, StatusRevoked, StatusNotFound, StatusTampered} {
		assert.NotEmpty(t, Reason(s), s)
	}
}
