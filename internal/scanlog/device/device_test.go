package device

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

type DeviceSuite struct {
	suite.Suite
}

func TestDeviceSuite(t *testing.T) {
	suite.Run(t, new(DeviceSuite))
}

func (s *DeviceSuite) TestParse() {
	s.Run("empty user agent is unknown", func() {
		d := Parse("   ")
		s.Equal("Unknown", d.Browser)
		s.Equal("Unknown", d.OS)
		s.False(d.Mobile)
		s.Equal("Unknown Device", DisplayName(d))
	})

	s.Run("chrome on desktop", func() {
		d := Parse("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		s.Equal("Chrome", d.Browser)
		s.False(d.Mobile)
		s.Contains(DisplayName(d), "Chrome on")
	})

	s.Run("safari on iphone is mobile", func() {
		d := Parse("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")
		s.True(d.Mobile)
		s.Contains(d.OS, "iPhone")
	})

	s.Run("firefox on linux", func() {
		d := Parse("Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0")
		s.Equal("Firefox", d.Browser)
		s.Contains(d.OS, "Linux")
	})

	s.Run("display name has no stray whitespace", func() {
		name := DisplayName(Parse("Unknown/1.0"))
		s.NotEmpty(name)
		s.Equal(name, strings.TrimSpace(name))
		s.NotContains(name, "  ")
	})
}
