package assessment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "already clean", in: "example.com", want: "example.com"},
		{name: "uppercase", in: "Example.COM", want: "example.com"},
		{name: "strips scheme and path characters", in: "https://example.com/", want: "httpsexample.com"},
		{name: "strips spaces and underscores", in: " my_site.org ", want: "mysite.org"},
		{name: "trailing dot", in: "example.com.", want: "example.com"},
		{name: "non ascii", in: "exämple.com", want: "exmple.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDomain(tt.in))
		})
	}
}

func TestValidateDomain(t *testing.T) {
	assert.NoError(t, ValidateDomain("example.com"))
	assert.NoError(t, ValidateDomain("localhost"))
	assert.NoError(t, ValidateDomain("a-b.example.co.uk"))

	assert.ErrorIs(t, ValidateDomain(""), ErrInvalidDomain)
	assert.ErrorIs(t, ValidateDomain("example..com"), ErrInvalidDomain)
	assert.ErrorIs(t, ValidateDomain(".example.com"), ErrInvalidDomain)
	assert.ErrorIs(t, ValidateDomain("-bad.com"), ErrInvalidDomain)
	assert.ErrorIs(t, ValidateDomain("bad-.com"), ErrInvalidDomain)
	assert.ErrorIs(t, ValidateDomain(strings.Repeat("a", 64)+".com"), ErrInvalidDomain)

	long := strings.Repeat(strings.Repeat("a", 60)+".", 5) + "com"
	require.Greater(t, len(long), MaxDomainLength)
	assert.ErrorIs(t, ValidateDomain(long), ErrInvalidDomain)
}

func TestNewRequest(t *testing.T) {
	req, err := NewRequest("Example.com", "teen", "EU")
	require.NoError(t, err)
	assert.Equal(t, Request{Domain: "example.com", Audience: AudienceTeen, Region: "EU"}, req)

	req, err = NewRequest("example.com", "", "")
	require.NoError(t, err)
	assert.Equal(t, AudienceAdult, req.Audience)
	assert.Equal(t, DefaultRegion, req.Region)

	_, err = NewRequest("   ", "adult", "US")
	assert.ErrorIs(t, err, ErrMissingDomain)

	_, err = NewRequest("!!!", "adult", "US")
	assert.ErrorIs(t, err, ErrInvalidDomain)
}

func TestAudienceLabel(t *testing.T) {
	assert.Equal(t, "Adult", ParseAudience("adult").Label())
	assert.Equal(t, "Teen (13–17)", ParseAudience("TEEN").Label())
	assert.Equal(t, "Child (under 13) — address the parent as the audience", ParseAudience("child").Label())
	assert.Equal(t, AudienceAdult, ParseAudience("grandparent"))
}

func TestRequestCacheKey(t *testing.T) {
	req := Request{Domain: "example.com", Audience: AudienceChild, Region: "BR"}
	assert.Equal(t, "example.com|child|BR", req.CacheKey())
}
