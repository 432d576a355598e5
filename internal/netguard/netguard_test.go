package netguard

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsBlocked(t *testing.T) {
	blocked := []string{
		"127.0.0.1",
		"10.1.2.3",
		"172.16.0.1",
		"192.168.1.1",
		"169.254.169.254",
		"0.0.0.0",
		"::1",
		"fe80::1",
		"fd00::1",
	}
	for _, s := range blocked {
		assert.True(t, IsBlocked(net.ParseIP(s)), s)
	}

	public := []string{"8.8.8.8", "1.1.1.1", "93.184.216.34", "2606:4700::1111"}
	for _, s := range public {
		assert.False(t, IsBlocked(net.ParseIP(s)), s)
	}
}

func TestCheckTargetRejectsBadURLs(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"file scheme", "file:///etc/passwd"},
		{"ftp scheme", "ftp://example.com/"},
		{"no host", "http:///path"},
		{"loopback literal", "http://127.0.0.1/"},
		{"metadata endpoint", "http://169.254.169.254/latest/meta-data/"},
		{"private literal", "https://192.168.0.10/admin"},
		{"ipv6 loopback", "http://[::1]:8080/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CheckTarget(context.Background(), tt.url)
			assert.Error(t, err)
		})
	}
}

func TestCheckTargetAcceptsPublicLiteral(t *testing.T) {
	u, err := CheckTarget(context.Background(), "http://93.184.216.34/")
	require.NoError(t, err)
	assert.Equal(t, "93.184.216.34", u.Hostname())
}

func TestSafeDialContextBlocksPrivateAddr(t *testing.T) {
	dial := SafeDialContext(&net.Dialer{})
	_, err := dial(context.Background(), "tcp", "127.0.0.1:80")
	assert.Error(t, err)

	_, err = dial(context.Background(), "tcp", "169.254.169.254:80")
	assert.Error(t, err)
}
