package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractLinks(t *testing.T) {
	links := ExtractLinks("see https://www.Example.com/path and http://discord.gg/abc plus example.org")
	require.Len(t, links, 2)
	assert.Equal(t, "Example.com", links[0].Host)
	assert.Equal(t, "https://www.Example.com", links[0].URL)
	assert.Equal(t, "discord.gg", links[1].Host)
}

func TestExtractLinksNone(t *testing.T) {
	assert.Nil(t, ExtractLinks("no links here, just www.example.com"))
}

func TestNormalizeDomain(t *testing.T) {
	assert.Equal(t, "bad.example", NormalizeDomain("  HTTPS://Bad.Example/path?q=1 "))
	assert.Equal(t, "xn--mnchen-3ya.de", NormalizeDomain("münchen.de"))
	assert.Equal(t, "", NormalizeDomain("   "))
}

func TestHostContains(t *testing.T) {
	domain, ok := HostContains("CDN.Discord.GG", []string{"youtube.com", "discord.gg"})
	assert.True(t, ok)
	assert.Equal(t, "discord.gg", domain)

	_, ok = HostContains("example.com", []string{"", "bad.com"})
	assert.False(t, ok)
}
