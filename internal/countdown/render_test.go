package countdown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRendererFallsBackWhenTemplatesMissing(t *testing.T) {
	r := NewRenderer(&fakeLang{texts: map[string]string{}})
	now := time.Date(2024, 1, 1, 3, 55, 0, 0, time.UTC)
	rem := TimeRemaining(now, 0, 0, 0, -4)

	c := r.Countdown(GuildSettings{ServerName: "Asia"}, rem, now)
	require.NotNil(t, c.Embed)
	assert.Equal(t, "Daily Reset Countdown", c.Embed.Title)
	assert.Equal(t, "Next reset in 5mins", c.Embed.Description)
	assert.Equal(t, defaultCountdownColor, c.Embed.Color)

	rc := r.Reset(GuildSettings{ServerName: "Asia"}, now, now.Add(3*time.Hour), now)
	require.NotNil(t, rc.Embed)
	assert.Equal(t, "Daily Reset", rc.Embed.Title)
	assert.NotEmpty(t, rc.Embed.Description)
	assert.Equal(t, defaultResetColor, rc.Embed.Color)
}

func TestRendererColorParsing(t *testing.T) {
	r := NewRenderer(&fakeLang{texts: map[string]string{
		"countdown.color": "0x112233",
		"reset.color":     "#abcdef",
	}})
	assert.Equal(t, 0x112233, r.color("countdown.color", 0))
	assert.Equal(t, 0xABCDEF, r.color("reset.color", 0))
	assert.Equal(t, 7, r.color("missing", 7))

	bad := NewRenderer(&fakeLang{texts: map[string]string{"countdown.color": "blue"}})
	assert.Equal(t, 9, bad.color("countdown.color", 9))
}

func TestRendererSubstitutesPlaceholders(t *testing.T) {
	r := NewRenderer(&fakeLang{texts: map[string]string{
		"countdown.title":       "Reset Watch",
		"countdown.description": "{server}: {remaining} until reset ({reset_time})",
	}})
	now := time.Date(2024, 1, 1, 1, 30, 0, 0, time.UTC)
	rem := TimeRemaining(now, 0, 0, 0, -4)

	c := r.Countdown(GuildSettings{ServerName: "Asia", ResetTime: "00:00:00", UTCOffset: "UTC-4"}, rem, now)
	assert.Equal(t, "Reset Watch", c.Embed.Title)
	assert.Equal(t, "Asia: 2hrs 30mins until reset (00:00:00 UTC-4)", c.Embed.Description)
}
