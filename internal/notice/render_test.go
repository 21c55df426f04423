package notice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/matchwatch/internal/events"
)

func rankedPayload() events.MatchPayload {
	return events.MatchPayload{
		MatchID:       "a1b2",
		Gamertag:      "Foo Bar",
		PlayedAt:      time.Date(2022, 1, 20, 21, 14, 3, 0, time.UTC),
		Outcome:       events.OutcomeWin,
		Category:      "Slayer",
		MapThumbnail:  "https://img/livefire.jpg",
		PlaylistQueue: "solo-duo",
		PlaylistInput: "mnk",
		Kills:         14,
		Deaths:        9,
		Assists:       6,
		Accuracy:      48.5,
		DamageDealt:   5320,
		Medals:        []string{"Double Kill", "Unknown Medal", "Killjoy"},
		CSR:           &events.CSR{PreMatch: 1290, PostMatch: 1306, Tier: "Diamond", SubTier: 4},
	}
}

func TestRenderRankedWin(t *testing.T) {
	embed := Render(rankedPayload(), "https://img/emblem.png")

	require.Equal(t, "Foo Bar WON a game of Slayer!", embed.Title)
	require.Equal(t, colorWin, embed.Color)
	require.Equal(t, "https://halotracker.com/halo-infinite/match/a1b2", embed.URL)
	require.Equal(t, "2022-01-20T21:14:03Z", embed.Timestamp)
	require.Equal(t, &Media{URL: "https://img/livefire.jpg"}, embed.Image)
	require.Equal(t, &Media{URL: "https://img/emblem.png"}, embed.Thumbnail)

	require.Equal(t, []Field{
		{Name: "KDA", Value: "14/9/6", Inline: true},
		{Name: "CSR change", Value: "+16", Inline: true},
		{Name: "Rank", Value: "<:Diamond_Rank_Icon:933098600488116294> Diamond 4", Inline: true},
		{Name: "CSR", Value: "1306", Inline: true},
		{Name: "Playlist", Value: "Solo/Duo M+K", Inline: true},
		{Name: "Accuracy", Value: "49%", Inline: true},
		{Name: "Damage Dealt", Value: "5320", Inline: true},
		{Name: "Medals", Value: "<:DoubleKill:931631928023597066><:Killjoy:931631928585642055>", Inline: true},
	}, embed.Fields)
}

func TestRenderOutcomes(t *testing.T) {
	payload := rankedPayload()

	payload.Outcome = events.OutcomeLoss
	embed := Render(payload, "")
	require.Equal(t, "Foo Bar LOST a game of Slayer!", embed.Title)
	require.Equal(t, colorLoss, embed.Color)
	require.Nil(t, embed.Thumbnail)

	payload.Outcome = events.OutcomeDraw
	embed = Render(payload, "")
	require.Equal(t, "Foo Bar TIED a game of Slayer!", embed.Title)
	require.Equal(t, colorDraw, embed.Color)
}

func TestRenderNegativeChangeAndOnyx(t *testing.T) {
	payload := rankedPayload()
	payload.CSR = &events.CSR{PreMatch: 1520, PostMatch: 1508, Tier: "Onyx", SubTier: 1}

	fields := fieldMap(Render(payload, "").Fields)
	require.Equal(t, "-12", fields["CSR change"])
	require.Equal(t, "<:Onyx_Rank_Icon:933098600332931143> Onyx", fields["Rank"])
}

func TestRenderFallbacks(t *testing.T) {
	payload := rankedPayload()
	payload.PlaylistQueue = ""
	payload.PlaylistInput = "crossplay"
	payload.Medals = nil
	payload.CSR = nil

	fields := fieldMap(Render(payload, "").Fields)
	require.Equal(t, "Unknown Crossplay", fields["Playlist"])
	require.Equal(t, noMedals, fields["Medals"])
	require.NotContains(t, fields, "CSR")
	require.NotContains(t, fields, "Rank")
}

func TestMedalEmojiIgnoresWhitespace(t *testing.T) {
	emoji, ok := medalEmoji("From the Grave")
	require.True(t, ok)
	require.Equal(t, "<:FromtheGrave:932071030795677717>", emoji)

	_, ok = medalEmoji("  ")
	require.False(t, ok)
}

func fieldMap(fields []Field) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f.Name] = f.Value
	}
	return out
}
