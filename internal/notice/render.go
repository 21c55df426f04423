// Package notice renders observed matches as chat embeds and delivers them to a webhook.
package notice

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"example.com/matchwatch/internal/events"
)

const (
	matchURLFormat = "https://halotracker.com/halo-infinite/match/%s"
	noMedals       = "Nothing special 😔"

	colorWin  = 0x00FF00
	colorLoss = 0xFF0000
	colorDraw = 0x0000FF
)

var medalEmojis = []string{
	"<:AchillesSpine:932071031106072607>",
	"<:BackSmack:932071030825058384>",
	"<:Boogeyman:931631927486734417>",
	"<:BoomBlock:932071031072518144>",
	"<:Boxer:932071030766333982>",
	"<:Demon:931631928120066088>",
	"<:DoubleKill:931631928023597066>",
	"<:Extermination:931631929239949343>",
	"<:Fastball:932071030950867057>",
	"<:FromtheGrave:932071030795677717>",
	"<:Fumble:932071030762119168>",
	"<:GrappleJack:931631927788728342>",
	"<:GrimReaper:931631928136826900>",
	"<:GuardianAngel:932071031152214016>",
	"<:KillingFrenzy:931631928497541171>",
	"<:KillingSpree:931631928476598302>",
	"<:Killionaire:931631929311244370>",
	"<:Killjoy:931631928585642055>",
	"<:Killtastrophe:931631929667780608>",
	"<:Killtrocity:931631929642590228>",
	"<:LastShot:932071030862790706>",
	"<:Marksman:932071031047340073>",
	"<:Nightmare:931631929067986944>",
	"<:Ninja:931631929697136770>",
	"<:NoScope:931631929139277874>",
	"<:Overkill:931631929617448970>",
	"<:Perfect:932071031181570078>",
	"<:Perfection:931631929646796870>",
	"<:Quigley:931631929663569980>",
	"<:Rampage:931631929420296202>",
	"<:Reversal:932071031101853736>",
	"<:RunningRiot:931631929621622875>",
	"<:Snipe:931631929575473192>",
	"<:TripleKill:931631929185411124>",
	"<:Wingman:932071030732767283>",
	"<:YardSale:932071031068307456>",
}

var rankEmojis = map[string]string{
	"Bronze":   "<:Bronze_Rank_Icon:933098600471363624>",
	"Silver":   "<:Silver_Rank_Icon:933098600609775646>",
	"Gold":     "<:Gold_Rank_Icon:933098600437776465>",
	"Platinum": "<:Platinum_Rank_Icon:933098600718802954>",
	"Diamond":  "<:Diamond_Rank_Icon:933098600488116294>",
	"Onyx":     "<:Onyx_Rank_Icon:933098600332931143>",
}

var queueLabels = map[string]string{
	"solo-duo": "Solo/Duo",
	"open":     "Open",
}

var inputLabels = map[string]string{
	"mnk":        "M+K",
	"controller": "Controller",
	"crossplay":  "Crossplay",
}

// Embed is a single rich message card in the Discord webhook format.
type Embed struct {
	Title     string  `json:"title"`
	URL       string  `json:"url,omitempty"`
	Color     int     `json:"color"`
	Timestamp string  `json:"timestamp,omitempty"`
	Fields    []Field `json:"fields"`
	Image     *Media  `json:"image,omitempty"`
	Thumbnail *Media  `json:"thumbnail,omitempty"`
}

// Field is an inline name/value pair in an Embed.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Media references an image by URL.
type Media struct {
	URL string `json:"url"`
}

// Render builds the embed announcing match. emblemURL may be empty.
func Render(match events.MatchPayload, emblemURL string) Embed {
	verb, color := outcomeStyle(match.Outcome)

	embed := Embed{
		Title: fmt.Sprintf("%s %s a game of %s!", match.Gamertag, verb, match.Category),
		URL:   fmt.Sprintf(matchURLFormat, match.MatchID),
		Color: color,
	}
	if !match.PlayedAt.IsZero() {
		embed.Timestamp = match.PlayedAt.UTC().Format(time.RFC3339)
	}
	if match.MapThumbnail != "" {
		embed.Image = &Media{URL: match.MapThumbnail}
	}
	if emblemURL != "" {
		embed.Thumbnail = &Media{URL: emblemURL}
	}

	embed.Fields = append(embed.Fields, inline("KDA", fmt.Sprintf("%d/%d/%d", match.Kills, match.Deaths, match.Assists)))
	if match.CSR != nil {
		embed.Fields = append(embed.Fields,
			inline("CSR change", signed(match.CSR.Change())),
			inline("Rank", rankLabel(*match.CSR)),
			inline("CSR", strconv.Itoa(match.CSR.PostMatch)),
		)
	}
	embed.Fields = append(embed.Fields,
		inline("Playlist", playlistLabel(match.PlaylistQueue, match.PlaylistInput)),
		inline("Accuracy", strconv.FormatFloat(math.Round(match.Accuracy), 'f', -1, 64)+"%"),
		inline("Damage Dealt", strconv.Itoa(match.DamageDealt)),
		inline("Medals", medalLabel(match.Medals)),
	)
	return embed
}

func inline(name, value string) Field {
	return Field{Name: name, Value: value, Inline: true}
}

func outcomeStyle(outcome string) (string, int) {
	switch outcome {
	case events.OutcomeWin:
		return "WON", colorWin
	case events.OutcomeLoss:
		return "LOST", colorLoss
	default:
		return "TIED", colorDraw
	}
}

func signed(n int) string {
	if n > 0 {
		return "+" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

func rankLabel(csr events.CSR) string {
	if csr.Tier == "Onyx" {
		return rankEmojis["Onyx"] + " Onyx"
	}
	label := fmt.Sprintf("%s %d", csr.Tier, csr.SubTier)
	if emoji, ok := rankEmojis[csr.Tier]; ok {
		return emoji + " " + label
	}
	return label
}

func playlistLabel(queue, input string) string {
	q, ok := queueLabels[queue]
	if !ok {
		q = "Unknown"
	}
	in, ok := inputLabels[input]
	if !ok {
		in = "Unknown"
	}
	return q + " " + in
}

func medalLabel(names []string) string {
	var b strings.Builder
	for _, name := range names {
		if emoji, ok := medalEmoji(name); ok {
			b.WriteString(emoji)
		}
	}
	if b.Len() == 0 {
		return noMedals
	}
	return b.String()
}

// medalEmoji matches a medal name, ignoring whitespace, against the emoji names.
func medalEmoji(name string) (string, bool) {
	compact := strings.Join(strings.Fields(name), "")
	if compact == "" {
		return "", false
	}
	needle := ":" + compact + ":"
	for _, emoji := range medalEmojis {
		if strings.Contains(emoji, needle) {
			return emoji, true
		}
	}
	return "", false
}
