// Package events defines the payloads exchanged between the poller and downstream consumers.
package events

import "time"

// Match outcomes reported by the stats API.
const (
	OutcomeWin  = "win"
	OutcomeLoss = "loss"
	OutcomeDraw = "draw"
)

// MatchPayload carries everything a notifier needs to render a finished match.
type MatchPayload struct {
	MatchID       string    `json:"match_id"`
	Gamertag      string    `json:"gamertag"`
	PlayedAt      time.Time `json:"played_at"`
	Outcome       string    `json:"outcome"`
	Category      string    `json:"category"`
	MapName       string    `json:"map_name"`
	MapThumbnail  string    `json:"map_thumbnail,omitempty"`
	PlaylistQueue string    `json:"playlist_queue,omitempty"`
	PlaylistInput string    `json:"playlist_input,omitempty"`
	Kills         int       `json:"kills"`
	Deaths        int       `json:"deaths"`
	Assists       int       `json:"assists"`
	Accuracy      float64   `json:"accuracy"`
	DamageDealt   int       `json:"damage_dealt"`
	Medals        []string  `json:"medals,omitempty"`
	CSR           *CSR      `json:"csr,omitempty"`
}

// CSR captures the competitive skill rating movement for a ranked match.
type CSR struct {
	PreMatch  int    `json:"pre_match"`
	PostMatch int    `json:"post_match"`
	Tier      string `json:"tier"`
	SubTier   int    `json:"sub_tier"`
}

// Change returns the rating delta produced by the match.
func (c CSR) Change() int {
	return c.PostMatch - c.PreMatch
}

// TypeMatchObserved is the event_type header carried by published MatchObserved records.
const TypeMatchObserved = "match.observed"

// MatchObserved is the message published when a new eligible match is detected.
type MatchObserved struct {
	EventID    string       `json:"event_id"`
	ObservedAt time.Time    `json:"observed_at"`
	Gamertag   string       `json:"gamertag"`
	MatchID    string       `json:"match_id"`
	Match      MatchPayload `json:"match"`
}
