package halo

import "time"

type matchListRequest struct {
	Gamertag string `json:"gamertag"`
	Limit    limit  `json:"limit"`
}

type limit struct {
	Count int `json:"count"`
}

type appearanceRequest struct {
	Gamertag string `json:"gamertag"`
}

// MatchListResponse is the body returned by the match list endpoint. Data is nil
// when the body carried no data array, which the API does for error responses.
type MatchListResponse struct {
	Data       *[]Match   `json:"data"`
	Additional Additional `json:"additional"`
}

// Additional echoes request parameters back to the caller.
type Additional struct {
	Gamertag string `json:"gamertag"`
}

// Match is one entry of the match list.
type Match struct {
	ID       string    `json:"id"`
	Details  Details   `json:"details"`
	Player   Player    `json:"player"`
	PlayedAt time.Time `json:"played_at"`
}

// Details describes where and what was played.
type Details struct {
	Category Category `json:"category"`
	Map      GameMap  `json:"map"`
	Playlist Playlist `json:"playlist"`
}

// Category is the game mode, e.g. Slayer.
type Category struct {
	Name string `json:"name"`
}

// GameMap names the map and its artwork.
type GameMap struct {
	Name  string   `json:"name"`
	Asset MapAsset `json:"asset"`
}

// MapAsset holds map artwork URLs.
type MapAsset struct {
	ThumbnailURL string `json:"thumbnail_url"`
}

// Playlist is the matchmaking playlist the match came from.
type Playlist struct {
	Name       string             `json:"name"`
	Properties PlaylistProperties `json:"properties"`
}

// PlaylistProperties carries the ranked flag; queue and input are null for social playlists.
type PlaylistProperties struct {
	Queue  *string `json:"queue"`
	Input  *string `json:"input"`
	Ranked bool    `json:"ranked"`
}

// Player is the requested gamertag's slice of the match.
type Player struct {
	Stats       Stats        `json:"stats"`
	Rank        int          `json:"rank"`
	Outcome     string       `json:"outcome"`
	Progression *Progression `json:"progression"`
}

// Progression is only reported for ranked matches.
type Progression struct {
	CSR CSR `json:"csr"`
}

// CSR pairs the competitive skill rank before and after the match.
type CSR struct {
	PreMatch  CSRResult `json:"pre_match"`
	PostMatch CSRResult `json:"post_match"`
}

// CSRResult is one CSR snapshot.
type CSRResult struct {
	Tier         string `json:"tier"`
	Value        int    `json:"value"`
	TierStart    int    `json:"tier_start"`
	SubTier      int    `json:"sub_tier"`
	TierImageURL string `json:"tier_image_url"`
}

// Stats wraps the core stat block.
type Stats struct {
	Core CoreStats `json:"core"`
}

// CoreStats are the per-player match statistics.
type CoreStats struct {
	Summary    Summary    `json:"summary"`
	Damage     Damage     `json:"damage"`
	Shots      Shots      `json:"shots"`
	Breakdowns Breakdowns `json:"breakdowns"`
}

// Summary is the kill/death/assist line.
type Summary struct {
	Kills   int `json:"kills"`
	Deaths  int `json:"deaths"`
	Assists int `json:"assists"`
}

// Damage is damage taken and dealt.
type Damage struct {
	Taken int `json:"taken"`
	Dealt int `json:"dealt"`
}

// Shots reports accuracy as a percentage.
type Shots struct {
	Accuracy float64 `json:"accuracy"`
}

// Breakdowns lists medals earned.
type Breakdowns struct {
	Medals []Medal `json:"medals"`
}

// Medal is one medal and how many times it was earned.
type Medal struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// AppearanceResponse is the body returned by the appearance endpoint.
type AppearanceResponse struct {
	Data struct {
		EmblemURL   string `json:"emblem_url"`
		BackdropURL string `json:"backdrop_image_url"`
	} `json:"data"`
}
