// Package halo implements the upstream client for the Halo Infinite stats API.
package halo

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/juju/errors"

	"example.com/matchwatch/internal/domain"
	"example.com/matchwatch/internal/events"
)

const (
	matchListPath  = "/stats/matches/list"
	appearancePath = "/appearance"
)

// EligibilityFunc reports whether a match is worth announcing.
type EligibilityFunc func(Match) bool

// Ranked treats a match as eligible when its playlist is flagged as ranked.
func Ranked(m Match) bool {
	return m.Details.Playlist.Properties.Ranked
}

// Option configures optional behaviour for the Client.
type Option func(*Client)

// WithEligibility overrides the notice eligibility predicate.
func WithEligibility(fn EligibilityFunc) Option {
	return func(c *Client) { c.eligible = fn }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// Client fetches the latest match and appearance data for gamertags.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	eligible   EligibilityFunc
}

// NewClient constructs a client with sane defaults.
func NewClient(baseURL, token string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		eligible:   Ranked,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchLatest returns the most recent match for gamertag, or nil when the player has none.
// Transport failures, non-2xx statuses and bodies without a data array are all reported
// as domain.ErrFetch. Only an empty data array means "no matches".
func (c *Client) FetchLatest(ctx context.Context, gamertag string) (*domain.ActivityRecord, error) {
	var resp MatchListResponse
	if err := c.post(ctx, matchListPath, matchListRequest{Gamertag: gamertag, Limit: limit{Count: 1}}, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, errors.Annotatef(domain.ErrFetch, "match list for %q has no data", gamertag)
	}
	if len(*resp.Data) == 0 {
		return nil, nil
	}

	match := (*resp.Data)[0]
	if match.ID == "" {
		return nil, errors.Annotatef(domain.ErrFetch, "match without id for %q", gamertag)
	}

	displayName := resp.Additional.Gamertag
	if displayName == "" {
		displayName = gamertag
	}

	return &domain.ActivityRecord{
		RecordID:          match.ID,
		IdentityKey:       domain.NormalizeKey(gamertag),
		EligibleForNotice: c.eligible(match),
		Payload:           toPayload(displayName, match),
	}, nil
}

// FetchAppearance returns the emblem image URL for gamertag.
func (c *Client) FetchAppearance(ctx context.Context, gamertag string) (string, error) {
	var resp AppearanceResponse
	if err := c.post(ctx, appearancePath, appearanceRequest{Gamertag: gamertag}, &resp); err != nil {
		return "", err
	}
	return resp.Data.EmblemURL, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Trace(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errors.WithType(errors.Trace(err), domain.ErrFetch)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.WithType(errors.Annotatef(err, "calling %s", path), domain.ErrFetch)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Annotatef(domain.ErrFetch, "%s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.WithType(errors.Annotatef(err, "decoding %s", path), domain.ErrFetch)
	}
	return nil
}

func toPayload(gamertag string, m Match) events.MatchPayload {
	core := m.Player.Stats.Core
	payload := events.MatchPayload{
		MatchID:      m.ID,
		Gamertag:     gamertag,
		PlayedAt:     m.PlayedAt,
		Outcome:      strings.ToLower(m.Player.Outcome),
		Category:     m.Details.Category.Name,
		MapName:      m.Details.Map.Name,
		MapThumbnail: m.Details.Map.Asset.ThumbnailURL,
		Kills:        core.Summary.Kills,
		Deaths:       core.Summary.Deaths,
		Assists:      core.Summary.Assists,
		Accuracy:     core.Shots.Accuracy,
		DamageDealt:  core.Damage.Dealt,
	}
	if q := m.Details.Playlist.Properties.Queue; q != nil {
		payload.PlaylistQueue = *q
	}
	if in := m.Details.Playlist.Properties.Input; in != nil {
		payload.PlaylistInput = *in
	}
	for _, medal := range core.Breakdowns.Medals {
		payload.Medals = append(payload.Medals, medal.Name)
	}
	if p := m.Player.Progression; p != nil {
		payload.CSR = &events.CSR{
			PreMatch:  p.CSR.PreMatch.Value,
			PostMatch: p.CSR.PostMatch.Value,
			Tier:      p.CSR.PostMatch.Tier,
			SubTier:   p.CSR.PostMatch.SubTier,
		}
	}
	return payload
}
