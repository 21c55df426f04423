// Package domain defines the roster and activity types shared by the poller and its collaborators.
package domain

import (
	"context"
	"strings"

	"github.com/juju/errors"

	"example.com/matchwatch/internal/events"
)

const (
	// ErrList marks a failure to read the roster; the whole tick is skipped.
	ErrList = errors.ConstError("roster list failed")
	// ErrFetch marks a failed upstream lookup for a single identity.
	ErrFetch = errors.ConstError("upstream fetch failed")
	// ErrPersist marks a failed watermark write for a single identity.
	ErrPersist = errors.ConstError("watermark persist failed")
)

// Identity is a tracked player and the watermark of the last match seen for it.
type Identity struct {
	Key              string
	LastSeenRecordID *string
	Enabled          bool
}

// ActivityRecord is the most recent match fetched for an identity.
type ActivityRecord struct {
	RecordID          string
	IdentityKey       string
	EligibleForNotice bool
	Payload           events.MatchPayload
}

// PollResult is the outcome of one identity's fetch within a tick.
// A nil Record with a nil Err means the upstream had no records.
type PollResult struct {
	Identity Identity
	Record   *ActivityRecord
	Err      error
}

// RosterStore persists identities and their watermarks.
type RosterStore interface {
	ListTracked(ctx context.Context) ([]Identity, error)
	AdvanceWatermark(ctx context.Context, key, recordID string) error
}

// UpstreamClient looks up the latest activity record for an identity.
// It returns (nil, nil) when the identity has no records.
type UpstreamClient interface {
	FetchLatest(ctx context.Context, key string) (*ActivityRecord, error)
}

// NormalizeKey returns the canonical, lowercase form of an identity key.
func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
