// Package detector decides whether a freshly fetched record is new and worth announcing.
package detector

import "example.com/matchwatch/internal/domain"

// Decision is the outcome of comparing a fetched record with the stored watermark.
// Update is the watermark to persist, Emit the record to publish; either may be nil.
type Decision struct {
	Update *string
	Emit   *domain.ActivityRecord
}

// Evaluate compares fetched against the previous watermark. A new record id always
// advances the watermark; it is emitted only when the record is eligible for notice.
func Evaluate(previous *string, fetched *domain.ActivityRecord) Decision {
	if fetched == nil {
		return Decision{}
	}
	if previous != nil && *previous == fetched.RecordID {
		return Decision{}
	}

	update := fetched.RecordID
	decision := Decision{Update: &update}
	if fetched.EligibleForNotice {
		decision.Emit = fetched
	}
	return decision
}
