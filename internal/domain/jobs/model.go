package jobs

import (
	"fmt"
	"strings"
)

// Kind names one unit of sync or recomputation work.
type Kind string

const (
	KindLiveCache     Kind = "live-cache"
	KindLiveDB        Kind = "live-db"
	KindSummary       Kind = "summary"
	KindExplain       Kind = "explain"
	KindOverallResult Kind = "overall-result"
)

var AllKinds = map[Kind]struct{}{
	KindLiveCache:     {},
	KindLiveDB:        {},
	KindSummary:       {},
	KindExplain:       {},
	KindOverallResult: {},
}

// Source records why a job exists.
type Source string

const (
	SourceScheduled Source = "scheduled"
	SourceManual    Source = "manual"
	SourceCascade   Source = "cascade"
)

// Descriptor identifies one job. Two descriptors with the same kind,
// gameweek and tournament are the same job for deduplication purposes.
type Descriptor struct {
	Kind         Kind
	GameweekID   int
	Source       Source
	TournamentID *int64
}

// DedupID derives the deterministic queue identity for the descriptor.
// Tournament-scoped jobs carry a t-suffixed segment so the same kind
// and gameweek can run once per tournament.
func (d Descriptor) DedupID() string {
	if d.TournamentID != nil && *d.TournamentID > 0 {
		return fmt.Sprintf("%s:%d:t%d", d.Kind, d.GameweekID, *d.TournamentID)
	}
	return fmt.Sprintf("%s:%d", d.Kind, d.GameweekID)
}

func (d Descriptor) Validate() error {
	if _, ok := AllKinds[d.Kind]; !ok {
		return fmt.Errorf("unknown job kind %q", d.Kind)
	}
	if d.GameweekID <= 0 {
		return fmt.Errorf("gameweek id must be greater than zero")
	}
	switch d.Source {
	case SourceScheduled, SourceManual, SourceCascade:
	default:
		return fmt.Errorf("unknown job source %q", d.Source)
	}
	if d.TournamentID != nil && *d.TournamentID <= 0 {
		return fmt.Errorf("tournament id must be greater than zero when set")
	}
	return nil
}

// ParseKind normalizes external input into a known kind.
func ParseKind(raw string) (Kind, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := AllKinds[kind]; !ok {
		return "", fmt.Errorf("unknown job kind %q", raw)
	}
	return kind, nil
}
