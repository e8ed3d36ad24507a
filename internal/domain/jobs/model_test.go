package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptorDedupID(t *testing.T) {
	t.Parallel()

	base := Descriptor{Kind: KindLiveDB, GameweekID: 5, Source: SourceManual}
	assert.Equal(t, "live-db:5", base.DedupID())

	tournamentID := int64(42)
	scoped := Descriptor{Kind: KindSummary, GameweekID: 5, Source: SourceCascade, TournamentID: &tournamentID}
	assert.Equal(t, "summary:5:t42", scoped.DedupID())

	zero := int64(0)
	unscoped := Descriptor{Kind: KindSummary, GameweekID: 5, Source: SourceCascade, TournamentID: &zero}
	assert.Equal(t, "summary:5", unscoped.DedupID())
}

func TestDescriptorValidate(t *testing.T) {
	t.Parallel()

	valid := Descriptor{Kind: KindLiveCache, GameweekID: 1, Source: SourceScheduled}
	require.NoError(t, valid.Validate())

	negativeTournament := int64(-1)
	cases := []struct {
		name       string
		descriptor Descriptor
	}{
		{"unknown kind", Descriptor{Kind: "resync-everything", GameweekID: 1, Source: SourceManual}},
		{"zero gameweek", Descriptor{Kind: KindLiveDB, GameweekID: 0, Source: SourceManual}},
		{"unknown source", Descriptor{Kind: KindLiveDB, GameweekID: 1, Source: "cron"}},
		{"negative tournament", Descriptor{Kind: KindLiveDB, GameweekID: 1, Source: SourceManual, TournamentID: &negativeTournament}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.descriptor.Validate())
		})
	}
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	kind, err := ParseKind("  Live-DB ")
	require.NoError(t, err)
	assert.Equal(t, KindLiveDB, kind)

	_, err = ParseKind("nonsense")
	assert.Error(t, err)
}
