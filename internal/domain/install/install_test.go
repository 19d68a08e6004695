package install

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestSafeName checks the filesystem-safe name rules.
func TestSafeName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Survival-1.21.4":       "survival-1.21.4",
		"  My  Server!! ":       "my-server",
		"purpur-1.21.4-2388":    "purpur-1.21.4-2388",
		"---":                   "mcserver",
		"":                      "mcserver",
		"Über Welt/Creative #2": "ber-welt-creative-2",
	}

	for input, expected := range cases {
		require.Equal(t, expected, SafeName(input), "input %q", input)
	}

	require.Equal(t, "paper-1.20.1-77.jar", VersionedJarName(PlatformPaper, "1.20.1-77"))
}

// TestIdentityPrefersStableID checks that the identity key falls back to the label.
func TestIdentityPrefersStableID(t *testing.T) {
	t.Parallel()

	plan := TargetPlan{ID: "AbC123", Label: "5.2.1"}
	require.Equal(t, "AbC123", plan.Identity())

	plan.ID = ""
	require.Equal(t, "5.2.1", plan.Identity())

	record := TargetRecord{ResolvedID: "AbC123", Resolved: "5.2.1"}
	require.Equal(t, "AbC123", record.Identity())
}

// TestStateClone checks that a clone shares no records with the original.
func TestStateClone(t *testing.T) {
	t.Parallel()

	state := NewState()
	state.Installed.Server = &ServerRecord{Label: "1.21.4-1"}
	state.SetTarget("geyser", &TargetRecord{Resolved: "2.4.0", InstalledAt: NewTimestamp(time.Unix(1, 0))})

	cloned := state.Clone()
	cloned.Installed.Server.Label = "1.21.4-2"
	cloned.Target("geyser").Resolved = "2.5.0"

	require.Equal(t, "1.21.4-1", state.Installed.Server.Label)
	require.Equal(t, "2.4.0", state.Target("geyser").Resolved)
	require.Nil(t, state.Target("floodgate"))

	var empty *State
	require.Nil(t, empty.Clone())
	require.Nil(t, empty.Target("geyser"))
}

// TestKindOf checks error classification through wrapping.
func TestKindOf(t *testing.T) {
	t.Parallel()

	base := errors.New("connection refused")
	classified := NewTargetError(KindNetwork, "download", "geyser", base)
	wrapped := fmt.Errorf("apply: %w", classified)

	require.Equal(t, KindNetwork, KindOf(wrapped))
	require.ErrorIs(t, wrapped, base)
	require.Equal(t, `download: target "geyser": connection refused`, classified.Error())
	require.Equal(t, KindState, KindOf(fmt.Errorf("update: %w", ErrStateMissing)))
	require.Equal(t, KindUnknown, KindOf(base))
	require.Equal(t, "symlink-unsupported", KindSymlinkUnsupported.String())
}

// TestDecisionsPending checks counting and lookup of decisions.
func TestDecisionsPending(t *testing.T) {
	t.Parallel()

	decisions := Decisions{
		Server: Decision{Artifact: ServerArtifact, NeedsUpdate: true},
		Targets: []Decision{
			{Artifact: "viaversion", NeedsUpdate: false},
			{Artifact: "geyser", NeedsUpdate: true},
		},
	}

	require.Equal(t, 2, decisions.Pending())

	decision, ok := decisions.Target("geyser")
	require.True(t, ok)
	require.True(t, decision.NeedsUpdate)

	_, ok = decisions.Target("floodgate")
	require.False(t, ok)
}

// TestTimestampText checks both persisted timestamp spellings.
func TestTimestampText(t *testing.T) {
	t.Parallel()

	var stamp Timestamp

	require.NoError(t, stamp.UnmarshalText([]byte("2024-11-05T10:20:30.123456+09:00")))
	require.Equal(t, 2024, stamp.Year())

	require.NoError(t, stamp.UnmarshalText([]byte("2024-11-05T10:20:30")))
	require.Equal(t, 30, stamp.Second())

	require.Error(t, stamp.UnmarshalText([]byte("yesterday")))

	text, err := NewTimestamp(time.Date(2025, 3, 1, 12, 30, 0, 500, time.UTC)).MarshalText()
	require.NoError(t, err)
	require.Equal(t, "2025-03-01T12:30:00Z", string(text))

	text, err = Timestamp{}.MarshalText()
	require.NoError(t, err)
	require.Empty(t, text)
}

// TestTimestampJSON checks that JSON output matches the text form, so a zero time renders empty.
func TestTimestampJSON(t *testing.T) {
	t.Parallel()

	record := TargetRecord{Resolved: "2.6.0"}

	data, err := json.Marshal(record)
	require.NoError(t, err)
	require.Contains(t, string(data), `"installed_at":""`)

	record.InstalledAt = NewTimestamp(time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC))

	data, err = json.Marshal(record)
	require.NoError(t, err)
	require.Contains(t, string(data), `"installed_at":"2025-03-01T12:30:00Z"`)

	var decoded TargetRecord
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.True(t, decoded.InstalledAt.Equal(record.InstalledAt.Time))

	require.NoError(t, json.Unmarshal([]byte(`{"installed_at":""}`), &decoded))
	require.True(t, decoded.InstalledAt.IsZero())
}
