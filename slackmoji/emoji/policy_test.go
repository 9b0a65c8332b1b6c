package emoji

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePolicyFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "emojis.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadPolicyDefaults(t *testing.T) {
	p, err := LoadPolicy("")
	require.NoError(t, err)

	assert.True(t, p.IsTracked("thumbsup"))
	assert.Equal(t, 1, p.ScoreOf("thumbsup"))
	assert.Equal(t, 0, p.ScoreOf("random_emoji"))
	assert.False(t, p.Settings().TrackAllEmojis)
}

func TestLoadPolicyMissingFileFallsBack(t *testing.T) {
	p, err := LoadPolicy(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)
	assert.True(t, p.IsTracked("thumbsup"))
}

func TestPolicyScores(t *testing.T) {
	path := writePolicyFile(t, `
[emojis.fire]
score = 3
description = "On fire"

[emojis.rocket]
score = 2

[settings]
default_score = 1
track_all_emojis = false
`)
	p, err := LoadPolicy(path)
	require.NoError(t, err)

	assert.Equal(t, 3, p.ScoreOf("fire"))
	assert.Equal(t, 2, p.ScoreOf("rocket"))
	assert.Equal(t, 0, p.ScoreOf("wave"))
	assert.False(t, p.IsTracked("wave"))
}

func TestPolicyNormalize(t *testing.T) {
	path := writePolicyFile(t, `
[emojis.rocket]
score = 2
`)
	p, err := LoadPolicy(path)
	require.NoError(t, err)

	assert.Equal(t, "rocket", p.Normalize(":rocket:"))
	assert.Equal(t, "rocket", p.Normalize("ROCKET"))
	assert.Equal(t, 2, p.ScoreOf(":ROCKET:"))
}

func TestPolicyCaseSensitive(t *testing.T) {
	path := writePolicyFile(t, `
[emojis.Rocket]
score = 2

[settings]
case_sensitive = true
`)
	p, err := LoadPolicy(path)
	require.NoError(t, err)

	assert.Equal(t, 2, p.ScoreOf("Rocket"))
	assert.Equal(t, 0, p.ScoreOf("rocket"))
}

func TestPolicyTrackAll(t *testing.T) {
	path := writePolicyFile(t, `
[emojis.fire]
score = 3

[settings]
default_score = 1
track_all_emojis = true
`)
	p, err := LoadPolicy(path)
	require.NoError(t, err)

	assert.Equal(t, 3, p.ScoreOf("fire"))
	assert.Equal(t, 1, p.ScoreOf("anything_else"))
	assert.True(t, p.IsTracked("anything_else"))
}

func TestPolicyExplicitZeroBlocks(t *testing.T) {
	path := writePolicyFile(t, `
[emojis.wave]
score = 0

[settings]
track_all_emojis = true
`)
	p, err := LoadPolicy(path)
	require.NoError(t, err)

	// An explicit zero is a blocklist entry: it wins even over track_all.
	assert.Equal(t, 0, p.ScoreOf("wave"))
	assert.False(t, p.IsTracked("wave"))
	assert.Equal(t, 1, p.ScoreOf("anything_else"))
}

func TestPolicyAbsentScoreDefaultsToOne(t *testing.T) {
	path := writePolicyFile(t, `
[emojis.wave]
description = "Greeting"
`)
	p, err := LoadPolicy(path)
	require.NoError(t, err)

	assert.Equal(t, 1, p.ScoreOf("wave"))
	assert.True(t, p.IsTracked("wave"))
}

func TestPolicyReload(t *testing.T) {
	path := writePolicyFile(t, `
[emojis.fire]
score = 3
`)
	p, err := LoadPolicy(path)
	require.NoError(t, err)
	assert.Equal(t, 3, p.ScoreOf("fire"))

	require.NoError(t, os.WriteFile(path, []byte(`
[emojis.fire]
score = 5
`), 0o644))
	require.NoError(t, p.Reload())
	assert.Equal(t, 5, p.ScoreOf("fire"))
}
