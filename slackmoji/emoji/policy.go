package emoji

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// Entry is one configured emoji with its point score.
type Entry struct {
	Score       int    `json:"score"`
	Description string `json:"description"`
}

type Settings struct {
	DefaultScore   int  `json:"default_score"`
	TrackAllEmojis bool `json:"track_all_emojis"`
	CaseSensitive  bool `json:"case_sensitive"`
}

// File-side shapes decode scores as pointers so an absent score (defaults to
// 1) stays distinguishable from an explicit 0, which blocks the emoji even
// when track_all_emojis is on.
type policyFile struct {
	Emojis   map[string]entryConfig `toml:"emojis"`
	Settings settingsConfig         `toml:"settings"`
}

type entryConfig struct {
	Score       *int   `toml:"score"`
	Description string `toml:"description"`
}

type settingsConfig struct {
	DefaultScore   *int `toml:"default_score"`
	TrackAllEmojis bool `toml:"track_all_emojis"`
	CaseSensitive  bool `toml:"case_sensitive"`
}

// Policy is the emoji score table. Loaded once at startup and read-only
// afterwards, except for an explicit Reload.
type Policy struct {
	mu       sync.RWMutex
	path     string
	emojis   map[string]Entry
	settings Settings
}

// LoadPolicy reads the emoji score table from a TOML file. A missing file is
// not an error: the built-in default table is used so the tracker still runs.
func LoadPolicy(path string) (*Policy, error) {
	p := &Policy{path: path}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// Reload re-reads the score table from disk, replacing the current table
// atomically. In-flight recordings keep the scores they already resolved.
func (p *Policy) Reload() error {
	emojis, settings, err := readPolicyFile(p.path)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.emojis = emojis
	p.settings = settings
	p.mu.Unlock()
	return nil
}

func readPolicyFile(path string) (map[string]Entry, Settings, error) {
	if path == "" {
		return defaultTable()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("Emoji config not found, using built-in defaults",
				slog.String("path", path))
			return defaultTable()
		}
		return nil, Settings{}, fmt.Errorf("failed to read emoji config: %w", err)
	}

	var file policyFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, Settings{}, fmt.Errorf("failed to parse emoji config: %w", err)
	}

	settings := Settings{
		DefaultScore:   1,
		TrackAllEmojis: file.Settings.TrackAllEmojis,
		CaseSensitive:  file.Settings.CaseSensitive,
	}
	if file.Settings.DefaultScore != nil {
		settings.DefaultScore = *file.Settings.DefaultScore
	}

	emojis := make(map[string]Entry, len(file.Emojis))
	for name, entry := range file.Emojis {
		score := 1
		if entry.Score != nil {
			score = *entry.Score
		}
		if !settings.CaseSensitive {
			name = strings.ToLower(name)
		}
		emojis[name] = Entry{Score: score, Description: entry.Description}
	}

	return emojis, settings, nil
}

func defaultTable() (map[string]Entry, Settings, error) {
	return map[string]Entry{
			"thumbsup": {Score: 1, Description: "Positive reaction"},
		}, Settings{
			DefaultScore:   1,
			TrackAllEmojis: false,
			CaseSensitive:  false,
		}, nil
}

// Normalize strips surrounding colons and lowercases the name when the table
// is case-insensitive.
func (p *Policy) Normalize(name string) string {
	name = strings.Trim(name, ":")
	p.mu.RLock()
	caseSensitive := p.settings.CaseSensitive
	p.mu.RUnlock()
	if !caseSensitive {
		name = strings.ToLower(name)
	}
	return name
}

// ScoreOf returns the point value for an emoji name. A score of 0 means the
// emoji is not tracked at all.
func (p *Policy) ScoreOf(name string) int {
	name = p.Normalize(name)

	p.mu.RLock()
	defer p.mu.RUnlock()

	if entry, ok := p.emojis[name]; ok {
		return entry.Score
	}
	if p.settings.TrackAllEmojis {
		return p.settings.DefaultScore
	}
	return 0
}

func (p *Policy) IsTracked(name string) bool {
	return p.ScoreOf(name) > 0
}

// Table returns a copy of the configured score table.
func (p *Policy) Table() map[string]Entry {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string]Entry, len(p.emojis))
	for name, entry := range p.emojis {
		out[name] = entry
	}
	return out
}

func (p *Policy) Settings() Settings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.settings
}
