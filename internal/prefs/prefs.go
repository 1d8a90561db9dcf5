// Package prefs persists user preferences that sit outside the database:
// the selected navigation provider and per-listing sorting rules. The file
// is watched, so edits made while running are picked up and signaled.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/anuragxone/twelve-remix/internal/media"
	"github.com/anuragxone/twelve-remix/internal/provider"
	"github.com/anuragxone/twelve-remix/internal/watch"
)

// DefaultPath is the default preferences file location.
const DefaultPath = "data/prefs.yaml"

// Prefs wraps the preferences file.
type Prefs struct {
	mu      sync.Mutex
	v       *viper.Viper
	path    string
	changed *watch.Signal
}

// New creates a Prefs instance for the given file path.
func New(path string) *Prefs {
	if path == "" {
		path = DefaultPath
	}
	return &Prefs{
		v:       viper.New(),
		path:    path,
		changed: watch.NewSignal(),
	}
}

// Changed signals after any preference is written, here or externally.
func (p *Prefs) Changed() *watch.Signal { return p.changed }

// Load reads the preferences file and starts watching it for external
// edits. A missing file is not an error.
func (p *Prefs) Load() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return fmt.Errorf("failed to create preferences directory: %w", err)
	}

	p.v.SetConfigFile(p.path)
	if err := p.v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return fmt.Errorf("failed to read preferences: %w", err)
			}
		}
		log.Debug().Str("path", p.path).Msg("No preferences file yet")
	}

	p.v.OnConfigChange(func(e fsnotify.Event) {
		log.Debug().Str("file", e.Name).Msg("Preferences file changed")
		p.changed.Notify()
	})
	p.v.WatchConfig()
	return nil
}

// NavigationProvider returns the persisted navigation provider selection,
// or ok=false when none was ever chosen.
func (p *Prefs) NavigationProvider() (provider.Identifier, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	kindName := p.v.GetString("navigation_provider.kind")
	if kindName == "" {
		return provider.Identifier{}, false
	}
	kind, err := provider.ParseKind(kindName)
	if err != nil {
		log.Warn().Str("kind", kindName).Msg("Ignoring unknown navigation provider kind")
		return provider.Identifier{}, false
	}
	return provider.Identifier{
		Kind:       kind,
		InstanceID: p.v.GetInt64("navigation_provider.instance_id"),
	}, true
}

// SetNavigationProvider persists the navigation provider selection.
func (p *Prefs) SetNavigationProvider(id provider.Identifier) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.v.Set("navigation_provider.kind", id.Kind.String())
	p.v.Set("navigation_provider.instance_id", id.InstanceID)
	if err := p.write(); err != nil {
		return err
	}
	p.changed.Notify()
	return nil
}

// SortingRule returns the persisted sorting rule for a listing key, or
// ok=false when none was set.
func (p *Prefs) SortingRule(key string) (media.SortingRule, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	node := "sorting." + key
	if !p.v.IsSet(node + ".strategy") {
		return media.SortingRule{}, false
	}
	return media.SortingRule{
		Strategy: media.SortingStrategy(p.v.GetInt(node + ".strategy")),
		Reverse:  p.v.GetBool(node + ".reverse"),
	}, true
}

// SetSortingRule persists the sorting rule for a listing key.
func (p *Prefs) SetSortingRule(key string, rule media.SortingRule) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	node := "sorting." + key
	p.v.Set(node+".strategy", int(rule.Strategy))
	p.v.Set(node+".reverse", rule.Reverse)
	if err := p.write(); err != nil {
		return err
	}
	p.changed.Notify()
	return nil
}

func (p *Prefs) write() error {
	if err := p.v.WriteConfigAs(p.path); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	return nil
}
