// Package profile holds the static per-class analysis profiles: display color,
// description task, prompt hints, category and whether deep analysis is allowed.
package profile

import (
	_ "embed"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"

	"github.com/menta2k/scene-analyzer/pkg/types"
)

//go:embed profiles.yaml
var builtinTable []byte

// Profile is the analysis profile of one object class
type Profile struct {
	Color       string         `json:"color"`
	Task        types.TaskKind `json:"task"`
	Prompt      string         `json:"prompt"`
	RefineQuery string         `json:"llm_query"`
	Category    string         `json:"category"`
	Analyzable  bool           `json:"is_analyzable"`
}

// DefaultProfile is returned for classes missing from the table
var DefaultProfile = Profile{
	Color:      "#00FF00",
	Task:       types.Caption,
	Category:   "Misc",
	Analyzable: false,
}

// row is the on-disk shape of one table entry
type row struct {
	Color       string `yaml:"color"`
	Task        string `yaml:"task"`
	Prompt      string `yaml:"prompt"`
	RefineQuery string `yaml:"refine_query"`
	Category    string `yaml:"category"`
	Analyzable  bool   `yaml:"analyzable"`
}

// Registry maps class names to profiles. It is immutable once built and safe
// for concurrent use.
type Registry struct {
	profiles map[string]Profile
}

var (
	builtinOnce sync.Once
	builtin     *Registry
	builtinErr  error
)

// Default returns the registry built from the embedded COCO table
func Default() (*Registry, error) {
	builtinOnce.Do(func() {
		builtin, builtinErr = Parse(builtinTable)
	})
	return builtin, builtinErr
}

// Load reads a YAML profile table
func Load(r io.Reader) (*Registry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile table: %w", err)
	}
	return Parse(data)
}

// Parse builds a registry from YAML bytes. Any invalid row rejects the table.
func Parse(data []byte) (*Registry, error) {
	var rows map[string]row
	if err := yaml.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse profile table: %w", err)
	}

	profiles := make(map[string]Profile, len(rows))
	for name, r := range rows {
		p, err := r.toProfile()
		if err != nil {
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
		profiles[name] = p
	}
	return &Registry{profiles: profiles}, nil
}

// New builds a registry from already-typed profiles
func New(profiles map[string]Profile) *Registry {
	cp := make(map[string]Profile, len(profiles))
	for k, v := range profiles {
		cp[k] = v
	}
	return &Registry{profiles: cp}
}

func (r row) toProfile() (Profile, error) {
	if _, err := colorful.Hex(r.Color); err != nil {
		return Profile{}, fmt.Errorf("invalid color %q: %w", r.Color, err)
	}
	task, err := types.ParseTaskKind(r.Task)
	if err != nil {
		return Profile{}, err
	}
	category := r.Category
	if category == "" {
		category = DefaultProfile.Category
	}
	return Profile{
		Color:       r.Color,
		Task:        task,
		Prompt:      r.Prompt,
		RefineQuery: r.RefineQuery,
		Category:    category,
		Analyzable:  r.Analyzable,
	}, nil
}

// Lookup returns the profile for an exact class name, or DefaultProfile
func (r *Registry) Lookup(className string) Profile {
	if p, ok := r.Find(className); ok {
		return p
	}
	return DefaultProfile
}

// Find reports whether the class has its own profile
func (r *Registry) Find(className string) (Profile, bool) {
	if r == nil {
		return Profile{}, false
	}
	p, ok := r.profiles[className]
	return p, ok
}

// Classes lists known class names in sorted order
func (r *Registry) Classes() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns a copy of the whole table
func (r *Registry) All() map[string]Profile {
	out := make(map[string]Profile, len(r.profiles))
	for k, v := range r.profiles {
		out[k] = v
	}
	return out
}

// Len returns the number of profiles
func (r *Registry) Len() int {
	return len(r.profiles)
}
