package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"fluxo/internal/analytics"
)

// Tags is the optional analytics tags file:
//
//	palette = ["#4f46e5", "#0ea5e9"]
//
//	[destinations]
//	"Poupança" = "goal"
//	"Tesouro Direto" = "investment"
type Tags struct {
	Palette      []string          `toml:"palette"`
	WeekStart    string            `toml:"week_start"`
	OtherLabel   string            `toml:"other_label"`
	Destinations map[string]string `toml:"destinations"`

	destinations map[string]analytics.Subtype
}

// LoadTags decodes and validates a tags file.
func LoadTags(path string) (*Tags, error) {
	var t Tags
	md, err := toml.DecodeFile(path, &t)
	if err != nil {
		return nil, fmt.Errorf("decode tags file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("tags file %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if err := t.validate(); err != nil {
		return nil, fmt.Errorf("tags file %s: %w", path, err)
	}
	return &t, nil
}

func (t *Tags) validate() error {
	var errors []string
	for i, c := range t.Palette {
		if strings.TrimSpace(c) == "" {
			errors = append(errors, fmt.Sprintf("palette[%d] is blank", i))
		}
	}
	if t.WeekStart != "" {
		if _, ok := parseWeekday(t.WeekStart); !ok {
			errors = append(errors, fmt.Sprintf("week_start '%s' is not a weekday", t.WeekStart))
		}
	}

	t.destinations = make(map[string]analytics.Subtype, len(t.Destinations))
	names := make([]string, 0, len(t.Destinations))
	for name := range t.Destinations {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		st, ok := analytics.ParseSubtype(t.Destinations[name])
		if !ok {
			errors = append(errors, fmt.Sprintf("destination '%s' has unknown subtype '%s'", name, t.Destinations[name]))
			continue
		}
		t.destinations[name] = st
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, "; "))
	}
	return nil
}

// Apply overrides opts with whatever the file sets.
func (t *Tags) Apply(opts *analytics.Options) {
	if len(t.Palette) > 0 {
		opts.Palette = append([]string(nil), t.Palette...)
	}
	if d, ok := parseWeekday(t.WeekStart); ok {
		opts.WeekStart = d
	}
	if strings.TrimSpace(t.OtherLabel) != "" {
		opts.OtherLabel = strings.TrimSpace(t.OtherLabel)
	}
	if len(t.destinations) > 0 {
		opts.Destinations = make(map[string]analytics.Subtype, len(t.destinations))
		for k, v := range t.destinations {
			opts.Destinations[k] = v
		}
	}
}
