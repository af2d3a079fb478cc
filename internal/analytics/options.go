package analytics

import (
	"strings"
	"time"
)

// ColorPolicy selects how category colors are picked from the palette.
type ColorPolicy string

const (
	// ColorByRank assigns palette[rank % len(palette)]. A category keeps its
	// color only while its rank is unchanged.
	ColorByRank ColorPolicy = "rank"
	// ColorByHash assigns palette[fnv32a(name) % len(palette)], stable across
	// snapshots regardless of rank.
	ColorByHash ColorPolicy = "hash"
)

const (
	DefaultWindowMonths  = 6
	DefaultTopCategories = 5
	DefaultCategoryLabel = "Other"
)

// DefaultPalette is the ordered category palette.
var DefaultPalette = []string{
	"#4f46e5", "#0ea5e9", "#10b981", "#f59e0b", "#ef4444",
	"#8b5cf6", "#ec4899", "#14b8a6", "#f97316", "#64748b",
}

// Options tunes the builders. The zero value is not usable; start from
// DefaultOptions.
type Options struct {
	// WindowMonths is how many of the most recent months containing data
	// bound the monthly trend series.
	WindowMonths int
	// TopCategories is K, the number of named heatmap columns.
	TopCategories int
	// Location is where month and weekday boundaries are computed.
	Location *time.Location
	// WeekStart is heatmap row 0.
	WeekStart   time.Weekday
	Palette     []string
	ColorPolicy ColorPolicy
	// DefaultCategory replaces blank categories.
	DefaultCategory string
	// OtherLabel names the heatmap catch-all column.
	OtherLabel string
	// Destinations tags expense categories as goal, investment or debt
	// destinations in the money flow graph. Untagged categories are regular.
	Destinations map[string]Subtype
}

func DefaultOptions() Options {
	return Options{
		WindowMonths:    DefaultWindowMonths,
		TopCategories:   DefaultTopCategories,
		Location:        time.UTC,
		WeekStart:       time.Monday,
		Palette:         append([]string(nil), DefaultPalette...),
		ColorPolicy:     ColorByRank,
		DefaultCategory: DefaultCategoryLabel,
		OtherLabel:      DefaultCategoryLabel,
	}
}

// Validate reports the first caller contract violation found.
func (o Options) Validate() error {
	if o.WindowMonths <= 0 {
		return newConfigError(ErrInvalidOptions, "windowMonths", "must be at least 1")
	}
	if o.TopCategories <= 0 {
		return newConfigError(ErrInvalidOptions, "topCategories", "must be at least 1")
	}
	if o.Location == nil {
		return newConfigError(ErrInvalidOptions, "location", "is required")
	}
	if o.WeekStart < time.Sunday || o.WeekStart > time.Saturday {
		return newConfigError(ErrInvalidOptions, "weekStart", "must be a weekday")
	}
	if len(o.Palette) == 0 {
		return newConfigError(ErrInvalidOptions, "palette", "must not be empty")
	}
	switch o.ColorPolicy {
	case ColorByRank, ColorByHash:
	default:
		return newConfigError(ErrInvalidOptions, "colorPolicy", "must be rank or hash")
	}
	if strings.TrimSpace(o.DefaultCategory) == "" {
		return newConfigError(ErrInvalidOptions, "defaultCategory", "must not be blank")
	}
	if strings.TrimSpace(o.OtherLabel) == "" {
		return newConfigError(ErrInvalidOptions, "otherLabel", "must not be blank")
	}
	for name, st := range o.Destinations {
		if !st.IsDestination() {
			return newConfigError(ErrInvalidOptions, "destinations["+name+"]", "must be regular, goal, investment or debt")
		}
	}
	return nil
}

// ParseColorPolicy maps a config string to a policy.
func ParseColorPolicy(s string) (ColorPolicy, bool) {
	switch p := ColorPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case ColorByRank, ColorByHash:
		return p, true
	default:
		return "", false
	}
}
