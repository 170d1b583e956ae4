package scanner

import (
	"fmt"
	"strings"

	"github.com/fenilsonani/winsweep/internal/platform"
)

// Kind identifies a cleanup target family
type Kind int

const (
	TempFiles Kind = iota
	Prefetch
	DumpFiles
	ThumbnailCache
	BrowserCache
)

// String returns the config name of the kind
func (k Kind) String() string {
	switch k {
	case TempFiles:
		return "temp"
	case Prefetch:
		return "prefetch"
	case DumpFiles:
		return "dumps"
	case ThumbnailCache:
		return "thumbnails"
	case BrowserCache:
		return "browser"
	default:
		return "unknown"
	}
}

// Target is a cleanup target. Vendor is only set for BrowserCache.
type Target struct {
	Kind   Kind
	Vendor string
}

// Browser returns the BrowserCache target for a vendor
func Browser(vendor string) Target {
	return Target{Kind: BrowserCache, Vendor: strings.ToLower(vendor)}
}

// String returns the name used in config files and on the command line
func (t Target) String() string {
	if t.Kind == BrowserCache {
		return "browser:" + t.Vendor
	}
	return t.Kind.String()
}

// Description returns a short human-readable label
func (t Target) Description() string {
	switch t.Kind {
	case TempFiles:
		return "Temporary files"
	case Prefetch:
		return "Prefetch files"
	case DumpFiles:
		return "Memory dump files"
	case ThumbnailCache:
		return "Thumbnail cache"
	case BrowserCache:
		if t.Vendor == "" {
			return "Browser cache"
		}
		return strings.ToUpper(t.Vendor[:1]) + t.Vendor[1:] + " cache"
	default:
		return "Unknown target"
	}
}

// MarshalText implements encoding.TextMarshaler
func (t Target) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *Target) UnmarshalText(text []byte) error {
	parsed, err := ParseTarget(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTarget parses names such as "temp" or "browser:chrome"
func ParseTarget(name string) (Target, error) {
	name = strings.ToLower(strings.TrimSpace(name))

	if vendor, ok := strings.CutPrefix(name, "browser:"); ok {
		for _, known := range platform.KnownVendors() {
			if vendor == known {
				return Browser(vendor), nil
			}
		}
		return Target{}, fmt.Errorf("unknown browser vendor: %q", vendor)
	}

	switch name {
	case "temp":
		return Target{Kind: TempFiles}, nil
	case "prefetch":
		return Target{Kind: Prefetch}, nil
	case "dumps":
		return Target{Kind: DumpFiles}, nil
	case "thumbnails":
		return Target{Kind: ThumbnailCache}, nil
	default:
		return Target{}, fmt.Errorf("unknown target: %q", name)
	}
}

// ParseTargets parses a list of names, expanding "browsers" to every vendor
func ParseTargets(names []string) ([]Target, error) {
	var targets []Target
	for _, name := range names {
		if strings.EqualFold(strings.TrimSpace(name), "browsers") {
			targets = append(targets, BrowserTargets()...)
			continue
		}
		t, err := ParseTarget(name)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// BrowserTargets returns a BrowserCache target per known vendor
func BrowserTargets() []Target {
	vendors := platform.KnownVendors()
	targets := make([]Target, 0, len(vendors))
	for _, v := range vendors {
		targets = append(targets, Browser(v))
	}
	return targets
}

// AllTargets returns every target in display order
func AllTargets() []Target {
	targets := []Target{
		{Kind: TempFiles},
		{Kind: Prefetch},
		{Kind: DumpFiles},
		{Kind: ThumbnailCache},
	}
	return append(targets, BrowserTargets()...)
}

// QuickTargets is the quick clean selection: temp files, browser caches and thumbnails
func QuickTargets() []Target {
	targets := []Target{{Kind: TempFiles}}
	targets = append(targets, BrowserTargets()...)
	return append(targets, Target{Kind: ThumbnailCache})
}
