// Package version reports the build's version, commit and build time.
package version

import (
	"context"
	"runtime/debug"
	"strings"
	"time"

	"charm.land/lipgloss/v2"

	"github.com/yaklabco/themepipe/pkg/ui"
)

// Build metadata, set with -ldflags "-X github.com/yaklabco/themepipe/cmd/themepipe/version.Version=v1.2.3".
//
//nolint:gochecknoglobals // populated by ldflags
var (
	Version   = "dev"
	Commit    = ""
	BuildDate = ""
)

// Info is the resolved build metadata.
type Info struct {
	Version string
	Commit  string
	Built   time.Time
}

// Get resolves the build metadata. ldflags values win; otherwise the module
// version and VCS stamps embedded by the Go toolchain are used.
func Get(_ context.Context) Info {
	info := Info{
		Version: strings.TrimSpace(Version),
		Commit:  strings.TrimSpace(Commit),
	}
	if t, ok := parseTime(BuildDate); ok {
		info.Built = t
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok || bi == nil {
		if info.Version == "" {
			info.Version = "dev"
		}
		return info
	}

	settings := make(map[string]string, len(bi.Settings))
	for _, s := range bi.Settings {
		settings[s.Key] = s.Value
	}

	if info.Version == "" || info.Version == "dev" {
		switch mv := strings.TrimSpace(bi.Main.Version); {
		case mv != "" && mv != "(devel)":
			info.Version = mv
		case settings["vcs.revision"] != "":
			info.Version = settings["vcs.revision"]
			if settings["vcs.modified"] == "true" {
				info.Version += "-dirty"
			}
		default:
			info.Version = "dev"
		}
	}
	if info.Commit == "" {
		info.Commit = settings["vcs.revision"]
	}
	if info.Built.IsZero() {
		if t, ok := parseTime(settings["vcs.time"]); ok {
			info.Built = t
		}
	}
	return info
}

func parseTime(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Parts returns the non-empty fields in display order.
func (i Info) Parts() []string {
	parts := []string{i.Version}
	if i.Commit != "" && i.Commit != i.Version {
		parts = append(parts, i.Commit)
	}
	if !i.Built.IsZero() {
		parts = append(parts, i.Built.In(time.Local).Format(time.RFC3339))
	}
	return parts
}

// String joins Parts with dashes.
func (i Info) String() string {
	return strings.Join(i.Parts(), "-")
}

// StringColorized renders the version line in fang's help colors.
func StringColorized(ctx context.Context) string {
	cs := ui.GetFangScheme()
	styles := []lipgloss.Style{
		lipgloss.NewStyle().Foreground(cs.QuotedString),
		lipgloss.NewStyle().Foreground(cs.Program),
		lipgloss.NewStyle().Foreground(cs.Flag),
	}
	sep := lipgloss.NewStyle().Foreground(cs.Base).Render("-")

	parts := Get(ctx).Parts()
	for i := range parts {
		parts[i] = styles[min(i, len(styles)-1)].Render(parts[i])
	}
	return strings.Join(parts, sep)
}
