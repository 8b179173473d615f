package pipeline

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/evanw/esbuild/pkg/api"
	"github.com/samber/lo"

	"github.com/yaklabco/themepipe/internal/log"
)

//nolint:gochecknoglobals // lookup tables
var (
	browserEngines = map[string]api.EngineName{
		"chrome":   api.EngineChrome,
		"and_chr":  api.EngineChrome,
		"edge":     api.EngineEdge,
		"firefox":  api.EngineFirefox,
		"ff":       api.EngineFirefox,
		"and_ff":   api.EngineFirefox,
		"safari":   api.EngineSafari,
		"ios":      api.EngineIOS,
		"ios_saf":  api.EngineIOS,
		"ie":       api.EngineIE,
		"explorer": api.EngineIE,
		"opera":    api.EngineOpera,
		"node":     api.EngineNode,
	}

	// "ie >= 9", "safari 8", "chrome>=60"
	browserQuery = regexp.MustCompile(`^([a-z_]+)\s*(>=)?\s*([0-9]+(?:\.[0-9]+)*)$`)
)

// Engines translates a browserslist-style compatibility list into esbuild
// engine targets. Entries esbuild cannot express (such as "last 2 versions"
// or "> 1%") are skipped. When a browser is named more than once the lowest
// version wins.
func Engines(compatibility []string) []api.Engine {
	lowest := map[api.EngineName]string{}
	var order []api.EngineName

	for _, entry := range compatibility {
		query := strings.ToLower(strings.TrimSpace(entry))
		m := browserQuery.FindStringSubmatch(query)
		if m == nil {
			slog.Debug("skipping compatibility entry", slog.String(log.Pattern, entry))
			continue
		}
		name, ok := browserEngines[m[1]]
		if !ok {
			slog.Debug("skipping unknown browser", slog.String(log.Pattern, entry))
			continue
		}
		version := m[3]
		prev, seen := lowest[name]
		if !seen {
			order = append(order, name)
			lowest[name] = version
			continue
		}
		if versionLess(version, prev) {
			lowest[name] = version
		}
	}

	return lo.Map(order, func(name api.EngineName, _ int) api.Engine {
		return api.Engine{Name: name, Version: lowest[name]}
	})
}

// versionLess compares browser versions such as "9", "10.3" or "11.0.1".
func versionLess(a, b string) bool {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA != nil || errB != nil {
		return a < b
	}
	return va.LessThan(vb)
}
