package config

import (
	"path/filepath"

	"github.com/samber/lo"

	"github.com/yaklabco/themepipe/pkg/fsutils"
)

// Watch group names.
const (
	GroupStyles       = "styles"
	GroupScripts      = "scripts"
	GroupThemeContent = "theme-content"
	GroupSiteContent  = "site-content"
)

// WatchGroup is a named set of glob patterns whose changes trigger the same
// rebuild chain.
type WatchGroup struct {
	Name     string
	Patterns []string
}

// resolvePaths fills in derived paths and makes every path absolute.
//
// The config file lives in a directory inside the theme (conventionally
// <theme>/bin), so the theme root defaults to that directory's parent and
// the site root to two levels above the theme root (<site>/themes/<theme>).
func (c *Config) resolvePaths() {
	configDir := fsutils.Resolve(filepath.Dir(c.configFile), ".")
	resolve := func(p string) string { return fsutils.Resolve(configDir, p) }
	p := &c.Paths

	if p.ThemeRoot == "" {
		p.ThemeRoot = filepath.Dir(configDir)
	} else {
		p.ThemeRoot = resolve(p.ThemeRoot)
	}
	if p.SiteRoot == "" {
		p.SiteRoot = fsutils.Resolve(p.ThemeRoot, filepath.Join("..", ".."))
	} else {
		p.SiteRoot = resolve(p.SiteRoot)
	}

	if p.Source == "" {
		p.Source = filepath.Join(p.ThemeRoot, sourceDirName)
	} else {
		p.Source = resolve(p.Source)
	}
	if p.Static == "" {
		p.Static = filepath.Join(p.ThemeRoot, staticDirName)
	} else {
		p.Static = resolve(p.Static)
	}
	if p.Public == "" {
		p.Public = filepath.Join(p.SiteRoot, publicDirName)
	} else {
		p.Public = resolve(p.Public)
	}
	if p.Raw != "" {
		p.Raw = resolve(p.Raw)
	}

	p.Sass = lo.Map(p.Sass, func(s string, _ int) string { return resolve(s) })
	p.JavaScript = lo.Map(p.JavaScript, func(s string, _ int) string { return resolve(s) })

	if c.Hugo.Theme == "" {
		c.Hugo.Theme = filepath.Base(p.ThemeRoot)
	}
}

// StyleEntry is the Sass entry point compiled into app.css.
func (c *Config) StyleEntry() string {
	return filepath.Join(c.Paths.Source, "scss", "app.scss")
}

// CSSOutput is where the compiled stylesheet is written.
func (c *Config) CSSOutput() string {
	return filepath.Join(c.Paths.Static, "css", "app.css")
}

// JSOutput is where the concatenated script is written.
func (c *Config) JSOutput() string {
	return filepath.Join(c.Paths.Static, "js", "app.js")
}

// WatchGroups returns the four watch groups: theme styles, theme scripts,
// theme content and site content.
func (c *Config) WatchGroups() []WatchGroup {
	theme := c.Paths.ThemeRoot
	site := c.Paths.SiteRoot
	src := c.Paths.Source

	return []WatchGroup{
		{
			Name:     GroupStyles,
			Patterns: []string{filepath.Join(src, "scss", "**", "*.scss")},
		},
		{
			Name:     GroupScripts,
			Patterns: []string{filepath.Join(src, "js", "**", "*.js")},
		},
		{
			Name: GroupThemeContent,
			Patterns: []string{
				filepath.Join(theme, "archetypes", "**", "*.md"),
				filepath.Join(theme, "content", "**", "*.md"),
				filepath.Join(theme, "layouts", "**", "*"),
				filepath.Join(theme, "i18n", "**", "*"),
				filepath.Join(theme, "theme.toml"),
			},
		},
		{
			Name: GroupSiteContent,
			Patterns: []string{
				filepath.Join(site, "archetypes", "**", "*.md"),
				filepath.Join(site, "content", "**", "*.md"),
				filepath.Join(site, "layouts", "**", "*"),
				filepath.Join(site, "config.toml"),
			},
		},
	}
}
