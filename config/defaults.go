package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	// DefaultFile is the config file read when no --config flag is given.
	DefaultFile = "config.yml"

	// DefaultHugoBinary is the site generator executable.
	DefaultHugoBinary = "hugo"

	// DefaultIndentSize is the indent width used when reformatting HTML.
	DefaultIndentSize = 2

	// DefaultPreserveNewlines keeps blank lines between elements when set.
	DefaultPreserveNewlines = false

	// DefaultScriptTarget is the esbuild language target for theme JavaScript.
	DefaultScriptTarget = "es2015"

	// DefaultWatchDebounce is the quiet period after a file event before a
	// watch binding fires.
	DefaultWatchDebounce = 150 * time.Millisecond
)

// Names of the directories derived from the theme and site roots.
const (
	sourceDirName = "source"
	staticDirName = "static"
	publicDirName = "public"
)

// setDefaults configures default values in the viper instance. Required keys
// (compatibility, port, paths.sass, paths.javascript) deliberately have none.
func setDefaults(viperInstance *viper.Viper) {
	viperInstance.SetDefault("hugo.binary", DefaultHugoBinary)
	viperInstance.SetDefault("hugo.theme", "")
	viperInstance.SetDefault("hugo.min_version", "")
	viperInstance.SetDefault("hugo.args", []string{})
	viperInstance.SetDefault("lint.indent_size", DefaultIndentSize)
	viperInstance.SetDefault("lint.preserve_newlines", DefaultPreserveNewlines)
	viperInstance.SetDefault("watch.debounce", DefaultWatchDebounce)
	viperInstance.SetDefault("script.target", DefaultScriptTarget)
}
