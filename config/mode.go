package config

// Mode is the build mode, fixed once at startup.
type Mode struct {
	Production bool
}

// Development is the default mode.
var Development = Mode{} //nolint:gochecknoglobals // zero value constant

// Production builds minified artifacts without source maps.
var Production = Mode{Production: true} //nolint:gochecknoglobals // value constant

func (m Mode) String() string {
	if m.Production {
		return "production"
	}
	return "development"
}
