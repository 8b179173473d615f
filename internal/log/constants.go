package log

// Structured logging keys.
const (
	Addr     = "addr"
	Args     = "args"
	Binding  = "binding"
	Clients  = "clients"
	Cmd      = "cmd"
	Dir      = "dir"
	Duration = "duration"
	Error    = "error"
	File     = "file"
	Files    = "files"
	Mode     = "mode"
	Op       = "op"
	Path     = "path"
	Pattern  = "pattern"
	Task     = "task"
	Version  = "version"
)
