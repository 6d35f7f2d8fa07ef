package cmdutil

import (
	"fmt"
	"strings"

	"github.com/go-kit/log/level"
)

var levels = map[string]LogLevel{
	"error": {value: level.ErrorValue(), option: level.AllowError()},
	"warn":  {value: level.WarnValue(), option: level.AllowWarn()},
	"info":  {value: level.InfoValue(), option: level.AllowInfo()},
	"debug": {value: level.DebugValue(), option: level.AllowDebug()},
}

var defaultLogLevel = levels["info"]

// LogLevel implements flag.Value and can be used to set the logging level
// from a flag. The zero value logs at info level.
type LogLevel struct {
	value  level.Value
	option level.Option
}

// String implements flag.Value.
func (l LogLevel) String() string {
	if l.value == nil {
		return defaultLogLevel.String()
	}
	return l.value.String()
}

// Set implements flag.Value.
func (l *LogLevel) Set(in string) error {
	name := strings.ToLower(in)
	if name == "warning" {
		name = "warn"
	}
	lvl, ok := levels[name]
	if !ok {
		return fmt.Errorf("unknown log level %q, valid options error, warn, info, debug", in)
	}
	*l = lvl
	return nil
}

// FilterOption returns l as an option that can be used with level.NewFilter.
func (l LogLevel) FilterOption() level.Option {
	if l.option == nil {
		return defaultLogLevel.option
	}
	return l.option
}

// DebugFlag is a boolean flag which switches a LogLevel to debug when set.
// It lets "-debug" be used as shorthand for "-log.level=debug".
type DebugFlag struct {
	Level *LogLevel
}

// IsBoolFlag marks DebugFlag as not taking a value.
func (DebugFlag) IsBoolFlag() bool { return true }

// String implements flag.Value.
func (f DebugFlag) String() string {
	if f.Level != nil && f.Level.value == levels["debug"].value {
		return "true"
	}
	return "false"
}

// Set implements flag.Value. Setting the flag to false leaves the level
// alone.
func (f DebugFlag) Set(in string) error {
	switch strings.ToLower(in) {
	case "true", "1", "t":
		return f.Level.Set("debug")
	case "false", "0", "f":
		return nil
	default:
		return fmt.Errorf("invalid boolean value %q", in)
	}
}
