package logger

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

const (
	ansiReset = "\033[0m"
	ansiBlue  = "\033[34m"
)

var levelTags = map[string]struct{ tag, color string }{
	"DEBUG": {"DBG", "\033[36m"},
	"INFO":  {"INF", "\033[32m"},
	"WARN":  {"WRN", "\033[33m"},
	"ERROR": {"ERR", "\033[31m"},
	"FATAL": {"FTL", "\033[35m"},
}

func paint(s, color string, noColor bool) string {
	if noColor || color == "" {
		return s
	}
	return color + s + ansiReset
}

// consoleWriter prints "[USE][INF] message key:value" lines, where USE is
// the first three letters of the service name.
func consoleWriter(w io.Writer, service string, noColor bool) zerolog.ConsoleWriter {
	prefix := ""
	if service != "default" && len(service) >= 3 {
		prefix = paint("["+strings.ToUpper(service[:3])+"]", ansiBlue, noColor)
	}
	return zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
		NoColor:    noColor,
		FormatLevel: func(i interface{}) string {
			lvl := strings.ToUpper(fmt.Sprint(i))
			t, ok := levelTags[lvl]
			if !ok {
				return prefix + "[" + lvl + "]"
			}
			return prefix + paint("["+t.tag+"]", t.color, noColor)
		},
		FormatFieldName: func(i interface{}) string { return fmt.Sprint(i) + ":" },
	}
}
