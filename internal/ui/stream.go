package ui

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
)

// LogFormatter turns JSON log lines into compact, colored terminal lines.
// It implements io.Writer so it can sit behind a slog JSON handler.
type LogFormatter struct {
	dest io.Writer
	mu   sync.Mutex
	buf  []byte
}

// NewLogFormatter creates a LogFormatter writing to dest.
func NewLogFormatter(dest io.Writer) *LogFormatter {
	return &LogFormatter{dest: dest}
}

func (lf *LogFormatter) Write(p []byte) (int, error) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	lf.buf = append(lf.buf, p...)
	for {
		idx := bytes.IndexByte(lf.buf, '\n')
		if idx == -1 {
			break
		}
		line := string(lf.buf[:idx])
		lf.buf = lf.buf[idx+1:]
		lf.processLine(line)
	}
	return len(p), nil
}

func (lf *LogFormatter) processLine(line string) {
	if !gjson.Valid(line) {
		// Not ours; pass it through untouched.
		fmt.Fprintln(lf.dest, line)
		return
	}

	entry := gjson.Parse(line)
	var sb strings.Builder
	sb.WriteString(Level(entry.Get("level").String()))
	sb.WriteString(" ")
	sb.WriteString(entry.Get("msg").String())

	var attrs []string
	entry.ForEach(func(key, value gjson.Result) bool {
		switch key.String() {
		case "time", "level", "msg":
		default:
			attrs = append(attrs, Dim(key.String()+"=")+value.String())
		}
		return true
	})
	sort.Strings(attrs)
	for _, a := range attrs {
		sb.WriteString(" ")
		sb.WriteString(a)
	}
	fmt.Fprintln(lf.dest, sb.String())
}
