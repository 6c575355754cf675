package tui

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
)

// CustomTextHandler is a slog.Handler producing compact, colorized lines for the log pane.
type CustomTextHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	attrs []slog.Attr
	group string
}

// NewCustomTextHandler returns an instance of the CustomTextHandler ready for use.
func NewCustomTextHandler(out io.Writer) *CustomTextHandler {
	cth := &CustomTextHandler{
		mu: &sync.Mutex{},
		w:  out,
	}

	return cth
}

// Enabled reports whether the handler handles records at the given level.
func (*CustomTextHandler) Enabled(_ context.Context, level slog.Level) bool {
	// We hide debug messages from the UI.
	return level > slog.LevelDebug
}

// WithAttrs returns a handler adding the attributes to every record.
func (cth *CustomTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	ret := *cth
	ret.attrs = append(slices.Clone(cth.attrs), cth.qualify(attrs)...)

	return &ret
}

// WithGroup returns a handler prefixing the keys of later attributes with the group name.
func (cth *CustomTextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return cth
	}

	ret := *cth
	if ret.group != "" {
		ret.group += "."
	}

	ret.group += name

	return &ret
}

func (cth *CustomTextHandler) qualify(attrs []slog.Attr) []slog.Attr {
	if cth.group == "" {
		return attrs
	}

	ret := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		ret = append(ret, slog.Attr{Key: cth.group + "." + a.Key, Value: a.Value})
	}

	return ret
}

// Handle handles the Record.
func (cth *CustomTextHandler) Handle(_ context.Context, r slog.Record) error {
	var buf strings.Builder

	// Build up the base line with timestamp, log level, and message.
	buf.WriteString(r.Time.Format(time.TimeOnly) + " ")

	levelColor := ""

	switch r.Level {
	case slog.LevelDebug:
		levelColor = "[blue]"
	case slog.LevelInfo:
		levelColor = "[green]"
	case slog.LevelWarn:
		levelColor = "[yellow]"
	case slog.LevelError:
		levelColor = "[red]"
	}

	buf.WriteString(levelColor + r.Level.String() + "[white] ")
	buf.WriteString(r.Message)

	// Gather the attributes for this record.
	attrs := make(map[string]string, len(cth.attrs)+r.NumAttrs())
	for _, a := range cth.attrs {
		attrs[a.Key] = a.Value.String()
	}

	recordAttrs := []slog.Attr{}
	r.Attrs(func(a slog.Attr) bool {
		recordAttrs = append(recordAttrs, a)

		return true
	})

	for _, a := range cth.qualify(recordAttrs) {
		attrs[a.Key] = a.Value.String()
	}

	// Append any attributes.
	if len(attrs) > 0 {
		// Sort the keys so we have a consistent output.
		keys := make([]string, 0, len(attrs))
		for k := range attrs {
			keys = append(keys, k)
		}

		sort.Strings(keys)

		buf.WriteString("[purple]")

		// Append "k=v" to the log message.
		for _, k := range keys {
			buf.WriteString(" " + k + "=" + attrs[k])
		}

		buf.WriteString("[white]")
	}

	// Add a trailing newline.
	buf.WriteString("\n")

	// Write the line.
	cth.mu.Lock()
	defer cth.mu.Unlock()

	_, err := cth.w.Write([]byte(buf.String()))

	return err
}
