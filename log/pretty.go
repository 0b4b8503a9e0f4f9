package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// palette holds the styles used by the pretty handlers. Styles render plain
// text when the output is not a color terminal.
type palette struct {
	key, str, num, yes, no, null, time, source lipgloss.Style
	level                                      map[Level]lipgloss.Style
}

func newPalette(w io.Writer) *palette {
	r := lipgloss.NewRenderer(w)

	return &palette{
		key:    r.NewStyle().Foreground(lipgloss.Color("8")),
		str:    r.NewStyle().Foreground(lipgloss.Color("6")),
		num:    r.NewStyle().Foreground(lipgloss.Color("3")),
		yes:    r.NewStyle().Foreground(lipgloss.Color("2")),
		no:     r.NewStyle().Foreground(lipgloss.Color("1")),
		null:   r.NewStyle().Foreground(lipgloss.Color("8")).Italic(true),
		time:   r.NewStyle().Foreground(lipgloss.Color("4")),
		source: r.NewStyle().Foreground(lipgloss.Color("5")).Faint(true),
		level: map[Level]lipgloss.Style{
			LevelTrace: r.NewStyle().Foreground(lipgloss.Color("8")).Bold(true),
			LevelDebug: r.NewStyle().Foreground(lipgloss.Color("4")).Bold(true),
			LevelInfo:  r.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
			LevelWarn:  r.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
			LevelError: r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		},
	}
}

// levelStyle returns the style of the nearest named level at or below l.
func (p *palette) levelStyle(l slog.Level) lipgloss.Style {
	switch {
	case l >= slog.LevelError:
		return p.level[LevelError]
	case l >= slog.LevelWarn:
		return p.level[LevelWarn]
	case l >= slog.LevelInfo:
		return p.level[LevelInfo]
	case l >= slog.LevelDebug:
		return p.level[LevelDebug]
	default:
		return p.level[LevelTrace]
	}
}

// scalar renders a resolved non-group value. Strings are quoted when quote
// is set or when they would otherwise be ambiguous in text output.
func (p *palette) scalar(v slog.Value, quote bool) string {
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if quote || s == "" || strings.ContainsAny(s, " =\"\n\t") {
			s = strconv.Quote(s)
		}

		return p.str.Render(s)

	case slog.KindInt64:
		return p.num.Render(strconv.FormatInt(v.Int64(), 10))

	case slog.KindUint64:
		return p.num.Render(strconv.FormatUint(v.Uint64(), 10))

	case slog.KindFloat64:
		return p.num.Render(strconv.FormatFloat(v.Float64(), 'g', -1, 64))

	case slog.KindBool:
		if v.Bool() {
			return p.yes.Render("true")
		}

		return p.no.Render("false")

	case slog.KindDuration:
		return p.num.Render(v.Duration().String())

	case slog.KindTime:
		return p.time.Render(v.Time().Format(time.RFC3339Nano))

	default:
		a := v.Any()
		if a == nil {
			return p.null.Render("null")
		}

		if err, ok := a.(error); ok {
			a = err.Error()
		}

		s := fmt.Sprint(a)
		if quote {
			s = strconv.Quote(s)
		}

		return p.str.Render(s)
	}
}

// header resolves the time, level and source attributes of a record through
// the handler options.
func header(opts *slog.HandlerOptions, r slog.Record) []slog.Attr {
	attrs := make([]slog.Attr, 0, 3)

	if !r.Time.IsZero() {
		attrs = append(attrs, slog.Time(slog.TimeKey, r.Time))
	}

	attrs = append(attrs, slog.Any(slog.LevelKey, r.Level))

	if opts.AddSource && r.PC != 0 {
		if src := r.Source(); src != nil {
			attrs = append(attrs,
				slog.String(slog.SourceKey, fmt.Sprintf("%s:%d", src.File, src.Line)))
		}
	}

	if opts.ReplaceAttr == nil {
		return attrs
	}

	out := attrs[:0]

	for _, a := range attrs {
		if a = opts.ReplaceAttr(nil, a); a.Key != "" {
			out = append(out, a)
		}
	}

	return out
}

// prettyTextHandler writes one styled line per record:
// time, level, source, message and then key=value attributes.
type prettyTextHandler struct {
	opts   slog.HandlerOptions
	mu     *sync.Mutex
	w      io.Writer
	pal    *palette
	attrs  string   // preformatted attributes from WithAttrs
	groups []string // open groups, prefixed onto keys
}

func newPrettyTextHandler(
	w io.Writer,
	opts *slog.HandlerOptions,
) *prettyTextHandler {
	return &prettyTextHandler{
		opts: *opts,
		mu:   &sync.Mutex{},
		w:    w,
		pal:  newPalette(w),
	}
}

func (h *prettyTextHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *prettyTextHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer

	for _, a := range header(&h.opts, r) {
		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}

		switch a.Key {
		case slog.TimeKey:
			buf.WriteString(h.pal.time.Render(a.Value.String()))
		case slog.LevelKey:
			buf.WriteString(h.pal.levelStyle(r.Level).Render(a.Value.String()))
		case slog.SourceKey:
			buf.WriteString(h.pal.source.Render(a.Value.String()))
		default:
			h.writeAttr(&buf, nil, a)
		}
	}

	if buf.Len() > 0 {
		buf.WriteByte(' ')
	}

	buf.WriteString(r.Message)
	buf.WriteString(h.attrs)

	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(&buf, h.groups, a)

		return true
	})

	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.w.Write(buf.Bytes())

	return err
}

func (h *prettyTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}

	var buf bytes.Buffer

	buf.WriteString(h.attrs)

	for _, a := range attrs {
		h.writeAttr(&buf, h.groups, a)
	}

	c := *h
	c.attrs = buf.String()

	return &c
}

func (h *prettyTextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	c := *h
	c.groups = append(slices.Clip(h.groups), name)

	return &c
}

// writeAttr writes " key=value", flattening groups into dotted keys.
func (h *prettyTextHandler) writeAttr(
	buf *bytes.Buffer,
	groups []string,
	a slog.Attr,
) {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			groups = append(slices.Clip(groups), a.Key)
		}

		for _, g := range a.Value.Group() {
			h.writeAttr(buf, groups, g)
		}

		return
	}

	if h.opts.ReplaceAttr != nil {
		a = h.opts.ReplaceAttr(groups, a)
		a.Value = a.Value.Resolve()
	}

	if a.Equal(slog.Attr{}) {
		return
	}

	key := a.Key
	if len(groups) > 0 {
		key = strings.Join(groups, ".") + "." + key
	}

	buf.WriteByte(' ')
	buf.WriteString(h.pal.key.Render(key + "="))
	buf.WriteString(h.pal.scalar(a.Value, false))
}

// prettyJSONHandler writes each record as an indented, styled JSON object.
type prettyJSONHandler struct {
	opts   slog.HandlerOptions
	mu     *sync.Mutex
	w      io.Writer
	pal    *palette
	attrs  []slog.Attr
	groups []string
}

func newPrettyJSONHandler(
	w io.Writer,
	opts *slog.HandlerOptions,
) *prettyJSONHandler {
	return &prettyJSONHandler{
		opts: *opts,
		mu:   &sync.Mutex{},
		w:    w,
		pal:  newPalette(w),
	}
}

func (h *prettyJSONHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *prettyJSONHandler) Handle(_ context.Context, r slog.Record) error {
	fields := header(&h.opts, r)
	fields = append(fields, slog.String(slog.MessageKey, r.Message))
	fields = append(fields, h.attrs...)

	rec := make([]slog.Attr, 0, r.NumAttrs())

	r.Attrs(func(a slog.Attr) bool {
		rec = append(rec, a)

		return true
	})

	fields = append(fields, nest(h.groups, rec)...)

	var buf bytes.Buffer

	h.writeObject(&buf, nil, fields, 1)
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.w.Write(buf.Bytes())

	return err
}

func (h *prettyJSONHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}

	c := *h
	c.attrs = append(slices.Clip(h.attrs), nest(h.groups, attrs)...)

	return &c
}

func (h *prettyJSONHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	c := *h
	c.groups = append(slices.Clip(h.groups), name)

	return &c
}

// nest wraps attrs in the given groups, outermost first.
func nest(groups []string, attrs []slog.Attr) []slog.Attr {
	if len(attrs) == 0 {
		return nil
	}

	for i := len(groups) - 1; i >= 0; i-- {
		attrs = []slog.Attr{{Key: groups[i], Value: slog.GroupValue(attrs...)}}
	}

	return attrs
}

func (h *prettyJSONHandler) writeObject(
	buf *bytes.Buffer,
	groups []string,
	attrs []slog.Attr,
	depth int,
) {
	indent := strings.Repeat("  ", depth)
	first := true

	buf.WriteByte('{')

	for _, a := range attrs {
		a.Value = a.Value.Resolve()

		if a.Value.Kind() != slog.KindGroup && h.opts.ReplaceAttr != nil {
			a = h.opts.ReplaceAttr(groups, a)
			a.Value = a.Value.Resolve()
		}

		if a.Equal(slog.Attr{}) {
			continue
		}

		if a.Value.Kind() == slog.KindGroup && len(a.Value.Group()) == 0 {
			continue
		}

		if !first {
			buf.WriteByte(',')
		}

		first = false

		buf.WriteByte('\n')
		buf.WriteString(indent)
		buf.WriteString(h.pal.key.Render(strconv.Quote(a.Key)))
		buf.WriteString(": ")

		if a.Value.Kind() == slog.KindGroup {
			h.writeObject(buf, append(slices.Clip(groups), a.Key), a.Value.Group(), depth+1)

			continue
		}

		if a.Key == slog.LevelKey && len(groups) == 0 {
			buf.WriteString(h.pal.levelStyle(levelOf(a.Value)).
				Render(strconv.Quote(a.Value.String())))

			continue
		}

		buf.WriteString(h.pal.scalar(a.Value, true))
	}

	if !first {
		buf.WriteByte('\n')
		buf.WriteString(strings.Repeat("  ", depth-1))
	}

	buf.WriteByte('}')
}

// levelOf recovers the level of a level attribute after ReplaceAttr turned
// it into its label.
func levelOf(v slog.Value) slog.Level {
	if l, ok := v.Any().(slog.Level); ok {
		return l
	}

	for _, l := range []Level{LevelError, LevelWarn, LevelInfo, LevelDebug, LevelTrace} {
		if strings.EqualFold(v.String(), l.String()) {
			return slog.Level(l)
		}
	}

	return slog.LevelInfo
}
