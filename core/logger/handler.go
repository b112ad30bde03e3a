package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

type lineFormat uint8

const (
	formatJSON lineFormat = iota
	formatKV
)

const tsLayout = "2006-01-02T15:04:05.000Z07:00"

var errNoWriter = errors.New("logger: writer not initialized")

type handlerOptions struct {
	level  slog.Leveler
	out    *asyncWriter
	format lineFormat
	order  []string
}

// entry is a flattened log record keyed by attribute path.
type entry map[string]any

func (e entry) str(key string) string {
	switch v := e[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func (e entry) setDefault(key string, val any) {
	if _, ok := e[key]; !ok {
		e[key] = val
	}
}

// recordHandler renders slog records as single JSON or key=value lines
// with a stable key order.
type recordHandler struct {
	opts   handlerOptions
	preset []slog.Attr
	groups []string
}

func newRecordHandler(opts handlerOptions) *recordHandler {
	if opts.level == nil {
		opts.level = slog.LevelInfo
	}
	if opts.order == nil {
		opts.order = slices.Clone(defaultKeyOrder)
	}
	return &recordHandler{opts: opts}
}

func (h *recordHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.level.Level()
}

func (h *recordHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.opts.out == nil {
		return errNoWriter
	}

	e := make(entry, 16)
	ts := r.Time.UTC()
	e["ts"] = ts.Truncate(time.Millisecond).Format(tsLayout)
	e["level"] = normalizeLevel(r.Level.String())
	if h.opts.format == formatJSON {
		e["ts_unix_nano"] = ts.UnixNano()
	}

	prefix := strings.Join(h.groups, ".")
	for _, a := range h.preset {
		h.put(e, prefix, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.put(e, prefix, a)
		return true
	})
	fillFromContext(ctx, e)
	h.finish(e, r.Message)

	line, err := h.render(e)
	if err != nil {
		return err
	}
	if n := len(line); n == 0 || line[n-1] != '\n' {
		line = append(line, '\n')
	}
	return h.opts.out.Write(line)
}

func (h *recordHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.preset = append(slices.Clone(h.preset), attrs...)
	return &clone
}

func (h *recordHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(slices.Clone(h.groups), name)
	return &clone
}

func (h *recordHandler) put(e entry, prefix string, a slog.Attr) {
	key := a.Key
	switch {
	case key == "":
		key = prefix
	case prefix != "":
		key = prefix + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, child := range a.Value.Group() {
			h.put(e, key, child)
		}
		return
	}
	if key == "" {
		return
	}
	if k, v, ok := convertValue(key, a.Value.Resolve()); ok {
		e[k] = v
	}
}

// finish fills required keys, compacts rid and drops empty or invalid values.
func (h *recordHandler) finish(e entry, msg string) {
	if rid := e.str("rid"); rid != "" {
		if short := CompactRID(rid); short != rid {
			if h.opts.format == formatJSON {
				e.setDefault("rid_full", rid)
			}
			e["rid"] = short
		}
	}
	if e.str("event") == "" {
		if msg == "" {
			msg = "unknown"
		}
		e["event"] = msg
	}
	if e.str("component") == "" {
		e["component"] = ComponentApp
	}
	if s := e.str("status"); s != "" {
		e["status"], _ = normalizeStatus(s)
	}
	if o := e.str("outcome"); o != "" {
		if v, ok := normalizeOutcome(o); ok {
			e["outcome"] = v
		} else {
			delete(e, "outcome")
		}
	}
	if st := e.str("stage"); st != "" {
		e["stage"] = strings.ToLower(st)
	}
	for k, v := range e {
		if v == nil {
			delete(e, k)
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			delete(e, k)
		}
	}
}

func (h *recordHandler) render(e entry) ([]byte, error) {
	keys := sortedKeys(e, h.opts.order)
	var buf bytes.Buffer
	if h.opts.format == formatJSON {
		buf.WriteByte('{')
		for i, k := range keys {
			raw, err := json.Marshal(e[k])
			if err != nil {
				return nil, fmt.Errorf("logger: encode %s: %w", k, err)
			}
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(strconv.Quote(k))
			buf.WriteByte(':')
			buf.Write(raw)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	}
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(k)
		buf.WriteByte('=')
		buf.WriteString(kvValue(e[k]))
	}
	return buf.Bytes(), nil
}

// sortedKeys lists preferred keys first, then the rest alphabetically.
func sortedKeys(e entry, order []string) []string {
	keys := make([]string, 0, len(e))
	seen := make(map[string]struct{}, len(order))
	for _, k := range order {
		if _, ok := e[k]; !ok {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	rest := make([]string, 0, len(e)-len(keys))
	for k := range e {
		if _, ok := seen[k]; !ok {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	return append(keys, rest...)
}

func durationKey(key string) string {
	switch {
	case key == "duration":
		return "duration_ms"
	case strings.HasSuffix(key, "_duration"):
		return key + "_ms"
	case strings.HasSuffix(key, "_ms"):
		return key
	default:
		return key + "_ms"
	}
}

func convertValue(key string, v slog.Value) (string, any, bool) {
	switch v.Kind() {
	case slog.KindString:
		return key, strings.TrimSpace(v.String()), true
	case slog.KindBool:
		return key, v.Bool(), true
	case slog.KindInt64:
		return key, v.Int64(), true
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return key, int64(u), true
		}
		return key, v.Uint64(), true
	case slog.KindFloat64:
		return key, v.Float64(), true
	case slog.KindDuration:
		return durationKey(key), RoundMS(v.Duration()).Milliseconds(), true
	case slog.KindTime:
		return key, v.Time().UTC().Format(time.RFC3339Nano), true
	}
	switch x := v.Any().(type) {
	case nil:
		return key, nil, false
	case error:
		return key, x.Error(), true
	case string:
		return key, strings.TrimSpace(x), true
	case time.Duration:
		return durationKey(key), RoundMS(x).Milliseconds(), true
	case fmt.Stringer:
		return key, x.String(), true
	default:
		return key, fmt.Sprint(x), true
	}
}

func kvValue(val any) string {
	var s string
	switch v := val.(type) {
	case string:
		s = v
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		s = fmt.Sprint(v)
	}
	if strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(s)
	}
	return s
}

func fillFromContext(ctx context.Context, e entry) {
	if ctx == nil {
		return
	}
	if rid := RIDFrom(ctx); rid != "" {
		e.setDefault("rid", rid)
	}
	if id := UpdateIDFrom(ctx); id != 0 {
		e.setDefault("update_id", id)
	}
	if id := UserIDFrom(ctx); id != 0 {
		e.setDefault("user_id", id)
	}
	if id := ChatIDFrom(ctx); id != 0 {
		e.setDefault("chat_id", id)
	}
	if name := HandlerFrom(ctx); name != "" {
		e.setDefault("handler", name)
	}
	if id := OrderIDFrom(ctx); id != "" {
		e.setDefault("order_id", id)
	}
}
