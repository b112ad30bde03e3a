package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, format lineFormat, emit func(log *slog.Logger)) string {
	t.Helper()
	buf := &bytes.Buffer{}
	w := newAsyncWriter([]io.Writer{buf}, 1024)
	h := newRecordHandler(handlerOptions{level: slog.LevelDebug, out: w, format: format})
	emit(slog.New(h))
	require.NoError(t, w.Flush())
	require.NoError(t, w.Close())
	return strings.TrimSpace(buf.String())
}

func TestRecordHandlerKVOrder(t *testing.T) {
	ctx := WithUpdateMeta(WithRID(Background(), "rid-123"), 42, 7, 9)
	line := capture(t, formatKV, func(log *slog.Logger) {
		LogEvent(ctx, log.With("component", ComponentPipeline), slog.LevelInfo, "order.approved",
			slog.String("status", "OK"),
			slog.String("sku", "SKU123"),
			slog.Int("qty", 2),
		)
	})

	tokens := strings.Split(line, " ")
	expected := []string{"ts=", "level=INFO", "component=service.pipeline", "event=order.approved", "status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9"}
	require.GreaterOrEqual(t, len(tokens), len(expected), line)
	for i, prefix := range expected {
		assert.True(t, strings.HasPrefix(tokens[i], prefix), "token %d = %s, want prefix %s", i, tokens[i], prefix)
	}
	assert.Less(t, strings.Index(line, "sku="), strings.Index(line, "qty="))
}

func TestRecordHandlerJSONOrder(t *testing.T) {
	ctx := WithOrderID(WithRID(Background(), "rid-json"), "ord-1")
	line := capture(t, formatJSON, func(log *slog.Logger) {
		LogEvent(ctx, log.With("component", ComponentSender), slog.LevelError, "notify.failed",
			slog.String("status", "fail"),
			slog.String("err", "boom"),
			slog.String("err_code", "EXTERNAL_CALL_FAILURE"),
		)
	})

	require.True(t, strings.HasPrefix(line, "{"), line)
	ordered := []string{`{"ts":`, `"level":"ERROR"`, `"component":"tg.sender"`, `"event":"notify.failed"`, `"status":"fail"`, `"rid":"rid-json"`, `"order_id":"ord-1"`, `"err":"boom"`}
	pos := -1
	for _, want := range ordered {
		idx := strings.Index(line, want)
		require.NotEqual(t, -1, idx, "%s missing in %s", want, line)
		require.Greater(t, idx, pos, "%s out of order in %s", want, line)
		pos = idx
	}
}

func TestRecordHandlerCompactRID(t *testing.T) {
	raw := "123:456:789"
	kv := capture(t, formatKV, func(log *slog.Logger) {
		LogEvent(WithRID(Background(), raw), log, slog.LevelInfo, "rid.test")
	})
	assert.Contains(t, kv, "rid="+CompactRID(raw))
	assert.NotContains(t, kv, "rid_full=")
	assert.Contains(t, kv, "component=app")

	js := capture(t, formatJSON, func(log *slog.Logger) {
		LogEvent(WithRID(Background(), raw), log, slog.LevelInfo, "rid.test")
	})
	assert.Contains(t, js, `"rid":"`+CompactRID(raw)+`"`)
	assert.Contains(t, js, `"rid_full":"`+raw+`"`)
	assert.Contains(t, js, `"ts_unix_nano"`)
}

func TestRecordHandlerGroupsAndEmptyValues(t *testing.T) {
	line := capture(t, formatKV, func(log *slog.Logger) {
		log.WithGroup("poll").LogAttrs(context.Background(), slog.LevelInfo, "poll.answer",
			slog.String("id", "p1"),
			slog.String("empty", ""),
			slog.Group("opt", slog.Int("count", 2)),
		)
	})
	assert.Contains(t, line, "event=poll.answer")
	assert.Contains(t, line, "poll.id=p1")
	assert.Contains(t, line, "poll.opt.count=2")
	assert.NotContains(t, line, "poll.empty")
}

func TestRecordHandlerQuotesKVValues(t *testing.T) {
	line := capture(t, formatKV, func(log *slog.Logger) {
		LogEvent(Background(), log, slog.LevelWarn, "catalog.item",
			slog.String("supplier", "Fresh Farms"),
			slog.String("outcome", "bogus"),
		)
	})
	assert.Contains(t, line, `supplier="Fresh Farms"`)
	assert.NotContains(t, line, "outcome=")
	assert.Contains(t, line, "level=WARN")
}

func TestCompactRID(t *testing.T) {
	assert.Equal(t, "z.a.1", CompactRID("35:10:1"))
	assert.Equal(t, "not-a-rid", CompactRID("not-a-rid"))
	assert.Equal(t, "1:x:3", CompactRID("1:x:3"))
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(1, 3)
	got := []bool{s.Allow(), s.Allow(), s.Allow(), s.Allow()}
	assert.Equal(t, []bool{true, false, false, true}, got)

	s.Set(0, 0)
	assert.True(t, s.Allow())

	num, den := parseRatioSpec("2/5")
	assert.Equal(t, [2]int{2, 5}, [2]int{num, den})
	num, den = parseRatioSpec("10")
	assert.Equal(t, [2]int{1, 10}, [2]int{num, den})
}

func TestSanitizeLimit(t *testing.T) {
	assert.Equal(t, "ab\tc", Sanitize("a\x00b\tc\u200b"))
	assert.Equal(t, "ab", SanitizeLimit("abcdef", 2))
	assert.Equal(t, "", SanitizeLimit("abc", 0))
}

func TestHelpersAreSafeBeforeInit(t *testing.T) {
	assert.NotPanics(t, func() {
		Info(context.Background(), ComponentPipeline, "noop", slog.String("sku", "x"))
		TG.Info("noop")
	})
}
