package logger

import (
	"context"
	"log/slog"

	"github.com/rs/zerolog"
)

// slogHandler lets the geometry and import packages log through log/slog while
// records still end up on the zerolog writer with the request, area and component
// fields taken from the context.
type slogHandler struct {
	zl     *zerolog.Logger
	attrs  []slog.Attr
	prefix string
}

func NewSlog(zl *zerolog.Logger) *slog.Logger {
	return slog.New(&slogHandler{zl: zl})
}

func (h *slogHandler) Enabled(_ context.Context, lvl slog.Level) bool {
	l := zerologLevel(lvl)
	if h.zl == nil {
		return false
	}
	return l >= h.zl.GetLevel() && l >= zerolog.GlobalLevel()
}

func (h *slogHandler) Handle(ctx context.Context, r slog.Record) error {
	zl := FromContext(ctx, h.zl)
	ev := zl.WithLevel(zerologLevel(r.Level))
	if ev == nil {
		return nil
	}
	for _, a := range h.attrs {
		ev = appendAttr(ev, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		ev = appendAttr(ev, h.prefix, a)
		return true
	})
	ev.Msg(r.Message)
	return nil
}

func (h *slogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *h
	cp.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	cp.attrs = append(cp.attrs, h.attrs...)
	for _, a := range attrs {
		if h.prefix != "" {
			a.Key = h.prefix + a.Key
		}
		cp.attrs = append(cp.attrs, a)
	}
	return &cp
}

// WithGroup flattens groups into dotted keys, e.g. "footprint.width".
func (h *slogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	cp := *h
	cp.prefix = h.prefix + name + "."
	return &cp
}

func zerologLevel(l slog.Level) zerolog.Level {
	switch {
	case l < slog.LevelInfo:
		return zerolog.DebugLevel
	case l < slog.LevelWarn:
		return zerolog.InfoLevel
	case l < slog.LevelError:
		return zerolog.WarnLevel
	}
	return zerolog.ErrorLevel
}

func appendAttr(ev *zerolog.Event, prefix string, a slog.Attr) *zerolog.Event {
	v := a.Value.Resolve()
	if a.Key == "" && v.Kind() != slog.KindGroup {
		return ev
	}
	key := prefix + a.Key
	switch v.Kind() {
	case slog.KindString:
		return ev.Str(key, v.String())
	case slog.KindInt64:
		return ev.Int64(key, v.Int64())
	case slog.KindUint64:
		return ev.Uint64(key, v.Uint64())
	case slog.KindFloat64:
		return ev.Float64(key, v.Float64())
	case slog.KindBool:
		return ev.Bool(key, v.Bool())
	case slog.KindDuration:
		return ev.Str(key, v.Duration().String())
	case slog.KindTime:
		return ev.Time(key, v.Time())
	case slog.KindGroup:
		if a.Key != "" {
			prefix = key + "."
		}
		for _, g := range v.Group() {
			ev = appendAttr(ev, prefix, g)
		}
		return ev
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return ev.AnErr(key, err)
		}
	}
	return ev.Interface(key, v.Any())
}
