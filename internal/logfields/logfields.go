package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyStage      = "stage"
	KeyState      = "state"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyURL        = "url"
	KeyLayout     = "layout"
	KeyChain      = "chain_position"
	KeyGeneration = "generation"
	KeyCount      = "count"
	KeyKind       = "kind"
	KeyOp         = "op"
	KeyAddr       = "addr"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyRemoteAddr = "remote_addr"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func State(name string) slog.Attr     { return slog.String(KeyState, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Layout(name string) slog.Attr    { return slog.String(KeyLayout, name) }
func ChainPosition(i int) slog.Attr   { return slog.Int(KeyChain, i) }
func Generation(g uint64) slog.Attr   { return slog.Uint64(KeyGeneration, g) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Kind(k string) slog.Attr         { return slog.String(KeyKind, k) }
func Op(op string) slog.Attr          { return slog.String(KeyOp, op) }
func Addr(a string) slog.Attr         { return slog.String(KeyAddr, a) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func RemoteAddr(a string) slog.Attr   { return slog.String(KeyRemoteAddr, a) }

// Since reports the elapsed milliseconds since t0.
func Since(t0 time.Time) slog.Attr {
	return DurationMS(float64(time.Since(t0).Microseconds()) / 1000)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
