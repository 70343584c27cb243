package server

import (
	"simnet/internal/action"
	"simnet/internal/sim"
	"simnet/internal/tcp"
	"simnet/internal/wire"
)

// CheckFunc is one step of the SYN ingress chain. The first check that
// sets Drop wins.
type CheckFunc func(ctx *sim.Context, f *wire.Frame, b *Base, d *action.Decision)

var synChecks = []CheckFunc{
	CheckSynFlood,
	CheckSynCookie,
}

// CheckSynFlood bumps the per-source counter and drops once the source
// exceeds the rate limit. Runs before the cookie check so a flood never
// costs hash work.
func CheckSynFlood(ctx *sim.Context, f *wire.Frame, b *Base, d *action.Decision) {
	if b.Syn.Bump(f.Src, ctx.Now()) > b.SynRateLimit {
		d.SetDrop("rate limit exceeded")
		return
	}
	d.Set(action.Allow)
}

// CheckSynCookie recomputes the cookie under the process secret and
// silently rejects mismatches. No reply: the server does not leak its
// existence to a spoofer.
func CheckSynCookie(ctx *sim.Context, f *wire.Frame, b *Base, d *action.Decision) {
	syn, ok := f.Fields.(*wire.SynFields)
	if !ok {
		d.SetDrop("missing SYN cookie")
		return
	}
	if !tcp.ValidCookie(ctx.Secret(), syn.Cookie, f.Src, b.Addr, f.Seq) {
		d.SetDrop("invalid SYN cookie")
		return
	}
	d.Set(action.Allow)
}
