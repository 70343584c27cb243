package router

import (
	"fmt"

	"simnet/internal/dataType"
	"simnet/internal/sim"
	"simnet/internal/utils"
	"simnet/internal/wire"
)

// sendRIPUpdate advertises the full routing table on every gate as a
// "dest:metric:hops," payload. Also the answer to a RIP_REQUEST.
func (r *Router) sendRIPUpdate(ctx *sim.Context) {
	routes := make([]utils.DVRoute, 0, len(r.table))
	for dest, entry := range r.table {
		routes = append(routes, utils.DVRoute{Dest: dest, Metric: entry.Metric, Hops: entry.HopCount})
	}
	payload := utils.EncodeDVRoutes(routes)

	for i := range r.txs {
		update := wire.New(wire.RIPUpdate, r.cfg.Addr, wire.Broadcast)
		update.Fields = &wire.DVUpdateFields{Routes: payload}
		r.txs[i].Enqueue(ctx, update)
	}
	ctx.Log().Debug(fmt.Sprintf("Router %d sent RIP update", r.cfg.Addr))
}

// handleRIPUpdate merges a neighbor's table: one hop added, anything at
// or past the infinity bound skipped, and an entry installed only for an
// unknown destination or a strictly better metric.
func (r *Router) handleRIPUpdate(ctx *sim.Context, f *wire.Frame, arrivalGate int) {
	fields, ok := f.Fields.(*wire.DVUpdateFields)
	if !ok {
		ctx.Log().Warn(fmt.Sprintf("[DROP] Router %d RIP update without routes from %d", r.cfg.Addr, f.Src))
		return
	}

	changed := false
	for _, adv := range utils.ParseDVRoutes(fields.Routes) {
		newMetric := adv.Metric + 1.0
		newHops := adv.Hops + 1
		if newHops >= dataType.DVInfinity {
			continue
		}
		existing, known := r.table[adv.Dest]
		if !known || newMetric < existing.Metric {
			r.table[adv.Dest] = dataType.RouteEntry{
				Dest:       adv.Dest,
				NextHop:    arrivalGate,
				Metric:     newMetric,
				HopCount:   newHops,
				LastUpdate: ctx.Now(),
			}
			changed = true
		}
	}

	if changed {
		ctx.Log().Info(fmt.Sprintf("Router %d updated routes from RIP neighbor %d", r.cfg.Addr, f.Src))
	}
}
