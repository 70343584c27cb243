package utils

import (
	"fmt"
	"strconv"
	"strings"

	"simnet/internal/wire"
)

// StaticRoute is one "dest:gate" pair from a router's static route string.
type StaticRoute struct {
	Dest wire.Addr
	Gate int
}

// ParseStaticRoutes parses a comma-separated "dest:gate,dest:gate" list.
// Empty items are skipped; a malformed item fails the whole parse so a
// typo in a topology file is caught at load time.
func ParseStaticRoutes(s string) ([]StaticRoute, error) {
	var out []StaticRoute
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, ":")
		if len(parts) != 2 {
			return nil, fmt.Errorf("unexpected route format: %s", item)
		}
		dest, err := strconv.ParseUint(parts[0], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("unexpected route dest: %s", item)
		}
		gate, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("unexpected route gate: %s", item)
		}
		out = append(out, StaticRoute{Dest: wire.Addr(dest), Gate: gate})
	}
	return out, nil
}

// DVRoute is one advertised distance-vector entry.
type DVRoute struct {
	Dest   wire.Addr
	Metric float64
	Hops   int
}

// EncodeDVRoutes serializes routing table entries as "dest:metric:hops,"
// pairs, the distance-vector update wire format.
func EncodeDVRoutes(routes []DVRoute) string {
	var sb strings.Builder
	for _, r := range routes {
		fmt.Fprintf(&sb, "%d:%g:%d,", r.Dest, r.Metric, r.Hops)
	}
	return sb.String()
}

// ParseDVRoutes decodes a distance-vector update payload. Entries that
// do not parse are skipped, not fatal: a neighbor's garbage should not
// take the update down with it.
func ParseDVRoutes(s string) []DVRoute {
	var out []DVRoute
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, ":")
		if len(parts) != 3 {
			continue
		}
		dest, err := strconv.ParseUint(parts[0], 10, 32)
		if err != nil {
			continue
		}
		metric, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			continue
		}
		hops, err := strconv.Atoi(parts[2])
		if err != nil {
			continue
		}
		out = append(out, DVRoute{Dest: wire.Addr(dest), Metric: metric, Hops: hops})
	}
	return out
}
