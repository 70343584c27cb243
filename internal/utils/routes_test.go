package utils

import "testing"

func TestParseStaticRoutes(t *testing.T) {
	routes, err := ParseStaticRoutes("1:0, 3:1,601:1,")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []StaticRoute{{1, 0}, {3, 1}, {601, 1}}
	if len(routes) != len(want) {
		t.Fatalf("parsed %d routes, want %d", len(routes), len(want))
	}
	for i, r := range routes {
		if r != want[i] {
			t.Errorf("route %d = %+v, want %+v", i, r, want[i])
		}
	}
}

func TestParseStaticRoutesEmpty(t *testing.T) {
	routes, err := ParseStaticRoutes("")
	if err != nil || len(routes) != 0 {
		t.Fatalf("empty string should parse to nothing, got %v, %v", routes, err)
	}
}

func TestParseStaticRoutesMalformed(t *testing.T) {
	for _, s := range []string{"1", "a:0", "1:b", "1:0:2"} {
		if _, err := ParseStaticRoutes(s); err == nil {
			t.Errorf("%q should fail to parse", s)
		}
	}
}

func TestDVRoutesRoundTrip(t *testing.T) {
	in := []DVRoute{
		{Dest: 1, Metric: 1, Hops: 1},
		{Dest: 601, Metric: 2.5, Hops: 3},
	}
	out := ParseDVRoutes(EncodeDVRoutes(in))
	if len(out) != len(in) {
		t.Fatalf("round trip lost entries: %v", out)
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("entry %d = %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestParseDVRoutesSkipsGarbage(t *testing.T) {
	out := ParseDVRoutes("1:1:1,garbage,2:x:1,:::,3:3:3")
	want := []DVRoute{{Dest: 1, Metric: 1, Hops: 1}, {Dest: 3, Metric: 3, Hops: 3}}
	if len(out) != len(want) {
		t.Fatalf("parsed %v, want %v", out, want)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("parsed %v, want %v", out, want)
		}
	}
}

func TestSummarizeUserAgentPassThrough(t *testing.T) {
	if got := SummarizeUserAgent("curl/8.0"); got != "curl/8.0" {
		t.Errorf("non-browser UA must pass through, got %q", got)
	}
}

func TestSummarizeUserAgentBrowser(t *testing.T) {
	ua := "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	got := SummarizeUserAgent(ua)
	if got == ua {
		t.Error("browser UA should be summarized")
	}
}
