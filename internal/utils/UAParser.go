package utils

import (
	"fmt"

	"github.com/mssola/useragent"
)

// SummarizeUserAgent turns a raw User-Agent into the short form written
// to the HTTP server's access log. Non-browser strings pass through.
func SummarizeUserAgent(inputUA string) string {
	if len(inputUA) < 8 || inputUA[:8] != "Mozilla/" {
		return inputUA
	}

	ua := useragent.New(inputUA)

	engine, engineVersion := ua.Engine()
	browser, browserVersion := ua.Browser()

	return fmt.Sprintf("Platform:%v,OS:%v,Engine:%v %v,Browser:%v %v",
		ua.Platform(), ua.OS(), engine, engineVersion, browser, browserVersion)
}
