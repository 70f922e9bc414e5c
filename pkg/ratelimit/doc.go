// Package ratelimit paces requests sent to imgur.
//
// The fetch driver already sleeps between pages; the limiter sits underneath
// the HTTP client so that batch score lookups and account checks issued in
// quick succession are also spread out.
package ratelimit
