// Package timeouts holds the HTTP server limits used by the battle server.
package timeouts

import "time"

const (
	// ReadHeader bounds how long a client may take to send request headers.
	ReadHeader = 5 * time.Second
	// Idle closes keep-alive connections left unused this long.
	Idle = 60 * time.Second
	// Shutdown bounds the wait for in-flight requests on graceful stop.
	Shutdown = 5 * time.Second
	// StreamWrite bounds each websocket frame written during a streamed battle.
	StreamWrite = 10 * time.Second
	// StreamRequest bounds the wait for the scenario message on a new stream.
	StreamRequest = 30 * time.Second
)
