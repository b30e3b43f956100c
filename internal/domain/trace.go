package domain

import "context"

type callTraceKey struct{}

// CallTrace collects what a single request did upstream.
// The handler puts a pointer into the context before calling the service;
// services write to it; the handler reads it for response headers.
// Written only from the request goroutine.
type CallTrace struct {
	UpstreamCalls int
	CacheHit      bool
}

// NewContextWithTrace returns a context with an embedded call trace.
func NewContextWithTrace(ctx context.Context) (context.Context, *CallTrace) {
	t := &CallTrace{}
	return context.WithValue(ctx, callTraceKey{}, t), t
}

// TraceFromContext extracts the call trace from context. Returns nil if not set.
func TraceFromContext(ctx context.Context) *CallTrace {
	t, _ := ctx.Value(callTraceKey{}).(*CallTrace)
	return t
}

// AddUpstreamCall records one network call to an external service.
func (t *CallTrace) AddUpstreamCall() {
	if t != nil {
		t.UpstreamCalls++
	}
}

// MarkCacheHit records that the response was served from cache.
func (t *CallTrace) MarkCacheHit() {
	if t != nil {
		t.CacheHit = true
	}
}
