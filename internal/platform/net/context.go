// Package net carries request scoped context helpers
package net

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// WithRequest stores the request id under chi's key so chimw.GetReqID finds it
func WithRequest(ctx context.Context, reqID string) context.Context {
	if reqID == "" {
		return ctx
	}
	return context.WithValue(ctx, chimw.RequestIDKey, reqID)
}

// RequestID reads the request id off the context, empty when absent
func RequestID(ctx context.Context) string {
	return chimw.GetReqID(ctx)
}
