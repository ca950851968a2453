package services

import "context"

type contextKey string

const (
	imageKey     contextKey = "image"
	boxKey       contextKey = "box"
	stageKey     contextKey = "stage"
	requestIDKey contextKey = "request_id"
)

// WithImage annotates context with the path of the image being analysed.
func WithImage(ctx context.Context, path string) context.Context {
	if path == "" {
		return ctx
	}
	return context.WithValue(ctx, imageKey, path)
}

// ImageFromContext returns the image path if present.
func ImageFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(imageKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithBox annotates context with the box name.
func WithBox(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, boxKey, name)
}

// BoxFromContext returns the box name if present.
func BoxFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(boxKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
