package auditcontext

import (
	"context"
	"strings"
)

type ctxKey int

const (
	actorKey ctxKey = iota
	requestIDKey
	ipAddressKey
	userAgentKey
)

const (
	ActorTypeUser   = "user"
	ActorTypeSystem = "system"
)

// Actor is the caller on whose behalf an operation runs. Role is resolved by
// the upstream gateway; this service only consumes it.
type Actor struct {
	Type string
	ID   string
	Role string
}

func (a Actor) Subject() string {
	if a.Type == ActorTypeSystem {
		return ActorTypeSystem
	}
	return a.Type + ":" + a.ID
}

func (a Actor) Valid() bool {
	switch a.Type {
	case ActorTypeSystem:
		return true
	case ActorTypeUser:
		return strings.TrimSpace(a.ID) != "" && strings.TrimSpace(a.Role) != ""
	default:
		return false
	}
}

// System is the actor used by background jobs.
var System = Actor{Type: ActorTypeSystem, ID: "system", Role: "system"}

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withString(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	return stringFrom(ctx, requestIDKey)
}

func WithIPAddress(ctx context.Context, ip string) context.Context {
	return withString(ctx, ipAddressKey, ip)
}

func IPAddressFromContext(ctx context.Context) string {
	return stringFrom(ctx, ipAddressKey)
}

func WithUserAgent(ctx context.Context, ua string) context.Context {
	return withString(ctx, userAgentKey, ua)
}

func UserAgentFromContext(ctx context.Context) string {
	return stringFrom(ctx, userAgentKey)
}

func withString(ctx context.Context, key ctxKey, value string) context.Context {
	value = strings.TrimSpace(value)
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringFrom(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(key).(string)
	return value
}
