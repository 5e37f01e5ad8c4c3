// Package audit carrega o identificador opaco do usuário que executa uma escrita.
package audit

import "context"

type actorKey struct{}

// SystemActor é usado quando nenhuma identidade foi anexada ao contexto.
const SystemActor = "system"

// WithActor anexa o usuário ao contexto.
func WithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorKey{}, actorID)
}

// ActorFrom devolve o usuário do contexto ou SystemActor.
func ActorFrom(ctx context.Context) string {
	if v, ok := ctx.Value(actorKey{}).(string); ok && v != "" {
		return v
	}
	return SystemActor
}
