package middleware

import "context"

// contextKey evita colisão com chaves de contexto de outros pacotes.
type contextKey struct{ name string }

var (
	clientIDKey  = &contextKey{"client_id"}
	subjectIDKey = &contextKey{"subject_id"}
)

// WithClientID anota o contexto com o identificador autenticado do cliente.
// É a costura com a camada de autenticação executada antes do throttler.
func WithClientID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, clientIDKey, id)
}

// WithSubjectID anota o contexto com o identificador do subject autenticado.
func WithSubjectID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, subjectIDKey, id)
}

// ClientID retorna o identificador do cliente, ou vazio se ausente.
func ClientID(ctx context.Context) string {
	id, _ := ctx.Value(clientIDKey).(string)
	return id
}

// SubjectID retorna o identificador do subject, ou vazio se ausente.
func SubjectID(ctx context.Context) string {
	id, _ := ctx.Value(subjectIDKey).(string)
	return id
}
