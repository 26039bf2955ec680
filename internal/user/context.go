package user

import "context"

type userContextKey struct{}

// ContextWith attaches the authenticated user to the context.
func ContextWith(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userContextKey{}, &u)
}

// FromContext extracts the authenticated user from the context.
func FromContext(ctx context.Context) (User, bool) {
	if ctx == nil {
		return User{}, false
	}
	v, ok := ctx.Value(userContextKey{}).(*User)
	if !ok || v == nil {
		return User{}, false
	}
	return *v, true
}
