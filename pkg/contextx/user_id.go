package contextx

import (
	"context"
	"fmt"
	"strings"
)

// UserID identifies the already-authenticated caller. Authentication itself
// happens upstream; the boundary only carries the identity through.
type UserID string

type contextKeyUserID struct{}

func (u UserID) String() string {
	return string(u)
}

func WithUserID(ctx context.Context, userID UserID) context.Context {
	return context.WithValue(ctx, contextKeyUserID{}, UserID(strings.TrimSpace(string(userID))))
}

func UserIDFromContext(ctx context.Context) (UserID, error) {
	userID, ok := ctx.Value(contextKeyUserID{}).(UserID)
	if !ok || userID == "" {
		return "", fmt.Errorf("user id: %w", ErrNoValue)
	}

	return userID, nil
}
