package contextx_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"auction_engine/pkg/contextx"
)

func TestUserID(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	var testUserIDEmpty contextx.UserID

	userID, err := contextx.UserIDFromContext(ctx)
	rq.Equal(testUserIDEmpty, userID)
	rq.ErrorIs(err, contextx.ErrNoValue)
	rq.ErrorContains(err, "user id: no value in context")

	ctx = contextx.WithUserID(ctx, "  bidder-42 ")

	userID, err = contextx.UserIDFromContext(ctx)
	rq.Equal(contextx.UserID("bidder-42"), userID)
	rq.NoError(err)

	_, err = contextx.UserIDFromContext(contextx.WithUserID(context.Background(), "   "))
	rq.ErrorIs(err, contextx.ErrNoValue)
}
