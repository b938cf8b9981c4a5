package social_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kindredapp/engine/internal/app"
	"github.com/kindredapp/engine/internal/cache"
	"github.com/kindredapp/engine/internal/config"
	"github.com/kindredapp/engine/internal/db"
	apperr "github.com/kindredapp/engine/internal/errors"
	"github.com/kindredapp/engine/internal/realtime"
	"github.com/kindredapp/engine/internal/repository"
	"github.com/kindredapp/engine/internal/service/chat"
	"github.com/kindredapp/engine/internal/service/social"
)

// setupServices spins up an in-memory SQLite DB, applies migrations, starts a
// miniredis, and wires a social plus a chat Service over the same stores.
// Each test gets its own isolated DB + Redis.
func setupServices(t *testing.T) (*social.Service, *chat.Service, *gorm.DB) {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbase, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, dbase.AutoMigrate(db.Models()...))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	redisCache := cache.NewRedisCache(cfg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // discard logs in tests
	notifier := realtime.NewNotifier(redisCache.Client, logger)

	appCtx := app.New(dbase, redisCache, notifier, logger)
	return social.NewService(appCtx), chat.NewService(appCtx), dbase
}

func TestSendAndAcceptFriendRequest(t *testing.T) {
	ctx := context.Background()
	svc, chatSvc, _ := setupServices(t)

	req, err := svc.SendFriendRequest(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, string(db.FriendRequestPending), req.Status)

	// re-sending returns the same pending request
	again, err := svc.SendFriendRequest(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, req.ID, again.ID)

	accepted, err := svc.RespondToFriendRequest(ctx, req.ID, 2, true)
	require.NoError(t, err)
	assert.Equal(t, string(db.FriendRequestAccepted), accepted.Status)

	ids, err := svc.FriendIDs(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, ids)

	// accepting created the friends conversation
	convs, err := chatSvc.ListConversations(ctx, 1, false)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, string(db.ConversationFriends), convs[0].Type)

	// idempotent re-accept
	_, err = svc.RespondToFriendRequest(ctx, req.ID, 2, true)
	require.NoError(t, err)
}

func TestCounterRequestAutoAccepts(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupServices(t)

	_, err := svc.SendFriendRequest(ctx, 1, 2)
	require.NoError(t, err)

	// 2 sending to 1 while 1 -> 2 is pending answers it instead of doubling
	res, err := svc.SendFriendRequest(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, string(db.FriendRequestAccepted), res.Status)

	ids, err := svc.FriendIDs(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, ids)
}

func TestRespondValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupServices(t)

	req, err := svc.SendFriendRequest(ctx, 1, 2)
	require.NoError(t, err)

	// only the addressee may respond
	_, err = svc.RespondToFriendRequest(ctx, req.ID, 1, true)
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))

	_, err = svc.RespondToFriendRequest(ctx, 999, 2, true)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	// declining, then accepting the now-declined request fails
	_, err = svc.RespondToFriendRequest(ctx, req.ID, 2, false)
	require.NoError(t, err)
	_, err = svc.RespondToFriendRequest(ctx, req.ID, 2, true)
	assert.Equal(t, apperr.CodeFailedPrecondition, apperr.CodeOf(err))
}

func TestDeclinedRequestCanBeResent(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupServices(t)

	req, err := svc.SendFriendRequest(ctx, 1, 2)
	require.NoError(t, err)
	_, err = svc.RespondToFriendRequest(ctx, req.ID, 2, false)
	require.NoError(t, err)

	revived, err := svc.SendFriendRequest(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, req.ID, revived.ID)
	assert.Equal(t, string(db.FriendRequestPending), revived.Status)

	pending, err := svc.ListPendingRequests(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestSendRequestToExistingFriendIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, _, dbase := setupServices(t)

	req, err := svc.SendFriendRequest(ctx, 1, 2)
	require.NoError(t, err)
	_, err = svc.RespondToFriendRequest(ctx, req.ID, 2, true)
	require.NoError(t, err)

	// the accepted side sending back must not open a second request
	res, err := svc.SendFriendRequest(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, req.ID, res.ID)
	assert.Equal(t, string(db.FriendRequestAccepted), res.Status)

	var count int64
	require.NoError(t, dbase.Model(&db.FriendRequest{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	pending, err := svc.ListPendingRequests(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// the friendship is listed once per side, never doubled
	ids, err := svc.FriendIDs(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, ids)
	ids, err = svc.FriendIDs(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, ids)
}

func TestDeclinedRequestReopensFromEitherSide(t *testing.T) {
	ctx := context.Background()
	svc, _, dbase := setupServices(t)

	req, err := svc.SendFriendRequest(ctx, 2, 1)
	require.NoError(t, err)
	_, err = svc.RespondToFriendRequest(ctx, req.ID, 1, false)
	require.NoError(t, err)

	// the decliner changes their mind: the pair's single row flips direction
	res, err := svc.SendFriendRequest(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, req.ID, res.ID)
	assert.Equal(t, string(db.FriendRequestPending), res.Status)
	assert.Equal(t, uint64(1), res.RequesterID)
	assert.Equal(t, uint64(2), res.AddresseeID)

	var count int64
	require.NoError(t, dbase.Model(&db.FriendRequest{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// user 2 now holds the pending request and can accept it
	pending, err := svc.ListPendingRequests(ctx, 2)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = svc.RespondToFriendRequest(ctx, req.ID, 2, true)
	require.NoError(t, err)
	ids, err := svc.FriendIDs(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, ids)
}

func TestReAcceptanceReactivatesLeftConversation(t *testing.T) {
	ctx := context.Background()
	svc, chatSvc, dbase := setupServices(t)
	friendRepo := repository.NewFriendRepository(dbase)

	req, err := svc.SendFriendRequest(ctx, 1, 2)
	require.NoError(t, err)
	_, err = svc.RespondToFriendRequest(ctx, req.ID, 2, true)
	require.NoError(t, err)

	convs, err := chatSvc.ListConversations(ctx, 1, false)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	convID := convs[0].ID

	// both walk away; the pair falls apart
	require.NoError(t, chatSvc.Leave(ctx, convID, 1))
	require.NoError(t, chatSvc.Leave(ctx, convID, 2))
	require.NoError(t, friendRepo.UpdateStatus(ctx, req.ID, db.FriendRequestDeclined))

	// the friendship re-forms through a fresh request/accept cycle
	revived, err := svc.SendFriendRequest(ctx, 1, 2)
	require.NoError(t, err)
	require.Equal(t, string(db.FriendRequestPending), revived.Status)
	_, err = svc.RespondToFriendRequest(ctx, req.ID, 2, true)
	require.NoError(t, err)

	// the existing conversation is reactivated for both, not re-created
	for _, uid := range []uint64{1, 2} {
		convs, err := chatSvc.ListConversations(ctx, uid, false)
		require.NoError(t, err)
		require.Len(t, convs, 1)
		assert.Equal(t, convID, convs[0].ID)
	}
}

func TestBlockAndExclusions(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupServices(t)

	require.NoError(t, svc.BlockUser(ctx, 1, 2))
	require.NoError(t, svc.BlockUser(ctx, 1, 2)) // idempotent
	require.NoError(t, svc.BlockUser(ctx, 3, 1))

	err := svc.BlockUser(ctx, 1, 1)
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))

	ids, err := svc.BlockedExclusionIDs(ctx, 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{2, 3}, ids)

	// symmetric: the blocked side excludes the blocker too
	ids, err = svc.BlockedExclusionIDs(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, ids)
}

func TestSwipedIDsExclusion(t *testing.T) {
	ctx := context.Background()
	svc, _, dbase := setupServices(t)
	swipeRepo := repository.NewSwipeRepository(dbase)

	require.NoError(t, swipeRepo.CreateOrUpdateSwipe(ctx, 1, 2, db.ModeDating, db.DirectionRight))
	require.NoError(t, swipeRepo.CreateOrUpdateSwipe(ctx, 1, 3, db.ModeDating, db.DirectionLeft))
	require.NoError(t, swipeRepo.CreateOrUpdateSwipe(ctx, 1, 4, db.ModeFriends, db.DirectionRight))

	ids, err := svc.SwipedIDs(ctx, 1, db.ModeDating)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{2, 3}, ids)

	_, err = svc.SwipedIDs(ctx, 1, "romance")
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
}
