package relationship_test

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
	"github.com/kindredapp/engine/internal/realtime"
	"github.com/kindredapp/engine/internal/repository"
	"github.com/kindredapp/engine/internal/service/relationship"
)

// setupService spins up an in-memory SQLite DB, applies migrations, starts a
// miniredis, and wires everything into a relationship Service. Each test gets
// its own isolated DB + Redis.
func setupService(t *testing.T) (*relationship.Service, *gorm.DB) {
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
	return relationship.NewService(appCtx), dbase
}

func TestRecordSwipeNoMatch(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	match, err := svc.RecordSwipe(ctx, 1, 2, db.DirectionRight, db.ModeDating)
	require.NoError(t, err)
	assert.Nil(t, match)

	// a pass never produces a match either
	match, err = svc.RecordSwipe(ctx, 2, 3, db.DirectionLeft, db.ModeDating)
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestRecordSwipeMutualMatch(t *testing.T) {
	ctx := context.Background()
	svc, dbase := setupService(t)

	match, err := svc.RecordSwipe(ctx, 1, 2, db.DirectionRight, db.ModeDating)
	require.NoError(t, err)
	require.Nil(t, match)

	match, err = svc.RecordSwipe(ctx, 2, 1, db.DirectionUp, db.ModeDating)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, uint64(1), match.OtherUserID)
	assert.NotZero(t, match.MatchID)
	assert.NotZero(t, match.ConversationID)

	// exactly one match row and one conversation, whatever the swipe order
	var matchCount, convCount int64
	require.NoError(t, dbase.Model(&db.Match{}).Count(&matchCount).Error)
	require.NoError(t, dbase.Model(&db.Conversation{}).Count(&convCount).Error)
	assert.Equal(t, int64(1), matchCount)
	assert.Equal(t, int64(1), convCount)
}

func TestRecordSwipeRepeatIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, dbase := setupService(t)

	_, err := svc.RecordSwipe(ctx, 1, 2, db.DirectionRight, db.ModeDating)
	require.NoError(t, err)
	first, err := svc.RecordSwipe(ctx, 2, 1, db.DirectionRight, db.ModeDating)
	require.NoError(t, err)
	require.NotNil(t, first)

	// the same like again re-reads the same match
	again, err := svc.RecordSwipe(ctx, 2, 1, db.DirectionRight, db.ModeDating)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, first.MatchID, again.MatchID)
	assert.Equal(t, first.ConversationID, again.ConversationID)

	var count int64
	require.NoError(t, dbase.Model(&db.Match{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestMatchIsPermanent(t *testing.T) {
	ctx := context.Background()
	svc, dbase := setupService(t)

	_, err := svc.RecordSwipe(ctx, 1, 2, db.DirectionRight, db.ModeDating)
	require.NoError(t, err)
	_, err = svc.RecordSwipe(ctx, 2, 1, db.DirectionRight, db.ModeDating)
	require.NoError(t, err)

	// a later left swipe rewrites the ledger but never deletes the match
	_, err = svc.RecordSwipe(ctx, 2, 1, db.DirectionLeft, db.ModeDating)
	require.NoError(t, err)

	var count int64
	require.NoError(t, dbase.Model(&db.Match{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRecordSwipeModesAreIndependent(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, err := svc.RecordSwipe(ctx, 1, 2, db.DirectionRight, db.ModeDating)
	require.NoError(t, err)

	// a friends-mode like back does not complete the dating pair
	match, err := svc.RecordSwipe(ctx, 2, 1, db.DirectionRight, db.ModeFriends)
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestRecordSwipeValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, err := svc.RecordSwipe(ctx, 1, 1, db.DirectionRight, db.ModeDating)
	assert.Error(t, err)

	_, err = svc.RecordSwipe(ctx, 0, 2, db.DirectionRight, db.ModeDating)
	assert.Error(t, err)

	_, err = svc.RecordSwipe(ctx, 1, 2, "sideways", db.ModeDating)
	assert.Error(t, err)

	_, err = svc.RecordSwipe(ctx, 1, 2, db.DirectionRight, "romance")
	assert.Error(t, err)
}

func TestListMatchesSelfHealing(t *testing.T) {
	ctx := context.Background()
	svc, dbase := setupService(t)
	swipes := repository.NewSwipeRepository(dbase)

	// mutual likes written straight to the ledger, as if a writer died
	// before creating the match row
	require.NoError(t, swipes.CreateOrUpdateSwipe(ctx, 1, 2, db.ModeDating, db.DirectionRight))
	require.NoError(t, swipes.CreateOrUpdateSwipe(ctx, 2, 1, db.ModeDating, db.DirectionRight))

	var count int64
	require.NoError(t, dbase.Model(&db.Match{}).Count(&count).Error)
	require.Equal(t, int64(0), count)

	matches, err := svc.ListMatches(ctx, 1, db.ModeDating)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, uint64(2), matches[0].OtherUserID)
	assert.NotZero(t, matches[0].ConversationID)

	// the derived rows are now persisted
	require.NoError(t, dbase.Model(&db.Match{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestListMatchesNewestFirst(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, err := svc.RecordSwipe(ctx, 1, 2, db.DirectionRight, db.ModeDating)
	require.NoError(t, err)
	_, err = svc.RecordSwipe(ctx, 2, 1, db.DirectionRight, db.ModeDating)
	require.NoError(t, err)

	_, err = svc.RecordSwipe(ctx, 1, 3, db.DirectionRight, db.ModeDating)
	require.NoError(t, err)
	_, err = svc.RecordSwipe(ctx, 3, 1, db.DirectionRight, db.ModeDating)
	require.NoError(t, err)

	matches, err := svc.ListMatches(ctx, 1, db.ModeDating)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.ElementsMatch(t, []uint64{2, 3},
		[]uint64{matches[0].OtherUserID, matches[1].OtherUserID})
}
