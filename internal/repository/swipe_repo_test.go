package repository_test

import (
	"context"
	"testing"

	"github.com/kindredapp/engine/internal/db"
	"github.com/kindredapp/engine/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrUpdateSwipe(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewSwipeRepository(dbase)

	// insert like
	err := repo.CreateOrUpdateSwipe(ctx, 1, 2, db.ModeDating, db.DirectionRight)
	assert.NoError(t, err)

	// overwrite with pass
	err = repo.CreateOrUpdateSwipe(ctx, 1, 2, db.ModeDating, db.DirectionLeft)
	assert.NoError(t, err)

	var s db.Swipe
	_ = dbase.First(&s).Error
	assert.Equal(t, db.DirectionLeft, s.Direction)
	assert.False(t, s.Liked())
}

func TestSwipeModesAreIndependent(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewSwipeRepository(dbase)

	require.NoError(t, repo.CreateOrUpdateSwipe(ctx, 1, 2, db.ModeDating, db.DirectionLeft))
	require.NoError(t, repo.CreateOrUpdateSwipe(ctx, 1, 2, db.ModeFriends, db.DirectionRight))

	liked, err := repo.HasLiked(ctx, 1, 2, db.ModeDating)
	require.NoError(t, err)
	assert.False(t, liked)

	liked, err = repo.HasLiked(ctx, 1, 2, db.ModeFriends)
	require.NoError(t, err)
	assert.True(t, liked)
}

func TestGetLikersAndPagination(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewSwipeRepository(dbase)

	// actors 1,2 liked target 99
	_ = repo.CreateOrUpdateSwipe(ctx, 1, 99, db.ModeDating, db.DirectionRight)
	_ = repo.CreateOrUpdateSwipe(ctx, 2, 99, db.ModeDating, db.DirectionUp)
	// target passed actor 2, so actor 2 is excluded
	_ = repo.CreateOrUpdateSwipe(ctx, 99, 2, db.ModeDating, db.DirectionLeft)

	swipes, next, err := repo.GetLikers(ctx, 99, db.ModeDating, nil, 10)
	assert.NoError(t, err)
	assert.Nil(t, next)
	require.Len(t, swipes, 1)
	assert.Equal(t, uint64(1), swipes[0].ActorID)
}

func TestGetLikersCursorWalk(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewSwipeRepository(dbase)

	for actor := uint64(1); actor <= 5; actor++ {
		require.NoError(t, repo.CreateOrUpdateSwipe(ctx, actor, 99, db.ModeDating, db.DirectionRight))
	}

	seen := map[uint64]bool{}
	var token *string
	pages := 0
	for {
		swipes, next, err := repo.GetLikers(ctx, 99, db.ModeDating, token, 2)
		require.NoError(t, err)
		for _, s := range swipes {
			assert.False(t, seen[s.ActorID], "actor %d returned twice", s.ActorID)
			seen[s.ActorID] = true
		}
		pages++
		if next == nil {
			break
		}
		token = next
	}
	assert.Len(t, seen, 5)
	assert.GreaterOrEqual(t, pages, 3)
}

func TestGetNewLikersExcludesMutual(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewSwipeRepository(dbase)

	// actor 1 liked 99, and 99 liked back: mutual
	_ = repo.CreateOrUpdateSwipe(ctx, 1, 99, db.ModeDating, db.DirectionRight)
	_ = repo.CreateOrUpdateSwipe(ctx, 99, 1, db.ModeDating, db.DirectionRight)

	// actor 2 liked 99, not mutual
	_ = repo.CreateOrUpdateSwipe(ctx, 2, 99, db.ModeDating, db.DirectionRight)

	swipes, _, err := repo.GetNewLikers(ctx, 99, db.ModeDating, nil, 10)
	assert.NoError(t, err)
	require.Len(t, swipes, 1)
	assert.Equal(t, uint64(2), swipes[0].ActorID)
}

func TestCountLikers(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewSwipeRepository(dbase)

	_ = repo.CreateOrUpdateSwipe(ctx, 1, 99, db.ModeDating, db.DirectionRight)
	_ = repo.CreateOrUpdateSwipe(ctx, 2, 99, db.ModeDating, db.DirectionRight)
	_ = repo.CreateOrUpdateSwipe(ctx, 3, 99, db.ModeDating, db.DirectionLeft) // a pass, not a like
	_ = repo.CreateOrUpdateSwipe(ctx, 99, 2, db.ModeDating, db.DirectionLeft) // 99 passed actor 2

	count, err := repo.CountLikers(ctx, 99, db.ModeDating)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSwipedIDs(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewSwipeRepository(dbase)

	_ = repo.CreateOrUpdateSwipe(ctx, 1, 2, db.ModeDating, db.DirectionRight)
	_ = repo.CreateOrUpdateSwipe(ctx, 1, 3, db.ModeDating, db.DirectionLeft)
	_ = repo.CreateOrUpdateSwipe(ctx, 1, 4, db.ModeFriends, db.DirectionRight)

	ids, err := repo.SwipedIDs(ctx, 1, db.ModeDating)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 3}, ids)
}

func TestMutualLikeIDs(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewSwipeRepository(dbase)

	// mutual with 2
	_ = repo.CreateOrUpdateSwipe(ctx, 1, 2, db.ModeDating, db.DirectionRight)
	_ = repo.CreateOrUpdateSwipe(ctx, 2, 1, db.ModeDating, db.DirectionUp)
	// one-way like on 3
	_ = repo.CreateOrUpdateSwipe(ctx, 1, 3, db.ModeDating, db.DirectionRight)
	// mutual in the other mode only
	_ = repo.CreateOrUpdateSwipe(ctx, 1, 4, db.ModeFriends, db.DirectionRight)
	_ = repo.CreateOrUpdateSwipe(ctx, 4, 1, db.ModeFriends, db.DirectionRight)

	ids, err := repo.MutualLikeIDs(ctx, 1, db.ModeDating)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, ids)
}
