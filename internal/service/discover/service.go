package discover

import (
	"context"
	"sort"
	"strings"

	"github.com/kindredapp/engine/internal/app"
	"github.com/kindredapp/engine/internal/db"
	svcErr "github.com/kindredapp/engine/internal/errors"
	"github.com/kindredapp/engine/internal/repository"
	"github.com/kindredapp/engine/internal/utils/geo"
)

// LatLon is an optional feed origin.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Candidate is a profile summary in feed order.
type Candidate struct {
	UserID       uint64   `json:"userId"`
	DisplayName  string   `json:"displayName"`
	Age          int      `json:"age"`
	Interests    []string `json:"interests,omitempty"`
	LookingFor   string   `json:"lookingFor"`
	Verified     bool     `json:"verified"`
	DistanceKm   *float64 `json:"distanceKm,omitempty"`
	LastActiveAt int64    `json:"lastActiveAt"`
}

// CandidatesRequest are the inputs to GetCandidates. ExcludeIDs is computed
// by the caller (already swiped + blocked both ways + friended in friends
// mode); a stale or empty set is tolerated. Recycle re-runs the query with
// an empty exclusion set, a client-triggered reset, never automatic.
type CandidatesRequest struct {
	UserID     uint64
	Mode       db.Mode
	ExcludeIDs []uint64
	Origin     *LatLon
	Limit      int
	Recycle    bool
}

// Liker is one entry of a liked-you listing.
type Liker struct {
	ActorID       uint64 `json:"actorId"`
	UnixTimestamp int64  `json:"unixTimestamp"`
}

// LikersPage is a cursor-paginated liked-you result.
type LikersPage struct {
	Likers              []Liker `json:"likers"`
	NextPaginationToken *string `json:"nextPaginationToken,omitempty"`
}

const likersPageSize = 20

// Service builds the candidate feed and the liked-you surfaces on top of the
// profile and swipe repositories plus the counter cache.
type Service struct {
	appCtx      *app.AppContext
	profileRepo *repository.ProfileRepository
	swipeRepo   *repository.SwipeRepository
}

// NewService creates the discover service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:      appCtx,
		profileRepo: repository.NewProfileRepository(appCtx.DB),
		swipeRepo:   repository.NewSwipeRepository(appCtx.DB),
	}
}

// GetCandidates returns the ordered candidate feed for (user, mode).
//
// Filtering: compatible lookingFor, active accounts, never the requester,
// never an excluded id. Ordering: nearest first when both sides have
// coordinates, then recency of last-active, always with an id tiebreak so
// pagination is deterministic.
//
// An empty result with a nil error means the feed is exhausted; a store
// failure surfaces as UNAVAILABLE so callers retry instead of treating it
// as exhaustion.
func (s *Service) GetCandidates(ctx context.Context, req CandidatesRequest) ([]Candidate, error) {
	if req.UserID == 0 {
		return nil, svcErr.InvalidArgument("user_id is required")
	}
	if !db.ValidMode(string(req.Mode)) {
		return nil, svcErr.InvalidArgument("mode must be dating or friends")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 25
	}

	exclude := req.ExcludeIDs
	if req.Recycle {
		exclude = nil
	}

	profiles, err := s.profileRepo.Candidates(ctx, req.UserID, req.Mode, exclude)
	if err != nil {
		s.appCtx.Logger.Error("candidate fetch failed", "user_id", req.UserID, "err", err)
		return nil, svcErr.Unavailable("candidate fetch failed", err)
	}

	candidates := make([]Candidate, 0, len(profiles))
	for _, p := range profiles {
		c := Candidate{
			UserID:       p.UserID,
			DisplayName:  p.DisplayName,
			Age:          p.Age,
			LookingFor:   string(p.LookingFor),
			Verified:     p.Verified,
			LastActiveAt: p.LastActiveAt.UnixMilli(),
		}
		if p.Interests != "" {
			c.Interests = strings.Split(p.Interests, ",")
		}
		if req.Origin != nil && p.Lat != nil && p.Lon != nil {
			d := geo.DistanceKm(req.Origin.Lat, req.Origin.Lon, *p.Lat, *p.Lon)
			c.DistanceKm = &d
		}
		candidates = append(candidates, c)
	}

	sortCandidates(candidates)

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	s.appCtx.Logger.Debug("candidates built",
		"user_id", req.UserID, "mode", req.Mode, "count", len(candidates), "recycle", req.Recycle)

	return candidates, nil
}

// sortCandidates orders by distance when known, pushing unknown-distance
// profiles behind, then by recency, with user id as the stable tiebreak.
func sortCandidates(cs []Candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		switch {
		case a.DistanceKm != nil && b.DistanceKm != nil:
			if *a.DistanceKm != *b.DistanceKm {
				return *a.DistanceKm < *b.DistanceKm
			}
		case a.DistanceKm != nil:
			return true
		case b.DistanceKm != nil:
			return false
		}
		if a.LastActiveAt != b.LastActiveAt {
			return a.LastActiveAt > b.LastActiveAt
		}
		return a.UserID < b.UserID
	})
}

// ListLikedYou returns users who liked the given user in a mode, excluding
// anyone the user passed on, with cursor pagination.
func (s *Service) ListLikedYou(
	ctx context.Context,
	userID uint64,
	mode db.Mode,
	paginationToken *string,
) (*LikersPage, error) {
	return s.listLikers(ctx, userID, mode, paginationToken, false)
}

// ListNewLikedYou returns likers that the user has not liked back yet.
func (s *Service) ListNewLikedYou(
	ctx context.Context,
	userID uint64,
	mode db.Mode,
	paginationToken *string,
) (*LikersPage, error) {
	return s.listLikers(ctx, userID, mode, paginationToken, true)
}

func (s *Service) listLikers(
	ctx context.Context,
	userID uint64,
	mode db.Mode,
	paginationToken *string,
	newOnly bool,
) (*LikersPage, error) {
	if userID == 0 {
		return nil, svcErr.InvalidArgument("user_id is required")
	}
	if !db.ValidMode(string(mode)) {
		return nil, svcErr.InvalidArgument("mode must be dating or friends")
	}

	var (
		swipes    []db.Swipe
		nextToken *string
		err       error
	)
	if newOnly {
		swipes, nextToken, err = s.swipeRepo.GetNewLikers(ctx, userID, mode, paginationToken, likersPageSize)
	} else {
		swipes, nextToken, err = s.swipeRepo.GetLikers(ctx, userID, mode, paginationToken, likersPageSize)
	}
	if err != nil {
		s.appCtx.Logger.Error("likers fetch failed", "user_id", userID, "err", err)
		return nil, svcErr.Map(err)
	}

	page := &LikersPage{Likers: make([]Liker, 0, len(swipes))}
	for _, sw := range swipes {
		page.Likers = append(page.Likers, Liker{
			ActorID:       sw.ActorID,
			UnixTimestamp: sw.UpdatedAt.UnixMilli(),
		})
	}
	page.NextPaginationToken = nextToken
	return page, nil
}

// CountLikedYou returns how many users liked the given user in a mode.
// Cache-first strategy:
//  1. Attempts to read from Redis (likes:count:<mode>:<id>).
//  2. On cache miss, falls back to the DB.
//  3. On DB fetch, updates Redis with a 1h TTL.
func (s *Service) CountLikedYou(ctx context.Context, userID uint64, mode db.Mode) (int64, error) {
	if userID == 0 {
		return 0, svcErr.InvalidArgument("user_id is required")
	}
	if !db.ValidMode(string(mode)) {
		return 0, svcErr.InvalidArgument("mode must be dating or friends")
	}

	key := s.appCtx.RedisCache.KeyForLikeCount(userID, string(mode))

	if n, hit, err := s.appCtx.RedisCache.GetCount(ctx, key); err == nil && hit {
		return n, nil
	}

	count, err := s.swipeRepo.CountLikers(ctx, userID, mode)
	if err != nil {
		return 0, svcErr.Map(err)
	}

	_ = s.appCtx.RedisCache.UpdateCount(ctx, key, count)
	return count, nil
}
