package service

import (
	"sync"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/models"
)

// LikesService holds liked flags for feed posts, keyed by user and post so
// one user's like never shows up for another.
type LikesService struct {
	mu    sync.RWMutex
	state models.LikeState
}

// NewLikesService constructs an empty store.
func NewLikesService() *LikesService {
	return &LikesService{state: models.LikeState{}}
}

// Set marks a post liked or not for p.
func (s *LikesService) Set(p *models.Principal, postID int64, liked bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = models.SetLiked(s.state, models.LikeKey{UserID: p.UserID, PostID: postID}, liked)
	return liked
}

// Toggle flips the like and returns the new value.
func (s *LikesService) Toggle(p *models.Principal, postID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	var liked bool
	s.state, liked = models.ToggleLike(s.state, models.LikeKey{UserID: p.UserID, PostID: postID})
	return liked
}

// Merge seeds flags from a feed page the user just loaded.
func (s *LikesService) Merge(p *models.Principal, posts []models.FeedPost) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = models.MergeFeed(s.state, p.UserID, posts)
	return models.LikedPosts(s.state, p.UserID)
}

// Liked lists the posts p liked.
func (s *LikesService) Liked(p *models.Principal) []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.LikedPosts(s.state, p.UserID)
}
