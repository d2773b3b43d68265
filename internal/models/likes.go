package models

import "sort"

// LikeKey identifies one (user, post) pair.
type LikeKey struct {
	UserID int64
	PostID int64
}

// LikeState maps (user, post) to liked. Values are never mutated in place:
// every transition returns a fresh map.
type LikeState map[LikeKey]bool

// FeedPost is the slice of a feed item needed to seed liked flags.
type FeedPost struct {
	PostID  int64 `json:"post_id"`
	IsLiked bool  `json:"is_liked"`
}

func (s LikeState) clone(extra int) LikeState {
	next := make(LikeState, len(s)+extra)
	for k, v := range s {
		next[k] = v
	}
	return next
}

// SetLiked returns the state with key set to liked. Unliked keys are dropped
// so the map only ever holds true values.
func SetLiked(s LikeState, key LikeKey, liked bool) LikeState {
	next := s.clone(1)
	if liked {
		next[key] = true
	} else {
		delete(next, key)
	}
	return next
}

// ToggleLike flips key and reports the resulting value.
func ToggleLike(s LikeState, key LikeKey) (LikeState, bool) {
	liked := !s[key]
	return SetLiked(s, key, liked), liked
}

// MergeFeed overwrites the user's flags for every post present in the feed.
func MergeFeed(s LikeState, userID int64, posts []FeedPost) LikeState {
	next := s.clone(len(posts))
	for _, p := range posts {
		key := LikeKey{UserID: userID, PostID: p.PostID}
		if p.IsLiked {
			next[key] = true
		} else {
			delete(next, key)
		}
	}
	return next
}

// LikedPosts lists the post ids a user liked, ascending.
func LikedPosts(s LikeState, userID int64) []int64 {
	ids := make([]int64, 0)
	for k, liked := range s {
		if liked && k.UserID == userID {
			ids = append(ids, k.PostID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
