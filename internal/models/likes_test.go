package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToggleLikeDoesNotMutateInput(t *testing.T) {
	start := LikeState{}
	key := LikeKey{UserID: 7, PostID: 42}

	liked, isLiked := ToggleLike(start, key)
	assert.True(t, isLiked)
	assert.Empty(t, start)
	assert.True(t, liked[key])

	unliked, isLiked := ToggleLike(liked, key)
	assert.False(t, isLiked)
	assert.True(t, liked[key])
	assert.NotContains(t, unliked, key)
}

func TestCompositeKeysDoNotCollide(t *testing.T) {
	// "1_23" and "12_3" collide under string concatenation; pairs do not.
	s := SetLiked(LikeState{}, LikeKey{UserID: 1, PostID: 23}, true)
	assert.False(t, s[LikeKey{UserID: 12, PostID: 3}])
	assert.Equal(t, []int64{23}, LikedPosts(s, 1))
	assert.Empty(t, LikedPosts(s, 12))
}

func TestMergeFeedOverridesOnlyListedPosts(t *testing.T) {
	s := LikeState{
		{UserID: 1, PostID: 1}: true,
		{UserID: 1, PostID: 2}: true,
		{UserID: 2, PostID: 1}: true,
	}
	next := MergeFeed(s, 1, []FeedPost{{PostID: 2, IsLiked: false}, {PostID: 3, IsLiked: true}})

	assert.Equal(t, []int64{1, 3}, LikedPosts(next, 1))
	assert.Equal(t, []int64{1}, LikedPosts(next, 2))
	assert.Equal(t, []int64{1, 2}, LikedPosts(s, 1))
}
