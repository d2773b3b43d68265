package repository

import (
	"context"
	"errors"
	"path"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/models"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/session"
	appErrors "github.com/noah-isme/schoolsnap-attendance-api/pkg/errors"
)

type redisEntry struct {
	value string
	ttl   time.Duration
}

// fakeRedis answers commands from a map inside a client hook, so the
// client never dials.
type fakeRedis struct {
	mu    sync.Mutex
	data  map[string]redisEntry
	names []string
	fail  error
}

func newFakeRedis(t *testing.T) (*redis.Client, *fakeRedis) {
	t.Helper()
	fake := &fakeRedis{data: map[string]redisEntry{}}
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	client.AddHook(fake)
	t.Cleanup(func() { _ = client.Close() })
	return client, fake
}

func (f *fakeRedis) DialHook(next redis.DialHook) redis.DialHook { return next }

func (f *fakeRedis) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func (f *fakeRedis) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.names = append(f.names, cmd.Name())
		if f.fail != nil {
			cmd.SetErr(f.fail)
			return f.fail
		}
		args := cmd.Args()
		switch c := cmd.(type) {
		case *redis.StringCmd:
			entry, ok := f.data[argString(args[1])]
			if !ok {
				c.SetErr(redis.Nil)
				return redis.Nil
			}
			c.SetVal(entry.value)
		case *redis.StatusCmd:
			entry := redisEntry{value: argString(args[2])}
			if len(args) == 5 {
				n, _ := args[4].(int64)
				switch argString(args[3]) {
				case "ex":
					entry.ttl = time.Duration(n) * time.Second
				case "px":
					entry.ttl = time.Duration(n) * time.Millisecond
				}
			}
			f.data[argString(args[1])] = entry
			c.SetVal("OK")
		case *redis.IntCmd:
			var removed int64
			for _, key := range args[1:] {
				if _, ok := f.data[argString(key)]; ok {
					delete(f.data, argString(key))
					removed++
				}
			}
			c.SetVal(removed)
		case *redis.ScanCmd:
			cursor, _ := args[1].(uint64)
			keys := f.match(argString(args[3]))
			// the first page holds at most two keys so callers must follow the cursor
			if cursor == 0 && len(keys) > 2 {
				c.SetVal(keys[:2], 1)
				return nil
			}
			c.SetVal(keys, 0)
		default:
			return next(ctx, cmd)
		}
		return nil
	}
}

func (f *fakeRedis) match(pattern string) []string {
	var keys []string
	for key := range f.data {
		if ok, _ := path.Match(pattern, key); ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func (f *fakeRedis) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, got := range f.names {
		if got == name {
			n++
		}
	}
	return n
}

func argString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	}
	return ""
}

func TestRedisSessionStoreRoundTripAndTTL(t *testing.T) {
	client, fake := newFakeRedis(t)
	store := NewRedisSessionStore(client, 90*time.Minute)
	ctx := context.Background()

	sess := session.New("abc", 7, time.Date(2026, 10, 18, 9, 0, 0, 0, time.Local), 30)
	tag, err := sess.BeginGradeSelection(8)
	require.NoError(t, err)
	require.True(t, sess.ApplyRoster(tag, &models.Roster{GradeID: 8, Source: models.SourceLive, Entries: []models.RosterEntry{{ID: 801, DisplayName: "Nimal", GradeLevelID: 8}}}))
	sess.Details[801] = models.AttendanceDetail{Reason: "Clinic"}
	require.NoError(t, store.Save(ctx, sess))

	entry, ok := fake.data["session:attendance:abc"]
	require.True(t, ok)
	assert.Equal(t, 90*time.Minute, entry.ttl)

	got, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.OwnerID)
	assert.Equal(t, 8, got.Selection.GradeID)
	require.Len(t, got.Roster, 1)
	assert.Equal(t, "Clinic", got.Details[801].Reason)

	fake.data["session:attendance:abc"] = redisEntry{value: entry.value, ttl: time.Second}
	require.NoError(t, store.Save(ctx, got))
	assert.Equal(t, 90*time.Minute, fake.data["session:attendance:abc"].ttl)

	require.NoError(t, store.Delete(ctx, "abc"))
	_, err = store.Get(ctx, "abc")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestRedisSessionStoreSurfacesBackendErrors(t *testing.T) {
	client, fake := newFakeRedis(t)
	fake.fail = errors.New("READONLY replica")
	store := NewRedisSessionStore(client, time.Hour)
	ctx := context.Background()

	_, err := store.Get(ctx, "abc")
	require.Error(t, err)
	assert.False(t, errors.Is(err, appErrors.ErrNotFound))
	assert.True(t, errors.Is(err, fake.fail))
	assert.Error(t, store.Save(ctx, session.New("abc", 7, time.Now(), 30)))
	assert.Error(t, store.Delete(ctx, "abc"))
}

func TestRedisSessionStoreUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisSessionStore(client, time.Hour)

	_, err := store.Get(context.Background(), "abc")
	require.Error(t, err)
	assert.False(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestCacheRepositoryGetSet(t *testing.T) {
	client, fake := newFakeRedis(t)
	repo := NewCacheRepository(client, nil)
	ctx := context.Background()

	var grades []models.GradeLevel
	assert.True(t, errors.Is(repo.Get(ctx, "roster:grades", &grades), appErrors.ErrCacheMiss))

	require.NoError(t, repo.Set(ctx, "roster:grades", []models.GradeLevel{{ID: 8, Name: "Grade 8", StudentCount: 25}}, 5*time.Minute))
	assert.Equal(t, 5*time.Minute, fake.data["roster:grades"].ttl)
	require.NoError(t, repo.Get(ctx, "roster:grades", &grades))
	require.Len(t, grades, 1)
	assert.Equal(t, 25, grades[0].StudentCount)

	fake.data["roster:grades"] = redisEntry{value: "{not json"}
	assert.True(t, errors.Is(repo.Get(ctx, "roster:grades", &grades), appErrors.ErrCacheMiss))
	_, kept := fake.data["roster:grades"]
	assert.False(t, kept)
}

func TestCacheRepositoryDeleteByPatternFollowsCursor(t *testing.T) {
	client, fake := newFakeRedis(t)
	repo := NewCacheRepository(client, nil)
	ctx := context.Background()
	for _, key := range []string{
		"roster:grade:1:size:10000",
		"roster:grade:2:size:10000",
		"roster:grade:3:size:10000",
		"attendance:records:x",
		"session:attendance:abc",
	} {
		fake.data[key] = redisEntry{value: "1"}
	}

	require.NoError(t, repo.DeleteByPattern(ctx, "roster:*"))
	assert.Equal(t, 2, fake.count("scan"))
	assert.Empty(t, fake.match("roster:*"))
	assert.Len(t, fake.data, 2)
	assert.Contains(t, fake.data, "session:attendance:abc")
}
