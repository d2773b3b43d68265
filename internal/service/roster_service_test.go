package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/models"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/normalize"
	"github.com/noah-isme/schoolsnap-attendance-api/pkg/config"
)

// fakeStudentDirectory serves total students in pages. unidentified rows
// are counted as returned but dropped, like rows the reshaper skips.
type fakeStudentDirectory struct {
	mu           sync.Mutex
	total        int
	grade        int
	failPage     map[int]bool
	fallback     map[int]bool
	extra        map[int][]models.RosterEntry
	unidentified map[int]int
	calls        []models.StudentListRequest
}

func (f *fakeStudentDirectory) StudentList(ctx context.Context, p *models.Principal, req models.StudentListRequest) (normalize.Result[models.StudentPage], error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	if f.failPage[req.Page] {
		return normalize.Result[models.StudentPage]{}, errors.New("boom")
	}
	if f.fallback[req.Page] {
		return normalize.Result[models.StudentPage]{Source: models.SourceFallback, Reason: normalize.ReasonHTMLPage}, nil
	}
	start := (req.Page-1)*req.PageSize + 1
	end := start + req.PageSize - 1
	if end > f.total {
		end = f.total
	}
	var students []models.RosterEntry
	for i := start; i <= end; i++ {
		students = append(students, models.RosterEntry{ID: int64(i), DisplayName: "S", GradeLevelID: f.grade})
	}
	students = append(students, f.extra[req.Page]...)
	returned := len(students)
	if n := f.unidentified[req.Page]; n > 0 {
		students = students[:returned-n]
	}
	return normalize.Result[models.StudentPage]{
		Status: "successful",
		Source: models.SourceLive,
		Data:   models.StudentPage{Students: students, TotalCount: f.total, CurrentPage: req.Page, Returned: returned},
	}, nil
}

func (f *fakeStudentDirectory) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newRosterService(dir StudentDirectory) *RosterService {
	return NewRosterService(dir, nil, config.RosterConfig{PageSize: 10000, Concurrency: 2}, nil)
}

func TestRosterSinglePage(t *testing.T) {
	dir := &fakeStudentDirectory{total: 25, grade: 8}
	svc := newRosterService(dir)

	roster, err := svc.Fetch(context.Background(), nil, 8, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, dir.callCount())
	assert.Len(t, roster.Entries, 25)
	assert.False(t, roster.Partial)
	assert.Equal(t, models.SourceLive, roster.Source)
	for _, e := range roster.Entries {
		assert.Equal(t, models.AttendanceStatusPresent, e.AttendanceStatus)
	}
}

func TestRosterMultiPageInOrder(t *testing.T) {
	dir := &fakeStudentDirectory{total: 25, grade: 8}
	svc := newRosterService(dir)

	roster, err := svc.Fetch(context.Background(), nil, 8, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, dir.callCount())
	assert.Equal(t, 3, roster.Pages)
	require.Len(t, roster.Entries, 25)
	for i, e := range roster.Entries {
		assert.Equal(t, int64(i+1), e.ID)
	}
}

func TestRosterFullFirstPageWithUnidentifiedRowsStillPages(t *testing.T) {
	dir := &fakeStudentDirectory{total: 25, grade: 8, unidentified: map[int]int{1: 1}}

	roster, err := newRosterService(dir).Fetch(context.Background(), nil, 8, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, dir.callCount())
	assert.Equal(t, 3, roster.Pages)
	assert.False(t, roster.Partial)
	assert.Len(t, roster.Entries, 24)
}

func TestRosterSecondaryFailureKeepsFirstPage(t *testing.T) {
	for name, dir := range map[string]*fakeStudentDirectory{
		"error":    {total: 25, grade: 8, failPage: map[int]bool{3: true}},
		"fallback": {total: 25, grade: 8, fallback: map[int]bool{2: true}},
	} {
		t.Run(name, func(t *testing.T) {
			roster, err := newRosterService(dir).Fetch(context.Background(), nil, 8, 10)
			require.NoError(t, err)
			assert.True(t, roster.Partial)
			require.Len(t, roster.Entries, 10)
			for i, e := range roster.Entries {
				assert.Equal(t, int64(i+1), e.ID)
			}
		})
	}
}

func TestRosterFirstPageFailure(t *testing.T) {
	dir := &fakeStudentDirectory{total: 5, failPage: map[int]bool{1: true}}
	_, err := newRosterService(dir).Fetch(context.Background(), nil, 8, 10)
	assert.Error(t, err)
}

func TestRosterFiltersGradeAndDuplicates(t *testing.T) {
	dir := &fakeStudentDirectory{total: 3, grade: 8, extra: map[int][]models.RosterEntry{
		1: {
			{ID: 100, GradeLevelID: 9},
			{ID: 101},
			{ID: 2, GradeLevelID: 8},
		},
	}}
	roster, err := newRosterService(dir).Fetch(context.Background(), nil, 8, 10)
	require.NoError(t, err)

	var ids []int64
	for _, e := range roster.Entries {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []int64{1, 2, 3, 101}, ids)
}

func TestPageCount(t *testing.T) {
	assert.Equal(t, 1, pageCount(25, 25, 10000))
	assert.Equal(t, 3, pageCount(25, 10, 10))
	assert.Equal(t, 1, pageCount(25, 8, 10))
	assert.Equal(t, 1, pageCount(0, 0, 10))
}
