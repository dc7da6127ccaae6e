package feed

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shallot/internal/db"
	"shallot/internal/models"
	"shallot/internal/rank"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))
	db.InitWithConnection(conn)
}

func createUser(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{ExternalID: fmt.Sprintf("ext-%s-%s", t.Name(), name), Username: name}
	require.NoError(t, db.DB.Create(u).Error)
	return u
}

func createCommunity(t *testing.T, name string) *models.Community {
	t.Helper()
	c := &models.Community{Name: name, Title: name}
	require.NoError(t, db.DB.Create(c).Error)
	return c
}

func createPost(t *testing.T, userID, communityID uint, pid string, createdAt time.Time) *models.Post {
	t.Helper()
	p := &models.Post{
		Pid:         pid,
		UserID:      userID,
		CommunityID: communityID,
		Title:       "post " + pid,
		CreatedAt:   createdAt,
	}
	require.NoError(t, db.DB.Create(p).Error)
	return p
}

func TestPaginationWalksAllPostsExactlyOnce(t *testing.T) {
	setupTestDB(t)
	author := createUser(t, "alice")
	community := createCommunity(t, "tech")

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		createPost(t, author.ID, community.ID, fmt.Sprintf("p%03d", i), base.Add(time.Duration(i)*time.Minute))
	}

	seen := make(map[string]bool)
	var cur string
	pages := 0
	var prev *models.Post

	for {
		page, err := Get(nil, Query{Scope: ScopeAll, Sort: SortNew, Cursor: cur})
		require.NoError(t, err)
		pages++

		for i := range page.Items {
			p := &page.Items[i]
			assert.False(t, seen[p.Pid], "post %s returned twice", p.Pid)
			seen[p.Pid] = true

			if prev != nil {
				// (created_at, id) 严格降序
				if p.CreatedAt.Equal(prev.CreatedAt) {
					assert.Less(t, p.ID, prev.ID)
				} else {
					assert.True(t, p.CreatedAt.Before(prev.CreatedAt))
				}
			}
			prev = p
		}

		if page.NextCursor == nil {
			assert.Len(t, page.Items, 5, "last page holds the remainder")
			break
		}
		assert.Len(t, page.Items, PageSize)
		cur = *page.NextCursor
	}

	assert.Equal(t, 3, pages)
	assert.Len(t, seen, 25)
}

func TestMalformedCursorFallsBackToFirstPage(t *testing.T) {
	setupTestDB(t)
	author := createUser(t, "alice")
	community := createCommunity(t, "tech")

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 15; i++ {
		createPost(t, author.ID, community.ID, fmt.Sprintf("p%03d", i), base.Add(time.Duration(i)*time.Minute))
	}

	first, err := Get(nil, Query{Scope: ScopeAll, Sort: SortNew})
	require.NoError(t, err)

	for _, bad := range []string{"garbage", "!!!", "eyJrIjo=", ""} {
		page, err := Get(nil, Query{Scope: ScopeAll, Sort: SortNew, Cursor: bad})
		require.NoError(t, err)
		require.Len(t, page.Items, len(first.Items))
		for i := range page.Items {
			assert.Equal(t, first.Items[i].Pid, page.Items[i].Pid)
		}
	}
}

func TestHotSortFollowsPrecomputedRank(t *testing.T) {
	setupTestDB(t)
	author := createUser(t, "alice")
	community := createCommunity(t, "tech")

	now := time.Now().UTC()
	cold := createPost(t, author.ID, community.ID, "cold", now.Add(-time.Hour))
	warm := createPost(t, author.ID, community.ID, "warm", now.Add(-time.Hour))
	blazing := createPost(t, author.ID, community.ID, "blazing", now.Add(-time.Hour))

	votes := map[uint]int{cold.ID: 1, warm.ID: 10, blazing.ID: 100}
	for id, ups := range votes {
		require.NoError(t, db.DB.Model(&models.Post{}).Where("id = ?", id).
			UpdateColumns(map[string]interface{}{
				"ups":      ups,
				"hot_rank": rank.Hot(ups, 0, now.Add(-time.Hour), now),
			}).Error)
	}

	page, err := Get(nil, Query{Scope: ScopeAll, Sort: SortHot})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, "blazing", page.Items[0].Pid)
	assert.Equal(t, "warm", page.Items[1].Pid)
	assert.Equal(t, "cold", page.Items[2].Pid)
}

func TestHiddenPostsFilteredPerViewer(t *testing.T) {
	setupTestDB(t)
	author := createUser(t, "alice")
	viewerA := createUser(t, "bob")
	viewerB := createUser(t, "carol")
	community := createCommunity(t, "tech")

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	visible := createPost(t, author.ID, community.ID, "vis", base)
	hidden := createPost(t, author.ID, community.ID, "hid", base.Add(time.Minute))

	require.NoError(t, db.DB.Create(&models.UserPostRelation{
		UserID: viewerA.ID, PostID: hidden.ID, Hidden: true,
	}).Error)

	// 隐藏者自己的 all 信息流里看不到
	page, err := Get(&viewerA.ID, Query{Scope: ScopeAll, Sort: SortNew})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, visible.Pid, page.Items[0].Pid)

	// 别的访问者照常可见
	page, err = Get(&viewerB.ID, Query{Scope: ScopeAll, Sort: SortNew})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)

	// 匿名访问照常可见
	page, err = Get(nil, Query{Scope: ScopeAll, Sort: SortNew})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)

	// hidden 范围恰好只包含被隐藏的
	page, err = Get(&viewerA.ID, Query{Scope: ScopeHidden, Sort: SortNew})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, hidden.Pid, page.Items[0].Pid)
}

func TestViewerAnnotation(t *testing.T) {
	setupTestDB(t)
	author := createUser(t, "alice")
	viewer := createUser(t, "bob")
	community := createCommunity(t, "tech")

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	voted := createPost(t, author.ID, community.ID, "voted", base)
	plain := createPost(t, author.ID, community.ID, "plain", base.Add(time.Minute))

	require.NoError(t, db.DB.Create(&models.UserPostRelation{
		UserID: viewer.ID, PostID: voted.ID, Vote: models.VoteUp, Saved: true,
	}).Error)

	// 匿名访问个人字段保持 nil
	page, err := Get(nil, Query{Scope: ScopeAll, Sort: SortNew})
	require.NoError(t, err)
	for _, p := range page.Items {
		assert.Nil(t, p.ViewerVote)
		assert.Nil(t, p.ViewerSaved)
		assert.Nil(t, p.ViewerHidden)
	}

	// 登录访问者按状态行填充，无状态行的填零值
	page, err = Get(&viewer.ID, Query{Scope: ScopeAll, Sort: SortNew})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	byPid := make(map[string]*models.Post)
	for i := range page.Items {
		byPid[page.Items[i].Pid] = &page.Items[i]
	}

	require.NotNil(t, byPid["voted"].ViewerVote)
	assert.Equal(t, models.VoteUp, *byPid["voted"].ViewerVote)
	assert.True(t, *byPid["voted"].ViewerSaved)
	assert.False(t, *byPid["voted"].ViewerHidden)

	require.NotNil(t, byPid["plain"].ViewerVote)
	assert.Equal(t, models.VoteNone, *byPid["plain"].ViewerVote)
	assert.False(t, *byPid["plain"].ViewerSaved)
	assert.Equal(t, plain.Pid, byPid["plain"].Pid)
}

func TestViewerScopesRequireViewer(t *testing.T) {
	setupTestDB(t)

	for _, scope := range []Scope{ScopeHome, ScopeSaved, ScopeHidden, ScopeUpvoted, ScopeDownvoted} {
		_, err := Get(nil, Query{Scope: scope, Sort: SortNew})
		assert.ErrorIs(t, err, ErrUnauthorized, "scope %s", scope)
	}
}

func TestUnknownCommunityAndUser(t *testing.T) {
	setupTestDB(t)

	_, err := Get(nil, Query{Scope: ScopeCommunity, Sort: SortNew, Community: "nope"})
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	_, err = Get(nil, Query{Scope: ScopeUser, Sort: SortNew, Username: "nobody"})
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestRelationScopes(t *testing.T) {
	setupTestDB(t)
	author := createUser(t, "alice")
	viewer := createUser(t, "bob")
	community := createCommunity(t, "tech")

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	up := createPost(t, author.ID, community.ID, "up", base)
	down := createPost(t, author.ID, community.ID, "down", base.Add(time.Minute))
	saved := createPost(t, author.ID, community.ID, "saved", base.Add(2*time.Minute))
	createPost(t, author.ID, community.ID, "none", base.Add(3*time.Minute))

	require.NoError(t, db.DB.Create(&models.UserPostRelation{UserID: viewer.ID, PostID: up.ID, Vote: models.VoteUp}).Error)
	require.NoError(t, db.DB.Create(&models.UserPostRelation{UserID: viewer.ID, PostID: down.ID, Vote: models.VoteDown}).Error)
	require.NoError(t, db.DB.Create(&models.UserPostRelation{UserID: viewer.ID, PostID: saved.ID, Saved: true}).Error)

	cases := map[Scope]string{
		ScopeUpvoted:   "up",
		ScopeDownvoted: "down",
		ScopeSaved:     "saved",
	}
	for scope, want := range cases {
		page, err := Get(&viewer.ID, Query{Scope: scope, Sort: SortNew})
		require.NoError(t, err)
		require.Len(t, page.Items, 1, "scope %s", scope)
		assert.Equal(t, want, page.Items[0].Pid)
	}
}

func TestHomeScopeFollowsMemberships(t *testing.T) {
	setupTestDB(t)
	author := createUser(t, "alice")
	viewer := createUser(t, "bob")
	tech := createCommunity(t, "tech")
	life := createCommunity(t, "life")

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	inTech := createPost(t, author.ID, tech.ID, "tech1", base)
	createPost(t, author.ID, life.ID, "life1", base.Add(time.Minute))

	require.NoError(t, db.DB.Create(&models.Membership{UserID: viewer.ID, CommunityID: tech.ID, Member: true}).Error)
	// 退出过的社区不算
	require.NoError(t, db.DB.Create(&models.Membership{UserID: viewer.ID, CommunityID: life.ID, Member: false}).Error)

	page, err := Get(&viewer.ID, Query{Scope: ScopeHome, Sort: SortNew})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, inTech.Pid, page.Items[0].Pid)
}

func TestCommunityAndUserScopes(t *testing.T) {
	setupTestDB(t)
	alice := createUser(t, "alice")
	bob := createUser(t, "bob")
	tech := createCommunity(t, "tech")
	life := createCommunity(t, "life")

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	createPost(t, alice.ID, tech.ID, "at", base)
	createPost(t, alice.ID, life.ID, "al", base.Add(time.Minute))
	createPost(t, bob.ID, tech.ID, "bt", base.Add(2*time.Minute))

	page, err := Get(nil, Query{Scope: ScopeCommunity, Sort: SortNew, Community: "tech"})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "bt", page.Items[0].Pid)
	assert.Equal(t, "at", page.Items[1].Pid)

	page, err = Get(nil, Query{Scope: ScopeUser, Sort: SortNew, Username: "alice"})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "al", page.Items[0].Pid)
	assert.Equal(t, "at", page.Items[1].Pid)
}

func TestExactlyFullLastPageYieldsEmptyFollowup(t *testing.T) {
	setupTestDB(t)
	author := createUser(t, "alice")
	community := createCommunity(t, "tech")

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < PageSize; i++ {
		createPost(t, author.ID, community.ID, fmt.Sprintf("p%03d", i), base.Add(time.Duration(i)*time.Minute))
	}

	page, err := Get(nil, Query{Scope: ScopeAll, Sort: SortNew})
	require.NoError(t, err)
	require.Len(t, page.Items, PageSize)
	require.NotNil(t, page.NextCursor, "full page promises more")

	next, err := Get(nil, Query{Scope: ScopeAll, Sort: SortNew, Cursor: *page.NextCursor})
	require.NoError(t, err)
	assert.Empty(t, next.Items)
	assert.Nil(t, next.NextCursor)
}
