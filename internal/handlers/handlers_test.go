package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shallot/internal/db"
	"shallot/internal/middleware"
	"shallot/internal/models"
	"shallot/internal/router"
)

func setupServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))
	db.InitWithConnection(conn)

	r := gin.New()
	store := cookie.NewStore([]byte("test-secret"))
	r.Use(sessions.Sessions("shallot_session", store))
	r.Use(middleware.LoadUser())
	router.RegisterRoutes(r)
	return r
}

func seedUser(t *testing.T, username string) *models.User {
	t.Helper()
	u := &models.User{ExternalID: uuid.NewString(), Username: username}
	require.NoError(t, db.DB.Create(u).Error)
	return u
}

func seedCommunityPost(t *testing.T, authorID uint, communityName, pid string) *models.Post {
	t.Helper()
	community := &models.Community{Name: communityName, Title: communityName}
	require.NoError(t, db.DB.Create(community).Error)
	post := &models.Post{
		Pid: pid, UserID: authorID, CommunityID: community.ID,
		Title: "post " + pid, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, db.DB.Create(post).Error)
	return post
}

// login 走票据兑换接口建立会话，返回会话 cookie
func login(t *testing.T, r *gin.Engine, user *models.User) []*http.Cookie {
	t.Helper()
	body, _ := json.Marshal(gin.H{"subject": user.ExternalID})
	req := httptest.NewRequest(http.MethodPost, "/api/session", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return w.Result().Cookies()
}

func doJSON(r *gin.Engine, method, path string, payload interface{}, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var body *bytes.Reader
	if payload != nil {
		b, _ := json.Marshal(payload)
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestFeedEndpointAnonymous(t *testing.T) {
	r := setupServer(t)
	author := seedUser(t, "alice")
	seedCommunityPost(t, author.ID, "anon-feed-tech", "p1")

	w := doJSON(r, http.MethodGet, "/api/feed?scope=community&community=anon-feed-tech&sort=new", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Items []map[string]interface{} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "p1", resp.Items[0]["id"])
	// 匿名访问个人状态为 null
	assert.Contains(t, resp.Items[0], "viewer_vote")
	assert.Nil(t, resp.Items[0]["viewer_vote"])
}

func TestFeedEndpointRejectsUnknownSort(t *testing.T) {
	r := setupServer(t)

	w := doJSON(r, http.MethodGet, "/api/feed?sort=sideways", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodGet, "/api/feed?scope=everything", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFeedViewerScopeNeedsSession(t *testing.T) {
	r := setupServer(t)

	w := doJSON(r, http.MethodGet, "/api/feed?scope=saved&sort=new", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVoteRequiresSession(t *testing.T) {
	r := setupServer(t)

	w := doJSON(r, http.MethodPost, "/api/vote/post/p1", gin.H{"value": "up"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionExchangeAndVoteFlow(t *testing.T) {
	r := setupServer(t)
	author := seedUser(t, "alice")
	voter := seedUser(t, "bob")
	post := seedCommunityPost(t, author.ID, "vote-flow-tech", "p1")

	cookies := login(t, r, voter)

	w := doJSON(r, http.MethodPost, "/api/vote/post/"+post.Pid, gin.H{"value": "up"}, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Ups        int  `json:"ups"`
		Downs      int  `json:"downs"`
		Score      int  `json:"score"`
		ViewerVote *int `json:"viewer_vote"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Ups)
	assert.Equal(t, 0, resp.Downs)
	assert.Equal(t, 1, resp.Score)
	require.NotNil(t, resp.ViewerVote)
	assert.Equal(t, models.VoteUp, *resp.ViewerVote)

	// 非法取值拒绝
	w = doJSON(r, http.MethodPost, "/api/vote/post/"+post.Pid, gin.H{"value": "sideways"}, cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 撤票回零
	w = doJSON(r, http.MethodPost, "/api/vote/post/"+post.Pid, gin.H{"value": "none"}, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Ups)
}

func TestSessionExchangeUnknownSubject(t *testing.T) {
	r := setupServer(t)

	w := doJSON(r, http.MethodPost, "/api/session", gin.H{"subject": uuid.NewString()}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodPost, "/api/session", gin.H{"subject": "not-a-uuid"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIdentityWebhook(t *testing.T) {
	r := setupServer(t)
	t.Setenv("WEBHOOK_SECRET", "hook-secret")

	subject := uuid.NewString()
	payload := gin.H{"event": "user.created", "subject": subject, "username": "dave"}

	// 密钥不对直接拒绝
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/identity", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shallot-Webhook-Secret", "wrong")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 正确密钥创建用户
	req = httptest.NewRequest(http.MethodPost, "/webhooks/identity", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shallot-Webhook-Secret", "hook-secret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var user models.User
	require.NoError(t, db.DB.Where("external_id = ?", subject).First(&user).Error)
	assert.Equal(t, "dave", user.Username)

	// subject 不是 UUID 拒绝
	badPayload, _ := json.Marshal(gin.H{"event": "user.created", "subject": "abc", "username": "eve"})
	req = httptest.NewRequest(http.MethodPost, "/webhooks/identity", bytes.NewReader(badPayload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shallot-Webhook-Secret", "hook-secret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostDetailNotFound(t *testing.T) {
	r := setupServer(t)

	w := doJSON(r, http.MethodGet, "/api/posts/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreatePostAndComment(t *testing.T) {
	r := setupServer(t)
	user := seedUser(t, "alice")
	community := &models.Community{Name: "create-flow-tech", Title: "tech"}
	require.NoError(t, db.DB.Create(community).Error)

	cookies := login(t, r, user)

	w := doJSON(r, http.MethodPost, "/api/posts", gin.H{
		"community": community.Name,
		"title":     "hello shallot",
		"content":   "first post",
	}, cookies)
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		ID  string `json:"id"`
		Ups int    `json:"ups"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	assert.Equal(t, 1, created.Ups, "author self-vote")

	w = doJSON(r, http.MethodPost, "/api/posts/"+created.ID+"/comments", gin.H{
		"content": "nice one",
	}, cookies)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(r, http.MethodGet, "/api/posts/"+created.ID, nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	var detail struct {
		Post struct {
			CommentCount int `json:"comment_count"`
		} `json:"post"`
		Comments []json.RawMessage `json:"comments"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.Equal(t, 1, detail.Post.CommentCount)
	assert.Len(t, detail.Comments, 1)
}
