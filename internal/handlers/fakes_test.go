package handlers

import (
	"context"
	"errors"
	"net/http"

	"burrow/internal/identity"
	"burrow/internal/middleware"
	"burrow/internal/models"
	"burrow/internal/services"

	"github.com/gin-contrib/multitemplate"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestEngine 每个页面模板只输出关键字段，便于断言
func newTestEngine() *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.ResolveIdentity(identity.NewResolver("salt", identity.SchemeFingerprint, true)))
	r.Use(sessions.Sessions("burrow_test", cookie.NewStore([]byte("test-secret"))))

	tmpl := multitemplate.NewRenderer()
	for _, v := range Views {
		body := "view=" + v + " title={{.Title}} error={{.Error}}{{.CommentError}} theme={{.Theme}} flashes={{range .Flashes}}{{.}};{{end}}"
		if v == "error.html" {
			body += " input={{range $k, $v := .Input}}{{$k}}:{{$v}};{{end}}"
		}
		tmpl.AddFromString(v, body)
	}
	r.HTMLRender = tmpl
	return r
}

var errBoom = errors.New("boom")

type castCall struct {
	target services.Target
	voter  identity.Voter
	dir    models.Direction
}

type fakeLedger struct {
	calls []castCall
	res   services.VoteResult
	err   error
}

func (f *fakeLedger) CastVote(ctx context.Context, target services.Target, voter identity.Voter, dir models.Direction) (services.VoteResult, error) {
	f.calls = append(f.calls, castCall{target: target, voter: voter, dir: dir})
	return f.res, f.err
}

type fakePurger struct{ n int }

func (f *fakePurger) Purge() { f.n++ }

type fakeCache struct {
	data   map[string]interface{}
	purged int
}

func newFakeCache() *fakeCache { return &fakeCache{data: map[string]interface{}{}} }

func (f *fakeCache) Get(key string) interface{}       { return f.data[key] }
func (f *fakeCache) Set(key string, data interface{}) { f.data[key] = data }
func (f *fakeCache) Purge() {
	f.purged++
	f.data = map[string]interface{}{}
}

type fakePosts struct {
	created    []services.SubmitPostInput
	createErr  error
	detail     *services.PostDetail
	detailErr  error
	popular    []models.Post
	popularN   int
	categories []models.Category
	catCalls   int
	newest     []models.Post
}

func (f *fakePosts) Create(ctx context.Context, in services.SubmitPostInput) (*models.Post, error) {
	f.created = append(f.created, in)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &models.Post{ID: uint(len(f.created)), Title: in.Title}, nil
}

func (f *fakePosts) ListHot(ctx context.Context, page int) (services.PostPage, error) {
	return services.PostPage{Page: page, TotalPages: 1}, nil
}

func (f *fakePosts) ListNewest(ctx context.Context, page int) (services.PostPage, error) {
	return services.PostPage{Posts: f.newest, Page: page, TotalPages: 1}, nil
}

func (f *fakePosts) ListPopular(ctx context.Context) ([]models.Post, error) {
	f.popularN++
	return f.popular, nil
}

func (f *fakePosts) ListByCategory(ctx context.Context, slug string, page int) (*models.Category, services.PostPage, error) {
	if slug != "privacy" {
		return nil, services.PostPage{}, services.ErrNotFound
	}
	return &models.Category{ID: 2, Name: "Privacy", Slug: slug}, services.PostPage{Page: page, TotalPages: 1}, nil
}

func (f *fakePosts) Detail(ctx context.Context, id uint) (*services.PostDetail, error) {
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	if f.detail == nil || f.detail.Post.ID != id {
		return nil, services.ErrNotFound
	}
	return f.detail, nil
}

func (f *fakePosts) LatestComments(ctx context.Context) ([]models.Comment, error) {
	return nil, nil
}

func (f *fakePosts) Categories(ctx context.Context) ([]models.Category, error) {
	f.catCalls++
	return f.categories, nil
}

type fakeComments struct {
	got []services.CommentInput
	err error
}

func (f *fakeComments) Create(ctx context.Context, in services.CommentInput) (*models.Comment, error) {
	f.got = append(f.got, in)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Comment{ID: 9, PostID: in.PostID, Content: in.Content}, nil
}

type fakeSearch struct {
	query string
}

func (f *fakeSearch) Search(ctx context.Context, query string) ([]models.Post, error) {
	f.query = query
	return []models.Post{{ID: 1, Title: "found"}}, nil
}

type fakeGuestbook struct {
	entries []models.GuestbookEntry
	err     error
}

func (f *fakeGuestbook) Sign(ctx context.Context, in services.GuestbookInput) (*models.GuestbookEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	e := models.GuestbookEntry{ID: uint(len(f.entries) + 1), Name: in.Name, Message: in.Message}
	f.entries = append(f.entries, e)
	return &e, nil
}

func (f *fakeGuestbook) Latest(ctx context.Context) ([]models.GuestbookEntry, error) {
	return f.entries, nil
}

type fakeAccounts struct {
	users map[string]*models.User
}

func (f *fakeAccounts) Register(ctx context.Context, in services.CredentialsInput) (*models.User, error) {
	u := &models.User{ID: uint(len(f.users) + 1), Username: in.Username}
	f.users[in.Username] = u
	return u, nil
}

func (f *fakeAccounts) Login(ctx context.Context, in services.CredentialsInput) (*models.User, error) {
	if u, ok := f.users[in.Username]; ok && in.Password == "secret1" {
		return u, nil
	}
	return nil, &services.ValidationError{Field: "username", Message: "Invalid username or password", Input: map[string]string{"username": in.Username}}
}

func (f *fakeAccounts) User(ctx context.Context, id uint) (*models.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, services.ErrNotFound
}

type fakeFetcher struct {
	title string
	err   error
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	return f.title, f.err
}

type fakePinger struct{ err error }

func (f fakePinger) PingContext(ctx context.Context) error { return f.err }

// cookiesFrom 把响应里的 cookie 带到下一个请求
func cookiesFrom(resp *http.Response, req *http.Request) {
	for _, ck := range resp.Cookies() {
		req.AddCookie(ck)
	}
}
