package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IlyushaZ/vinyl-store/pkg/database/memory"
	"github.com/IlyushaZ/vinyl-store/pkg/identity"
	"github.com/IlyushaZ/vinyl-store/pkg/model"
	"github.com/IlyushaZ/vinyl-store/pkg/server/handler"
	"github.com/IlyushaZ/vinyl-store/pkg/service"
)

type api struct {
	t      *testing.T
	store  *memory.Store
	jwt    *identity.JWT
	router http.Handler
}

func newAPI(t *testing.T) *api {
	t.Helper()

	store := memory.New()
	jwt := &identity.JWT{Secret: []byte("test")}

	return &api{
		t:     t,
		store: store,
		jwt:   jwt,
		router: Router(Services{
			Identity:     jwt,
			Reservations: &service.ReservationLogging{&service.ReservationGeneric{Store: store}},
			Catalog:      &service.CatalogGeneric{Store: store},
			Wishlist:     &service.WishlistGeneric{Store: store},
		}),
	}
}

func (a *api) token(p model.Principal) string {
	a.t.Helper()

	token, err := a.jwt.Sign(p, time.Hour)
	require.NoError(a.t, err)

	return token
}

func (a *api) seed(title string, stock int) model.Vinyl {
	v := model.Vinyl{Base: model.Base{ID: uuid.New(), CreatedAt: time.Now().UTC()}, Title: title, Artist: "Miles Davis", Stock: stock}
	a.store.SeedVinyl(v)
	return v
}

// do sends request with body encoded as JSON unless it's nil. Empty token means anonymous caller.
func (a *api) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()

	var r io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		r = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, r)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()

	assert.Equal(t, status, rec.Code, rec.Body.String())
	assert.Equal(t, code, decode[handler.ErrorResp](t, rec).Error.Code)
}

var (
	alice = model.Principal{ID: uuid.New(), Username: "alice", Role: model.RoleUser}
	bob   = model.Principal{ID: uuid.New(), Username: "bob", Role: model.RoleUser}
	root  = model.Principal{ID: uuid.New(), Username: "root", Role: model.RoleAdmin}
)

func TestKeepAndTransition(t *testing.T) {
	a := newAPI(t)
	v := a.seed("Kind of Blue", 1)

	rec := a.do(http.MethodPost, "/reservations/keep/"+v.ID.String(), a.token(alice), handler.KeepReq{ConfirmTitle: "Kind of Blue"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	res := decode[model.Reservation](t, rec)
	assert.Equal(t, model.StatusActive, res.Status)
	assert.Equal(t, alice.ID, res.OwnerID)
	assert.Equal(t, 0, a.store.Stock(v.ID))

	rec = a.do(http.MethodPost, "/reservations/keep/"+v.ID.String(), a.token(bob), handler.KeepReq{ConfirmTitle: "Kind of Blue"})
	assertError(t, rec, http.StatusBadRequest, "item_unavailable")

	rec = a.do(http.MethodPut, "/reservations/"+res.ID.String()+"/status", a.token(alice), handler.TransitionReq{Status: "expired"})
	assertError(t, rec, http.StatusForbidden, "forbidden")

	rec = a.do(http.MethodPut, "/reservations/"+res.ID.String()+"/status", a.token(root), handler.TransitionReq{Status: "expired"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.StatusExpired, decode[model.Reservation](t, rec).Status)
	assert.Equal(t, 1, a.store.Stock(v.ID))

	rec = a.do(http.MethodPatch, "/admin/reservations/"+res.ID.String(), a.token(root), handler.TransitionReq{Status: "collected"})
	assertError(t, rec, http.StatusBadRequest, "invalid_transition")

	rec = a.do(http.MethodPatch, "/admin/reservations/"+res.ID.String(), a.token(root), handler.TransitionReq{Status: "gone"})
	assertError(t, rec, http.StatusBadRequest, "invalid_status")
}

func TestKeepErrors(t *testing.T) {
	a := newAPI(t)
	v := a.seed("Kind of Blue", 1)

	tests := []struct {
		name   string
		path   string
		token  string
		body   any
		status int
		code   string
	}{
		{"no token", "/reservations/keep/" + v.ID.String(), "", handler.KeepReq{"Kind of Blue"}, http.StatusUnauthorized, "unauthenticated"},
		{"bad token", "/reservations/keep/" + v.ID.String(), "garbage", handler.KeepReq{"Kind of Blue"}, http.StatusUnauthorized, "invalid_token"},
		{"bad id", "/reservations/keep/42", a.token(alice), handler.KeepReq{"Kind of Blue"}, http.StatusBadRequest, "invalid_input"},
		{"unknown vinyl", "/reservations/keep/" + uuid.NewString(), a.token(alice), handler.KeepReq{"Kind of Blue"}, http.StatusNotFound, "item_not_found"},
		{"mismatch", "/reservations/keep/" + v.ID.String(), a.token(alice), handler.KeepReq{"kind of blue"}, http.StatusBadRequest, "confirmation_mismatch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertError(t, a.do(http.MethodPost, tt.path, tt.token, tt.body), tt.status, tt.code)
		})
	}

	assert.Equal(t, 1, a.store.Stock(v.ID))
}

func TestListReservations(t *testing.T) {
	a := newAPI(t)
	v := a.seed("Kind of Blue", 3)
	a.store.SeedUser(model.UserSummary{ID: alice.ID, Username: "alice", Email: "alice@example.com"})

	rec := a.do(http.MethodPost, "/reservations/keep/"+v.ID.String(), a.token(alice), handler.KeepReq{"Kind of Blue"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = a.do(http.MethodGet, "/reservations/my", a.token(alice), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decode[[]model.ReservationDetails](t, rec)
	require.Len(t, mine, 1)
	assert.Equal(t, "Kind of Blue", mine[0].Vinyl.Title)

	rec = a.do(http.MethodGet, "/reservations/my", a.token(bob), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	assertError(t, a.do(http.MethodGet, "/reservations/all", a.token(alice), nil), http.StatusForbidden, "forbidden")

	for _, path := range []string{"/reservations/all", "/admin/reservations"} {
		rec = a.do(http.MethodGet, path, a.token(root), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		all := decode[[]model.ReservationDetails](t, rec)
		require.Len(t, all, 1)
		require.NotNil(t, all[0].Owner)
		assert.Equal(t, "alice@example.com", all[0].Owner.Email)
	}
}

func TestCatalogRoutes(t *testing.T) {
	a := newAPI(t)
	in := a.seed("In Stock", 1)
	a.seed("Sold Out", 0)

	rec := a.do(http.MethodGet, "/catalog", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[handler.ListPageResp[model.Vinyl]](t, rec)
	assert.Equal(t, 1, page.Total)

	rec = a.do(http.MethodGet, "/vinyl?page_num=1&page_size=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page = decode[handler.ListPageResp[model.Vinyl]](t, rec)
	assert.Equal(t, 2, page.Total)
	assert.Len(t, page.Page, 1)

	assertError(t, a.do(http.MethodGet, "/vinyl?page_size=abc", "", nil), http.StatusBadRequest, "invalid_input")

	for _, path := range []string{"/catalog/", "/vinyl/"} {
		rec = a.do(http.MethodGet, path+in.ID.String(), "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "In Stock", decode[model.Vinyl](t, rec).Title)
	}

	assertError(t, a.do(http.MethodGet, "/vinyl/"+uuid.NewString(), "", nil), http.StatusNotFound, "item_not_found")

	draft := model.Vinyl{Title: "Blue Train", Artist: "John Coltrane", Stock: 2, Price: 3000}
	assertError(t, a.do(http.MethodPost, "/vinyl", a.token(alice), draft), http.StatusForbidden, "forbidden")

	rec = a.do(http.MethodPost, "/vinyl", a.token(root), draft)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotEqual(t, uuid.Nil, decode[model.Vinyl](t, rec).ID)
}

func TestCatalogAdminRoutes(t *testing.T) {
	a := newAPI(t)
	v := a.seed("Kind of Blue", 1)
	path := "/vinyl/" + v.ID.String()

	assertError(t, a.do(http.MethodPut, path, a.token(alice), map[string]any{"price": 3999}), http.StatusForbidden, "forbidden")
	assertError(t, a.do(http.MethodPut, path, a.token(root), map[string]any{"stock": 50}), http.StatusBadRequest, "stock_read_only")
	assertError(t, a.do(http.MethodPut, "/vinyl/"+uuid.NewString(), a.token(root), map[string]any{"price": 1}), http.StatusNotFound, "item_not_found")

	rec := a.do(http.MethodPut, path, a.token(root), map[string]any{"price": 3999, "genre": "jazz"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[model.Vinyl](t, rec)
	assert.Equal(t, int64(3999), updated.Price)
	assert.Equal(t, "jazz", updated.Genre)
	assert.Equal(t, "Kind of Blue", updated.Title)
	assert.Equal(t, 1, a.store.Stock(v.ID))

	rec = a.do(http.MethodPost, "/reservations/keep/"+v.ID.String(), a.token(alice), handler.KeepReq{ConfirmTitle: "Kind of Blue"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assertError(t, a.do(http.MethodDelete, path, a.token(root), nil), http.StatusBadRequest, "vinyl_reserved")

	free := a.seed("Blue Train", 1)
	assertError(t, a.do(http.MethodDelete, "/vinyl/"+free.ID.String(), "", nil), http.StatusUnauthorized, "unauthenticated")

	rec = a.do(http.MethodDelete, "/vinyl/"+free.ID.String(), a.token(root), nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	assertError(t, a.do(http.MethodGet, "/vinyl/"+free.ID.String(), "", nil), http.StatusNotFound, "item_not_found")
}

func TestWishlistRoutes(t *testing.T) {
	a := newAPI(t)
	v := a.seed("Kind of Blue", 1)

	rec := a.do(http.MethodPost, "/wishlist/"+v.ID.String(), a.token(alice), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[handler.WishlistedResp](t, rec).Wishlisted)

	rec = a.do(http.MethodGet, "/wishlist/"+v.ID.String()+"/check", a.token(alice), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[handler.WishlistedResp](t, rec).Wishlisted)

	rec = a.do(http.MethodGet, "/wishlist/"+v.ID.String()+"/check", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[handler.WishlistedResp](t, rec).Wishlisted)

	rec = a.do(http.MethodGet, "/wishlist", a.token(alice), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.WishlistEntry](t, rec), 1)

	assertError(t, a.do(http.MethodGet, "/wishlist", "", nil), http.StatusUnauthorized, "unauthenticated")
}

func TestUnknownRoutes(t *testing.T) {
	a := newAPI(t)

	assertError(t, a.do(http.MethodGet, "/nope", "", nil), http.StatusNotFound, "route_not_found")
	assertError(t, a.do(http.MethodDelete, "/catalog", "", nil), http.StatusMethodNotAllowed, "method_not_allowed")
}
