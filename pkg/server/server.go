package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/IlyushaZ/vinyl-store/pkg/identity"
	"github.com/IlyushaZ/vinyl-store/pkg/model"
	"github.com/IlyushaZ/vinyl-store/pkg/server/handler"
	"github.com/IlyushaZ/vinyl-store/pkg/server/middleware"
	"github.com/IlyushaZ/vinyl-store/pkg/service"
)

const (
	readTimeout  = 5 * time.Second
	writeTimeout = 5 * time.Second
)

type Services struct {
	Identity     identity.Provider
	Reservations service.Reservation
	Catalog      service.Catalog
	Wishlist     service.Wishlist
}

func New(addr string, svc Services) (*http.Server, error) {
	return &http.Server{
		Addr:         addr,
		Handler:      Router(svc),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}, nil
}

// Router builds HTTP handler serving the whole API.
func Router(svc Services) http.Handler {
	var (
		r        = mux.NewRouter()
		user     = func(h handler.PrincipalHandler) http.HandlerFunc { return handler.Authenticated(svc.Identity, false, h) }
		optional = func(h handler.PrincipalHandler) http.HandlerFunc { return handler.Authenticated(svc.Identity, true, h) }
	)

	r.Handle("/reservations/keep/{id}", user(handler.ReservationKeep(svc.Reservations))).Methods(http.MethodPost)
	r.Handle("/reservations/my", user(handler.ReservationListMine(svc.Reservations))).Methods(http.MethodGet)
	r.Handle("/reservations/all", user(handler.ReservationListAll(svc.Reservations))).Methods(http.MethodGet)
	r.Handle("/reservations/{id}/status", user(handler.ReservationTransition(svc.Reservations))).Methods(http.MethodPut)
	r.Handle("/admin/reservations", user(handler.ReservationListAll(svc.Reservations))).Methods(http.MethodGet)
	r.Handle("/admin/reservations/{id}", user(handler.ReservationTransition(svc.Reservations))).Methods(http.MethodPatch)

	r.Handle("/catalog", handler.CatalogListPage(svc.Catalog, true)).Methods(http.MethodGet)
	r.Handle("/catalog/{id}", handler.CatalogGet(svc.Catalog)).Methods(http.MethodGet)
	r.Handle("/vinyl", handler.CatalogListPage(svc.Catalog, false)).Methods(http.MethodGet)
	r.Handle("/vinyl", user(handler.CatalogCreate(svc.Catalog))).Methods(http.MethodPost)
	r.Handle("/vinyl/{id}", handler.CatalogGet(svc.Catalog)).Methods(http.MethodGet)
	r.Handle("/vinyl/{id}", user(handler.CatalogUpdate(svc.Catalog))).Methods(http.MethodPut)
	r.Handle("/vinyl/{id}", user(handler.CatalogDelete(svc.Catalog))).Methods(http.MethodDelete)

	r.Handle("/wishlist", user(handler.WishlistListMine(svc.Wishlist))).Methods(http.MethodGet)
	r.Handle("/wishlist/{id}", user(handler.WishlistToggle(svc.Wishlist))).Methods(http.MethodPost)
	r.Handle("/wishlist/{id}/check", optional(handler.WishlistCheck(svc.Wishlist))).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		handler.WriteError(w, &model.Error{Kind: model.KindNotFound, Code: "route_not_found", Message: "route not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = w.Write([]byte(`{"error":{"kind":"validation","code":"method_not_allowed","message":"method not allowed"}}`))
	})

	chain := middleware.Chain{
		middleware.Log,
		middleware.Recovery,
	}

	return chain.Then(r)
}
