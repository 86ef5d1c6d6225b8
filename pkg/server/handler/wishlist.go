package handler

import (
	"net/http"

	"github.com/IlyushaZ/vinyl-store/pkg/model"
	"github.com/IlyushaZ/vinyl-store/pkg/service"
)

type WishlistedResp struct {
	Wishlisted bool `json:"wishlisted"`
}

func WishlistToggle(svc service.Wishlist) PrincipalHandler {
	return func(w http.ResponseWriter, r *http.Request, p model.Principal) {
		id, err := pathID(r, "id")
		if err != nil {
			WriteError(w, err)
			return
		}

		wishlisted, err := svc.Toggle(r.Context(), p, id)
		if err != nil {
			WriteError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, WishlistedResp{wishlisted})
	}
}

func WishlistListMine(svc service.Wishlist) PrincipalHandler {
	return func(w http.ResponseWriter, r *http.Request, p model.Principal) {
		entries, err := svc.ListMine(r.Context(), p)
		if err != nil {
			WriteError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, entries)
	}
}

func WishlistCheck(svc service.Wishlist) PrincipalHandler {
	return func(w http.ResponseWriter, r *http.Request, p model.Principal) {
		id, err := pathID(r, "id")
		if err != nil {
			WriteError(w, err)
			return
		}

		wishlisted, err := svc.IsWishlisted(r.Context(), p, id)
		if err != nil {
			WriteError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, WishlistedResp{wishlisted})
	}
}
