package handler

import (
	"net/http"

	"github.com/IlyushaZ/vinyl-store/pkg/model"
	"github.com/IlyushaZ/vinyl-store/pkg/service"
)

// CatalogListPage lists vinyls page by page. With onlyAvailable set, vinyls out of stock are skipped.
func CatalogListPage(svc service.Catalog, onlyAvailable bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pageNum, pageSize, err := pageParams(r)
		if err != nil {
			WriteError(w, err)
			return
		}

		var resp ListPageResp[model.Vinyl]

		resp.Page, resp.Total, err = svc.ListPage(r.Context(), onlyAvailable, pageNum, pageSize)
		if err != nil {
			WriteError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func CatalogGet(svc service.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			WriteError(w, err)
			return
		}

		v, err := svc.Get(r.Context(), id)
		if err != nil {
			WriteError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, v)
	}
}

func CatalogCreate(svc service.Catalog) PrincipalHandler {
	return func(w http.ResponseWriter, r *http.Request, p model.Principal) {
		var v model.Vinyl
		if err := decodeJSON(r, &v); err != nil {
			WriteError(w, err)
			return
		}

		v, err := svc.Create(r.Context(), p, v)
		if err != nil {
			WriteError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, v)
	}
}

type CatalogUpdateReq struct {
	model.VinylPatch
	Stock *int `json:"stock"`
}

func CatalogUpdate(svc service.Catalog) PrincipalHandler {
	return func(w http.ResponseWriter, r *http.Request, p model.Principal) {
		id, err := pathID(r, "id")
		if err != nil {
			WriteError(w, err)
			return
		}

		var req CatalogUpdateReq
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, err)
			return
		}

		if req.Stock != nil {
			WriteError(w, model.ErrStockReadOnly)
			return
		}

		v, err := svc.Update(r.Context(), p, id, req.VinylPatch)
		if err != nil {
			WriteError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, v)
	}
}

func CatalogDelete(svc service.Catalog) PrincipalHandler {
	return func(w http.ResponseWriter, r *http.Request, p model.Principal) {
		id, err := pathID(r, "id")
		if err != nil {
			WriteError(w, err)
			return
		}

		if err := svc.Delete(r.Context(), p, id); err != nil {
			WriteError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
