package handler

import (
	"net/http"

	"github.com/IlyushaZ/vinyl-store/pkg/model"
	"github.com/IlyushaZ/vinyl-store/pkg/service"
)

type KeepReq struct {
	ConfirmTitle string `json:"confirmTitle"`
}

type TransitionReq struct {
	Status string `json:"status"`
}

func ReservationKeep(svc service.Reservation) PrincipalHandler {
	return func(w http.ResponseWriter, r *http.Request, p model.Principal) {
		vinylID, err := pathID(r, "id")
		if err != nil {
			WriteError(w, err)
			return
		}

		var req KeepReq
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, err)
			return
		}

		res, err := svc.Keep(r.Context(), p, vinylID, req.ConfirmTitle)
		if err != nil {
			WriteError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, res)
	}
}

func ReservationTransition(svc service.Reservation) PrincipalHandler {
	return func(w http.ResponseWriter, r *http.Request, p model.Principal) {
		id, err := pathID(r, "id")
		if err != nil {
			WriteError(w, err)
			return
		}

		var req TransitionReq
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, err)
			return
		}

		res, err := svc.Transition(r.Context(), p, id, req.Status)
		if err != nil {
			WriteError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, res)
	}
}

func ReservationListMine(svc service.Reservation) PrincipalHandler {
	return func(w http.ResponseWriter, r *http.Request, p model.Principal) {
		ds, err := svc.ListMine(r.Context(), p)
		if err != nil {
			WriteError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, ds)
	}
}

func ReservationListAll(svc service.Reservation) PrincipalHandler {
	return func(w http.ResponseWriter, r *http.Request, p model.Principal) {
		ds, err := svc.ListAll(r.Context(), p)
		if err != nil {
			WriteError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, ds)
	}
}
