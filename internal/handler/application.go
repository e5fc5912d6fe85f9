package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/tastetrack/internal/domain/application"
	"github.com/xenking/tastetrack/internal/domain/auth"
)

// SubmitApplication records a restaurant's request to join the platform.
func (h *Handler) SubmitApplication(w http.ResponseWriter, r *http.Request) {
	var req application.SubmitRequest
	err := decodeObject(w, r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "name", "restaurantName":
			req.Name, err = readString(d)
		case "email":
			req.Email, err = readString(d)
		case "phone":
			req.Phone, err = readString(d)
		case "address":
			req.Address, err = readString(d)
		case "description":
			req.Description, err = readString(d)
		case "password":
			req.Password, err = readString(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	a, err := h.applications.Submit(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeApplication(e, a) })
}

func (h *Handler) ListApplications(w http.ResponseWriter, r *http.Request, _ auth.Identity) {
	apps, err := h.applications.List(r.Context())
	writeApplications(w, r, apps, err)
}

func (h *Handler) ListPendingApplications(w http.ResponseWriter, r *http.Request, _ auth.Identity) {
	apps, err := h.applications.ListPending(r.Context())
	writeApplications(w, r, apps, err)
}

func writeApplications(w http.ResponseWriter, r *http.Request, apps []application.Application, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeList(e, apps, encodeApplication) })
}

func (h *Handler) GetApplication(w http.ResponseWriter, r *http.Request, _ auth.Identity) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.applications.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeApplication(e, a) })
}

// ApproveApplication provisions the vendor account and restaurant.
func (h *Handler) ApproveApplication(w http.ResponseWriter, r *http.Request, caller auth.Identity) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.applications.Approve(r.Context(), id, caller.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("application")
		encodeApplication(e, res.Application)
		e.FieldStart("vendor")
		encodeUser(e, res.Vendor)
		e.FieldStart("restaurant")
		encodeRestaurant(e, res.Restaurant)
		e.FieldStart("merged")
		e.Bool(res.Merged)
		e.ObjEnd()
	})
}

func (h *Handler) RejectApplication(w http.ResponseWriter, r *http.Request, caller auth.Identity) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	// The body is optional; a rejection may come without a reason.
	var reason string
	if r.ContentLength != 0 {
		err = decodeObject(w, r, func(d *jx.Decoder, key string) (err error) {
			if key != "rejectionReason" && key != "reason" {
				return d.Skip()
			}
			reason, err = readString(d)
			return err
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
	}

	a, err := h.applications.Reject(r.Context(), id, caller.Email, reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeApplication(e, a) })
}
