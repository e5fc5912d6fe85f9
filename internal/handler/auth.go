package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/tastetrack/internal/domain/auth"
)

// Signup creates a customer account and returns a session.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req auth.SignupRequest
	err := decodeObject(w, r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "firstName":
			req.FirstName, err = readString(d)
		case "lastName":
			req.LastName, err = readString(d)
		case "email":
			req.Email, err = readString(d)
		case "password":
			req.Password, err = readString(d)
		case "phone":
			req.Phone, err = readString(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	sess, err := h.auth.Signup(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeSession(e, sess) })
}

// Login exchanges credentials for a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var email, password string
	err := decodeObject(w, r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "email":
			email, err = readString(d)
		case "password":
			password, err = readString(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	sess, err := h.auth.Login(r.Context(), email, password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeSession(e, sess) })
}

func encodeSession(e *jx.Encoder, s *auth.Session) {
	e.ObjStart()
	e.FieldStart("token")
	e.Str(s.Token)
	e.FieldStart("user")
	encodeUser(e, s.User)
	e.ObjEnd()
}
