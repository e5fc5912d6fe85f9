package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/tastetrack/internal/domain/auth"
	"github.com/xenking/tastetrack/internal/domain/vendor"
)

func (h *Handler) GetVendorRestaurant(w http.ResponseWriter, r *http.Request, caller auth.Identity) {
	rest, err := h.vendor.Restaurant(r.Context(), caller)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeRestaurant(e, rest) })
}

// UpdateVendorRestaurant applies a partial profile update; absent fields are
// left unchanged.
func (h *Handler) UpdateVendorRestaurant(w http.ResponseWriter, r *http.Request, caller auth.Identity) {
	var upd vendor.RestaurantUpdate
	err := decodeObject(w, r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "name":
			upd.Name, err = readOptString(d)
		case "cuisine":
			upd.Cuisine, err = readOptString(d)
		case "address":
			upd.Address, err = readOptString(d)
		case "deliveryTime":
			upd.DeliveryTime, err = readOptString(d)
		case "image":
			upd.Image, err = readOptString(d)
		case "minOrder":
			upd.MinOrder, err = readOptDecimal(d)
		case "isOpen":
			upd.IsOpen, err = readOptBool(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	rest, err := h.vendor.UpdateRestaurant(r.Context(), caller, upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeRestaurant(e, rest) })
}

func (h *Handler) ListVendorMenu(w http.ResponseWriter, r *http.Request, caller auth.Identity) {
	items, err := h.vendor.MenuItems(r.Context(), caller)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeList(e, items, encodeMenuItem) })
}

func (h *Handler) CreateVendorMenuItem(w http.ResponseWriter, r *http.Request, caller auth.Identity) {
	in, err := decodeMenuItem(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.vendor.CreateMenuItem(r.Context(), caller, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeMenuItem(e, item) })
}

func (h *Handler) UpdateVendorMenuItem(w http.ResponseWriter, r *http.Request, caller auth.Identity) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	in, err := decodeMenuItem(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.vendor.UpdateMenuItem(r.Context(), caller, id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeMenuItem(e, item) })
}

func (h *Handler) DeleteVendorMenuItem(w http.ResponseWriter, r *http.Request, caller auth.Identity) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.vendor.DeleteMenuItem(r.Context(), caller, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeMenuItem(w http.ResponseWriter, r *http.Request) (vendor.MenuItemInput, error) {
	var in vendor.MenuItemInput
	err := decodeObject(w, r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "name":
			in.Name, err = readString(d)
		case "description":
			in.Description, err = readString(d)
		case "price":
			in.Price, err = readDecimal(d)
		case "image":
			in.Image, err = readString(d)
		case "category":
			in.Category, err = readString(d)
		case "isVeg":
			in.IsVeg, err = readBool(d)
		default:
			err = d.Skip()
		}
		return err
	})
	return in, err
}
