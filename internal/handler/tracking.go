package handler

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/gorilla/mux"
	"github.com/skip2/go-qrcode"

	"github.com/xenking/tastetrack/internal/domain/auth"
)

const qrSize = 256

// OrderQRCode renders a PNG QR code linking to the order's tracking page.
// Access follows the same rules as reading the order.
func (h *Handler) OrderQRCode(w http.ResponseWriter, r *http.Request, caller auth.Identity) {
	o, err := h.orders.GetByNumber(r.Context(), caller, mux.Vars(r)["number"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	png, err := qrcode.Encode(h.trackingURL+"/"+url.PathEscape(o.Number), qrcode.Medium, qrSize)
	if err != nil {
		writeError(w, r, errors.Wrap(err, "encode qr code"))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
