package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/jx"
	"github.com/gorilla/mux"

	"github.com/xenking/tastetrack/internal/domain/apperr"
	"github.com/xenking/tastetrack/internal/domain/auth"
	"github.com/xenking/tastetrack/internal/domain/order"
)

// IdempotencyHeader carries the client's key for retry-safe order placement.
const IdempotencyHeader = "Idempotency-Key"

// PlaceOrder decodes the order request and places it for the caller.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request, caller auth.Identity) {
	req, err := decodePlaceOrder(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req.IdempotencyKey = strings.TrimSpace(r.Header.Get(IdempotencyHeader))

	o, err := h.orders.PlaceOrder(r.Context(), caller, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeOrder(e, o) })
}

func decodePlaceOrder(w http.ResponseWriter, r *http.Request) (order.PlaceOrderRequest, error) {
	var req order.PlaceOrderRequest
	err := decodeObject(w, r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "restaurantId":
			req.RestaurantID, err = readInt64(d)
		case "items":
			err = d.Arr(func(d *jx.Decoder) error {
				item, err := decodeLineItem(d)
				if err != nil {
					return err
				}
				req.Items = append(req.Items, item)
				return nil
			})
		case "delivery":
			err = d.Obj(func(d *jx.Decoder, key string) (err error) {
				dd := &req.Delivery
				switch key {
				case "customerName":
					dd.CustomerName, err = readString(d)
				case "customerPhone":
					dd.CustomerPhone, err = readString(d)
				case "deliveryAddress":
					dd.Address, err = readString(d)
				case "deliveryCity":
					dd.City, err = readString(d)
				case "deliveryState":
					dd.State, err = readString(d)
				case "deliveryZip":
					dd.Zip, err = readString(d)
				case "deliveryInstructions":
					dd.Instructions, err = readString(d)
				default:
					err = d.Skip()
				}
				return err
			})
		case "payment":
			// Card details are accepted for compatibility and ignored.
			err = d.Obj(func(d *jx.Decoder, key string) error {
				if key != "paymentMethod" {
					return d.Skip()
				}
				m, err := readString(d)
				req.PaymentMethod = order.PaymentMethod(strings.ToUpper(m))
				return err
			})
		default:
			err = d.Skip()
		}
		return err
	})
	return req, err
}

func decodeLineItem(d *jx.Decoder) (order.LineItem, error) {
	var item order.LineItem
	err := d.Obj(func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "menuItemId":
			item.MenuItemID, err = readInt64(d)
		case "quantity":
			var q int64
			q, err = readInt64(d)
			item.Quantity = int(q)
		default:
			err = d.Skip()
		}
		return err
	})
	return item, err
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request, caller auth.Identity) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.orders.Get(r.Context(), caller, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

func (h *Handler) GetOrderByNumber(w http.ResponseWriter, r *http.Request, caller auth.Identity) {
	o, err := h.orders.GetByNumber(r.Context(), caller, mux.Vars(r)["number"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

func (h *Handler) ListMyOrders(w http.ResponseWriter, r *http.Request, caller auth.Identity) {
	orders, err := h.orders.ListMine(r.Context(), caller)
	writeOrders(w, r, orders, err)
}

func (h *Handler) ListOrdersByStatus(w http.ResponseWriter, r *http.Request, caller auth.Identity) {
	status, err := parseStatus(mux.Vars(r)["status"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	orders, err := h.orders.ListByStatus(r.Context(), caller, status)
	writeOrders(w, r, orders, err)
}

func (h *Handler) ListVendorOrders(w http.ResponseWriter, r *http.Request, caller auth.Identity) {
	orders, err := h.orders.ListForVendor(r.Context(), caller)
	writeOrders(w, r, orders, err)
}

func writeOrders(w http.ResponseWriter, r *http.Request, orders []order.Order, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeList(e, orders, encodeOrder) })
}

// UpdateOrderStatus moves an order to the status named in the path.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request, caller auth.Identity) {
	status, err := parseStatus(mux.Vars(r)["status"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.updateStatus(w, r, caller, status)
}

// UpdateVendorOrderStatus moves an order to the status given as {"status": ...}.
func (h *Handler) UpdateVendorOrderStatus(w http.ResponseWriter, r *http.Request, caller auth.Identity) {
	var raw string
	err := decodeObject(w, r, func(d *jx.Decoder, key string) (err error) {
		if key != "status" {
			return d.Skip()
		}
		raw, err = readString(d)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	status, err := parseStatus(raw)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.updateStatus(w, r, caller, status)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request, caller auth.Identity, status order.Status) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.orders.UpdateStatus(r.Context(), caller, id, status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request, caller auth.Identity) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.orders.Cancel(r.Context(), caller, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

func parseStatus(raw string) (order.Status, error) {
	s := order.Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", apperr.New(apperr.Validation, "unknown order status %q", raw)
	}
	return s, nil
}
