package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/tastetrack/internal/domain/apperr"
	"github.com/xenking/tastetrack/internal/domain/application"
	"github.com/xenking/tastetrack/internal/domain/catalog"
	"github.com/xenking/tastetrack/internal/domain/order"
	"github.com/xenking/tastetrack/internal/domain/user"
)

const maxBodyBytes = 1 << 20

// decodeObject streams the JSON object in the request body to fn, one field
// at a time. Unknown fields must be skipped by fn.
func decodeObject(w http.ResponseWriter, r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	d := jx.Decode(http.MaxBytesReader(w, r.Body, maxBodyBytes), 4096)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		return fn(d, string(key))
	})
	if err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return err
		}
		return apperr.Wrap(err, apperr.Validation, "malformed request body")
	}
	return nil
}

func readString(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

func readOptString(d *jx.Decoder) (*string, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	s, err := d.Str()
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func readInt64(d *jx.Decoder) (int64, error) {
	switch d.Next() {
	case jx.Null:
		return 0, d.Null()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return 0, err
		}
		return strconv.ParseInt(s, 10, 64)
	default:
		return d.Int64()
	}
}

func readBool(d *jx.Decoder) (bool, error) {
	if d.Next() == jx.Null {
		return false, d.Null()
	}
	return d.Bool()
}

func readOptBool(d *jx.Decoder) (*bool, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	b, err := d.Bool()
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func readDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.Null:
		return decimal.Zero, d.Null()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	default:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(string(n))
	}
}

func readOptDecimal(d *jx.Decoder) (*decimal.Decimal, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	v, err := readDecimal(d)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// writeJSON encodes the response body with fn.
func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	fn(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func encodeMoney(e *jx.Encoder, v decimal.Decimal) {
	e.Num(jx.Num(v.StringFixed(2)))
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}

func encodeOptTime(e *jx.Encoder, t *time.Time) {
	if t == nil {
		e.Null()
		return
	}
	encodeTime(e, *t)
}

func encodeList[T any](e *jx.Encoder, items []T, fn func(e *jx.Encoder, v *T)) {
	e.ArrStart()
	for i := range items {
		fn(e, &items[i])
	}
	e.ArrEnd()
}

func encodeUser(e *jx.Encoder, u *user.User) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(u.ID)
	e.FieldStart("firstName")
	e.Str(u.FirstName)
	e.FieldStart("lastName")
	e.Str(u.LastName)
	e.FieldStart("email")
	e.Str(u.Email)
	e.FieldStart("phone")
	e.Str(u.Phone)
	e.FieldStart("role")
	e.Str(string(u.Role))
	e.FieldStart("enabled")
	e.Bool(u.Enabled)
	e.ObjEnd()
}

func encodeRestaurant(e *jx.Encoder, r *catalog.Restaurant) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(r.ID)
	e.FieldStart("name")
	e.Str(r.Name)
	e.FieldStart("cuisine")
	e.Str(r.Cuisine)
	e.FieldStart("rating")
	e.Float64(r.Rating)
	e.FieldStart("deliveryTime")
	e.Str(r.DeliveryTime)
	e.FieldStart("minOrder")
	encodeMoney(e, r.MinOrder)
	e.FieldStart("image")
	e.Str(r.Image)
	e.FieldStart("address")
	e.Str(r.Address)
	e.FieldStart("isOpen")
	e.Bool(r.IsOpen)
	e.FieldStart("ownerId")
	if r.OwnerID == 0 {
		e.Null()
	} else {
		e.Int64(r.OwnerID)
	}
	e.ObjEnd()
}

func encodeMenuItem(e *jx.Encoder, m *catalog.MenuItem) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(m.ID)
	e.FieldStart("restaurantId")
	e.Int64(m.RestaurantID)
	e.FieldStart("name")
	e.Str(m.Name)
	e.FieldStart("description")
	e.Str(m.Description)
	e.FieldStart("price")
	encodeMoney(e, m.Price)
	e.FieldStart("image")
	e.Str(m.Image)
	e.FieldStart("category")
	e.Str(m.Category)
	e.FieldStart("isVeg")
	e.Bool(m.IsVeg)
	e.FieldStart("rating")
	e.Float64(m.Rating)
	e.ObjEnd()
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(o.ID)
	e.FieldStart("orderNumber")
	e.Str(o.Number)
	e.FieldStart("userId")
	e.Int64(o.UserID)
	e.FieldStart("restaurantId")
	e.Int64(o.RestaurantID)
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("total")
	encodeMoney(e, o.Total)
	e.FieldStart("orderDate")
	encodeTime(e, o.CreatedAt)
	e.FieldStart("updatedAt")
	encodeTime(e, o.UpdatedAt)
	e.FieldStart("estimatedDelivery")
	encodeTime(e, o.EstimatedDelivery)

	e.FieldStart("items")
	encodeList(e, o.Items, func(e *jx.Encoder, it *order.Item) {
		e.ObjStart()
		e.FieldStart("id")
		e.Int64(it.ID)
		e.FieldStart("menuItemId")
		e.Int64(it.MenuItemID)
		e.FieldStart("name")
		e.Str(it.Name)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("price")
		encodeMoney(e, it.Price)
		e.FieldStart("subtotal")
		encodeMoney(e, it.Subtotal())
		e.ObjEnd()
	})

	p := o.Payment
	e.FieldStart("payment")
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(p.ID)
	e.FieldStart("paymentMethod")
	e.Str(string(p.Method))
	e.FieldStart("status")
	e.Str(string(p.Status))
	e.FieldStart("amount")
	encodeMoney(e, p.Amount)
	e.FieldStart("transactionId")
	e.Str(p.TransactionID)
	e.FieldStart("paymentDate")
	encodeTime(e, p.PaidAt)
	e.ObjEnd()

	d := o.Delivery
	e.FieldStart("delivery")
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(d.ID)
	e.FieldStart("customerName")
	e.Str(d.CustomerName)
	e.FieldStart("customerPhone")
	e.Str(d.CustomerPhone)
	e.FieldStart("deliveryAddress")
	e.Str(d.Address)
	e.FieldStart("deliveryCity")
	e.Str(d.City)
	e.FieldStart("deliveryState")
	e.Str(d.State)
	e.FieldStart("deliveryZip")
	e.Str(d.Zip)
	e.FieldStart("deliveryInstructions")
	e.Str(d.Instructions)
	e.FieldStart("status")
	e.Str(string(d.Status))
	e.FieldStart("deliveryDate")
	encodeOptTime(e, d.DeliveredAt)
	e.ObjEnd()

	e.ObjEnd()
}

// encodeApplication never includes the password hash.
func encodeApplication(e *jx.Encoder, a *application.Application) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(a.ID)
	e.FieldStart("name")
	e.Str(a.Name)
	e.FieldStart("email")
	e.Str(a.Email)
	e.FieldStart("phone")
	e.Str(a.Phone)
	e.FieldStart("address")
	e.Str(a.Address)
	e.FieldStart("description")
	e.Str(a.Description)
	e.FieldStart("status")
	e.Str(string(a.Status))
	e.FieldStart("submittedAt")
	encodeTime(e, a.SubmittedAt)
	e.FieldStart("processedAt")
	encodeOptTime(e, a.ProcessedAt)
	e.FieldStart("processedBy")
	e.Str(a.ProcessedBy)
	e.FieldStart("rejectionReason")
	e.Str(a.RejectionReason)
	e.ObjEnd()
}
