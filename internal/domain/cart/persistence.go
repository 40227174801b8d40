package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// slotSchemaVersion tags the durable slot key. Bump it whenever the encoded
// Line shape changes so old snapshots are not misread.
const slotSchemaVersion = "v2"

// SlotKey derives the durable storage key for an identity's cart.
func SlotKey(ownerID string) string {
	return "cart:" + slotSchemaVersion + ":" + ownerID
}

// Slot is the durable per-identity key-value store backing the cart.
// Get returns (nil, nil) when the key has never been written.
type Slot interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte) error
	Remove(ctx context.Context, key string) error
}

// encodeLines serializes cart lines to the compact snapshot form stored in
// the durable slot.
func encodeLines(lines []Line) []byte {
	var e jx.Encoder
	e.ArrStart()
	for _, l := range lines {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(l.ProductID)
		e.FieldStart("name")
		e.Str(l.Name)
		e.FieldStart("price")
		e.Str(l.UnitPrice.String())
		e.FieldStart("image")
		e.Str(l.ImageRef)
		e.FieldStart("qty")
		e.Int(l.Quantity)
		if l.StockSnapshot != nil {
			e.FieldStart("stock")
			e.Int(*l.StockSnapshot)
		}
		e.FieldStart("selected")
		e.Bool(l.Selected)
		if l.WarrantyMonths != nil {
			e.FieldStart("warranty_months")
			e.Int(*l.WarrantyMonths)
		}
		e.ObjEnd()
	}
	e.ArrEnd()
	return e.Bytes()
}

// decodeLines parses a stored snapshot. Lines written before the selected
// flag existed default to selected.
func decodeLines(data []byte) ([]Line, error) {
	var lines []Line
	d := jx.DecodeBytes(data)
	err := d.Arr(func(d *jx.Decoder) error {
		l := Line{Selected: true}
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "id":
				v, err := d.Str()
				l.ProductID = v
				return err
			case "name":
				v, err := d.Str()
				l.Name = v
				return err
			case "price":
				s, err := d.Str()
				if err != nil {
					return err
				}
				p, err := decimal.NewFromString(s)
				if err != nil {
					return errors.Wrap(err, "parse price")
				}
				l.UnitPrice = p
				return nil
			case "image":
				v, err := d.Str()
				l.ImageRef = v
				return err
			case "qty":
				v, err := d.Int()
				l.Quantity = v
				return err
			case "stock":
				v, err := d.Int()
				if err != nil {
					return err
				}
				l.StockSnapshot = &v
				return nil
			case "selected":
				v, err := d.Bool()
				l.Selected = v
				return err
			case "warranty_months":
				v, err := d.Int()
				if err != nil {
					return err
				}
				l.WarrantyMonths = &v
				return nil
			default:
				return d.Skip()
			}
		}); err != nil {
			return err
		}
		lines = append(lines, l)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode cart snapshot")
	}
	return lines, nil
}
