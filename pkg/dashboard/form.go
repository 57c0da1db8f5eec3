package dashboard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joripage/lobsim/pkg/orderbook"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type field int

const (
	fieldSide field = iota
	fieldType
	fieldQty
	fieldPrice
	fieldCount
)

// orderForm collects a manual order one field at a time.
type orderForm struct {
	side  orderbook.Side
	typ   orderbook.OrderType
	qty   string
	price string
	focus field
}

func newOrderForm() orderForm {
	return orderForm{side: orderbook.BUY, typ: orderbook.LIMIT}
}

// next moves focus forward, skipping price for market orders.
func (f orderForm) next() orderForm {
	f.focus = (f.focus + 1) % fieldCount
	if f.focus == fieldPrice && f.typ == orderbook.MARKET {
		f.focus = fieldSide
	}
	return f
}

func (f orderForm) prev() orderForm {
	f.focus = (f.focus + fieldCount - 1) % fieldCount
	if f.focus == fieldPrice && f.typ == orderbook.MARKET {
		f.focus = fieldQty
	}
	return f
}

// key applies one keystroke to the focused field.
func (f orderForm) key(k string) orderForm {
	switch f.focus {
	case fieldSide:
		switch k {
		case "b":
			f.side = orderbook.BUY
		case "s":
			f.side = orderbook.SELL
		case "left", "right", " ", "space":
			f.side = f.side.Opposite()
		}
	case fieldType:
		switch k {
		case "l":
			f.typ = orderbook.LIMIT
		case "m":
			f.typ = orderbook.MARKET
		case "left", "right", " ", "space":
			if f.typ == orderbook.LIMIT {
				f.typ = orderbook.MARKET
			} else {
				f.typ = orderbook.LIMIT
			}
		}
	case fieldQty:
		f.qty = editNumber(f.qty, k, true)
	case fieldPrice:
		f.price = editNumber(f.price, k, true)
	}
	return f
}

// editNumber appends digits (and a dot when decimal) or deletes on backspace.
func editNumber(s, k string, decimalPoint bool) string {
	switch {
	case k == "backspace":
		if len(s) > 0 {
			return s[:len(s)-1]
		}
	case len(k) == 1 && k[0] >= '0' && k[0] <= '9':
		return s + k
	case k == "." && decimalPoint && !strings.Contains(s, "."):
		return s + k
	}
	return s
}

// parse turns the form into order arguments. The book still validates them.
func (f orderForm) parse() (decimal.Decimal, decimal.NullDecimal, error) {
	qty, err := decimal.NewFromString(f.qty)
	if err != nil {
		return decimal.Zero, decimal.NullDecimal{}, errors.Errorf("quantity %q is not a number", f.qty)
	}
	if f.typ == orderbook.MARKET {
		return qty, decimal.NullDecimal{}, nil
	}
	price, err := decimal.NewFromString(f.price)
	if err != nil {
		return decimal.Zero, decimal.NullDecimal{}, errors.Errorf("price %q is not a number", f.price)
	}
	return qty, decimal.NewNullDecimal(price), nil
}

func (f orderForm) View() string {
	cell := func(fl field, label, value string) string {
		if f.focus == fl {
			return fmt.Sprintf("%s: [%s_]", label, value)
		}
		return fmt.Sprintf("%s: %s", label, value)
	}
	parts := []string{
		"New order",
		cell(fieldSide, "side", string(f.side)),
		cell(fieldType, "type", string(f.typ)),
		cell(fieldQty, "qty", f.qty),
	}
	if f.typ == orderbook.LIMIT {
		parts = append(parts, cell(fieldPrice, "price", f.price))
	}
	parts = append(parts, "(tab: next field  enter: place  esc: back)")
	return strings.Join(parts, "  ")
}

// cancelForm reads the id of the order to cancel.
type cancelForm struct {
	id string
}

func (c cancelForm) key(k string) cancelForm {
	c.id = editNumber(c.id, k, false)
	return c
}

func (c cancelForm) parse() (uint64, error) {
	id, err := strconv.ParseUint(c.id, 10, 64)
	if err != nil {
		return 0, errors.Errorf("order id %q is not a number", c.id)
	}
	return id, nil
}

func (c cancelForm) View() string {
	return fmt.Sprintf("Cancel order id: [%s_]  (enter: cancel  esc: back)", c.id)
}
