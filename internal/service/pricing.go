package service

import (
	"strings"

	"storefront-checkout/internal/model"
	"storefront-checkout/internal/payment"

	"github.com/shopspring/decimal"
)

// Monedas sin decimales en Stripe
var zeroDecimalCurrencies = map[string]bool{
	"jpy": true, "krw": true, "vnd": true, "clp": true, "pyg": true, "ugx": true,
}

func minorUnits(amount decimal.Decimal, currency string) int64 {
	exp := int32(2)
	if zeroDecimalCurrencies[strings.ToLower(currency)] {
		exp = 0
	}
	return amount.Shift(exp).Round(0).IntPart()
}

func fromMinorUnits(amount int64, currency string) decimal.Decimal {
	if zeroDecimalCurrencies[strings.ToLower(currency)] {
		return decimal.NewFromInt(amount)
	}
	return decimal.New(amount, -2)
}

type Pricing struct {
	taxRate decimal.Decimal
}

// NewPricing parsea la tasa de impuesto ("0.21"). Una tasa inválida o negativa es 0.
func NewPricing(rate string) Pricing {
	r, err := decimal.NewFromString(strings.TrimSpace(rate))
	if err != nil || r.IsNegative() {
		r = decimal.Zero
	}
	return Pricing{taxRate: r}
}

type Breakdown struct {
	Items    []model.LineItem
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Compute calcula subtotal, impuesto y total por ítem y en agregado. Total = Subtotal + Tax.
func (p Pricing) Compute(lines []payment.CartLine) Breakdown {
	out := Breakdown{Subtotal: decimal.Zero, Tax: decimal.Zero, Total: decimal.Zero}
	for _, l := range lines {
		price, err := decimal.NewFromString(l.Price)
		if err != nil {
			price = decimal.Zero
		}
		qty := l.Quantity
		if qty < 1 {
			qty = 1
		}
		sub := price.Mul(decimal.NewFromInt(qty))
		tax := sub.Mul(p.taxRate).Round(2)
		total := sub.Add(tax)

		out.Items = append(out.Items, model.LineItem{
			ItemID:    l.ID,
			ItemType:  l.Type,
			Title:     l.Title,
			UnitPrice: price.InexactFloat64(),
			Quantity:  qty,
			Subtotal:  sub.InexactFloat64(),
			Tax:       tax.InexactFloat64(),
			Total:     total.InexactFloat64(),
		})
		out.Subtotal = out.Subtotal.Add(sub)
		out.Tax = out.Tax.Add(tax)
	}
	out.Total = out.Subtotal.Add(out.Tax)
	return out
}

// Apply copia los totales a la orden.
func (b Breakdown) Apply(o *model.Order) {
	o.Items = b.Items
	o.Subtotal = b.Subtotal.InexactFloat64()
	o.Tax = b.Tax.InexactFloat64()
	o.Total = b.Total.InexactFloat64()
}

// ExpectedCharge es el total de la orden en unidades mínimas.
func ExpectedCharge(o *model.Order) int64 {
	return minorUnits(decimal.NewFromFloat(o.Total), o.Currency)
}

func decimalFromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}
