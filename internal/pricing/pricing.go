// Package pricing: kebijakan ongkir & pajak sebagai fungsi pluggable.
// Checkout tidak peduli isinya, cuma manggil.
package pricing

type ShippingFunc func(subtotalCents int) int

type TaxFunc func(subtotalCents int) int

// StandardShipping: gratis di atas threshold, selain itu flat.
func StandardShipping(freeOverCents, flatCents int) ShippingFunc {
	return func(subtotalCents int) int {
		if subtotalCents > freeOverCents {
			return 0
		}
		return flatCents
	}
}

// FlatRateTax: rate dalam basis points (1000 = 10%), dibulatkan ke bawah.
func FlatRateTax(rateBps int) TaxFunc {
	return func(subtotalCents int) int {
		return subtotalCents * rateBps / 10000
	}
}
