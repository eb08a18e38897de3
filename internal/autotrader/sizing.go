package autotrader

import "math"

// KellyContracts calcula cuántos contratos comprar con Kelly fraccional.
// Kelly completo para un binario a precio p: f* = (prob - p) / (1 - p).
// Edge negativo dimensiona cero, nunca se apuesta en contra.
func KellyContracts(bankroll, kellyFraction, modelProb, price float64) int {
	if price <= 0 || price >= 1 {
		return 0
	}
	fullKelly := (modelProb - price) / (1 - price)
	frac := math.Max(0, fullKelly) * kellyFraction
	dollars := bankroll * frac
	if dollars <= 0 {
		return 0
	}
	// Epsilon antes del floor: el ruido de float64 puede dejar 100
	// contratos exactos como 99.99999999999999 y el truncado comería uno.
	return int(math.Floor(dollars/price + 1e-9))
}

// MakerPrice devuelve el precio de una orden maker: fair menos el descuento,
// recortado al rango permitido y redondeado al centavo.
func MakerPrice(fairProb, discount, minPrice, maxPrice float64) float64 {
	p := fairProb - discount
	p = math.Max(minPrice, math.Min(maxPrice, p))
	return math.Round(p*100) / 100
}

// PriceCents convierte un precio en dólares al entero de centavos del API.
func PriceCents(price float64) int {
	return int(math.Round(price * 100))
}
