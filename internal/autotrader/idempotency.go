package autotrader

import "fmt"

// ClientOrderID construye la clave de idempotencia de una orden. Es
// determinista: la misma intención el mismo día produce el mismo id, y el
// ledger más el exchange la rechazan como duplicado.
//
// Formato: {mm|tk}-{fecha}-{ticker}-{side}-{action}-{centavos}
func ClientOrderID(postOnly bool, dateKey, ticker, side, action string, yesPriceCents int) string {
	mode := "tk"
	if postOnly {
		mode = "mm"
	}
	return fmt.Sprintf("%s-%s-%s-%s-%s-%d", mode, dateKey, ticker, side, action, yesPriceCents)
}
