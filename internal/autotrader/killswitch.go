package autotrader

import (
	"os"
	"strings"
)

// killSwitchEnv es la variable de entorno que apaga el trading sin tocar
// archivos ni reiniciar nada.
const killSwitchEnv = "AUTOTRADER_KILL_SWITCH"

// KillSwitch chequea las dos vías de apagado: variable de entorno y archivo
// centinela. Cualquiera de las dos detiene el trading por completo.
type KillSwitch struct {
	FilePath string
}

// Enabled devuelve true si el kill switch está activo. Se evalúa en cada
// run: el archivo puede aparecer mientras el proceso corre.
func (k KillSwitch) Enabled() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(killSwitchEnv))) {
	case "1", "true", "on", "yes":
		return true
	}
	if k.FilePath == "" {
		return false
	}
	_, err := os.Stat(k.FilePath)
	return err == nil
}
