// Package feed carga los inputs del autotrader desde archivos JSON que
// deja el pipeline upstream (EV y schedule corren como procesos aparte).
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/dylansloan2/barttorvik-machine/internal/domain"
)

// FileBets implementa ports.OpportunitySource leyendo un JSON de bets.
type FileBets struct {
	Path string
}

// LoadBets lee las apuestas rankeadas. Archivo ausente no es error: el
// upstream todavía no corrió y el run simplemente no tiene candidatos.
// JSON corrupto sí es error.
func (f FileBets) LoadBets(_ context.Context) ([]domain.Bet, error) {
	raw, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("feed.LoadBets: %w", err)
	}

	var bets []domain.Bet
	if err := json.Unmarshal(raw, &bets); err != nil {
		return nil, fmt.Errorf("feed.LoadBets: parse %s: %w", f.Path, err)
	}
	return bets, nil
}

// FileGames implementa ports.ScheduleSource leyendo un JSON de partidos.
type FileGames struct {
	Path string
}

// LoadGames lee el schedule del día. Misma política que LoadBets.
func (f FileGames) LoadGames(_ context.Context) ([]domain.Game, error) {
	raw, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("feed.LoadGames: %w", err)
	}

	var games []domain.Game
	if err := json.Unmarshal(raw, &games); err != nil {
		return nil, fmt.Errorf("feed.LoadGames: parse %s: %w", f.Path, err)
	}
	return games, nil
}
