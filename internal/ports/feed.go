package ports

import (
	"context"

	"github.com/dylansloan2/barttorvik-machine/internal/domain"
)

// OpportunitySource provides the ranked bets computed upstream (scraping,
// matching y EV viven fuera de este proceso).
type OpportunitySource interface {
	LoadBets(ctx context.Context) ([]domain.Bet, error)
}

// ScheduleSource provides the day's scheduled games with free-text tipoff times.
type ScheduleSource interface {
	LoadGames(ctx context.Context) ([]domain.Game, error)
}
