package domain

// Bet es una oportunidad rankeada producida por el pipeline de EV upstream.
// El autotrader la trata como input inmutable: nunca recalcula el edge.
type Bet struct {
	MarketType     string  `json:"market_type"` // "Make Tournament", "Conference Champion", "Game Winner"
	LeagueConf     string  `json:"league_conf"`
	Description    string  `json:"description"`
	ModelProb      float64 `json:"model_prob_or_exp_payout"` // probabilidad del modelo o expected payout
	YesPrice       float64 `json:"yes_price"`                // precio de mercado al calcular el EV
	EV             float64 `json:"ev"`
	Edge           float64 `json:"edge"`
	ContractTicker string  `json:"contract_ticker"`
	TeamName       string  `json:"team_name"`
}

// Tradeable devuelve true si la apuesta tiene ticker y supera el edge mínimo.
func (b Bet) Tradeable(minEdge float64) bool {
	return b.ContractTicker != "" && b.EV >= minEdge
}

// Game is one scheduled matchup from the upstream schedule feed.
// TimeText is free-form local time ("7:00 PM ET"); parsing it is the
// cancellation scheduler's job and may fail per game.
type Game struct {
	AwayTeam string `json:"away_team"`
	HomeTeam string `json:"home_team"`
	TimeText string `json:"time"`
}
