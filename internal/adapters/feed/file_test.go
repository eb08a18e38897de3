package feed_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dylansloan2/barttorvik-machine/internal/adapters/feed"
)

func TestLoadBets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "best_bets.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"market_type":"Make Tournament","league_conf":"ACC","description":"Duke makes the tournament",
		 "model_prob_or_exp_payout":0.91,"yes_price":0.72,"ev":0.19,"edge":0.19,
		 "contract_ticker":"KXMAKEMARMAD-25-DUKE","team_name":"Duke"}
	]`), 0o644))

	bets, err := feed.FileBets{Path: path}.LoadBets(context.Background())
	require.NoError(t, err)
	require.Len(t, bets, 1)
	assert.Equal(t, "KXMAKEMARMAD-25-DUKE", bets[0].ContractTicker)
	assert.InDelta(t, 0.91, bets[0].ModelProb, 1e-9)
	assert.True(t, bets[0].Tradeable(0.15))
}

func TestLoadBetsMissingFile(t *testing.T) {
	bets, err := feed.FileBets{Path: filepath.Join(t.TempDir(), "nope.json")}.LoadBets(context.Background())
	require.NoError(t, err)
	assert.Empty(t, bets)
}

func TestLoadBetsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "best_bets.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	_, err := feed.FileBets{Path: path}.LoadBets(context.Background())
	assert.Error(t, err)
}

func TestLoadGames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"away_team":"Duke","home_team":"North Carolina","time":"7:00 PM ET"}
	]`), 0o644))

	games, err := feed.FileGames{Path: path}.LoadGames(context.Background())
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, "Duke", games[0].AwayTeam)
	assert.Equal(t, "7:00 PM ET", games[0].TimeText)
}
