package gameplay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/puzzle-arena/internal/common"
	"serotonyl.ru/puzzle-arena/internal/features/economy"
	"serotonyl.ru/puzzle-arena/internal/features/levels"
	"serotonyl.ru/puzzle-arena/internal/features/players"
	"serotonyl.ru/puzzle-arena/internal/features/puzzle"
	"serotonyl.ru/puzzle-arena/internal/features/validator"
	"serotonyl.ru/puzzle-arena/internal/notify"
)

const (
	levelPaid  = 1
	levelFree  = 2
	levelGems  = 3
	levelTube  = 4
	testPlayer = 1
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type levelSource struct {
	levels map[int64]*levels.Level
	err    error
}

func (s *levelSource) Get(_ context.Context, id int64) (*levels.Level, error) {
	if s.err != nil {
		return nil, s.err
	}
	l, ok := s.levels[id]
	if !ok {
		return nil, fmt.Errorf("уровень %d: %w", id, common.ErrLevelNotFound)
	}
	cp := *l
	return &cp, nil
}

type fixedEstimator float64

func (f fixedEstimator) Estimate(context.Context, int64, int64) (float64, error) {
	return float64(f), nil
}

type bannedSet map[int64]bool

func (b bannedSet) Playable(_ context.Context, id int64) (*players.Player, error) {
	if b[id] {
		return nil, common.ErrPlayerBanned
	}
	return &players.Player{ID: id}, nil
}

type alwaysCheat struct{}

func (alwaysCheat) Name() string { return "stub" }

func (alwaysCheat) Inspect(validator.Evidence) (bool, string) {
	return true, "слишком быстро"
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.BanEvent
}

func (r *recordingNotifier) NotifyBan(_ context.Context, ev notify.BanEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

type fixture struct {
	store    *memStore
	clock    *testClock
	levels   *levelSource
	banned   bannedSet
	notifier *recordingNotifier
	svc      *Service
	conn     ConnInfo
}

func testLevels() map[int64]*levels.Level {
	return map[int64]*levels.Level{
		levelPaid: {
			ID: levelPaid, Number: 1, PuzzleType: puzzle.TypeColorMatch, Type: "main",
			EntryCost:   decimal.NewFromInt(100),
			RewardCoins: decimal.NewFromInt(50),
			RewardGems:  economy.Gems{Blue: 2},
			TimeLimit:   120,
			Active:      true,
		},
		levelFree: {
			ID: levelFree, Number: 2, PuzzleType: puzzle.TypeColorMatch,
			RewardCoins: decimal.NewFromInt(10),
			TimeLimit:   60,
			Active:      true,
		},
		levelGems: {
			ID: levelGems, Number: 3, PuzzleType: puzzle.TypeColorMatch,
			EntryCost: decimal.NewFromInt(10),
			EntryGems: economy.Gems{Blue: 1},
			TimeLimit: 60,
			Active:    true,
		},
		levelTube: {
			ID: levelTube, Number: 2, PuzzleType: puzzle.TypeTubeFilling,
			RewardCoins: decimal.NewFromInt(20),
			TimeLimit:   90,
			Active:      true,
		},
	}
}

func newFixture(t *testing.T, checks ...validator.Check) *fixture {
	t.Helper()
	f := &fixture{
		store:    newMemStore(),
		clock:    &testClock{t: time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)},
		levels:   &levelSource{levels: testLevels()},
		banned:   bannedSet{},
		notifier: &recordingNotifier{},
		conn: ConnInfo{
			ID:                "conn-1",
			PlayerID:          testPlayer,
			Username:          "tester",
			IPAddress:         "10.0.0.1",
			DeviceFingerprint: "fp-1",
		},
	}
	f.svc = f.newService(checks...)
	return f
}

// newService создаёт сервис с пустым реестром поверх того же хранилища (как после рестарта).
func (f *fixture) newService(checks ...validator.Check) *Service {
	return NewService(Deps{
		Store:        f.store,
		Levels:       f.levels,
		Players:      f.banned,
		Estimator:    fixedEstimator(1.0),
		Generator:    puzzle.NewGeneratorWithSource(puzzle.DefaultConfig(), rand.NewSource(1)),
		Detector:     validator.NewDetector(checks...),
		Ledger:       economy.NewLedger().WithClock(f.clock.Now),
		Notifier:     f.notifier,
		AbandonGrace: 10 * time.Minute,
	}).WithClock(f.clock.Now)
}

func (f *fixture) fund(tokens int64, gems economy.Gems) {
	f.store.setWallet(economy.Wallet{PlayerID: testPlayer, Tokens: decimal.NewFromInt(tokens), Gems: gems})
}

func TestJoinActExitSettlesBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(200, economy.Gems{})

	joined, err := f.svc.JoinGame(ctx, f.conn, JoinRequest{PlayerID: testPlayer, LevelID: levelPaid})
	require.NoError(t, err)
	assert.Equal(t, 1.0, joined.Difficulty)
	assert.Equal(t, 120, joined.TimeLimit)
	assert.Len(t, joined.Board, joined.Parameters.TotalTubes)
	assert.Equal(t, "100.00", f.store.wallet(testPlayer).Tokens.StringFixed(2))
	assert.Equal(t, StateActive, f.svc.Registry.State(testPlayer))

	txs := f.store.transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, economy.DirectionDebit, txs[0].Direction)
	assert.Equal(t, economy.TxTypeGameEntry, txs[0].Type)
	require.NotNil(t, txs[0].AttemptID)
	assert.Equal(t, joined.AttemptID, *txs[0].AttemptID)

	act, err := f.svc.GameAction(ctx, f.conn, ActionRequest{
		PlayerID:   testPlayer,
		ActionType: "MOVE",
		ActionData: json.RawMessage(`{"from":0,"to":4}`),
	})
	require.NoError(t, err)
	assert.Equal(t, joined.AttemptID, act.AttemptID)
	assert.Equal(t, 1, act.MovesCount)

	f.clock.Advance(45 * time.Second)
	exited, err := f.svc.ExitGame(ctx, f.conn, ExitRequest{PlayerID: testPlayer, Score: 80, CompletionPercentage: 80})
	require.NoError(t, err)

	// (100 + 50) × 0.8 = 120; синие: round(2 × 0.8) = 2
	assert.Equal(t, "120.00", exited.TokensEarned.StringFixed(2))
	assert.Equal(t, economy.Gems{Blue: 2}, exited.GemsEarned)
	assert.Contains(t, exited.Message, "120 токенов")

	w := f.store.wallet(testPlayer)
	assert.Equal(t, "220.00", w.Tokens.StringFixed(2))
	assert.Equal(t, economy.Gems{Blue: 2}, w.Gems)

	txs = f.store.transactions()
	require.Len(t, txs, 2)
	assert.Equal(t, economy.DirectionCredit, txs[1].Direction)
	assert.Equal(t, "220.00", txs[1].BalanceAfter.StringFixed(2))

	a := f.store.attempt(joined.AttemptID)
	assert.Equal(t, StatusCompleted, a.Status)
	assert.Equal(t, 45.0, a.Duration)
	assert.Equal(t, 1, a.MovesCount)
	assert.Equal(t, 80.0, a.Score)
	require.NotNil(t, a.EndTime)
	assert.Equal(t, StateIdle, f.svc.Registry.State(testPlayer))
}

func TestFreeLevelSkipsDebit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(0, economy.Gems{})

	_, err := f.svc.JoinGame(ctx, f.conn, JoinRequest{PlayerID: testPlayer, LevelID: levelFree})
	require.NoError(t, err)
	assert.Empty(t, f.store.transactions())

	res, err := f.svc.ExitGame(ctx, f.conn, ExitRequest{PlayerID: testPlayer, Score: 100, CompletionPercentage: 100})
	require.NoError(t, err)
	assert.Equal(t, "10.00", res.TokensEarned.StringFixed(2))
	require.Len(t, f.store.transactions(), 1)
	assert.Equal(t, "10.00", f.store.wallet(testPlayer).Tokens.StringFixed(2))
}

func TestTubeFillingLevelPlays(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(0, economy.Gems{})

	joined, err := f.svc.JoinGame(ctx, f.conn, JoinRequest{PlayerID: testPlayer, LevelID: levelTube})
	require.NoError(t, err)
	assert.Equal(t, puzzle.TypeTubeFilling, joined.Parameters.PuzzleType)
	assert.Len(t, joined.Board, joined.Parameters.TotalTubes)

	res, err := f.svc.ExitGame(ctx, f.conn, ExitRequest{PlayerID: testPlayer, Score: 100, CompletionPercentage: 100})
	require.NoError(t, err)
	assert.Equal(t, "20.00", res.TokensEarned.StringFixed(2))
}

func TestZeroScoreStillWritesCredit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(200, economy.Gems{})

	_, err := f.svc.JoinGame(ctx, f.conn, JoinRequest{PlayerID: testPlayer, LevelID: levelPaid})
	require.NoError(t, err)
	res, err := f.svc.ExitGame(ctx, f.conn, ExitRequest{PlayerID: testPlayer})
	require.NoError(t, err)

	assert.True(t, res.TokensEarned.IsZero())
	txs := f.store.transactions()
	require.Len(t, txs, 2)
	assert.True(t, txs[1].Tokens.IsZero())
	assert.Equal(t, "100.00", f.store.wallet(testPlayer).Tokens.StringFixed(2))
}

func TestConcurrentJoinsOpenSingleAttempt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(1000, economy.Gems{})

	const n = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		conflict int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn := f.conn
			conn.ID = fmt.Sprintf("conn-%d", i)
			_, err := f.svc.JoinGame(ctx, conn, JoinRequest{PlayerID: testPlayer, LevelID: levelPaid})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, common.ErrAttemptActive):
				conflict++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflict)
	assert.Len(t, f.store.attemptsOf(testPlayer), 1)
	assert.Equal(t, "900.00", f.store.wallet(testPlayer).Tokens.StringFixed(2))
}

func TestRestartKeepsDurableActiveAttempt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(300, economy.Gems{})

	joined, err := f.svc.JoinGame(ctx, f.conn, JoinRequest{PlayerID: testPlayer, LevelID: levelPaid})
	require.NoError(t, err)

	restarted := f.newService()
	assert.Equal(t, StateIdle, restarted.Registry.State(testPlayer))

	_, err = restarted.JoinGame(ctx, f.conn, JoinRequest{PlayerID: testPlayer, LevelID: levelPaid})
	assert.ErrorIs(t, err, common.ErrAttemptActive)
	assert.Equal(t, "200.00", f.store.wallet(testPlayer).Tokens.StringFixed(2))

	act, err := restarted.GameAction(ctx, f.conn, ActionRequest{PlayerID: testPlayer, ActionType: "CLICK"})
	require.NoError(t, err)
	assert.Equal(t, joined.AttemptID, act.AttemptID)
	b, ok := restarted.Registry.Get(testPlayer)
	require.True(t, ok)
	assert.Equal(t, joined.AttemptID, b.AttemptID)

	_, err = restarted.ExitGame(ctx, f.conn, ExitRequest{PlayerID: testPlayer, Score: 50, CompletionPercentage: 50})
	require.NoError(t, err)
}

func TestJoinInsufficientFundsChangesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(5, economy.Gems{})

	_, err := f.svc.JoinGame(ctx, f.conn, JoinRequest{PlayerID: testPlayer, LevelID: levelGems})
	require.Error(t, err)
	assert.Equal(t, common.KindInsufficientFunds, common.ErrorKind(err))

	var funds *common.InsufficientFundsError
	require.True(t, errors.As(err, &funds))
	require.Len(t, funds.Shortfalls, 2)
	assert.Equal(t, "tokens", funds.Shortfalls[0].Currency)
	assert.Equal(t, "blue", funds.Shortfalls[1].Currency)

	assert.Empty(t, f.store.attemptsOf(testPlayer))
	assert.Empty(t, f.store.transactions())
	assert.Equal(t, StateIdle, f.svc.Registry.State(testPlayer))
}

func TestQuestWaivesGemCost(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(100, economy.Gems{})

	_, err := f.svc.JoinGame(ctx, f.conn, JoinRequest{PlayerID: testPlayer, LevelID: levelGems, GameType: "main"})
	assert.ErrorIs(t, err, common.ErrInsufficientFunds)

	joined, err := f.svc.JoinGame(ctx, f.conn, JoinRequest{PlayerID: testPlayer, LevelID: levelGems, GameType: "quest"})
	require.NoError(t, err)
	assert.Equal(t, "90.00", f.store.wallet(testPlayer).Tokens.StringFixed(2))

	a := f.store.attempt(joined.AttemptID)
	assert.Equal(t, GameTypeQuest, a.GameType)
	assert.True(t, a.GemsSpent.IsZero())
}

func TestJoinRejectsBadRequests(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(500, economy.Gems{})

	_, err := f.svc.JoinGame(ctx, f.conn, JoinRequest{PlayerID: 2, LevelID: levelPaid})
	assert.ErrorIs(t, err, common.ErrPlayerMismatch)

	_, err = f.svc.JoinGame(ctx, f.conn, JoinRequest{PlayerID: testPlayer, LevelID: levelPaid, GameType: "arcade"})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = f.svc.JoinGame(ctx, f.conn, JoinRequest{PlayerID: testPlayer})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = f.svc.JoinGame(ctx, f.conn, JoinRequest{PlayerID: testPlayer, LevelID: 99})
	assert.ErrorIs(t, err, common.ErrLevelNotFound)

	f.banned[testPlayer] = true
	_, err = f.svc.JoinGame(ctx, f.conn, JoinRequest{PlayerID: testPlayer, LevelID: levelPaid})
	assert.ErrorIs(t, err, common.ErrPlayerBanned)

	assert.Empty(t, f.store.attemptsOf(testPlayer))
	assert.Empty(t, f.store.transactions())
}

func TestInvalidActionDoesNotMutate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(200, economy.Gems{})

	_, err := f.svc.GameAction(ctx, f.conn, ActionRequest{PlayerID: testPlayer, ActionType: "MOVE"})
	assert.ErrorIs(t, err, common.ErrNoActiveAttempt)

	joined, err := f.svc.JoinGame(ctx, f.conn, JoinRequest{PlayerID: testPlayer, LevelID: levelPaid})
	require.NoError(t, err)

	_, err = f.svc.GameAction(ctx, f.conn, ActionRequest{PlayerID: testPlayer, ActionType: "JUMP"})
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = f.svc.GameAction(ctx, f.conn, ActionRequest{PlayerID: testPlayer, ActionType: "MOVE", ActionData: json.RawMessage(`{oops`)})
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = f.svc.GameAction(ctx, f.conn, ActionRequest{PlayerID: 7, ActionType: "MOVE"})
	assert.ErrorIs(t, err, common.ErrPlayerMismatch)

	assert.Empty(t, f.store.actionsOf(joined.AttemptID))
	assert.Equal(t, 0, f.store.attempt(joined.AttemptID).MovesCount)
}

func TestMovesAreNotCapped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(200, economy.Gems{})

	_, err := f.svc.JoinGame(ctx, f.conn, JoinRequest{PlayerID: testPlayer, LevelID: levelPaid})
	require.NoError(t, err)

	var last *ActionResult
	for i := 0; i < DefaultMaxMoves+5; i++ {
		last, err = f.svc.GameAction(ctx, f.conn, ActionRequest{PlayerID: testPlayer, ActionType: "DRAG"})
		require.NoError(t, err)
	}
	assert.Equal(t, DefaultMaxMoves+5, last.MovesCount)
}

func TestExitValidatesInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.ExitGame(ctx, f.conn, ExitRequest{PlayerID: testPlayer})
	assert.ErrorIs(t, err, common.ErrNoActiveAttempt)

	for _, req := range []ExitRequest{
		{PlayerID: testPlayer, Score: 101},
		{PlayerID: testPlayer, Score: -1},
		{PlayerID: testPlayer, CompletionPercentage: 100.5},
		{PlayerID: testPlayer, Score: math.NaN()},
	} {
		_, err := f.svc.ExitGame(ctx, f.conn, req)
		assert.ErrorIs(t, err, common.ErrValidation, "%+v", req)
	}
}

func TestCheatBansWithoutCredit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, alwaysCheat{})
	f.fund(200, economy.Gems{})

	joined, err := f.svc.JoinGame(ctx, f.conn, JoinRequest{PlayerID: testPlayer, LevelID: levelPaid})
	require.NoError(t, err)

	_, err = f.svc.ExitGame(ctx, f.conn, ExitRequest{PlayerID: testPlayer, Score: 100, CompletionPercentage: 100})
	require.ErrorIs(t, err, common.ErrCheatDetected)
	assert.Equal(t, common.KindCheatDetected, common.ErrorKind(err))

	assert.Equal(t, "100.00", f.store.wallet(testPlayer).Tokens.StringFixed(2))
	assert.Len(t, f.store.transactions(), 1)

	a := f.store.attempt(joined.AttemptID)
	assert.Equal(t, StatusCompleted, a.Status)
	assert.True(t, a.TokensEarned.IsZero())
	assert.True(t, a.GemsEarned.IsZero())
	assert.Contains(t, a.CheatReason, "stub")

	bans := f.store.banList()
	require.Len(t, bans, 1)
	assert.Equal(t, int64(testPlayer), bans[0].PlayerID)
	assert.Equal(t, joined.AttemptID, *bans[0].AttemptID)
	assert.Equal(t, "10.0.0.1", bans[0].IPAddress)
	assert.Equal(t, "fp-1", bans[0].DeviceFingerprint)

	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, "stub", f.notifier.events[0].Check)
	assert.Equal(t, StateIdle, f.svc.Registry.State(testPlayer))
}

func TestCompletionComputedFromFinalState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(200, economy.Gems{})

	joined, err := f.svc.JoinGame(ctx, f.conn, JoinRequest{PlayerID: testPlayer, LevelID: levelPaid})
	require.NoError(t, err)
	target := f.store.attempt(joined.AttemptID).Target

	res, err := f.svc.ExitGame(ctx, f.conn, ExitRequest{
		PlayerID:             testPlayer,
		Score:                90,
		CompletionPercentage: 10,
		ReplayData:           &validator.Replay{FinalState: target},
	})
	require.NoError(t, err)
	assert.Equal(t, 100.0, res.CompletionPercentage)
	require.NotNil(t, f.store.attempt(joined.AttemptID).Replay)
}

func TestReconcileAbandonsStaleAttempts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(200, economy.Gems{})

	joined, err := f.svc.JoinGame(ctx, f.conn, JoinRequest{PlayerID: testPlayer, LevelID: levelPaid})
	require.NoError(t, err)

	f.clock.Advance(5 * time.Minute)
	n, err := f.svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	f.clock.Advance(10 * time.Minute)
	n, err = f.svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, StatusAbandoned, f.store.attempt(joined.AttemptID).Status)
	assert.Equal(t, StateIdle, f.svc.Registry.State(testPlayer))
	assert.Equal(t, "100.00", f.store.wallet(testPlayer).Tokens.StringFixed(2), "no refund")

	_, err = f.svc.JoinGame(ctx, f.conn, JoinRequest{PlayerID: testPlayer, LevelID: levelPaid})
	require.NoError(t, err)
	assert.True(t, f.store.wallet(testPlayer).Tokens.IsZero())
}

func TestDisconnectKeepsAttemptForReconnect(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(200, economy.Gems{})

	joined, err := f.svc.JoinGame(ctx, f.conn, JoinRequest{PlayerID: testPlayer, LevelID: levelPaid})
	require.NoError(t, err)

	f.svc.Disconnect(ctx, f.conn)
	b, ok := f.svc.Registry.Get(testPlayer)
	require.True(t, ok)
	assert.Equal(t, joined.AttemptID, b.AttemptID)
	assert.Empty(t, b.ConnID)
	assert.Equal(t, StatusActive, f.store.attempt(joined.AttemptID).Status)

	again := f.conn
	again.ID = "conn-2"
	_, err = f.svc.GameAction(ctx, again, ActionRequest{PlayerID: testPlayer, ActionType: "CLICK"})
	require.NoError(t, err)
	b, _ = f.svc.Registry.Get(testPlayer)
	assert.Equal(t, "conn-2", b.ConnID)
}

func TestAttemptTransitions(t *testing.T) {
	a := &Attempt{ID: 1, Status: StatusActive}
	require.NoError(t, a.Transition(StatusCompleted))
	assert.ErrorIs(t, a.Transition(StatusAbandoned), common.ErrInvalidTransition)
	assert.ErrorIs(t, a.Transition(StatusActive), common.ErrInvalidTransition)

	b := &Attempt{Status: StatusActive}
	require.NoError(t, b.Transition(StatusAbandoned))
	assert.False(t, StatusActive.CanTransition(StatusActive))
}

func TestRewardsFormula(t *testing.T) {
	tokens, gems := Rewards(decimal.NewFromInt(100), decimal.NewFromInt(50), economy.Gems{Blue: 2, Red: 3}, 80)
	assert.Equal(t, "120.00", tokens.StringFixed(2))
	assert.Equal(t, economy.Gems{Blue: 2, Red: 2}, gems)

	tokens, _ = Rewards(decimal.RequireFromString("33.33"), decimal.Zero, economy.Gems{}, 33.3)
	assert.Equal(t, "11.10", tokens.StringFixed(2))

	tokens, gems = Rewards(decimal.NewFromInt(100), decimal.NewFromInt(50), economy.Gems{Blue: 2}, 0)
	assert.True(t, tokens.IsZero())
	assert.True(t, gems.IsZero())

	// половина округляется к чётному
	tokens, gems = Rewards(decimal.RequireFromString("0.25"), decimal.Zero, economy.Gems{Blue: 5, Green: 7}, 50)
	assert.Equal(t, "0.12", tokens.StringFixed(2))
	assert.Equal(t, economy.Gems{Blue: 2, Green: 4}, gems)
}
