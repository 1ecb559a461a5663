package service

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl-arena/trivia-arena-backend/internal/models"
	"github.com/rl-arena/trivia-arena-backend/pkg/events"
)

func TestGameService_FullMatchPlayerOneWins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.player(t, "alice")
	bob := env.player(t, "bob")
	m := env.startMatch(t, alice, bob)

	categories := []string{"science", "history", "music", "science", "history"}
	var last *models.AnswerResult
	for round, category := range categories {
		view := env.activeRound(t, m.ID, alice)
		assert.Equal(t, round+1, view.RoundNumber)
		assert.Equal(t, m.ChooserForRound(round+1), view.ChooserID)

		// alice 는 모두 정답, bob 은 첫 문제만 정답
		last = env.playRound(t, m, category, repeat(true, 3), []bool{true, false, false})
		if round < len(categories)-1 {
			assert.False(t, last.MatchFinished)
		}
	}
	require.True(t, last.MatchFinished)

	status, err := env.game.GetStatus(ctx, m.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusFinished, status.Status)
	require.NotNil(t, status.WinnerID)
	assert.Equal(t, alice, *status.WinnerID)
	assert.Equal(t, 15, status.Player1Correct)
	assert.Equal(t, 5, status.Player2Correct)
	// 5초 응답 = 100 * 15/20 = 75점
	assert.Equal(t, 15*75, status.Player1Score)
	assert.Equal(t, 5*75, status.Player2Score)

	rounds, err := env.store.ListRounds(ctx, m.ID)
	require.NoError(t, err)
	assert.Len(t, rounds, 5, "no round beyond the configured total")

	_, err = env.game.GetActiveRound(ctx, m.ID, alice)
	assert.ErrorIs(t, err, ErrNoActiveRound)

	aliceStats, err := env.stats.GetStats(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, aliceStats.Wins)
	assert.Greater(t, aliceStats.Rating, models.DefaultRating)

	bobStats, err := env.stats.GetStats(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, 1, bobStats.Losses)

	finished := env.publisher.ofType(events.TypeMatchFinished)
	require.Len(t, finished, 1)
	assert.Equal(t, m.ID, finished[0].MatchID)
	assert.Equal(t, 1, env.notifier.sentTo(alice, "match_finished"))
	assert.Equal(t, 1, env.notifier.sentTo(bob, "match_finished"))
}

func TestGameService_WinnerDecidedByCorrectCountNotPoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.player(t, "alice")
	bob := env.player(t, "bob")
	m := env.startMatch(t, alice, bob)

	for round := 1; round <= 5; round++ {
		view := env.activeRound(t, m.ID, alice)
		_, err := env.game.ChooseCategory(ctx, m.ID, view.RoundID, view.ChooserID, "science")
		require.NoError(t, err)

		for q := 1; q <= 3; q++ {
			answer := env.correctAnswer(t, view.RoundID, q)
			// alice: 전부 정답이지만 느림 (19초)
			_, err := env.game.SubmitAnswer(ctx, m.ID, view.RoundID, alice, q, answer, 19000)
			require.NoError(t, err)

			// bob: 라운드당 2문제만 정답이지만 즉답
			bobAnswer := answer
			if q == 3 {
				bobAnswer = "Wrong"
			}
			_, err = env.game.SubmitAnswer(ctx, m.ID, view.RoundID, bob, q, bobAnswer, 0)
			require.NoError(t, err)
		}
	}

	status, err := env.game.GetStatus(ctx, m.ID, alice)
	require.NoError(t, err)
	assert.Greater(t, status.Player2Score, status.Player1Score)
	require.NotNil(t, status.WinnerID)
	assert.Equal(t, alice, *status.WinnerID)
}

func TestGameService_TieHasNoWinner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.player(t, "alice")
	bob := env.player(t, "bob")
	m := env.startMatch(t, alice, bob)

	var last *models.AnswerResult
	for round := 0; round < 5; round++ {
		last = env.playRound(t, m, "history", []bool{true, true, false}, []bool{false, true, true})
	}
	require.True(t, last.MatchFinished)

	status, err := env.game.GetStatus(ctx, m.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusFinished, status.Status)
	assert.Nil(t, status.WinnerID)

	st, err := env.stats.GetStats(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Draws)
}

func TestGameService_ChooseCategoryValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.player(t, "alice")
	bob := env.player(t, "bob")
	eve := env.player(t, "eve")
	m := env.startMatch(t, alice, bob)
	round := env.activeRound(t, m.ID, alice)

	// 1라운드 선택자는 상대(bob)
	require.Equal(t, bob, round.ChooserID)

	other := env.startMatch(t, eve, alice)
	otherRound := env.activeRound(t, other.ID, eve)

	tests := []struct {
		name     string
		matchID  string
		roundID  string
		playerID string
		category string
		wantErr  error
		kind     ErrorKind
	}{
		{"unknown match", "missing", round.RoundID, bob, "science", ErrMatchNotFound, KindNotFound},
		{"unknown round", m.ID, "missing", bob, "science", ErrRoundNotFound, KindNotFound},
		{"round of another match", m.ID, otherRound.RoundID, bob, "science", ErrRoundNotFound, KindNotFound},
		{"non participant", m.ID, round.RoundID, eve, "science", ErrNotParticipant, KindAuthorization},
		{"not the chooser", m.ID, round.RoundID, alice, "science", ErrNotYourTurn, KindAuthorization},
		{"empty category", m.ID, round.RoundID, bob, "   ", ErrInvalidCategory, KindValidation},
		{"unknown category", m.ID, round.RoundID, bob, "astrology", ErrInvalidCategory, KindValidation},
		{"too few questions", m.ID, round.RoundID, bob, "tiny", ErrNotEnoughQuestions, KindInsufficientData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.game.ChooseCategory(ctx, tt.matchID, tt.roundID, tt.playerID, tt.category)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.kind, KindOf(err))
		})
	}

	// 실패한 선택은 라운드를 바꾸지 않는다
	after := env.activeRound(t, m.ID, alice)
	assert.Nil(t, after.Category)
	assert.Equal(t, models.RoundStateAwaitingCategory, after.State)
}

func TestGameService_ChooseCategoryBindsQuestions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.player(t, "alice")
	bob := env.player(t, "bob")
	m := env.startMatch(t, alice, bob)
	round := env.activeRound(t, m.ID, bob)
	assert.True(t, round.YourTurnToChoose)

	res, err := env.game.ChooseCategory(ctx, m.ID, round.RoundID, bob, "  Science ")
	require.NoError(t, err)
	assert.Equal(t, "science", res.Category)
	require.Len(t, res.Questions, 3)
	for i, q := range res.Questions {
		assert.Equal(t, i+1, q.QuestionNumber)
		assert.Empty(t, q.CorrectAnswer, "answers are not revealed")
		assert.NotEmpty(t, q.Text)
	}

	// 같은 문제가 두 플레이어 모두에게 보인다
	forAlice, err := env.game.GetRoundQuestions(ctx, m.ID, round.RoundID, alice)
	require.NoError(t, err)
	require.Len(t, forAlice, 3)
	for i := range forAlice {
		assert.Equal(t, res.Questions[i].QuestionID, forAlice[i].QuestionID)
	}

	// 두 번째 선택은 거부
	_, err = env.game.ChooseCategory(ctx, m.ID, round.RoundID, bob, "history")
	assert.ErrorIs(t, err, ErrCategoryAlreadyChosen)
	assert.Equal(t, KindInvalidState, KindOf(err))

	// 다음 라운드는 alice 가 선택
	rounds, err := env.store.ListRounds(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, rounds, 2)
	assert.Equal(t, 2, rounds[1].RoundNumber)
	assert.Equal(t, alice, rounds[1].ChooserID)
	assert.Equal(t, 1, env.notifier.sentTo(alice, "category_chosen"))
}

func TestGameService_ConcurrentCategoryChoiceBindsOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.player(t, "alice")
	bob := env.player(t, "bob")
	m := env.startMatch(t, alice, bob)
	round := env.activeRound(t, m.ID, bob)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for _, category := range []string{"science", "history", "music", "science", "history", "music"} {
		wg.Add(1)
		go func(category string) {
			defer wg.Done()
			_, err := env.game.ChooseCategory(ctx, m.ID, round.RoundID, bob, category)
			if err == nil {
				wins.Add(1)
				return
			}
			assert.ErrorIs(t, err, ErrCategoryAlreadyChosen)
		}(category)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	rounds, err := env.store.ListRounds(ctx, m.ID)
	require.NoError(t, err)
	assert.Len(t, rounds, 2)
}

func TestGameService_SubmitAnswerValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.player(t, "alice")
	bob := env.player(t, "bob")
	eve := env.player(t, "eve")
	m := env.startMatch(t, alice, bob)
	round := env.activeRound(t, m.ID, alice)

	_, err := env.game.SubmitAnswer(ctx, m.ID, round.RoundID, alice, 1, "x", 100)
	assert.ErrorIs(t, err, ErrCategoryNotChosen)
	assert.Equal(t, KindInvalidState, KindOf(err))

	_, err = env.game.ChooseCategory(ctx, m.ID, round.RoundID, bob, "science")
	require.NoError(t, err)

	tests := []struct {
		name     string
		playerID string
		number   int
		wantErr  error
	}{
		{"non participant", eve, 1, ErrNotParticipant},
		{"question zero", alice, 0, ErrInvalidQuestionNumber},
		{"question past the end", alice, 4, ErrInvalidQuestionNumber},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.game.SubmitAnswer(ctx, m.ID, round.RoundID, tt.playerID, tt.number, "x", 100)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGameService_AnswerComparisonIgnoresCaseAndSpace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.player(t, "alice")
	bob := env.player(t, "bob")
	m := env.startMatch(t, alice, bob)
	round := env.activeRound(t, m.ID, bob)
	_, err := env.game.ChooseCategory(ctx, m.ID, round.RoundID, bob, "science")
	require.NoError(t, err)

	answer := env.correctAnswer(t, round.RoundID, 1)
	res, err := env.game.SubmitAnswer(ctx, m.ID, round.RoundID, alice, 1, "  "+strings.ToUpper(answer)+" ", 0)
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.Equal(t, 100, res.PointsEarned)

	// 음수 응답 시간은 0으로 처리
	answer = env.correctAnswer(t, round.RoundID, 2)
	res, err = env.game.SubmitAnswer(ctx, m.ID, round.RoundID, alice, 2, answer, -500)
	require.NoError(t, err)
	assert.Equal(t, 100, res.PointsEarned)

	res, err = env.game.SubmitAnswer(ctx, m.ID, round.RoundID, alice, 3, "definitely wrong", 0)
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.Zero(t, res.PointsEarned)
}

func TestGameService_DuplicateAnswerKeepsFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.player(t, "alice")
	bob := env.player(t, "bob")
	m := env.startMatch(t, alice, bob)
	round := env.activeRound(t, m.ID, bob)
	_, err := env.game.ChooseCategory(ctx, m.ID, round.RoundID, bob, "science")
	require.NoError(t, err)

	_, err = env.game.SubmitAnswer(ctx, m.ID, round.RoundID, alice, 1, "Wrong", 1000)
	require.NoError(t, err)

	answer := env.correctAnswer(t, round.RoundID, 1)
	_, err = env.game.SubmitAnswer(ctx, m.ID, round.RoundID, alice, 1, answer, 1000)
	assert.ErrorIs(t, err, ErrDuplicateAnswer)
	assert.Equal(t, KindDuplicateAnswer, KindOf(err))

	status, err := env.game.GetStatus(ctx, m.ID, alice)
	require.NoError(t, err)
	assert.Zero(t, status.Player1Correct)
	assert.Zero(t, status.Player1Score)
}

func TestGameService_ConcurrentDuplicateAnswersRecordOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.player(t, "alice")
	bob := env.player(t, "bob")
	m := env.startMatch(t, alice, bob)
	round := env.activeRound(t, m.ID, bob)
	_, err := env.game.ChooseCategory(ctx, m.ID, round.RoundID, bob, "science")
	require.NoError(t, err)
	answer := env.correctAnswer(t, round.RoundID, 1)

	var accepted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.game.SubmitAnswer(ctx, m.ID, round.RoundID, alice, 1, answer, 0); err == nil {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), accepted.Load())
	status, err := env.game.GetStatus(ctx, m.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Player1Correct)
	assert.Equal(t, 100, status.Player1Score)
}

func TestGameService_ConcurrentFinalAnswersFinishOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.player(t, "alice")
	bob := env.player(t, "bob")
	m := env.startMatch(t, alice, bob)

	for round := 0; round < 4; round++ {
		env.playRound(t, m, "music", repeat(true, 3), repeat(false, 3))
	}

	view := env.activeRound(t, m.ID, alice)
	_, err := env.game.ChooseCategory(ctx, m.ID, view.RoundID, view.ChooserID, "music")
	require.NoError(t, err)
	for q := 1; q <= 2; q++ {
		for _, p := range []string{alice, bob} {
			_, err := env.game.SubmitAnswer(ctx, m.ID, view.RoundID, p, q, "Wrong", 0)
			require.NoError(t, err)
		}
	}

	var finished atomic.Int32
	var wg sync.WaitGroup
	for _, p := range []string{alice, bob} {
		wg.Add(1)
		go func(playerID string) {
			defer wg.Done()
			res, err := env.game.SubmitAnswer(ctx, m.ID, view.RoundID, playerID, 3, "Wrong", 0)
			if assert.NoError(t, err) && res.MatchFinished {
				finished.Add(1)
			}
		}(p)
	}
	wg.Wait()

	assert.GreaterOrEqual(t, finished.Load(), int32(1))
	assert.Len(t, env.publisher.ofType(events.TypeMatchFinished), 1)

	st, err := env.stats.GetStats(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, st.GamesPlayed, "post-finish effects run once")
}

func TestGameService_AnswersRejectedAfterFinish(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.player(t, "alice")
	bob := env.player(t, "bob")
	m := env.startMatch(t, alice, bob)
	round := env.activeRound(t, m.ID, bob)
	_, err := env.game.ChooseCategory(ctx, m.ID, round.RoundID, bob, "science")
	require.NoError(t, err)

	_, err = env.game.Forfeit(ctx, m.ID, alice)
	require.NoError(t, err)

	_, err = env.game.SubmitAnswer(ctx, m.ID, round.RoundID, bob, 1, "x", 0)
	assert.ErrorIs(t, err, ErrMatchNotActive)

	next := env.activeRoundOrNil(t, m.ID, bob)
	assert.Nil(t, next)
}

func TestGameService_Forfeit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.player(t, "alice")
	bob := env.player(t, "bob")
	eve := env.player(t, "eve")
	m := env.startMatch(t, alice, bob)

	_, err := env.game.Forfeit(ctx, m.ID, eve)
	assert.ErrorIs(t, err, ErrNotParticipant)

	view, err := env.game.Forfeit(ctx, m.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusFinished, view.Status)
	require.NotNil(t, view.WinnerID)
	assert.Equal(t, alice, *view.WinnerID)

	_, err = env.game.Forfeit(ctx, m.ID, alice)
	assert.ErrorIs(t, err, ErrMatchNotActive)

	assert.Len(t, env.publisher.ofType(events.TypeMatchForfeited), 1)
}

func TestGameService_ActiveRoundIsPerPlayer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.player(t, "alice")
	bob := env.player(t, "bob")
	m := env.startMatch(t, alice, bob)
	round1 := env.activeRound(t, m.ID, bob)
	_, err := env.game.ChooseCategory(ctx, m.ID, round1.RoundID, bob, "science")
	require.NoError(t, err)

	for q := 1; q <= 3; q++ {
		_, err := env.game.SubmitAnswer(ctx, m.ID, round1.RoundID, alice, q, "Wrong", 0)
		require.NoError(t, err)
	}

	// alice 는 2라운드 (카테고리 선택 차례), bob 은 아직 1라운드
	aliceView := env.activeRound(t, m.ID, alice)
	assert.Equal(t, 2, aliceView.RoundNumber)
	assert.True(t, aliceView.YourTurnToChoose)
	assert.Equal(t, models.RoundStateAwaitingCategory, aliceView.State)

	bobView := env.activeRound(t, m.ID, bob)
	assert.Equal(t, 1, bobView.RoundNumber)
	assert.Equal(t, models.RoundStateCategorySet, bobView.State)
	assert.False(t, bobView.YourTurnToChoose)
	assert.Zero(t, bobView.Answered)
}

func TestGameService_ListsAndHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.player(t, "alice")
	bob := env.player(t, "bob")
	carol := env.player(t, "carol")

	first := env.startMatch(t, alice, bob)
	env.startMatch(t, carol, alice)

	active, err := env.game.ListActive(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	_, err = env.game.Forfeit(ctx, first.ID, alice)
	require.NoError(t, err)

	active, err = env.game.ListActive(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	history, err := env.game.History(ctx, alice, 1, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, first.ID, history[0].ID)

	history, err = env.game.History(ctx, alice, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, history)

	cats, err := env.game.Categories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 4)
}

func (e *testEnv) activeRoundOrNil(t *testing.T, matchID, playerID string) *models.ActiveRoundView {
	t.Helper()
	view, err := e.game.GetActiveRound(context.Background(), matchID, playerID)
	if err != nil {
		assert.ErrorIs(t, err, ErrNoActiveRound)
		return nil
	}
	return view
}
