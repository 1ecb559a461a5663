package service

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"github.com/rl-arena/trivia-arena-backend/internal/models"
)

func TestCalculatePoints(t *testing.T) {
	tests := []struct {
		name       string
		base       int
		limit      int
		responseMs int
		correct    bool
		want       int
	}{
		{"incorrect", 100, 20, 0, false, 0},
		{"instant", 100, 20, 0, true, 100},
		{"halfway", 100, 20, 10000, true, 50},
		{"floor", 100, 20, 15001, true, 24},
		{"at the limit", 100, 20, 20000, true, 0},
		{"past the limit", 100, 20, 25000, true, 0},
		{"no limit", 100, 0, 99999, true, 100},
		{"negative limit", 100, -5, 1000, true, 100},
		{"negative response time", 100, 20, -100, true, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculatePoints(tt.base, tt.limit, tt.responseMs, tt.correct))
		})
	}
}

func TestCalculatePoints_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("points stay within 0..base", prop.ForAll(
		func(base, limit, responseMs int) bool {
			p := CalculatePoints(base, limit, responseMs, true)
			return p >= 0 && p <= base
		},
		gen.IntRange(0, 1000),
		gen.IntRange(-5, 120),
		gen.IntRange(-10000, 200000),
	))

	properties.Property("faster answers never earn fewer points", prop.ForAll(
		func(limit, a, b int) bool {
			if a > b {
				a, b = b, a
			}
			return CalculatePoints(100, limit, a, true) >= CalculatePoints(100, limit, b, true)
		},
		gen.IntRange(1, 60),
		gen.IntRange(0, 70000),
		gen.IntRange(0, 70000),
	))

	properties.Property("incorrect answers earn nothing", prop.ForAll(
		func(base, limit, responseMs int) bool {
			return CalculatePoints(base, limit, responseMs, false) == 0
		},
		gen.IntRange(0, 1000),
		gen.IntRange(-5, 120),
		gen.IntRange(-10000, 200000),
	))

	properties.TestingRun(t)
}

func TestDetermineWinner(t *testing.T) {
	p1, p2 := "p1", "p2"

	tests := []struct {
		name     string
		correct1 int
		correct2 int
		score1   int
		score2   int
		want     *string
	}{
		{"player one more correct", 10, 8, 100, 900, &p1},
		{"player two more correct", 3, 4, 0, 0, &p2},
		{"tie on correct ignores points", 7, 7, 700, 100, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &models.Match{
				Player1ID: p1, Player2ID: p2,
				Player1Correct: tt.correct1, Player2Correct: tt.correct2,
				Player1Score: tt.score1, Player2Score: tt.score2,
			}
			got := DetermineWinner(m)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			if assert.NotNil(t, got) {
				assert.Equal(t, *tt.want, *got)
			}
		})
	}
}

func TestOutcomeFor(t *testing.T) {
	winner := "a"
	assert.Equal(t, models.OutcomeWin, OutcomeFor("a", &winner))
	assert.Equal(t, models.OutcomeLoss, OutcomeFor("b", &winner))
	assert.Equal(t, models.OutcomeDraw, OutcomeFor("a", nil))
}

func TestNewRound_TimeLimitRoundsUpToWholeSeconds(t *testing.T) {
	m := &models.Match{ID: "m1", Player1ID: "p1", Player2ID: "p2", QuestionsPerRound: 3}

	tests := []struct {
		name      string
		limit     time.Duration
		wantLimit int
	}{
		{"sub-second", 500 * time.Millisecond, 1},
		{"fractional", 1500 * time.Millisecond, 2},
		{"whole", 20 * time.Second, 20},
		{"disabled", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := GameSettings{TimeLimit: tt.limit}.withDefaults()
			round := newRound(m, 1, g)
			assert.Equal(t, tt.wantLimit, round.TimeLimitSeconds)
		})
	}

	// 제한 시간이 짧아도 늦은 정답은 0점
	round := newRound(m, 1, GameSettings{TimeLimit: 500 * time.Millisecond}.withDefaults())
	assert.Zero(t, CalculatePoints(round.BasePoints, round.TimeLimitSeconds, 60000, true))
}
