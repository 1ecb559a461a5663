package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rl-arena/trivia-arena-backend/internal/models"
	"github.com/rl-arena/trivia-arena-backend/internal/repository/memory"
	"github.com/rl-arena/trivia-arena-backend/pkg/events"
)

type sentMessage struct {
	UserID  string
	Type    string
	Payload interface{}
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []sentMessage
}

func (n *recordingNotifier) SendToUser(userID, msgType string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, sentMessage{UserID: userID, Type: msgType, Payload: payload})
}

func (n *recordingNotifier) sentTo(userID, msgType string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, m := range n.messages {
		if m.UserID == userID && m.Type == msgType {
			count++
		}
	}
	return count
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) ofType(eventType string) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// testEnv 인메모리 저장소 위에 조립한 전체 서비스
type testEnv struct {
	store     *memory.Store
	queue     *memory.MatchQueue
	bank      *memory.QuestionBank
	clock     *testClock
	notifier  *recordingNotifier
	publisher *recordingPublisher
	logs      *observer.ObservedLogs

	users        *UserService
	matchmaking  *MatchmakingService
	game         *GameService
	achievements *AchievementService
	stats        *StatsService
	maintenance  *MaintenanceService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	clock := newTestClock()
	store := memory.NewStore(memory.WithClock(clock.Now))
	queue := memory.NewMatchQueue()
	bank := memory.NewQuestionBank()
	seedQuestions(t, bank)

	notifier := &recordingNotifier{}
	publisher := &recordingPublisher{}

	achievements := NewAchievementService(store, store, logger)
	achievements.SetNotifier(notifier)

	stats := NewStatsService(store, store, logger)

	game := NewGameService(store, bank, achievements, stats, logger)
	game.SetNotifier(notifier)
	game.SetEventPublisher(publisher)
	game.now = clock.Now

	matchmaking := NewMatchmakingService(queue, store, store, DefaultGameSettings(), logger)
	matchmaking.SetNotifier(notifier)
	matchmaking.SetEventPublisher(publisher)
	matchmaking.now = clock.Now

	maintenance := NewMaintenanceService(store, queue, DefaultMaintenanceConfig(), logger)
	maintenance.SetNotifier(notifier)
	maintenance.SetEventPublisher(publisher)
	maintenance.now = clock.Now

	return &testEnv{
		store:        store,
		queue:        queue,
		bank:         bank,
		clock:        clock,
		notifier:     notifier,
		publisher:    publisher,
		logs:         logs,
		users:        NewUserService(store),
		matchmaking:  matchmaking,
		game:         game,
		achievements: achievements,
		stats:        stats,
		maintenance:  maintenance,
	}
}

// seedQuestions science/history/music 은 충분, tiny 는 2문제뿐
func seedQuestions(t *testing.T, bank *memory.QuestionBank) {
	t.Helper()
	ctx := context.Background()

	categories := map[string]int{"science": 6, "history": 6, "music": 6, "tiny": 2}
	for slug, count := range categories {
		require.NoError(t, bank.UpsertCategory(ctx, models.Category{Slug: slug, Name: slug}))
		for i := 1; i <= count; i++ {
			require.NoError(t, bank.UpsertQuestion(ctx, models.Question{
				Category:      slug,
				Text:          fmt.Sprintf("%s question %d", slug, i),
				Choices:       []string{fmt.Sprintf("Answer %d", i), "Wrong"},
				CorrectAnswer: fmt.Sprintf("Answer %d", i),
			}))
		}
	}
}

func (e *testEnv) player(t *testing.T, name string) string {
	t.Helper()
	u, err := e.store.CreateUser(context.Background(), name, name+"@example.com", "hash", "")
	require.NoError(t, err)
	return u.ID
}

// startMatch p1 이 p2 를 지정해 매치 생성
func (e *testEnv) startMatch(t *testing.T, p1, p2 string) *models.Match {
	t.Helper()
	ctx := context.Background()
	res, err := e.matchmaking.RequestMatch(ctx, p1, &p2)
	require.NoError(t, err)
	m, err := e.store.FindMatch(ctx, res.MatchID)
	require.NoError(t, err)
	require.NotNil(t, m)
	return m
}

func (e *testEnv) activeRound(t *testing.T, matchID, playerID string) *models.ActiveRoundView {
	t.Helper()
	view, err := e.game.GetActiveRound(context.Background(), matchID, playerID)
	require.NoError(t, err)
	return view
}

// correctAnswer 바인딩된 문제의 정답
func (e *testEnv) correctAnswer(t *testing.T, roundID string, number int) string {
	t.Helper()
	qs, err := e.store.RoundQuestions(context.Background(), roundID)
	require.NoError(t, err)
	for _, q := range qs {
		if q.QuestionNumber == number {
			return q.CorrectAnswer
		}
	}
	t.Fatalf("question %d not bound to round %s", number, roundID)
	return ""
}

// playRound 선택자가 카테고리를 고르고, 두 플레이어가 지정한 정답 여부로 모두 답한다
func (e *testEnv) playRound(t *testing.T, m *models.Match, category string, p1Correct, p2Correct []bool) *models.AnswerResult {
	t.Helper()
	ctx := context.Background()

	view := e.activeRound(t, m.ID, m.Player1ID)
	_, err := e.game.ChooseCategory(ctx, m.ID, view.RoundID, view.ChooserID, category)
	require.NoError(t, err)

	var last *models.AnswerResult
	for _, p := range []struct {
		id      string
		correct []bool
	}{{m.Player1ID, p1Correct}, {m.Player2ID, p2Correct}} {
		for i, ok := range p.correct {
			answer := "Wrong"
			if ok {
				answer = e.correctAnswer(t, view.RoundID, i+1)
			}
			last, err = e.game.SubmitAnswer(ctx, m.ID, view.RoundID, p.id, i+1, answer, 5000)
			require.NoError(t, err)
		}
	}
	return last
}

func repeat(v bool, n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = v
	}
	return out
}
