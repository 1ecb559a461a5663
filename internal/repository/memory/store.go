package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rl-arena/trivia-arena-backend/internal/models"
	"github.com/rl-arena/trivia-arena-backend/internal/repository"
)

// Store 매치/업적/통계/사용자 인메모리 저장소
// 하나의 뮤텍스로 Postgres 트랜잭션과 같은 원자성을 흉내낸다.
type Store struct {
	mu sync.Mutex

	users          map[string]*models.User
	matches        map[string]*models.Match
	rounds         map[string]*models.Round
	matchRounds    map[string][]string
	roundQuestions map[string][]models.RoundQuestion
	answers        []models.Answer
	answerKeys     map[string]struct{}
	history        []models.MatchmakingHistory
	achievements   []models.Achievement
	awards         map[string]models.AchievementAward
	stats          map[string]*models.PlayerStats

	now func() time.Time
}

type Option func(*Store)

// WithClock 테스트용 시계
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		users:          make(map[string]*models.User),
		matches:        make(map[string]*models.Match),
		rounds:         make(map[string]*models.Round),
		matchRounds:    make(map[string][]string),
		roundQuestions: make(map[string][]models.RoundQuestion),
		answerKeys:     make(map[string]struct{}),
		awards:         make(map[string]models.AchievementAward),
		stats:          make(map[string]*models.PlayerStats),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var errSamePlayers = errors.New("player1 and player2 must differ")

func copyMatch(m *models.Match) *models.Match {
	c := *m
	if m.WinnerID != nil {
		w := *m.WinnerID
		c.WinnerID = &w
	}
	return &c
}

func copyRound(r *models.Round) *models.Round {
	c := *r
	if r.Category != nil {
		cat := *r.Category
		c.Category = &cat
	}
	return &c
}

// ---- users ----

func (s *Store) CreateUser(_ context.Context, username, email, passwordHash, fullName string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username || u.Email == email {
			return nil, repository.ErrDuplicate
		}
	}

	now := s.now()
	u := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     fullName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[u.ID] = u
	c := *u
	return &c, nil
}

func (s *Store) findUser(match func(*models.User) bool) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if match(u) {
			c := *u
			return &c
		}
	}
	return nil
}

func (s *Store) FindByID(_ context.Context, id string) (*models.User, error) {
	return s.findUser(func(u *models.User) bool { return u.ID == id }), nil
}

func (s *Store) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return s.findUser(func(u *models.User) bool { return u.Email == email }), nil
}

func (s *Store) FindByUsername(_ context.Context, username string) (*models.User, error) {
	return s.findUser(func(u *models.User) bool { return u.Username == username }), nil
}

func (s *Store) UpdateUser(_ context.Context, id string, fullName string, avatarURL *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[id]; ok {
		u.FullName = fullName
		u.AvatarURL = avatarURL
		u.UpdatedAt = s.now()
	}
	return nil
}

// ---- matches ----

func (s *Store) CreateMatch(_ context.Context, match *models.Match, firstRound *models.Round) (*models.Match, *models.Round, error) {
	if match.Player1ID == match.Player2ID {
		return nil, nil, errSamePlayers
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	m := copyMatch(match)
	m.ID = uuid.NewString()
	m.Status = models.MatchStatusActive
	m.CreatedAt = now
	m.StartedAt = &now
	m.LastActivity = now
	s.matches[m.ID] = m

	r := copyRound(firstRound)
	r.ID = uuid.NewString()
	r.MatchID = m.ID
	r.CreatedAt = now
	s.rounds[r.ID] = r
	s.matchRounds[m.ID] = []string{r.ID}

	return copyMatch(m), copyRound(r), nil
}

func (s *Store) FindMatch(_ context.Context, id string) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[id]
	if !ok {
		return nil, nil
	}
	return copyMatch(m), nil
}

func (s *Store) FindRound(_ context.Context, id string) (*models.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rounds[id]
	if !ok {
		return nil, nil
	}
	return copyRound(r), nil
}

func (s *Store) ListRounds(_ context.Context, matchID string) ([]*models.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rounds []*models.Round
	for _, id := range s.matchRounds[matchID] {
		rounds = append(rounds, copyRound(s.rounds[id]))
	}
	sort.Slice(rounds, func(i, j int) bool { return rounds[i].RoundNumber < rounds[j].RoundNumber })
	return rounds, nil
}

func (s *Store) BindCategory(_ context.Context, roundID, category string, questions []models.Question, next *models.Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rounds[roundID]
	if !ok || r.HasCategory() {
		return repository.ErrConflict
	}

	if next != nil {
		for _, id := range s.matchRounds[r.MatchID] {
			if s.rounds[id].RoundNumber == next.RoundNumber {
				return repository.ErrDuplicate
			}
		}
	}

	now := s.now()
	cat := category
	r.Category = &cat
	r.CategoryChosenAt = &now

	bound := make([]models.RoundQuestion, 0, len(questions))
	for i, q := range questions {
		bound = append(bound, models.RoundQuestion{
			RoundID:        roundID,
			QuestionNumber: i + 1,
			QuestionID:     q.ID,
			Text:           q.Text,
			Choices:        append([]string(nil), q.Choices...),
			CorrectAnswer:  q.CorrectAnswer,
		})
	}
	s.roundQuestions[roundID] = bound

	if next != nil {
		n := copyRound(next)
		n.ID = uuid.NewString()
		n.MatchID = r.MatchID
		n.CreatedAt = now
		s.rounds[n.ID] = n
		s.matchRounds[r.MatchID] = append(s.matchRounds[r.MatchID], n.ID)
	}

	if m, ok := s.matches[r.MatchID]; ok {
		m.LastActivity = now
	}
	return nil
}

func (s *Store) RoundQuestions(_ context.Context, roundID string) ([]models.RoundQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]models.RoundQuestion(nil), s.roundQuestions[roundID]...), nil
}

func answerKey(roundID, playerID string, questionNumber int) string {
	return fmt.Sprintf("%s|%s|%d", roundID, playerID, questionNumber)
}

func (s *Store) RecordAnswer(_ context.Context, answer *models.Answer) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := answerKey(answer.RoundID, answer.PlayerID, answer.QuestionNumber)
	if _, dup := s.answerKeys[key]; dup {
		return nil, repository.ErrDuplicate
	}

	m, ok := s.matches[answer.MatchID]
	if !ok || m.Status != models.MatchStatusActive {
		return nil, repository.ErrConflict
	}

	now := s.now()
	answer.ID = uuid.NewString()
	answer.AnsweredAt = now
	s.answerKeys[key] = struct{}{}
	s.answers = append(s.answers, *answer)

	correct := 0
	if answer.IsCorrect {
		correct = 1
	}
	switch answer.PlayerID {
	case m.Player1ID:
		m.Player1Score += answer.PointsEarned
		m.Player1Correct += correct
		m.Player1Answered++
	case m.Player2ID:
		m.Player2Score += answer.PointsEarned
		m.Player2Correct += correct
		m.Player2Answered++
	}
	m.LastActivity = now

	return copyMatch(m), nil
}

func (s *Store) filterAnswers(keep func(models.Answer) bool) []models.Answer {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Answer
	for _, a := range s.answers {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}

func (s *Store) ListAnswers(_ context.Context, matchID, playerID string) ([]models.Answer, error) {
	return s.filterAnswers(func(a models.Answer) bool {
		return a.MatchID == matchID && a.PlayerID == playerID
	}), nil
}

func (s *Store) ListRoundAnswers(_ context.Context, roundID string) ([]models.Answer, error) {
	return s.filterAnswers(func(a models.Answer) bool { return a.RoundID == roundID }), nil
}

func (s *Store) CountAnswersByRound(ctx context.Context, matchID, playerID string) (map[string]int, error) {
	answers, _ := s.ListAnswers(ctx, matchID, playerID)
	counts := make(map[string]int)
	for _, a := range answers {
		counts[a.RoundID]++
	}
	return counts, nil
}

func (s *Store) FinishMatch(_ context.Context, matchID string, winnerID *string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[matchID]
	if !ok || m.Status != models.MatchStatusActive {
		return false, nil
	}

	now := s.now()
	m.Status = models.MatchStatusFinished
	if winnerID != nil {
		w := *winnerID
		m.WinnerID = &w
	}
	m.EndedAt = &now
	m.LastActivity = now
	return true, nil
}

func (s *Store) CancelIdle(_ context.Context, cutoff time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var ids []string
	for id, m := range s.matches {
		if m.Status == models.MatchStatusActive && m.LastActivity.Before(cutoff) {
			m.Status = models.MatchStatusCancelled
			m.EndedAt = &now
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) listMatches(keep func(*models.Match) bool) []*models.Match {
	var out []*models.Match
	for _, m := range s.matches {
		if keep(m) {
			out = append(out, copyMatch(m))
		}
	}
	return out
}

func (s *Store) ListActiveByPlayer(_ context.Context, playerID string) ([]*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.listMatches(func(m *models.Match) bool {
		return m.Status == models.MatchStatusActive && m.IsParticipant(playerID)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ListHistoryByPlayer(_ context.Context, playerID string, limit, offset int) ([]*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.listMatches(func(m *models.Match) bool {
		return m.IsTerminal() && m.IsParticipant(playerID)
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].EndedAt == nil || out[j].EndedAt == nil {
			return out[i].EndedAt != nil
		}
		return out[i].EndedAt.After(*out[j].EndedAt)
	})

	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) RecordPairing(_ context.Context, h *models.MatchmakingHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := *h
	rec.ID = uuid.NewString()
	rec.MatchedAt = s.now()
	s.history = append(s.history, rec)
	return nil
}

// Pairings 매칭 기록 (테스트용)
func (s *Store) Pairings() []models.MatchmakingHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.MatchmakingHistory(nil), s.history...)
}

// Touch 마지막 활동 시각 변경 (테스트용)
func (s *Store) Touch(matchID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.matches[matchID]; ok {
		m.LastActivity = at
	}
}

// ---- achievements ----

func (s *Store) UpsertAchievement(_ context.Context, a models.Achievement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.achievements {
		if s.achievements[i].Code == a.Code {
			a.ID = s.achievements[i].ID
			s.achievements[i] = a
			return nil
		}
	}
	a.ID = uuid.NewString()
	s.achievements = append(s.achievements, a)
	return nil
}

func (s *Store) ListAchievements(_ context.Context) ([]models.Achievement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := append([]models.Achievement(nil), s.achievements...)
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *Store) Award(_ context.Context, playerID, achievementID, matchID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := playerID + "|" + achievementID
	if _, ok := s.awards[key]; ok {
		return false, nil
	}

	award := models.AchievementAward{
		PlayerID:      playerID,
		AchievementID: achievementID,
		MatchID:       matchID,
		AwardedAt:     s.now(),
	}
	for _, a := range s.achievements {
		if a.ID == achievementID {
			award.Code = a.Code
			award.Name = a.Name
		}
	}
	s.awards[key] = award
	return true, nil
}

func (s *Store) ListAwards(_ context.Context, playerID string) ([]models.AchievementAward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.AchievementAward
	for _, a := range s.awards {
		if a.PlayerID == playerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AwardedAt.After(out[j].AwardedAt) })
	return out, nil
}

// ---- stats ----

func (s *Store) GetStats(_ context.Context, playerID string) (*models.PlayerStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stats[playerID]
	if !ok {
		return nil, nil
	}
	c := *st
	return &c, nil
}

// ApplyResults 한 번의 락 안에서 모두 반영
func (s *Store) ApplyResults(_ context.Context, updates []models.ResultUpdate) ([]*models.PlayerStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.PlayerStats, 0, len(updates))
	for _, u := range updates {
		out = append(out, s.applyResultLocked(u))
	}
	return out, nil
}

func (s *Store) applyResultLocked(u models.ResultUpdate) *models.PlayerStats {
	st, ok := s.stats[u.PlayerID]
	if !ok {
		st = &models.PlayerStats{PlayerID: u.PlayerID, Rating: models.DefaultRating}
		s.stats[u.PlayerID] = st
	}

	st.GamesPlayed++
	switch u.Outcome {
	case models.OutcomeWin:
		st.Wins++
	case models.OutcomeLoss:
		st.Losses++
	default:
		st.Draws++
	}
	st.CorrectAnswers += u.Correct
	st.TotalAnswers += u.Answered
	st.TotalPoints += u.Points
	if u.Points > st.HighestScore {
		st.HighestScore = u.Points
	}
	st.Rating += u.RatingChange
	st.UpdatedAt = s.now()

	c := *st
	return &c
}

// RankOf TopByRating 과 같은 순서의 순위 (기록 없으면 0)
func (s *Store) RankOf(_ context.Context, playerID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	me, ok := s.stats[playerID]
	if !ok {
		return 0, nil
	}
	rank := int64(1)
	for _, o := range s.stats {
		if o.Rating > me.Rating || (o.Rating == me.Rating && o.UpdatedAt.Before(me.UpdatedAt)) {
			rank++
		}
	}
	return rank, nil
}

func (s *Store) TopByRating(_ context.Context, limit int) ([]models.LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]*models.PlayerStats, 0, len(s.stats))
	for _, st := range s.stats {
		all = append(all, st)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Rating != all[j].Rating {
			return all[i].Rating > all[j].Rating
		}
		return all[i].UpdatedAt.Before(all[j].UpdatedAt)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	entries := make([]models.LeaderboardEntry, 0, len(all))
	for i, st := range all {
		e := models.LeaderboardEntry{Rank: int64(i + 1), PlayerID: st.PlayerID, Rating: st.Rating}
		if u, ok := s.users[st.PlayerID]; ok {
			e.Username = u.Username
		}
		entries = append(entries, e)
	}
	return entries, nil
}
