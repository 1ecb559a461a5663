package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rl-arena/trivia-arena-backend/internal/models"
	"github.com/rl-arena/trivia-arena-backend/pkg/database"
)

const matchColumns = `
	id, player1_id, player2_id, status,
	player1_score, player2_score, player1_correct, player2_correct,
	player1_answered, player2_answered, total_rounds, questions_per_round,
	winner_id, created_at, started_at, ended_at, last_activity`

const roundColumns = `
	id, match_id, round_number, chooser_id, category_slug,
	time_limit_seconds, base_points, question_count, created_at, category_chosen_at`

const answerColumns = `
	id, round_id, match_id, user_id, question_number, answer,
	is_correct, response_time_ms, points_earned, answered_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// MatchRepository 매치/라운드/답변 저장소
type MatchRepository struct {
	db *database.DB
}

func NewMatchRepository(db *database.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// validID uuid 컬럼에 넣을 수 있는 값인지
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func scanMatch(row rowScanner) (*models.Match, error) {
	m := &models.Match{}
	err := row.Scan(
		&m.ID,
		&m.Player1ID,
		&m.Player2ID,
		&m.Status,
		&m.Player1Score,
		&m.Player2Score,
		&m.Player1Correct,
		&m.Player2Correct,
		&m.Player1Answered,
		&m.Player2Answered,
		&m.TotalRounds,
		&m.QuestionsPerRound,
		&m.WinnerID,
		&m.CreatedAt,
		&m.StartedAt,
		&m.EndedAt,
		&m.LastActivity,
	)
	return m, err
}

func scanRound(row rowScanner) (*models.Round, error) {
	r := &models.Round{}
	err := row.Scan(
		&r.ID,
		&r.MatchID,
		&r.RoundNumber,
		&r.ChooserID,
		&r.Category,
		&r.TimeLimitSeconds,
		&r.BasePoints,
		&r.QuestionCount,
		&r.CreatedAt,
		&r.CategoryChosenAt,
	)
	return r, err
}

func scanAnswer(row rowScanner) (models.Answer, error) {
	var a models.Answer
	err := row.Scan(
		&a.ID,
		&a.RoundID,
		&a.MatchID,
		&a.PlayerID,
		&a.QuestionNumber,
		&a.Answer,
		&a.IsCorrect,
		&a.ResponseTimeMs,
		&a.PointsEarned,
		&a.AnsweredAt,
	)
	return a, err
}

func insertRound(ctx context.Context, tx *sql.Tx, round *models.Round) (*models.Round, error) {
	query := `
		INSERT INTO rounds (match_id, round_number, chooser_id, time_limit_seconds, base_points, question_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + roundColumns

	return scanRound(tx.QueryRowContext(ctx, query,
		round.MatchID,
		round.RoundNumber,
		round.ChooserID,
		round.TimeLimitSeconds,
		round.BasePoints,
		round.QuestionCount,
	))
}

// CreateMatch 매치(active)와 첫 라운드 생성
func (r *MatchRepository) CreateMatch(ctx context.Context, match *models.Match, firstRound *models.Round) (*models.Match, *models.Round, error) {
	var created *models.Match
	var round *models.Round

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO matches (player1_id, player2_id, status, total_rounds, questions_per_round, started_at, last_activity)
			VALUES ($1, $2, 'active', $3, $4, NOW(), NOW())
			RETURNING ` + matchColumns

		var err error
		created, err = scanMatch(tx.QueryRowContext(ctx, query,
			match.Player1ID,
			match.Player2ID,
			match.TotalRounds,
			match.QuestionsPerRound,
		))
		if err != nil {
			return fmt.Errorf("failed to create match: %w", err)
		}

		firstRound.MatchID = created.ID
		round, err = insertRound(ctx, tx, firstRound)
		if err != nil {
			return fmt.Errorf("failed to create first round: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return created, round, nil
}

// FindMatch ID로 매치 찾기
func (r *MatchRepository) FindMatch(ctx context.Context, id string) (*models.Match, error) {
	if !validID(id) {
		return nil, nil
	}
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`

	match, err := scanMatch(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find match: %w", err)
	}

	return match, nil
}

// FindRound ID로 라운드 찾기
func (r *MatchRepository) FindRound(ctx context.Context, id string) (*models.Round, error) {
	if !validID(id) {
		return nil, nil
	}
	query := `SELECT ` + roundColumns + ` FROM rounds WHERE id = $1`

	round, err := scanRound(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find round: %w", err)
	}

	return round, nil
}

// ListRounds 매치의 라운드 목록 (라운드 번호 순)
func (r *MatchRepository) ListRounds(ctx context.Context, matchID string) ([]*models.Round, error) {
	query := `SELECT ` + roundColumns + ` FROM rounds WHERE match_id = $1 ORDER BY round_number ASC`

	rows, err := r.db.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rounds: %w", err)
	}
	defer rows.Close()

	var rounds []*models.Round
	for rows.Next() {
		round, err := scanRound(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		rounds = append(rounds, round)
	}

	return rounds, rows.Err()
}

// BindCategory 카테고리와 문제를 라운드에 묶고 다음 라운드 생성
func (r *MatchRepository) BindCategory(ctx context.Context, roundID, category string, questions []models.Question, next *models.Round) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var matchID string
		err := tx.QueryRowContext(ctx, `
			UPDATE rounds
			SET category_slug = $2, category_chosen_at = NOW()
			WHERE id = $1 AND category_slug IS NULL
			RETURNING match_id
		`, roundID, category).Scan(&matchID)
		if err == sql.ErrNoRows {
			return ErrConflict
		}
		if err != nil {
			return fmt.Errorf("failed to set category: %w", err)
		}

		for i, q := range questions {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO round_questions (round_id, question_number, question_id)
				VALUES ($1, $2, $3)
			`, roundID, i+1, q.ID); err != nil {
				return fmt.Errorf("failed to bind question: %w", err)
			}
		}

		if next != nil {
			next.MatchID = matchID
			if _, err := insertRound(ctx, tx, next); err != nil {
				return fmt.Errorf("failed to create next round: %w", translateError(err))
			}
		}

		if _, err := tx.ExecContext(ctx, `UPDATE matches SET last_activity = NOW() WHERE id = $1`, matchID); err != nil {
			return fmt.Errorf("failed to touch match: %w", err)
		}
		return nil
	})
}

// RoundQuestions 라운드에 묶인 문제 (정답 포함)
func (r *MatchRepository) RoundQuestions(ctx context.Context, roundID string) ([]models.RoundQuestion, error) {
	query := `
		SELECT rq.round_id, rq.question_number, q.id, q.text, q.choices, q.correct_answer
		FROM round_questions rq
		JOIN questions q ON q.id = rq.question_id
		WHERE rq.round_id = $1
		ORDER BY rq.question_number ASC
	`

	rows, err := r.db.QueryContext(ctx, query, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to query round questions: %w", err)
	}
	defer rows.Close()

	var questions []models.RoundQuestion
	for rows.Next() {
		var rq models.RoundQuestion
		if err := rows.Scan(
			&rq.RoundID,
			&rq.QuestionNumber,
			&rq.QuestionID,
			&rq.Text,
			pq.Array(&rq.Choices),
			&rq.CorrectAnswer,
		); err != nil {
			return nil, fmt.Errorf("failed to scan round question: %w", err)
		}
		questions = append(questions, rq)
	}

	return questions, rows.Err()
}

// RecordAnswer 답변 저장 + 매치 점수 갱신 (하나의 트랜잭션)
func (r *MatchRepository) RecordAnswer(ctx context.Context, answer *models.Answer) (*models.Match, error) {
	var updated *models.Match

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO answers (round_id, match_id, user_id, question_number, answer, is_correct, response_time_ms, points_earned)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id, answered_at
		`,
			answer.RoundID,
			answer.MatchID,
			answer.PlayerID,
			answer.QuestionNumber,
			answer.Answer,
			answer.IsCorrect,
			answer.ResponseTimeMs,
			answer.PointsEarned,
		).Scan(&answer.ID, &answer.AnsweredAt)
		if err != nil {
			return translateError(err)
		}

		correct := 0
		if answer.IsCorrect {
			correct = 1
		}

		updated, err = scanMatch(tx.QueryRowContext(ctx, `
			UPDATE matches SET
				player1_score    = player1_score    + CASE WHEN player1_id = $2 THEN $3 ELSE 0 END,
				player2_score    = player2_score    + CASE WHEN player2_id = $2 THEN $3 ELSE 0 END,
				player1_correct  = player1_correct  + CASE WHEN player1_id = $2 THEN $4 ELSE 0 END,
				player2_correct  = player2_correct  + CASE WHEN player2_id = $2 THEN $4 ELSE 0 END,
				player1_answered = player1_answered + CASE WHEN player1_id = $2 THEN 1 ELSE 0 END,
				player2_answered = player2_answered + CASE WHEN player2_id = $2 THEN 1 ELSE 0 END,
				last_activity    = NOW()
			WHERE id = $1 AND status = 'active'
			RETURNING `+matchColumns,
			answer.MatchID,
			answer.PlayerID,
			answer.PointsEarned,
			correct,
		))
		if err == sql.ErrNoRows {
			return ErrConflict
		}
		if err != nil {
			return fmt.Errorf("failed to update match score: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (r *MatchRepository) queryAnswers(ctx context.Context, query string, args ...interface{}) ([]models.Answer, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query answers: %w", err)
	}
	defer rows.Close()

	var answers []models.Answer
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan answer: %w", err)
		}
		answers = append(answers, a)
	}

	return answers, rows.Err()
}

// ListAnswers 매치 내 플레이어 답변 (오래된 순)
func (r *MatchRepository) ListAnswers(ctx context.Context, matchID, playerID string) ([]models.Answer, error) {
	return r.queryAnswers(ctx, `
		SELECT `+answerColumns+`
		FROM answers
		WHERE match_id = $1 AND user_id = $2
		ORDER BY answered_at ASC, question_number ASC
	`, matchID, playerID)
}

// ListRoundAnswers 라운드의 모든 답변
func (r *MatchRepository) ListRoundAnswers(ctx context.Context, roundID string) ([]models.Answer, error) {
	return r.queryAnswers(ctx, `
		SELECT `+answerColumns+`
		FROM answers
		WHERE round_id = $1
		ORDER BY answered_at ASC
	`, roundID)
}

// CountAnswersByRound 라운드별 플레이어 답변 수
func (r *MatchRepository) CountAnswersByRound(ctx context.Context, matchID, playerID string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT round_id, COUNT(*)
		FROM answers
		WHERE match_id = $1 AND user_id = $2
		GROUP BY round_id
	`, matchID, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to count answers: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var roundID string
		var n int
		if err := rows.Scan(&roundID, &n); err != nil {
			return nil, fmt.Errorf("failed to scan answer count: %w", err)
		}
		counts[roundID] = n
	}

	return counts, rows.Err()
}

// FinishMatch active 인 매치만 종료 처리
func (r *MatchRepository) FinishMatch(ctx context.Context, matchID string, winnerID *string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE matches
		SET status = 'finished', winner_id = $2, ended_at = NOW(), last_activity = NOW()
		WHERE id = $1 AND status = 'active'
	`, matchID, winnerID)
	if err != nil {
		return false, fmt.Errorf("failed to finish match: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read finish result: %w", err)
	}
	return n == 1, nil
}

// CancelIdle cutoff 이후 활동이 없는 active 매치 취소
func (r *MatchRepository) CancelIdle(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		UPDATE matches
		SET status = 'cancelled', ended_at = NOW()
		WHERE status = 'active' AND last_activity < $1
		RETURNING id
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel idle matches: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan cancelled match: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (r *MatchRepository) queryMatches(ctx context.Context, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var matches []*models.Match
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, match)
	}

	return matches, rows.Err()
}

// ListActiveByPlayer 진행 중인 매치 목록
func (r *MatchRepository) ListActiveByPlayer(ctx context.Context, playerID string) ([]*models.Match, error) {
	return r.queryMatches(ctx, `
		SELECT `+matchColumns+`
		FROM matches
		WHERE status = 'active' AND (player1_id = $1 OR player2_id = $1)
		ORDER BY created_at DESC
	`, playerID)
}

// ListHistoryByPlayer 종료된 매치 기록 (최근 순)
func (r *MatchRepository) ListHistoryByPlayer(ctx context.Context, playerID string, limit, offset int) ([]*models.Match, error) {
	return r.queryMatches(ctx, `
		SELECT `+matchColumns+`
		FROM matches
		WHERE status IN ('finished', 'cancelled') AND (player1_id = $1 OR player2_id = $1)
		ORDER BY ended_at DESC NULLS LAST, created_at DESC
		LIMIT $2 OFFSET $3
	`, playerID, limit, offset)
}

// RecordPairing 매칭 기록 저장
func (r *MatchRepository) RecordPairing(ctx context.Context, history *models.MatchmakingHistory) error {
	query := `
		INSERT INTO matchmaking_history (player1_id, player2_id, match_id, waited_ms)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.ExecContext(ctx, query, history.Player1ID, history.Player2ID, history.MatchID, history.WaitedMs)
	if err != nil {
		return fmt.Errorf("failed to record pairing: %w", err)
	}
	return nil
}
