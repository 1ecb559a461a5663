package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrDuplicate 유니크 제약 위반
	ErrDuplicate = errors.New("duplicate record")
	// ErrConflict 조건부 갱신 대상이 기대한 상태가 아님
	ErrConflict = errors.New("state conflict")
)

const pqUniqueViolation = "23505"

// translateError 드라이버 에러를 저장소 에러로 변환
func translateError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return ErrDuplicate
	}
	return err
}
