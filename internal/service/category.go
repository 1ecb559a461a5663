package service

import (
	"strings"

	"github.com/gosimple/slug"
)

// NormalizeCategory 사용자 입력/시드 카테고리를 slug 로 변환 ("General Knowledge" -> "general-knowledge")
func NormalizeCategory(category string) string {
	category = strings.TrimSpace(category)
	if category == "" {
		return ""
	}
	return slug.Make(category)
}

// answersMatch 앞뒤 공백 무시, 대소문자 무시 비교
func answersMatch(given, correct string) bool {
	return strings.EqualFold(strings.TrimSpace(given), strings.TrimSpace(correct))
}
