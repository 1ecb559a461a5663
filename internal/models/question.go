package models

import "time"

// Category 문제 카테고리 (slug가 키)
type Category struct {
	Slug      string    `json:"slug" db:"slug" yaml:"slug"`
	Name      string    `json:"name" db:"name" yaml:"name"`
	CreatedAt time.Time `json:"createdAt" db:"created_at" yaml:"-"`
}

type Question struct {
	ID            string    `json:"id" db:"id" yaml:"id"`
	Category      string    `json:"category" db:"category_slug" yaml:"category"`
	Text          string    `json:"text" db:"text" yaml:"text"`
	Choices       []string  `json:"choices" db:"choices" yaml:"choices"`
	CorrectAnswer string    `json:"-" db:"correct_answer" yaml:"answer"`
	Difficulty    string    `json:"difficulty" db:"difficulty" yaml:"difficulty"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at" yaml:"-"`
}
