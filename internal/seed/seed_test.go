package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rl-arena/trivia-arena-backend/internal/repository/memory"
)

func TestLoad_DefaultCatalog(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Len(t, c.Categories, 4)
	assert.Equal(t, "science", c.Categories[0].Slug)
	assert.Equal(t, "Science", c.Categories[0].Name)

	perCategory := map[string]int{}
	for _, q := range c.Questions {
		perCategory[q.Category]++
	}
	// 한 라운드(기본 3문제)를 채울 수 있어야 한다
	for _, cat := range c.Categories {
		assert.GreaterOrEqual(t, perCategory[cat.Slug], 3, cat.Slug)
	}
	assert.NotEmpty(t, c.Achievements)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
categories:
  - name: "  Pop Culture "
questions:
  - category: Pop Culture
    text: Who played Neo?
    choices: [Keanu Reeves, Tom Cruise]
    answer: keanu reeves
`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	require.Len(t, c.Categories, 1)
	assert.Equal(t, "pop-culture", c.Categories[0].Slug)
	assert.Equal(t, "pop-culture", c.Questions[0].Category)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "unknown category",
			yaml: `
categories: [{name: science}]
questions: [{category: art, text: q, answer: a}]`,
		},
		{
			name: "answer not in choices",
			yaml: `
categories: [{name: science}]
questions: [{category: science, text: q, choices: [x, y], answer: z}]`,
		},
		{
			name: "missing answer",
			yaml: `
categories: [{name: science}]
questions: [{category: science, text: q}]`,
		},
		{
			name: "duplicate achievement code",
			yaml: `
achievements: [{code: a, name: A}, {code: a, name: B}]`,
		},
		{
			name: "malformed yaml",
			yaml: `categories: [`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestApply_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	c, err := Load("")
	require.NoError(t, err)

	bank := memory.NewQuestionBank()
	store := memory.NewStore()

	first, err := Apply(ctx, c, bank, store, zap.NewNop())
	require.NoError(t, err)
	_, err = Apply(ctx, c, bank, store, zap.NewNop())
	require.NoError(t, err)

	categories, err := bank.Categories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, first.Categories)

	questions, err := bank.LoadCategory(ctx, "science")
	require.NoError(t, err)
	assert.Len(t, questions, 6)

	achievements, err := store.ListAchievements(ctx)
	require.NoError(t, err)
	assert.Len(t, achievements, first.Achievements)
}

func TestApply_WarnsOnEmptyCriteria(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	c, err := Parse([]byte(`achievements: [{code: participant, name: Participant}]`))
	require.NoError(t, err)

	_, err = Apply(context.Background(), c, memory.NewQuestionBank(), memory.NewStore(), zap.New(core))
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("Achievement has no criteria and will be awarded on any answer").Len())
}
