package services

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/testcraft-app/testcraft-service/internal/models"
	"github.com/testcraft-app/testcraft-service/internal/validator"
)

func newImportService(repo *mockRepository) ImportService {
	return NewImportService(repo, testLogger(), validator.New())
}

func expectTest(repo *mockRepository, id string) {
	repo.tests.On("GetByID", mock.Anything, id).
		Return(&models.Test{ID: id, Settings: models.DefaultSettings()}, nil)
}

func expectAppendEcho(repo *mockRepository, testID string) {
	repo.tests.On("AppendQuestion", mock.Anything, testID, mock.Anything).
		Return(func(q *models.Question) *models.Question {
			q.ID = "assigned-" + q.Text
			return q
		}, nil)
}

func TestImportService_ImportText(t *testing.T) {
	t.Run("valid blocks appended, malformed dropped", func(t *testing.T) {
		repo := newMockRepository()
		expectTest(repo, "t1")
		expectAppendEcho(repo, "t1")

		input := "Q1. 2+2=?\nA. 3\nB. 4\nC. 5\nD. 6\nAnswer: B\n\nQ2. Broken block\n\nQ3. [TRUE_FALSE] Fine.\nAnswer: true"
		result, err := newImportService(repo).ImportText(context.Background(), "t1", input, nil)
		require.NoError(t, err)

		assert.Equal(t, 2, result.SuccessCount)
		assert.Len(t, result.Questions, 2)
		assert.Equal(t, 3, result.TotalBlocks)
		require.Len(t, result.Diagnostics, 1)
		repo.tests.AssertNumberOfCalls(t, "AppendQuestion", 2)
	})

	t.Run("zero valid questions is the caller-level error", func(t *testing.T) {
		repo := newMockRepository()
		expectTest(repo, "t1")

		_, err := newImportService(repo).ImportText(context.Background(), "t1", "nothing to see here", nil)
		assert.ErrorIs(t, err, ErrNoValidQuestions)
	})

	t.Run("unknown test", func(t *testing.T) {
		repo := newMockRepository()
		repo.tests.On("GetByID", mock.Anything, "missing").Return(nil, gorm.ErrRecordNotFound)

		_, err := newImportService(repo).ImportText(context.Background(), "missing", "Q1. x", nil)
		assert.ErrorIs(t, err, ErrTestNotFound)
	})

	t.Run("image table flows through to questions", func(t *testing.T) {
		repo := newMockRepository()
		expectTest(repo, "t1")
		expectAppendEcho(repo, "t1")

		images := map[string]string{"fig": "/images/fig.png"}
		input := "Q1. [TRUE_FALSE] [image: fig] Look at the figure.\nAnswer: true"
		result, err := newImportService(repo).ImportText(context.Background(), "t1", input, images)
		require.NoError(t, err)

		require.Len(t, result.Questions, 1)
		require.NotNil(t, result.Questions[0].ImageRef)
		assert.Equal(t, "/images/fig.png", *result.Questions[0].ImageRef)
	})
}

func TestImportService_ImportCSV(t *testing.T) {
	t.Run("mixed rows", func(t *testing.T) {
		repo := newMockRepository()
		expectTest(repo, "t1")
		expectAppendEcho(repo, "t1")

		csv := strings.Join([]string{
			"question_type,question_text,option_a,option_b,option_c,option_d,correct_answer,difficulty,tags",
			"MULTIPLE_CHOICE,What is 2+2?,3,4,5,6,B,EASY,\"math, arithmetic\"",
			"TRUE_FALSE,The sky is blue.,,,,,true,,",
			"MULTIPLE_CHOICE,Missing options,x,,,,A,,",
		}, "\n")

		result, err := newImportService(repo).ImportCSV(context.Background(), "t1", strings.NewReader(csv))
		require.NoError(t, err)

		assert.Equal(t, 3, result.TotalRows)
		assert.Equal(t, 2, result.SuccessCount)
		assert.Equal(t, 1, result.ErrorCount)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, 4, result.Errors[0].Row)
		assert.Equal(t, "option_b", result.Errors[0].Column)

		mc := result.Questions[0]
		assert.Equal(t, models.MultipleChoice, mc.Type)
		assert.Equal(t, models.DifficultyEasy, mc.Difficulty)
		assert.Equal(t, []string{"math", "arithmetic"}, mc.TagList())
		content, err := mc.MultipleChoice()
		require.NoError(t, err)
		assert.Equal(t, 1, content.CorrectOptionIndex)
	})

	t.Run("missing required column", func(t *testing.T) {
		repo := newMockRepository()
		expectTest(repo, "t1")

		csv := "question_type,question_text\nTRUE_FALSE,hello"
		_, err := newImportService(repo).ImportCSV(context.Background(), "t1", strings.NewReader(csv))
		assert.ErrorIs(t, err, ErrUnreadableImportFile)
	})

	t.Run("all rows invalid", func(t *testing.T) {
		repo := newMockRepository()
		expectTest(repo, "t1")

		csv := "question_type,question_text,correct_answer\nESSAY,write things,n/a"
		_, err := newImportService(repo).ImportCSV(context.Background(), "t1", strings.NewReader(csv))
		assert.ErrorIs(t, err, ErrNoValidQuestions)
	})
}

func TestImportService_ImportExcel(t *testing.T) {
	repo := newMockRepository()
	expectTest(repo, "t1")
	expectAppendEcho(repo, "t1")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"question_type", "question_text", "correct_answer"},
		{"TRUE_FALSE", "Water is wet.", "true"},
		{"TRUE_FALSE", "Fire is cold.", "false"},
	}
	for i, row := range rows {
		for j, value := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, value))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	result, err := newImportService(repo).ImportExcel(context.Background(), "t1", bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 0, result.ErrorCount)
}

func TestImportService_ImportFile(t *testing.T) {
	t.Run("extension dispatch", func(t *testing.T) {
		repo := newMockRepository()
		expectTest(repo, "t1")
		expectAppendEcho(repo, "t1")

		text := "Q1. [TRUE_FALSE] From a text file.\nAnswer: true"
		result, err := newImportService(repo).ImportFile(context.Background(), "t1", strings.NewReader(text), "questions.txt")
		require.NoError(t, err)
		assert.Equal(t, 1, result.SuccessCount)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		repo := newMockRepository()
		_, err := newImportService(repo).ImportFile(context.Background(), "t1", strings.NewReader(""), "questions.pdf")
		assert.ErrorIs(t, err, ErrUnsupportedFileType)
	})
}
