package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/testcraft-app/testcraft-service/internal/models"
	"github.com/testcraft-app/testcraft-service/internal/parser"
	"github.com/testcraft-app/testcraft-service/internal/repositories"
	"github.com/testcraft-app/testcraft-service/internal/validator"
)

// ImportService turns external question sources into questions on a test.
// Free text goes through the question parser; spreadsheets (CSV/XLSX) go
// through a per-row reader with row-level validation errors.
type ImportService interface {
	ImportText(ctx context.Context, testID, text string, images map[string]string) (*ImportResult, error)
	ImportFile(ctx context.Context, testID string, file io.Reader, filename string) (*ImportResult, error)
	ImportCSV(ctx context.Context, testID string, reader io.Reader) (*ImportResult, error)
	ImportExcel(ctx context.Context, testID string, reader io.Reader) (*ImportResult, error)
}

type ImportResult struct {
	TotalBlocks   int                            `json:"total_blocks,omitempty"`
	TotalRows     int                            `json:"total_rows,omitempty"`
	ProcessedRows int                            `json:"processed_rows,omitempty"`
	SuccessCount  int                            `json:"success_count"`
	ErrorCount    int                            `json:"error_count"`
	Errors        []models.ImportValidationError `json:"errors,omitempty"`
	Diagnostics   []parser.Diagnostic            `json:"diagnostics,omitempty"`
	Questions     []*models.Question             `json:"questions,omitempty"`
}

type importService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewImportService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) ImportService {
	return &importService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

// ===== TEXT IMPORT =====

// ImportText parses free-form question text and appends every valid block's
// question to the test. Malformed blocks show up as diagnostics, never as
// errors; an input that yields zero questions is the one caller-level error.
func (s *importService) ImportText(ctx context.Context, testID, text string, images map[string]string) (*ImportResult, error) {
	if _, err := s.repo.Tests().GetByID(ctx, testID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to load test: %w", err)
	}

	parsed := parser.New(images).Parse(text)

	result := &ImportResult{
		TotalBlocks: len(parsed.Questions) + droppedCount(parsed.Diagnostics),
		Diagnostics: parsed.Diagnostics,
	}

	if len(parsed.Questions) == 0 {
		return nil, ErrNoValidQuestions
	}

	if err := s.appendQuestions(ctx, testID, parsed.Questions, result); err != nil {
		return nil, err
	}

	s.logger.Info("Text import completed",
		"test_id", testID,
		"success_count", result.SuccessCount,
		"dropped_blocks", droppedCount(parsed.Diagnostics))
	return result, nil
}

func droppedCount(diags []parser.Diagnostic) int {
	n := 0
	for _, d := range diags {
		if d.Severity == parser.SeverityWarning {
			n++
		}
	}
	return n
}

// ===== FILE IMPORT =====

func (s *importService) ImportFile(ctx context.Context, testID string, file io.Reader, filename string) (*ImportResult, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return s.ImportCSV(ctx, testID, file)
	case ".xlsx", ".xls":
		return s.ImportExcel(ctx, testID, file)
	case ".txt", ".md":
		text, err := io.ReadAll(file)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrUnreadableImportFile, err)
		}
		return s.ImportText(ctx, testID, string(text), nil)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, filepath.Ext(filename))
	}
}

func (s *importService) ImportCSV(ctx context.Context, testID string, reader io.Reader) (*ImportResult, error) {
	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnreadableImportFile, err)
	}

	return s.importRows(ctx, testID, records)
}

func (s *importService) ImportExcel(ctx context.Context, testID string, reader io.Reader) (*ImportResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnreadableImportFile, err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnreadableImportFile, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrUnreadableImportFile)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnreadableImportFile, err)
	}

	return s.importRows(ctx, testID, rows)
}

// importRows processes a header row plus data rows. Required columns:
// question_type, question_text, correct_answer; multiple choice rows add
// option_a..option_d.
func (s *importService) importRows(ctx context.Context, testID string, rows [][]string) (*ImportResult, error) {
	if _, err := s.repo.Tests().GetByID(ctx, testID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to load test: %w", err)
	}

	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: need a header row and at least one data row", ErrUnreadableImportFile)
	}

	headerMap := make(map[string]int)
	for i, header := range rows[0] {
		headerMap[strings.ToLower(strings.TrimSpace(header))] = i
	}
	for _, col := range []string{"question_type", "question_text", "correct_answer"} {
		if _, ok := headerMap[col]; !ok {
			return nil, fmt.Errorf("%w: missing required column %q", ErrUnreadableImportFile, col)
		}
	}

	result := &ImportResult{TotalRows: len(rows) - 1}

	var questions []*models.Question
	for i, row := range rows[1:] {
		question, rowErrors := s.parseRow(row, headerMap, i+2)
		result.ProcessedRows++
		if len(rowErrors) > 0 {
			result.Errors = append(result.Errors, rowErrors...)
			result.ErrorCount++
			continue
		}
		questions = append(questions, question)
	}

	if len(questions) == 0 {
		return nil, ErrNoValidQuestions
	}

	if err := s.appendQuestions(ctx, testID, questions, result); err != nil {
		return nil, err
	}

	s.logger.Info("Spreadsheet import completed",
		"test_id", testID,
		"total_rows", result.TotalRows,
		"success_count", result.SuccessCount,
		"error_count", result.ErrorCount)
	return result, nil
}

// parseRow builds one question from a spreadsheet row. Spreadsheets carry
// multiple choice and true/false questions; the richer types come in
// through the text format.
func (s *importService) parseRow(row []string, headerMap map[string]int, rowNum int) (*models.Question, []models.ImportValidationError) {
	getColumn := func(name string) string {
		if index, ok := headerMap[name]; ok && index < len(row) {
			return strings.TrimSpace(row[index])
		}
		return ""
	}

	rowError := func(column, message, value string) []models.ImportValidationError {
		return []models.ImportValidationError{{
			Row: rowNum, Column: column, Message: message, Value: value,
		}}
	}

	text := getColumn("question_text")
	if text == "" {
		return nil, rowError("question_text", "required field", "")
	}

	var question *models.Question
	var err error

	typeName := strings.ToUpper(getColumn("question_type"))
	switch models.QuestionType(typeName) {
	case models.MultipleChoice:
		var options []models.QuestionOption
		for _, col := range []string{"option_a", "option_b", "option_c", "option_d"} {
			value := getColumn(col)
			if value == "" {
				return nil, rowError(col, "multiple choice rows need all four options", "")
			}
			options = append(options, models.QuestionOption{
				ID:   strings.TrimPrefix(col, "option_"),
				Text: value,
			})
		}

		answer := strings.ToUpper(getColumn("correct_answer"))
		if len(answer) != 1 || answer[0] < 'A' || answer[0] > 'D' {
			return nil, rowError("correct_answer", "must be a letter A-D", getColumn("correct_answer"))
		}

		question, err = models.NewQuestion(models.MultipleChoice, text, models.MultipleChoiceContent{
			Options:            options,
			CorrectOptionIndex: int(answer[0] - 'A'),
		})

	case models.TrueFalse:
		answer := strings.ToLower(getColumn("correct_answer"))
		if answer != "true" && answer != "false" {
			return nil, rowError("correct_answer", "must be true or false", getColumn("correct_answer"))
		}
		question, err = models.NewQuestion(models.TrueFalse, text, models.TrueFalseContent{
			CorrectAnswer: answer == "true",
		})

	case "":
		return nil, rowError("question_type", "required field", "")
	default:
		return nil, rowError("question_type", "unsupported type for spreadsheet import", typeName)
	}

	if err != nil {
		return nil, rowError("question_text", err.Error(), text)
	}

	if difficulty := strings.ToUpper(getColumn("difficulty")); difficulty != "" {
		switch models.DifficultyLevel(difficulty) {
		case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
			question.Difficulty = models.DifficultyLevel(difficulty)
		default:
			return nil, rowError("difficulty", "must be EASY, MEDIUM, or HARD", getColumn("difficulty"))
		}
	}

	if tags := getColumn("tags"); tags != "" {
		var list []string
		for _, tag := range strings.Split(tags, ",") {
			if trimmed := strings.TrimSpace(tag); trimmed != "" {
				list = append(list, trimmed)
			}
		}
		if err := question.SetTags(list); err != nil {
			return nil, rowError("tags", err.Error(), tags)
		}
	}

	return question, nil
}

// appendQuestions pushes parsed questions into the repository, which assigns
// their ids and positions.
func (s *importService) appendQuestions(ctx context.Context, testID string, questions []*models.Question, result *ImportResult) error {
	for _, question := range questions {
		appended, err := s.repo.Tests().AppendQuestion(ctx, testID, question)
		if err != nil {
			return fmt.Errorf("failed to append imported question: %w", err)
		}
		result.Questions = append(result.Questions, appended)
		result.SuccessCount++
	}
	return nil
}
