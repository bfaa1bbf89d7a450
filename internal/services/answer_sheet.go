package services

import (
	"fmt"

	"github.com/SAP-F-2025/session-runtime/internal/backend"
	"github.com/SAP-F-2025/session-runtime/internal/models"
	"github.com/xuri/excelize/v2"
)

const answerSheetName = "Answers"

var answerSheetHeaders = []string{"No.", "Question ID", "Question", "Selected Answer", "Time Spent (s)"}

// BuildAnswerSheet renders the submission payload as a workbook, one row per
// question in payload order.
func BuildAnswerSheet(title string, questions []models.Question, payload backend.SubmitExamRequest) (*AnswerSheet, error) {
	text := make(map[int]string, len(questions))
	for _, q := range questions {
		text[q.ID] = q.QuestionText
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(answerSheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	if err := f.SetDocProps(&excelize.DocProperties{
		Title:       title,
		Description: fmt.Sprintf("Attempt %d", payload.AttemptID),
	}); err != nil {
		return nil, fmt.Errorf("failed to set workbook properties: %w", err)
	}

	for i, header := range answerSheetHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(answerSheetName, cell, header)
	}

	for i, entry := range payload.Answers {
		row := []interface{}{i + 1, entry.QuestionID, text[entry.QuestionID], entry.SelectedAnswer, ""}
		if entry.TimeSpent != nil {
			row[4] = *entry.TimeSpent
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(answerSheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	return &AnswerSheet{
		FileName: fmt.Sprintf("attempt-%d-answers.xlsx", payload.AttemptID),
		Data:     buf.Bytes(),
	}, nil
}
