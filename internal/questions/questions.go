// Package questions loads the exercise catalog from a spreadsheet: either
// the published CSV export of a Google Sheet or a local workbook file. Rows
// follow the course sheet layout: task label, description, example image.
package questions

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

// TestCase pairs an input line with the output it should produce.
type TestCase struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// Question is one exercise from the catalog.
type Question struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Difficulty    string     `json:"difficulty"`
	TestCases     []TestCase `json:"test_cases"`
	Hints         []string   `json:"hints"`
	ExampleImage  string     `json:"example_image,omitempty"`
	LearningGoals []string   `json:"learning_goals"`
}

// Source fetches the raw catalog from wherever it lives.
type Source interface {
	Fetch(ctx context.Context) ([]Question, error)
}

var (
	taskRe = regexp.MustCompile(`^Task\s*(\d+)[：:]\s*(.+)$`)
	// Hints are written inside full-width parentheses in the description
	// column of the course sheet.
	hintRe = regexp.MustCompile(`（([^）]+)）`)
)

// mapRow converts one spreadsheet row into a Question. The second return is
// false for rows that carry no task (blank lines, stray notes).
func mapRow(cells []string, rowNum int) (Question, bool) {
	get := func(i int) string {
		if i < len(cells) {
			return strings.TrimSpace(cells[i])
		}
		return ""
	}

	taskInfo := get(0)
	if taskInfo == "" {
		return Question{}, false
	}
	description := get(1)
	exampleImage := get(2)

	id := strconv.Itoa(rowNum)
	title := taskInfo
	if m := taskRe.FindStringSubmatch(taskInfo); m != nil {
		id = m[1]
		title = strings.TrimSpace(m[2])
	}

	var hints []string
	for _, m := range hintRe.FindAllStringSubmatch(description, -1) {
		hints = append(hints, m[1])
	}
	clean := strings.TrimSpace(hintRe.ReplaceAllString(description, ""))
	if clean == "" {
		clean = description
	}

	return Question{
		ID:            id,
		Title:         title,
		Description:   clean,
		Difficulty:    difficultyFor(id),
		Hints:         hints,
		ExampleImage:  exampleImage,
		LearningGoals: learningGoalsFor(title),
	}, true
}

func difficultyFor(id string) string {
	switch id {
	case "1":
		return "beginner"
	case "2":
		return "easy"
	case "3", "4":
		return "intermediate"
	default:
		return "beginner"
	}
}

// learningGoalsFor derives up to three study goals from keywords in the
// task title.
func learningGoalsFor(title string) []string {
	keywordGoals := []struct {
		keyword string
		goals   []string
	}{
		{"string", []string{"work with string values", "apply string library functions"}},
		{"sum", []string{"accumulate inside a loop", "use numeric for loops"}},
		{"max", []string{"compare values with conditionals", "track a running best"}},
		{"input", []string{"read interactive input", "convert between types"}},
		{"reverse", []string{"index into strings", "build results incrementally"}},
		{"average", []string{"combine totals and counts", "format numeric output"}},
	}

	lower := strings.ToLower(title)
	var goals []string
	for _, kg := range keywordGoals {
		if strings.Contains(lower, kg.keyword) {
			goals = append(goals, kg.goals...)
		}
	}
	if len(goals) == 0 {
		goals = []string{"practice core language syntax", "build program logic step by step"}
	}
	if len(goals) > 3 {
		goals = goals[:3]
	}
	return goals
}

// mapRows converts a whole sheet, skipping the header row and anything that
// does not look like a task.
func mapRows(rows [][]string) []Question {
	var out []Question
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		if q, ok := mapRow(row, i); ok {
			out = append(out, q)
		}
	}
	return out
}
