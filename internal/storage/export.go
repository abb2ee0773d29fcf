package storage

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strconv"
)

// ExportCSV renders a student's scores as a CSV document with a header row.
func ExportCSV(scores []Score) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"student", "question_id", "question_title",
		"overall", "time_complexity", "space_complexity",
		"readability", "stability", "updated_at",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, s := range scores {
		row := []string{
			s.StudentName,
			s.QuestionID,
			s.QuestionTitle,
			strconv.Itoa(s.Overall),
			strconv.Itoa(s.TimeComplexity),
			strconv.Itoa(s.SpaceComplexity),
			strconv.Itoa(s.Readability),
			strconv.Itoa(s.Stability),
			s.UpdatedAt.Format("2006-01-02 15:04:05"),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportJSON renders a student's scores as formatted JSON.
func ExportJSON(student string, scores []Score) ([]byte, error) {
	export := struct {
		Student string  `json:"student"`
		Scores  []Score `json:"scores"`
	}{
		Student: student,
		Scores:  scores,
	}
	return json.MarshalIndent(export, "", "  ")
}
