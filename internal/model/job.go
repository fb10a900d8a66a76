package model

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Job is a scraped job posting. It is not modified after scraping.
type Job struct {
	ID         int64  `json:"id,omitempty" mapstructure:"id"`
	Title      string `json:"title" mapstructure:"title"`
	Company    string `json:"company" mapstructure:"company"`
	Location   string `json:"location" mapstructure:"location"`
	Experience string `json:"experience" mapstructure:"experience"`
	Skills     string `json:"skills" mapstructure:"skills"`
	Summary    string `json:"summary" mapstructure:"summary"`
	PostedOn   string `json:"posted_on" mapstructure:"posted_on"`
}

// MatchedJob pairs a job with its similarity score.
type MatchedJob struct {
	Job   Job     `json:"job" mapstructure:"job"`
	Score float64 `json:"score" mapstructure:"score"`
}

// Resume types.
const (
	ResumeGenerated = "generated"
	ResumeTailored  = "tailored"
)

// ResumeMeta describes a stored resume payload.
type ResumeMeta struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Type      string `json:"resume_type"`
	Size      int    `json:"size"`
	CreatedAt string `json:"created_at"`
}

// DecodeJobs converts loosely typed job rows into jobs. Skills given as a
// sequence are joined into the free-text form.
func DecodeJobs(rows []map[string]any) ([]Job, error) {
	jobs := make([]Job, 0, len(rows))
	for idx, row := range rows {
		var job Job
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			DecodeHook:       joinSequenceHook,
			WeaklyTypedInput: true,
			Result:           &job,
		})
		if err != nil {
			return nil, err
		}
		if err := decoder.Decode(normalizeKeys(row)); err != nil {
			return nil, fmt.Errorf("decode job %d: %w", idx, err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// normalizeKeys maps header-style keys such as "Posted On" to field keys.
func normalizeKeys(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for key, value := range row {
		k := strings.ToLower(strings.TrimSpace(key))
		k = strings.ReplaceAll(k, " ", "_")
		out[k] = value
	}
	return out
}

func joinSequenceHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.String || from.Kind() != reflect.Slice {
		return data, nil
	}
	items := reflect.ValueOf(data)
	parts := make([]string, 0, items.Len())
	for i := 0; i < items.Len(); i++ {
		part := strings.TrimSpace(fmt.Sprintf("%v", items.Index(i).Interface()))
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ", "), nil
}
