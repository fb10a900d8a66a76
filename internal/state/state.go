// Package state defines the record threaded through a workflow invocation.
//
// Every recognized field is declared with its own type. A field is absent when
// it holds its zero value (nil for pointers, slices and maps, "" for UserID);
// an empty but non-nil slice or map is a present, empty value.
package state

import (
	"errors"
	"fmt"
	"slices"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/smart-applier/internal/model"
)

// Field names as used in serialized records and logs.
const (
	FieldUserID                  = "user_id"
	FieldProfile                 = "profile"
	FieldJDText                  = "jd_text"
	FieldJDKeywords              = "jd_keywords"
	FieldScrapedJobs             = "scraped_jobs"
	FieldMatchedJobs             = "matched_jobs"
	FieldProfileVector           = "profile_vector"
	FieldJobEmbeddings           = "job_embeddings"
	FieldSkillGapRecommendations = "skill_gap_recommendations"
	FieldResumeBytes             = "resume_bytes"
	FieldTailoredResumeBytes     = "tailored_resume_bytes"
	FieldTailoredProfile         = "tailored_profile"
)

var ErrMissingUserID = errors.New("user_id is required")

// Record is the accumulated state of one invocation. Stages return partial
// records that only set the fields they produce.
type Record struct {
	UserID                  string              `json:"user_id" mapstructure:"user_id"`
	Profile                 *model.Profile      `json:"profile" mapstructure:"profile"`
	JDText                  *string             `json:"jd_text" mapstructure:"jd_text"`
	JDKeywords              []string            `json:"jd_keywords" mapstructure:"jd_keywords"`
	ScrapedJobs             []model.Job         `json:"scraped_jobs" mapstructure:"scraped_jobs"`
	MatchedJobs             []model.MatchedJob  `json:"matched_jobs" mapstructure:"matched_jobs"`
	ProfileVector           []float32           `json:"profile_vector" mapstructure:"profile_vector"`
	JobEmbeddings           [][]float32         `json:"job_embeddings" mapstructure:"job_embeddings"`
	SkillGapRecommendations map[string][]string `json:"skill_gap_recommendations" mapstructure:"skill_gap_recommendations"`
	ResumeBytes             []byte              `json:"resume_bytes" mapstructure:"resume_bytes"`
	TailoredResumeBytes     []byte              `json:"tailored_resume_bytes" mapstructure:"tailored_resume_bytes"`
	TailoredProfile         *model.Profile      `json:"tailored_profile" mapstructure:"tailored_profile"`
}

// Text returns a pointer to s, for setting JDText.
func Text(s string) *string { return &s }

// Merge returns a new record with every field set in update written over r.
// Fields unset in update keep their value from r.
func (r Record) Merge(update Record) Record {
	out := r
	if update.UserID != "" {
		out.UserID = update.UserID
	}
	if update.Profile != nil {
		out.Profile = update.Profile
	}
	if update.JDText != nil {
		out.JDText = update.JDText
	}
	if update.JDKeywords != nil {
		out.JDKeywords = update.JDKeywords
	}
	if update.ScrapedJobs != nil {
		out.ScrapedJobs = update.ScrapedJobs
	}
	if update.MatchedJobs != nil {
		out.MatchedJobs = update.MatchedJobs
	}
	if update.ProfileVector != nil {
		out.ProfileVector = update.ProfileVector
	}
	if update.JobEmbeddings != nil {
		out.JobEmbeddings = update.JobEmbeddings
	}
	if update.SkillGapRecommendations != nil {
		out.SkillGapRecommendations = update.SkillGapRecommendations
	}
	if update.ResumeBytes != nil {
		out.ResumeBytes = update.ResumeBytes
	}
	if update.TailoredResumeBytes != nil {
		out.TailoredResumeBytes = update.TailoredResumeBytes
	}
	if update.TailoredProfile != nil {
		out.TailoredProfile = update.TailoredProfile
	}
	return out
}

// Clone returns a deep copy. Nil and empty values are preserved as they are.
func (r Record) Clone() Record {
	out := r
	out.Profile = r.Profile.Clone()
	out.TailoredProfile = r.TailoredProfile.Clone()
	if r.JDText != nil {
		out.JDText = Text(*r.JDText)
	}
	out.JDKeywords = slices.Clone(r.JDKeywords)
	out.ScrapedJobs = slices.Clone(r.ScrapedJobs)
	out.MatchedJobs = slices.Clone(r.MatchedJobs)
	out.ProfileVector = slices.Clone(r.ProfileVector)
	if r.JobEmbeddings != nil {
		out.JobEmbeddings = make([][]float32, len(r.JobEmbeddings))
		for i, vec := range r.JobEmbeddings {
			out.JobEmbeddings[i] = slices.Clone(vec)
		}
	}
	if r.SkillGapRecommendations != nil {
		out.SkillGapRecommendations = make(map[string][]string, len(r.SkillGapRecommendations))
		for skill, resources := range r.SkillGapRecommendations {
			out.SkillGapRecommendations[skill] = slices.Clone(resources)
		}
	}
	out.ResumeBytes = slices.Clone(r.ResumeBytes)
	out.TailoredResumeBytes = slices.Clone(r.TailoredResumeBytes)
	return out
}

// Fields returns the names of the set fields in declaration order.
func (r Record) Fields() []string {
	set := []struct {
		name string
		ok   bool
	}{
		{FieldUserID, r.UserID != ""},
		{FieldProfile, r.Profile != nil},
		{FieldJDText, r.JDText != nil},
		{FieldJDKeywords, r.JDKeywords != nil},
		{FieldScrapedJobs, r.ScrapedJobs != nil},
		{FieldMatchedJobs, r.MatchedJobs != nil},
		{FieldProfileVector, r.ProfileVector != nil},
		{FieldJobEmbeddings, r.JobEmbeddings != nil},
		{FieldSkillGapRecommendations, r.SkillGapRecommendations != nil},
		{FieldResumeBytes, r.ResumeBytes != nil},
		{FieldTailoredResumeBytes, r.TailoredResumeBytes != nil},
		{FieldTailoredProfile, r.TailoredProfile != nil},
	}

	fields := make([]string, 0, len(set))
	for _, f := range set {
		if f.ok {
			fields = append(fields, f.name)
		}
	}
	return fields
}

// Has reports whether the named field is set.
func (r Record) Has(field string) bool {
	return slices.Contains(r.Fields(), field)
}

// Validate checks the record invariants.
func (r Record) Validate() error {
	if r.UserID == "" {
		return ErrMissingUserID
	}
	if r.JobEmbeddings != nil && r.ScrapedJobs != nil && len(r.JobEmbeddings) != len(r.ScrapedJobs) {
		return fmt.Errorf("%s has %d entries but %s has %d",
			FieldJobEmbeddings, len(r.JobEmbeddings), FieldScrapedJobs, len(r.ScrapedJobs))
	}
	return nil
}

// Decode builds a record from loosely typed input such as a parsed JSON file.
// Unknown keys are rejected.
func Decode(input map[string]any) (Record, error) {
	var record Record
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		DecodeHook:       stringToBytesHook,
		Result:           &record,
	})
	if err != nil {
		return Record{}, err
	}

	if err := decoder.Decode(input); err != nil {
		return Record{}, fmt.Errorf("decode state: %w", err)
	}

	return record, nil
}
