package pipeline

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/smart-applier/internal/ai"
	"github.com/spigell/smart-applier/internal/ai/hashembed"
	"github.com/spigell/smart-applier/internal/keywords"
	"github.com/spigell/smart-applier/internal/matching"
	"github.com/spigell/smart-applier/internal/model"
	"github.com/spigell/smart-applier/internal/resume"
	"github.com/spigell/smart-applier/internal/skillgap"
	"github.com/spigell/smart-applier/internal/state"
	"github.com/spigell/smart-applier/internal/storage"
	"github.com/spigell/smart-applier/internal/tailor"
	"github.com/spigell/smart-applier/internal/workflow"
)

type memStore struct {
	mu       sync.Mutex
	profiles map[string]*model.Profile
	jobs     []model.Job
	matches  map[string][]model.MatchedJob
	resumes  []model.ResumeMeta
}

func newMemStore(profiles ...*model.Profile) *memStore {
	s := &memStore{profiles: map[string]*model.Profile{}, matches: map[string][]model.MatchedJob{}}
	for _, p := range profiles {
		s.profiles[p.UserID] = p.Clone()
	}
	return s
}

func (s *memStore) SaveProfile(_ context.Context, p *model.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p.Clone()
	return nil
}

func (s *memStore) LoadProfile(_ context.Context, userID string) (*model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", userID, storage.ErrNotFound)
	}
	return p.Clone(), nil
}

func (s *memStore) ListProfiles(context.Context) ([]model.ProfileMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ProfileMeta, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, model.ProfileMeta{UserID: p.UserID, Name: p.Personal.Name})
	}
	return out, nil
}

func (s *memStore) BulkInsertJobs(_ context.Context, jobs []model.Job) ([]model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Job, len(jobs))
	for i, job := range jobs {
		job.ID = int64(len(s.jobs) + 1)
		s.jobs = append(s.jobs, job)
		out[i] = job
	}
	return out, nil
}

func (s *memStore) RecentJobs(_ context.Context, limit int) ([]model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit > len(s.jobs) {
		limit = len(s.jobs)
	}
	return append([]model.Job(nil), s.jobs[:limit]...), nil
}

func (s *memStore) SaveMatches(_ context.Context, userID string, matches []model.MatchedJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[userID] = append(s.matches[userID], matches...)
	return nil
}

func (s *memStore) TopMatched(_ context.Context, userID string, _ int) ([]model.MatchedJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matches[userID], nil
}

func (s *memStore) SaveResume(_ context.Context, userID, kind string, payload []byte) (model.ResumeMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta := model.ResumeMeta{ID: fmt.Sprintf("r%d", len(s.resumes)+1), UserID: userID, Type: kind, Size: len(payload)}
	s.resumes = append(s.resumes, meta)
	return meta, nil
}

func (s *memStore) ListResumes(context.Context, string) ([]model.ResumeMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ResumeMeta(nil), s.resumes...), nil
}

type stubScraper struct {
	jobs []model.Job
	err  error
}

func (s stubScraper) Scrape(context.Context, string, int) ([]model.Job, error) {
	return append([]model.Job(nil), s.jobs...), s.err
}

type stubGenerator struct {
	keywords []string
	refined  map[string]any
	err      error
}

func (g stubGenerator) ExtractKeywords(context.Context, string) ([]string, error) {
	return g.keywords, g.err
}

func (g stubGenerator) RefineProfile(context.Context, ai.RefineRequest) (map[string]any, error) {
	return g.refined, g.err
}

func testProfile() *model.Profile {
	return &model.Profile{
		UserID:   "alice",
		Personal: model.Personal{Name: "Alice"},
		Summary:  "Data engineer",
		Skills:   map[string][]string{"languages": {"Python", "SQL"}},
	}
}

func testJobs() []model.Job {
	return []model.Job{
		{Title: "Frontend Developer", Company: "Pixel", Skills: "JavaScript, React, CSS"},
		{Title: "Data Engineer", Company: "Acme", Skills: "Python, SQL, Docker"},
	}
}

func testDeps(t *testing.T, store *memStore, scraper Scraper, gen stubGenerator, logger *zap.Logger) Deps {
	t.Helper()

	renderer, err := resume.NewRenderer("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tl, err := tailor.New(gen, logger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deps := Deps{
		Scraper:   scraper,
		Matcher:   matching.NewEngine(hashembed.New(512), matching.WithConcurrency(2)),
		SkillGap:  skillgap.NewEngine(skillgap.NewCatalog(skillgap.CatalogOptions{SearchTemplates: []string{}}), logger),
		Extractor: keywords.NewExtractor(gen, logger),
		Tailor:    tl,
		Renderer:  renderer,
		Logger:    logger,
	}
	if store != nil {
		deps.Profiles = store
		deps.Jobs = store
		deps.Resumes = store
	}
	return deps
}

func TestWorkflowsCompile(t *testing.T) {
	expected := map[string][]string{
		WorkflowResume:     {StageLoadProfile, StageResume},
		WorkflowSkillGap:   {StageLoadProfile, StageScrapeJobs, StageSkillGap},
		WorkflowExternalJD: {StageLoadProfile, StageCleanJD, StageTailorResumeFromJD},
		WorkflowJobScraper: {
			StageLoadProfile, StageScrapeJobs, StageEmbedProfile, StageEmbedJobs,
			StageMatchJobs, StageSkillGap, StageTailorResume,
		},
		WorkflowTailorFromMatched: {
			StageLoadProfile, StageScrapeJobs, StageEmbedProfile, StageEmbedJobs,
			StageMatchJobs, StageTailorResume,
		},
		WorkflowCustomJDSkillGap: {StageLoadProfile, StageJDSkillGap},
	}

	names := Names()
	if len(names) != len(expected) {
		t.Fatalf("expected %d workflows, got %v", len(expected), names)
	}

	for _, name := range names {
		compiled, err := Build(name, Deps{}, Options{})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if !reflect.DeepEqual(compiled.Stages(), expected[name]) {
			t.Fatalf("%s: unexpected stages %v", name, compiled.Stages())
		}
		if Description(name) == "" {
			t.Fatalf("%s: missing description", name)
		}
	}

	if _, err := Build("nope", Deps{}, Options{}); err == nil {
		t.Fatal("expected error for unknown workflow")
	}
}

func TestDescribeReportsStageContracts(t *testing.T) {
	compiled, err := Build(WorkflowJobScraper, Deps{}, Options{Query: "data engineer", Pages: 2, TopK: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	statuses := compiled.Describe()
	byName := map[string]workflow.Status{}
	for _, status := range statuses {
		byName[status.Name] = status
	}

	match := byName[StageMatchJobs]
	if match.Details["top_k"] != "3" || match.Details["writes"] != state.FieldMatchedJobs {
		t.Fatalf("unexpected match_jobs details: %v", match.Details)
	}
	if byName[StageScrapeJobs].Details["query"] != "data engineer" {
		t.Fatalf("unexpected scrape_jobs details: %v", byName[StageScrapeJobs].Details)
	}
	if byName[StageTailorResume].Next != workflow.End {
		t.Fatalf("expected tailor_resume to be last, got next %q", byName[StageTailorResume].Next)
	}
}

func TestJobScraperWorkflow(t *testing.T) {
	store := newMemStore(testProfile())
	gen := stubGenerator{refined: map[string]any{
		"personal": map[string]any{"name": "Alice"},
		"summary":  "Data engineer working with Python and SQL",
		"skills":   map[string]any{"languages": []any{"Python", "SQL"}},
	}}
	deps := testDeps(t, store, stubScraper{jobs: testJobs()}, gen, nil)

	compiled, err := Build(WorkflowJobScraper, deps, Options{Query: "engineer", TopK: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := compiled.Invoke(context.Background(), state.Record{UserID: "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(out.ScrapedJobs) != 2 || out.ScrapedJobs[0].ID == 0 {
		t.Fatalf("expected persisted jobs with ids, got %+v", out.ScrapedJobs)
	}
	if len(out.JobEmbeddings) != len(out.ScrapedJobs) {
		t.Fatalf("embeddings not aligned with jobs")
	}
	if len(out.MatchedJobs) != 2 || out.MatchedJobs[0].Job.Title != "Data Engineer" {
		t.Fatalf("unexpected matches: %+v", out.MatchedJobs)
	}
	if out.MatchedJobs[0].Score < out.MatchedJobs[1].Score {
		t.Fatalf("matches not sorted by score")
	}
	if len(store.matches["alice"]) != 2 {
		t.Fatalf("expected matches to be persisted, got %d", len(store.matches["alice"]))
	}

	for _, skill := range []string{"docker", "javascript", "react", "css"} {
		if _, ok := out.SkillGapRecommendations[skill]; !ok {
			t.Fatalf("expected %q in recommendations, got %v", skill, out.SkillGapRecommendations)
		}
	}
	for _, skill := range []string{"python", "sql"} {
		if _, ok := out.SkillGapRecommendations[skill]; ok {
			t.Fatalf("profile skill %q reported as missing", skill)
		}
	}

	if out.TailoredProfile == nil || out.TailoredProfile.Summary != "Data engineer working with Python and SQL" {
		t.Fatalf("unexpected tailored profile: %+v", out.TailoredProfile)
	}
	if out.TailoredProfile.UserID != "alice" {
		t.Fatalf("tailored profile lost user id")
	}
	if !strings.Contains(string(out.TailoredResumeBytes), "Alice") {
		t.Fatalf("unexpected tailored resume: %s", out.TailoredResumeBytes)
	}
	if len(store.resumes) != 1 || store.resumes[0].Type != model.ResumeTailored {
		t.Fatalf("unexpected stored resumes: %+v", store.resumes)
	}
}

func TestEmptyScrapeIsValid(t *testing.T) {
	store := newMemStore(testProfile())
	deps := testDeps(t, store, stubScraper{}, stubGenerator{}, nil)

	for _, name := range []string{WorkflowJobScraper, WorkflowSkillGap} {
		compiled, err := Build(name, deps, Options{})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}

		out, err := compiled.Invoke(context.Background(), state.Record{UserID: "alice"})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if out.ScrapedJobs == nil || len(out.ScrapedJobs) != 0 {
			t.Fatalf("%s: expected empty scraped jobs, got %#v", name, out.ScrapedJobs)
		}
		if out.SkillGapRecommendations == nil || len(out.SkillGapRecommendations) != 0 {
			t.Fatalf("%s: expected empty recommendations, got %#v", name, out.SkillGapRecommendations)
		}
		if name == WorkflowJobScraper {
			if out.MatchedJobs == nil || len(out.MatchedJobs) != 0 {
				t.Fatalf("expected empty matches, got %#v", out.MatchedJobs)
			}
			if out.TailoredProfile != nil || out.TailoredResumeBytes != nil {
				t.Fatalf("expected tailoring to be skipped")
			}
		}
	}
}

func TestMissingProfileFailsLoadStage(t *testing.T) {
	deps := testDeps(t, newMemStore(), stubScraper{}, stubGenerator{}, nil)

	compiled, err := Build(WorkflowResume, deps, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = compiled.Invoke(context.Background(), state.Record{UserID: "ghost"})
	var stageErr *workflow.StageExecutionError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected stage execution error, got %v", err)
	}
	if stageErr.Stage != StageLoadProfile {
		t.Fatalf("unexpected failing stage %q", stageErr.Stage)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
	if !reflect.DeepEqual(stageErr.Partial.Fields(), []string{state.FieldUserID}) {
		t.Fatalf("unexpected partial state: %v", stageErr.Partial.Fields())
	}
}

func TestScrapeFailureKeepsEarlierOutputs(t *testing.T) {
	deps := testDeps(t, newMemStore(testProfile()), stubScraper{err: errors.New("site down")}, stubGenerator{}, nil)

	compiled, err := Build(WorkflowSkillGap, deps, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = compiled.Invoke(context.Background(), state.Record{UserID: "alice"})
	var stageErr *workflow.StageExecutionError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageScrapeJobs {
		t.Fatalf("expected scrape_jobs failure, got %v", err)
	}
	if stageErr.Partial.Profile == nil || stageErr.Partial.ScrapedJobs != nil {
		t.Fatalf("unexpected partial state: %v", stageErr.Partial.Fields())
	}
}

func TestResumeWorkflowStoresGeneratedResume(t *testing.T) {
	store := newMemStore(testProfile())
	compiled, err := Build(WorkflowResume, testDeps(t, store, nil, stubGenerator{}, nil), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := compiled.Invoke(context.Background(), state.Record{UserID: "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(out.ResumeBytes), "Python, SQL") {
		t.Fatalf("unexpected resume: %s", out.ResumeBytes)
	}
	if len(store.resumes) != 1 || store.resumes[0].Type != model.ResumeGenerated || store.resumes[0].Size != len(out.ResumeBytes) {
		t.Fatalf("unexpected stored resumes: %+v", store.resumes)
	}
}

func TestExternalJDFallsBackWhenGeneratorFails(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	store := newMemStore(testProfile())
	deps := testDeps(t, store, nil, stubGenerator{err: errors.New("quota exceeded")}, zap.New(core))

	compiled, err := Build(WorkflowExternalJD, deps, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := compiled.Invoke(context.Background(), state.Record{
		UserID: "alice",
		JDText: state.Text("Python and Kubernetes engineer"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(out.JDKeywords, []string{"Python", "Kubernetes", "engineer"}) {
		t.Fatalf("unexpected fallback keywords: %v", out.JDKeywords)
	}
	if !reflect.DeepEqual(out.TailoredProfile, testProfile()) {
		t.Fatalf("expected the original profile, got %+v", out.TailoredProfile)
	}
	if len(out.TailoredResumeBytes) == 0 {
		t.Fatal("expected a tailored resume")
	}
	if logs.Len() != 2 {
		t.Fatalf("expected warnings for extraction and refinement, got %d", logs.Len())
	}
}

func TestCustomJDSkillGap(t *testing.T) {
	gen := stubGenerator{keywords: []string{"Python", "SQL", "Docker", "Kubernetes"}}
	deps := testDeps(t, newMemStore(testProfile()), nil, gen, nil)

	compiled, err := Build(WorkflowCustomJDSkillGap, deps, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := compiled.Invoke(context.Background(), state.Record{
		UserID: "alice",
		JDText: state.Text("Python, SQL, Docker, Kubernetes"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(out.SkillGapRecommendations) != 2 {
		t.Fatalf("unexpected recommendations: %v", out.SkillGapRecommendations)
	}
	for _, skill := range []string{"docker", "kubernetes"} {
		if len(out.SkillGapRecommendations[skill]) == 0 {
			t.Fatalf("expected curated resources for %q", skill)
		}
	}
	if !reflect.DeepEqual(out.JDKeywords, gen.keywords) {
		t.Fatalf("unexpected keywords: %v", out.JDKeywords)
	}
}

func TestJDSkillGapRequiresKeywordsOrText(t *testing.T) {
	stage := NewJDSkillGap(Deps{})
	_, err := stage.Run(context.Background(), state.Record{UserID: "alice", Profile: testProfile()})
	if !errors.Is(err, ErrMissingInput) {
		t.Fatalf("expected missing input error, got %v", err)
	}

	out, err := stage.Run(context.Background(), state.Record{
		UserID:     "alice",
		Profile:    testProfile(),
		JDKeywords: []string{"python", "go"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := out.SkillGapRecommendations["go"]; !ok || len(out.SkillGapRecommendations) != 1 {
		t.Fatalf("unexpected recommendations: %v", out.SkillGapRecommendations)
	}
}

func TestStagesReportMissingInput(t *testing.T) {
	deps := testDeps(t, nil, nil, stubGenerator{}, nil)
	stages := map[string]workflow.Stage{
		StageEmbedProfile:       NewEmbedProfile(deps),
		StageEmbedJobs:          NewEmbedJobs(deps),
		StageMatchJobs:          NewMatchJobs(deps, Options{}),
		StageSkillGap:           NewSkillGap(deps),
		StageResume:             NewResume(deps),
		StageTailorResume:       NewTailorResume(deps),
		StageCleanJD:            NewCleanJD(deps),
		StageTailorResumeFromJD: NewTailorResumeFromJD(deps),
	}

	for name, stage := range stages {
		_, err := stage.Run(context.Background(), state.Record{UserID: "alice"})
		if !errors.Is(err, ErrMissingInput) {
			t.Fatalf("%s: expected missing input error, got %v", name, err)
		}
	}
}

func TestRepeatedInvocationsAreDeterministic(t *testing.T) {
	gen := stubGenerator{refined: map[string]any{
		"personal": map[string]any{"name": "Alice"},
		"skills":   map[string]any{"languages": []any{"Python", "SQL", "Docker"}},
	}}
	deps := testDeps(t, nil, stubScraper{jobs: testJobs()}, gen, nil)
	deps.Profiles = newMemStore(testProfile())

	compiled, err := Build(WorkflowJobScraper, deps, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first, err := compiled.Invoke(context.Background(), state.Record{UserID: "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := compiled.Invoke(context.Background(), state.Record{UserID: "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("invocations differ:\n%+v\n%+v", first, second)
	}
}
