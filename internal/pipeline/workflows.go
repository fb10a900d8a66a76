package pipeline

import (
	"fmt"
	"slices"

	"github.com/spigell/smart-applier/internal/workflow"
)

// Workflow names.
const (
	WorkflowResume            = "resume"
	WorkflowSkillGap          = "skill-gap"
	WorkflowExternalJD        = "external-jd"
	WorkflowJobScraper        = "job-scraper"
	WorkflowTailorFromMatched = "tailor-from-matched"
	WorkflowCustomJDSkillGap  = "custom-jd-skill-gap"
)

type definition struct {
	description string
	stages      func(Deps, Options) []namedStage
}

type namedStage struct {
	name  string
	stage workflow.Stage
}

var definitions = map[string]definition{
	WorkflowResume: {
		description: "render a resume from the stored profile",
		stages: func(d Deps, _ Options) []namedStage {
			return []namedStage{
				{StageLoadProfile, NewLoadProfile(d)},
				{StageResume, NewResume(d)},
			}
		},
	},
	WorkflowSkillGap: {
		description: "scrape jobs and recommend resources for missing skills",
		stages: func(d Deps, o Options) []namedStage {
			return []namedStage{
				{StageLoadProfile, NewLoadProfile(d)},
				{StageScrapeJobs, NewScrapeJobs(d, o)},
				{StageSkillGap, NewSkillGap(d)},
			}
		},
	},
	WorkflowExternalJD: {
		description: "tailor a resume to a pasted job description",
		stages: func(d Deps, _ Options) []namedStage {
			return []namedStage{
				{StageLoadProfile, NewLoadProfile(d)},
				{StageCleanJD, NewCleanJD(d)},
				{StageTailorResumeFromJD, NewTailorResumeFromJD(d)},
			}
		},
	},
	WorkflowJobScraper: {
		description: "scrape, match, analyse skill gaps and tailor to the best match",
		stages: func(d Deps, o Options) []namedStage {
			return append(matchedStages(d, o),
				namedStage{StageSkillGap, NewSkillGap(d)},
				namedStage{StageTailorResume, NewTailorResume(d)},
			)
		},
	},
	WorkflowTailorFromMatched: {
		description: "scrape, match and tailor to the best match",
		stages: func(d Deps, o Options) []namedStage {
			return append(matchedStages(d, o), namedStage{StageTailorResume, NewTailorResume(d)})
		},
	},
	WorkflowCustomJDSkillGap: {
		description: "recommend resources for the skills a job description asks for",
		stages: func(d Deps, _ Options) []namedStage {
			return []namedStage{
				{StageLoadProfile, NewLoadProfile(d)},
				{StageJDSkillGap, NewJDSkillGap(d)},
			}
		},
	},
}

func matchedStages(d Deps, o Options) []namedStage {
	return []namedStage{
		{StageLoadProfile, NewLoadProfile(d)},
		{StageScrapeJobs, NewScrapeJobs(d, o)},
		{StageEmbedProfile, NewEmbedProfile(d)},
		{StageEmbedJobs, NewEmbedJobs(d)},
		{StageMatchJobs, NewMatchJobs(d, o)},
	}
}

// Names returns the pre-defined workflow names in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(definitions))
	for name := range definitions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Description returns a one-line summary of the named workflow.
func Description(name string) string {
	return definitions[name].description
}

// Graph assembles the named workflow as an uncompiled chain.
func Graph(name string, deps Deps, opts Options) (*workflow.Graph, error) {
	def, ok := definitions[name]
	if !ok {
		return nil, fmt.Errorf("unknown workflow %q", name)
	}

	stages := def.stages(deps, opts)
	g := workflow.New(name)
	for i, s := range stages {
		g.AddStage(s.name, s.stage)
		if i > 0 {
			g.AddEdge(stages[i-1].name, s.name)
		}
	}
	if len(stages) > 0 {
		g.SetEntry(stages[0].name)
		g.AddEdge(stages[len(stages)-1].name, workflow.End)
	}
	return g, nil
}

// Build assembles and compiles the named workflow. Every call produces an
// independent compiled workflow.
func Build(name string, deps Deps, opts Options) (*workflow.Compiled, error) {
	g, err := Graph(name, deps, opts)
	if err != nil {
		return nil, err
	}
	return g.Compile(workflow.WithLogger(deps.Logger))
}
