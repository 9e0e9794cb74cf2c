package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/resume-matcher/internal/catalog"
	"github.com/spigell/resume-matcher/internal/encoder"
	"github.com/spigell/resume-matcher/internal/errs"
	"github.com/spigell/resume-matcher/internal/evidence"
	"github.com/spigell/resume-matcher/internal/filtering"
	"github.com/spigell/resume-matcher/internal/matching"
	"github.com/spigell/resume-matcher/internal/metrics"
	"github.com/spigell/resume-matcher/internal/planner"
	"github.com/spigell/resume-matcher/internal/skills"
)

func newService(t *testing.T, opts Options) *Service {
	t.Helper()

	sc, err := catalog.NewSkillCatalog(map[string][]string{
		"Python":     {},
		"SQL":        {"postgres"},
		"Docker":     {"containerization"},
		"Kubernetes": {"k8s"},
	})
	require.NoError(t, err)

	cat := &catalog.Catalog{
		Skills: sc,
		Jobs: []catalog.Job{
			{Title: "Data Engineer", Company: "Acme", Description: "Python pipelines on SQL warehouses", RequiredSkills: []string{"Python", "SQL", "Docker"}},
			{Title: "Platform Engineer", Company: "Globex", Description: "Run Kubernetes and Docker platforms", RequiredSkills: []string{"Kubernetes", "Docker"}},
		},
		Learning: catalog.LearningMap{
			"Docker": {Resources: []catalog.Resource{{Title: "Docker Docs", URL: "https://docs.docker.com"}}, Time: "1 week"},
		},
	}

	ext, err := skills.NewExtractor(sc, zap.NewNop())
	require.NoError(t, err)

	m := metrics.New()
	engine := matching.New(cat, ext, encoder.NewHashing(128), nil, matching.Options{}, zap.NewNop(), m)

	svc, err := New(engine, planner.New(cat.Learning, 0, nil), evidence.New(cat.Jobs, 0, nil), opts, zap.NewNop(), m)
	require.NoError(t, err)
	return svc
}

func TestAnalyze(t *testing.T) {
	t.Parallel()

	svc := newService(t, Options{})
	text := "Built Python services. Tuned postgres queries!"

	report, err := svc.Analyze(context.Background(), text)
	require.NoError(t, err)

	assert.NotEmpty(t, report.RequestID)
	assert.Equal(t, len(text), report.ResumeChars)
	assert.Equal(t, []string{"Python", "SQL"}, report.ExtractedSkills)
	require.Len(t, report.MatchedJobs, 2)
	assert.False(t, report.Degraded)

	assert.ElementsMatch(t, []string{"Docker", "Kubernetes"}, report.MissingSkills)
	require.NotEmpty(t, report.LearningPlan)
	assert.Equal(t, report.MatchedJobs[0].MissingSkills[0], report.LearningPlan[0].Topic)

	require.Len(t, report.EvidenceBySkill, 2)
	assert.Equal(t, []string{"Built Python services"}, report.EvidenceBySkill["Python"].Resume)
	assert.Equal(t, evidence.High, report.EvidenceBySkill["Python"].Confidence)
	// Evidence matches the canonical name only, so the synonym sentence is not evidence.
	assert.Equal(t, []string{evidence.NoResumeContext}, report.EvidenceBySkill["SQL"].Resume)
}

func TestAnalyzeRejectsBlankText(t *testing.T) {
	t.Parallel()

	_, err := newService(t, Options{}).Analyze(context.Background(), " \n\t")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyDocument))
	assert.True(t, errors.Is(err, errs.ErrInput))
}

func TestAnalyzeWithoutSkills(t *testing.T) {
	t.Parallel()

	report, err := newService(t, Options{}).Analyze(context.Background(), "I enjoy gardening and chess.")
	require.NoError(t, err)
	assert.Empty(t, report.ExtractedSkills)
	assert.Len(t, report.MatchedJobs, 2)
	assert.Empty(t, report.EvidenceBySkill)
	assert.ElementsMatch(t, []string{"Docker", "Kubernetes", "Python", "SQL"}, report.MissingSkills)
}

func TestAnalyzeAppliesFilters(t *testing.T) {
	t.Parallel()

	svc := newService(t, Options{Filters: &filtering.Config{ExcludeCompanies: []string{"globex"}}})

	report, err := svc.Analyze(context.Background(), "Python and SQL")
	require.NoError(t, err)
	require.Len(t, report.MatchedJobs, 1)
	assert.Equal(t, "Acme", report.MatchedJobs[0].Company)
}

func TestAnalyzeWithFiltersConcurrently(t *testing.T) {
	t.Parallel()

	svc := newService(t, Options{Filters: &filtering.Config{
		MinimumScore:     0.01,
		ExcludeCompanies: []string{"globex"},
	}})

	var g errgroup.Group
	for range 16 {
		g.Go(func() error {
			for range 10 {
				report, err := svc.Analyze(context.Background(), "Python and SQL")
				if err != nil {
					return err
				}
				if len(report.MatchedJobs) != 1 || report.MatchedJobs[0].Company != "Acme" {
					return fmt.Errorf("unexpected matches %+v", report.MatchedJobs)
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

func TestNewRejectsInvalidFilters(t *testing.T) {
	t.Parallel()

	sc, err := catalog.NewSkillCatalog(map[string][]string{"Go": {}})
	require.NoError(t, err)
	cat := &catalog.Catalog{Skills: sc}
	ext, err := skills.NewExtractor(sc, nil)
	require.NoError(t, err)
	engine := matching.New(cat, ext, encoder.NewHashing(16), nil, matching.Options{}, nil, nil)

	_, err = New(engine, planner.New(nil, 0, nil), evidence.New(nil, 0, nil), Options{Filters: &filtering.Config{MinimumScore: 2}}, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrConfig))
}

func TestRecommend(t *testing.T) {
	t.Parallel()

	report, err := newService(t, Options{}).Recommend(context.Background(), []string{" SQL", "Python", "", "SQL"})
	require.NoError(t, err)

	assert.Equal(t, []string{"Python", "SQL"}, report.ExtractedSkills)
	assert.Equal(t, []string{"Docker", "Kubernetes"}, report.MissingSkills)
	assert.Zero(t, report.ResumeChars)

	py := report.EvidenceBySkill["Python"]
	assert.Equal(t, evidence.Low, py.Confidence)
	assert.Equal(t, []string{"Python pipelines on SQL warehouses"}, py.JD)
	assert.Len(t, report.LearningPlan, 2)
}

func TestRecommendUsesCanonicalNames(t *testing.T) {
	t.Parallel()

	report, err := newService(t, Options{}).Recommend(context.Background(), []string{"python", "KUBERNETES", "Rust"})
	require.NoError(t, err)

	assert.Equal(t, []string{"Kubernetes", "Python", "Rust"}, report.ExtractedSkills)
	assert.Equal(t, []string{"Docker", "SQL"}, report.MissingSkills)
}

func TestRecommendRejectsEmptyList(t *testing.T) {
	t.Parallel()

	_, err := newService(t, Options{}).Recommend(context.Background(), []string{" ", ""})
	assert.True(t, errors.Is(err, ErrEmptyDocument))
}

func TestReportFiles(t *testing.T) {
	t.Parallel()

	report, err := newService(t, Options{}).Analyze(context.Background(), "Docker and k8s")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, report.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, key := range []string{"requestId", "extractedSkills", "missingSkills", "matchedJobs", "evidenceBySkill", "learningPlan"} {
		assert.Contains(t, decoded, key)
	}

	tmp, err := report.DumpToTmpFile()
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(tmp) })
	assert.FileExists(t, tmp)
}
