package catalog

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/resume-matcher/internal/errs"
)

// DefaultMaxJobs bounds the loaded job catalog.
const DefaultMaxJobs = 200

// Unknown is shown for missing job attributes.
const Unknown = "Unknown"

// Job is a single posting. A job is identified by its position in the loaded catalog.
type Job struct {
	Title          string   `json:"title"`
	Company        string   `json:"company,omitempty"`
	Description    string   `json:"description"`
	RequiredSkills []string `json:"requiredSkills"`
	SalaryRange    string   `json:"salaryRange,omitempty"`
}

// Requires reports whether skill is listed in the job's required skills.
func (j *Job) Requires(skill string) bool {
	for _, s := range j.RequiredSkills {
		if s == skill {
			return true
		}
	}
	return false
}

// CompanyOrUnknown returns the company, or Unknown when it is not set.
func (j *Job) CompanyOrUnknown() string {
	return orUnknown(j.Company)
}

// TitleOrUnknown returns the title, or Unknown when it is not set.
func (j *Job) TitleOrUnknown() string {
	return orUnknown(j.Title)
}

// SalaryOrUnknown returns the salary range, or Unknown when it is not set.
func (j *Job) SalaryOrUnknown() string {
	return orUnknown(j.SalaryRange)
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return Unknown
	}
	return s
}

// LoadJobs reads the job catalog, keeping at most maxJobs entries in file order.
// A non-positive maxJobs keeps every job.
func LoadJobs(path string, maxJobs int) ([]Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Config(path, err)
	}

	if err := validateDocument(jobsSchema, data); err != nil {
		return nil, errs.Config(path, err)
	}

	var items []any
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, errs.Config(path, err)
	}

	if maxJobs > 0 && len(items) > maxJobs {
		items = items[:maxJobs]
	}

	var jobs []Job
	if err := decodeStrict(items, &jobs); err != nil {
		return nil, errs.Config(path, err)
	}

	for i := range jobs {
		jobs[i].RequiredSkills = dedupe(jobs[i].RequiredSkills)
	}

	return jobs, nil
}

// decodeStrict decodes generic JSON values into result using json tag names.
// Keys without a matching field are an error.
func decodeStrict(input, result any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      result,
		TagName:     "json",
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
