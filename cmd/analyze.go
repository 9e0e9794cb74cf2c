package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/analysis"
	"github.com/spigell/resume-matcher/internal/errs"
	"github.com/spigell/resume-matcher/internal/filtering"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/utils"
)

const (
	PromptMatches      = "Show matched jobs"
	PromptPlan         = "Show learning plan"
	PromptEvidence     = "Show evidence"
	PromptFilters      = "Show filters"
	PromptReportToFile = "Dump report to file"
	PromptPrint        = "Print report"
	PromptExit         = "Exit"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptMatches, PromptPlan, PromptEvidence, PromptFilters, PromptReportToFile, PromptPrint, PromptExit},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file|->",
	Short: "Analyze a plain-text resume against the job catalog",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		analyze(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().BoolP("auto-approve", "y", false, "print the report as JSON without the interactive menu")
}

func analyze(cmd *cobra.Command, path string) {
	ctx := context.Background()

	logger, config := setup()

	text, err := readDocument(path, cmd.InOrStdin(), config.Matching.MaxQueryChars)
	if err != nil {
		logger.Fatal("reading the document", zap.String("path", path), zap.Error(err))
	}

	c, err := buildComponents(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the engine", zap.Error(err))
	}

	report, err := c.service.Analyze(ctx, text)
	if err != nil {
		fatalAnalysis(logger, err)
	}

	if cmd.Flag("auto-approve").Value.String() == "true" {
		if err := printJSON(cmd.OutOrStdout(), report); err != nil {
			logger.Fatal("printing the report", zap.Error(err))
		}
		return
	}

	view := &reportView{report: report, filters: c.service}
	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := view.handle(action, cmd.OutOrStdout(), logger); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

// setup builds the logger and the validated config shared by every command.
func setup() (*zap.Logger, *Config) {
	logger, err := logger.Build(logger.Options{
		JSON:   viper.GetBool("json"),
		Debug:  viper.GetBool("debug"),
		Output: viper.GetString("log-file"),
	})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the resume-matcher", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	return logger, config
}

func fatalAnalysis(logger *zap.Logger, err error) {
	switch errs.KindOf(err) {
	case errs.KindInput:
		logger.Fatal("nothing to analyze", zap.Error(err))
	case errs.KindCapability:
		logger.Fatal("matching unavailable", zap.Error(err),
			zap.String("hint", "set matching.degraded-mode to lexical to rank by keywords when the encoder fails"),
		)
	default:
		logger.Fatal("analysis failed", zap.Error(err))
	}
}

// readDocument reads path, or stdin when path is "-", keeping at most limit runes.
func readDocument(path string, stdin io.Reader, limit int) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", err
	}

	return utils.Clip(string(data), limit), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type reportView struct {
	report  *analysis.Report
	filters *analysis.Service
}

func (v *reportView) handle(action string, out io.Writer, log *zap.Logger) error {
	r := v.report
	switch action {
	case PromptMatches:
		for i, m := range r.MatchedJobs {
			fmt.Fprintf(out, "%d. %s / %s  score=%.3f  missing=%s\n",
				i+1, m.Title, m.Company, m.Score, strings.Join(m.MissingSkills, ", "))
		}
		if r.Degraded {
			log.Warn("ranking is keyword-only", zap.String("reason", r.DegradedReason))
		}
		return nil
	case PromptPlan:
		for _, e := range r.LearningPlan {
			fmt.Fprintf(out, "week %d: %s (%s)\n", e.Week, e.Topic, e.Time)
			for _, res := range e.Resources {
				fmt.Fprintf(out, "    %s  %s\n", res.Title, res.URL)
			}
			fmt.Fprintf(out, "    project: %s  %s\n", e.Project.Title, e.Project.URL)
		}
		return nil
	case PromptEvidence:
		pretty, _ := json.MarshalIndent(r.EvidenceBySkill, "", "  ")
		log.Info(string(pretty), zap.Int("skills count", len(r.EvidenceBySkill)))
		return nil
	case PromptFilters:
		pretty, _ := json.MarshalIndent(filtering.Describe(v.filters.Filters()), "", "  ")
		log.Info(string(pretty))
		return nil
	case PromptReportToFile:
		filename, err := r.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump report to file: %w", err)
		}
		log.Info("dumping report to file", zap.String("filename", filename))
		return nil
	case PromptPrint:
		return printJSON(out, r)
	case PromptExit:
		log.Info("exiting", zap.String("reason", "got exit from prompt"), logger.Stage("cli"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}
