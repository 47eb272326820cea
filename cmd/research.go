package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Kelmain/deep-search/config"
	agentcore "github.com/Kelmain/deep-search/internal/agent/core"
	agenttele "github.com/Kelmain/deep-search/internal/agent/telemetry"
	"github.com/Kelmain/deep-search/tools/websearch"
)

func researchCMD() *cobra.Command {
	var cfgPath string
	var skipClarify bool
	var research = &cobra.Command{
		Use:   "research [query]",
		Short: "Run a one-shot research query",
		Long:  "Runs the full research pipeline for a query. Prints progress to stderr and the final markdown report to stdout.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			query := args[0]

			tele := agenttele.NewTelemetry(cfg.Telemetry)
			llm, err := agentcore.NewLLMProvider(cfg.LLM)
			if err != nil {
				return err
			}
			web, err := websearch.NewWebSearcher(websearch.Provider(cfg.Search.Provider), searchAPIKey(cfg))
			if err != nil {
				return err
			}
			logger := log.New(os.Stderr, "[ORCHESTRATOR] ", log.LstdFlags)
			orch := agentcore.NewOrchestrator(cfg, logger, tele, llm, web)

			ctx := cmd.Context()
			var questions, answers []string
			if !skipClarify {
				questions, err = orch.GetClarificationQuestions(ctx, query)
				if err != nil {
					return err
				}
				answers = readAnswers(cmd, questions)
			}

			events, runID, err := orch.Run(ctx, query, questions, answers)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "run %s started\n", runID)

			for ev := range events {
				switch ev.Kind {
				case agentcore.EventProgress:
					fmt.Fprintln(cmd.ErrOrStderr(), ev.Message)
				case agentcore.EventError:
					return ev.Err
				case agentcore.EventReport:
					fmt.Fprintf(cmd.ErrOrStderr(), "\nSummary: %s\n", ev.Report.ExecutiveSummary)
					for _, insight := range ev.Report.KeyInsights {
						fmt.Fprintf(cmd.ErrOrStderr(), "- %s\n", insight)
					}
					fmt.Fprintln(cmd.OutOrStdout(), ev.Report.MarkdownReport)
				}
			}
			return nil
		},
	}
	research.Flags().BoolVar(&skipClarify, "skip-clarify", false, "skip clarification questions")
	research.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return research
}

// readAnswers prompts on stderr and reads one answer per question from
// stdin. A blank line skips that question.
func readAnswers(cmd *cobra.Command, questions []string) []string {
	if len(questions) == 0 {
		return nil
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "Answer the following to sharpen the research (blank line to skip):")
	reader := bufio.NewReader(cmd.InOrStdin())
	answers := make([]string, 0, len(questions))
	for _, q := range questions {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s\n> ", q)
		line, err := reader.ReadString('\n')
		if err != nil {
			answers = append(answers, "")
			continue
		}
		answers = append(answers, strings.TrimSpace(line))
	}
	return answers
}

func searchAPIKey(cfg *config.Config) string {
	switch cfg.Search.Provider {
	case "brave":
		return cfg.Search.BraveAPIKey
	case "serper":
		return cfg.Search.SerperAPIKey
	default:
		return ""
	}
}
