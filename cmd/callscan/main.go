// Command callscan runs the call analysis engine over a recorded transcript
// and prints the result, for debugging heuristics offline.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/dealsignal/call-analysis/internal/analysis"
)

type transcriptFile struct {
	MeetingID string           `json:"meetingId,omitempty"`
	Chunks    []analysis.Chunk `json:"chunks"`
}

var (
	flagMeetingID   string
	flagSensitivity float64
	flagCoaching    float64
	flagNowMs       int64
	flagWindowMs    int64
	flagJSON        bool
)

var rootCmd = &cobra.Command{
	Use:   "callscan <transcript.json>",
	Short: "Analyze a recorded call transcript",
	Long: `callscan runs the heuristic call analysis engine over a transcript file
and prints metrics, risk flags, coaching suggestions, and the call summary.

The transcript file is either a JSON array of chunks or an object with a
"chunks" field. Chunks use the same shape as the realtime API.`,
	Args: cobra.ExactArgs(1),
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVar(&flagMeetingID, "meeting-id", "", "meeting id to stamp on the result (defaults to the file's meetingId)")
	rootCmd.Flags().Float64Var(&flagSensitivity, "sensitivity", 50, "risk sensitivity knob, 0-100")
	rootCmd.Flags().Float64Var(&flagCoaching, "coaching", 40, "coaching aggressiveness knob, 0-100")
	rootCmd.Flags().Int64Var(&flagNowMs, "now-ms", 0, "analysis clock in ms (defaults to the last utterance end)")
	rootCmd.Flags().Int64Var(&flagWindowMs, "window-ms", analysis.DefaultWindowMs, "trailing window evaluated, in ms")
	rootCmd.Flags().BoolVar(&flagJSON, "json", false, "print the raw result as JSON")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read transcript: %w", err)
	}

	var file transcriptFile
	if err := json.Unmarshal(raw, &file); err != nil {
		// Fall back to a bare chunk array.
		if arrErr := json.Unmarshal(raw, &file.Chunks); arrErr != nil {
			return fmt.Errorf("failed to parse transcript: %w", err)
		}
	}
	if len(file.Chunks) == 0 {
		return fmt.Errorf("transcript contains no chunks")
	}

	meetingID := flagMeetingID
	if meetingID == "" {
		meetingID = file.MeetingID
	}
	if meetingID == "" {
		meetingID = "local"
	}

	req := analysis.Request{
		MeetingID:              meetingID,
		Chunks:                 file.Chunks,
		Sensitivity:            flagSensitivity,
		CoachingAggressiveness: flagCoaching,
	}
	if cmd.Flags().Changed("now-ms") {
		req.NowMs = &flagNowMs
	}

	engine := analysis.New(analysis.Config{WindowMs: flagWindowMs})
	result := engine.Build(req)

	if flagJSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}

	printResult(cmd, result)
	return nil
}

func printResult(cmd *cobra.Command, result analysis.Result) {
	out := cmd.OutOrStdout()
	m := result.Metrics

	metrics := table.NewWriter()
	metrics.SetOutputMirror(out)
	metrics.SetTitle("Metrics (%s)", m.MeetingID)
	metrics.AppendRows([]table.Row{
		{"Window", fmt.Sprintf("%dms - %dms", m.WindowTsStartMs, m.WindowTsEndMs)},
		{"Call health", fmt.Sprintf("%.1f (conf %.2f)", m.CallHealth, m.CallHealthConfidence)},
		{"Client valence", fmt.Sprintf("%.2f (conf %.2f)", m.ClientValence, m.ClientValenceConfidence)},
		{"Client engagement", fmt.Sprintf("%.2f (conf %.2f)", m.ClientEngagement, m.ClientEngagementConfidence)},
		{"Tone confidence", fmt.Sprintf("%.2f", m.ToneConfidence)},
		{"Talk split", fmt.Sprintf("client %.1f%% / sales %.1f%%", m.TalkDynamics.TalkRatioClientPct, m.TalkDynamics.TalkRatioSalesPct)},
		{"Pace (wpm)", fmt.Sprintf("client %.0f / sales %.0f", m.TalkDynamics.PaceWpmClient, m.TalkDynamics.PaceWpmSales)},
	})
	metrics.Render()

	if len(m.RiskFlags) > 0 {
		fmt.Fprintf(out, "Risks:")
		for _, flag := range m.RiskFlags {
			fmt.Fprintf(out, " %s", flag)
		}
		fmt.Fprintln(out)
	}

	if len(result.Insights) > 0 {
		insights := table.NewWriter()
		insights.SetOutputMirror(out)
		insights.SetTitle("Insights")
		insights.AppendHeader(table.Row{"Severity", "Title", "Detail"})
		for _, ins := range result.Insights {
			insights.AppendRow(table.Row{ins.Severity, ins.Title, ins.Detail})
		}
		insights.Render()
	}

	if len(result.Coach.NextBestSay) > 0 {
		coach := table.NewWriter()
		coach.SetOutputMirror(out)
		coach.SetTitle("Coaching")
		coach.AppendHeader(table.Row{"Intent", "Suggestion", "Conf"})
		for _, s := range result.Coach.NextBestSay {
			coach.AppendRow(table.Row{s.Intent, s.Text, fmt.Sprintf("%.2f", s.Confidence)})
		}
		coach.Render()
	}

	if len(result.Coach.NextQuestions) > 0 {
		questions := table.NewWriter()
		questions.SetOutputMirror(out)
		questions.SetTitle("Next Questions")
		questions.AppendHeader(table.Row{"Intent", "Question"})
		for _, q := range result.Coach.NextQuestions {
			questions.AppendRow(table.Row{q.Intent, q.Text})
		}
		questions.Render()
	}

	if len(result.Summary.QuestionFollowUps) > 0 {
		followUps := table.NewWriter()
		followUps.SetOutputMirror(out)
		followUps.SetTitle("Question Follow-ups")
		followUps.AppendHeader(table.Row{"Status", "Question"})
		for _, f := range result.Summary.QuestionFollowUps {
			followUps.AppendRow(table.Row{f.Status, f.QuestionText})
		}
		followUps.Render()
	}

	fmt.Fprintf(out, "\n%s [%s]\n", result.Summary.Headline, result.Summary.OverallAssessment)
	for _, s := range result.Summary.Strengths {
		fmt.Fprintf(out, "  + %s\n", s)
	}
	for _, miss := range result.Summary.Misses {
		fmt.Fprintf(out, "  - %s\n", miss)
	}
	for _, action := range result.Summary.ImmediateActions {
		fmt.Fprintf(out, "  > %s\n", action)
	}
}
