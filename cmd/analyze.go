package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/prepforge/prepforge/internal/model"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [problem text]",
	Short: "Analyze a single coding problem",
	Long:  "Solves one coding problem given as an argument or read from a file, and prints the full response as JSON.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		problemFile, _ := cmd.Flags().GetString("file")
		mode, _ := cmd.Flags().GetString("mode")
		difficulty, _ := cmd.Flags().GetString("difficulty")
		sampleInput, _ := cmd.Flags().GetString("sample-input")
		sampleOutput, _ := cmd.Flags().GetString("sample-output")

		var problemText string
		switch {
		case problemFile != "":
			data, err := os.ReadFile(problemFile)
			if err != nil {
				return eris.Wrap(err, "read problem file")
			}
			problemText = string(data)
		case len(args) == 1:
			problemText = args[0]
		default:
			return eris.New("provide a problem as an argument or via --file")
		}

		req := &model.AnalyzeRequest{
			ProblemText:  problemText,
			SampleInput:  sampleInput,
			SampleOutput: sampleOutput,
			Difficulty:   model.Difficulty(difficulty),
			Mode:         model.Mode(mode),
		}
		req.Normalize()
		if err := req.Validate(); err != nil {
			return err
		}

		env, err := initAssistant(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		resp, err := env.Assistant.Analyze(ctx, req)
		if err != nil {
			return eris.Wrap(err, "analyze")
		}

		out, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal response")
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	analyzeCmd.Flags().String("file", "", "read the problem text from a file")
	analyzeCmd.Flags().String("mode", "fast", "analysis mode: fast, verified, comprehensive")
	analyzeCmd.Flags().String("difficulty", "", "difficulty hint: easy, medium, hard")
	analyzeCmd.Flags().String("sample-input", "", "sample input for the problem")
	analyzeCmd.Flags().String("sample-output", "", "expected output for the sample input")
	rootCmd.AddCommand(analyzeCmd)
}
