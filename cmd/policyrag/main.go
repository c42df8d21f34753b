package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/inspol/policyrag/app"
	"github.com/inspol/policyrag/common/logger"
	"github.com/inspol/policyrag/config"
)

var version = "0.1.0"

func main() {
	var configPath string
	var verbose bool

	root := &cobra.Command{
		Use:   "policyrag",
		Short: "Retrieval-augmented QA over insurance policy documents",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logger.SetLevel(logger.LevelDebug)
			}
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	queryCmd := &cobra.Command{
		Use:   "query [question]",
		Short: "Answer one question and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(configPath)
			if err != nil {
				return err
			}
			state := a.Query(cmd.Context(), args[0])

			out := map[string]any{
				"answer":       state.FinalAnswer,
				"task_results": state.TaskResults(),
			}
			if state.Validation != nil {
				out["validation"] = state.Validation
			}
			if len(state.Suggestions) > 0 {
				out["suggestions"] = state.Suggestions
			}
			if state.Err != "" {
				out["error"] = state.Err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	mcpCmd := &cobra.Command{
		Use:   "serve-mcp",
		Short: "Serve the QA core as an MCP tool over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(configPath)
			if err != nil {
				return err
			}
			return serveMCP(a)
		},
	}

	root.AddCommand(queryCmd, mcpCmd)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildApp(configPath string) (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return app.New(cfg)
}

func serveMCP(a *app.App) error {
	s := server.NewMCPServer("policyrag", version)

	tool := mcp.NewTool("policy_question",
		mcp.WithDescription("Answer a question about ingested insurance policy documents, with clause citations."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The question, in Korean."),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		state := a.Query(ctx, query)
		if state.Err != "" {
			return mcp.NewToolResultError(state.Err), nil
		}
		answer := state.FinalAnswer
		if len(state.Suggestions) > 0 {
			for _, suggestion := range state.Suggestions {
				answer += "\n- " + suggestion
			}
		}
		return mcp.NewToolResultText(answer), nil
	})

	return server.ServeStdio(s)
}
