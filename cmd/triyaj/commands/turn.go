package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cognicore/triyaj/pkg/triyaj"
)

var (
	turnDB      string
	turnSession string
	turnMessage string
	turnAnswer  string
	turnLocale  string
	turnDebug   bool
	turnCompact bool
)

var turnCmd = &cobra.Command{
	Use:   "turn",
	Short: "Run one triage turn and print the envelope as JSON",
	Long: `Turn reads a turn request as JSON from stdin, runs it through the engine,
and writes the response envelope to stdout. With --message the request is
built from the flags instead. Sessions persist across invocations only with
--db.`,
	RunE: runTurn,
}

func init() {
	turnCmd.Flags().StringVar(&turnDB, "db", "", "SQLite session store path (default: in-memory)")
	turnCmd.Flags().StringVar(&turnSession, "session", "", "session id to continue")
	turnCmd.Flags().StringVar(&turnMessage, "message", "", "free-text complaint (skips stdin)")
	turnCmd.Flags().StringVar(&turnAnswer, "answer", "", "answer to the question asked last turn")
	turnCmd.Flags().StringVar(&turnLocale, "locale", "tr-TR", "session locale")
	turnCmd.Flags().BoolVar(&turnDebug, "debug", false, "attach scoring traces to the result")
	turnCmd.Flags().BoolVar(&turnCompact, "compact", false, "emit the envelope on a single line")
	rootCmd.AddCommand(turnCmd)
}

// turnRequest builds the request from the flags, or decodes it from stdin
// when no --message/--answer was given.
func turnRequest(in io.Reader) (triyaj.TurnRequest, error) {
	if turnMessage != "" || turnAnswer != "" {
		req := triyaj.TurnRequest{
			SessionID:   turnSession,
			Locale:      turnLocale,
			UserMessage: turnMessage,
		}
		if turnAnswer != "" {
			req.Answer = &triyaj.Answer{Value: turnAnswer}
		}
		return req, nil
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return triyaj.TurnRequest{}, fmt.Errorf("read request: %w", err)
	}
	var req triyaj.TurnRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return triyaj.TurnRequest{}, fmt.Errorf("decode request: %w", err)
	}
	if req.Locale == "" {
		req.Locale = turnLocale
	}
	if req.SessionID == "" {
		req.SessionID = turnSession
	}
	return req, nil
}

func runTurn(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	req, err := turnRequest(os.Stdin)
	if err != nil {
		return err
	}

	eng, err := buildEngine(ctx, turnDB, turnDebug)
	if err != nil {
		return err
	}
	defer eng.Close()

	env := eng.HandleTurn(ctx, req)

	enc := json.NewEncoder(os.Stdout)
	if !turnCompact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(env)
}
