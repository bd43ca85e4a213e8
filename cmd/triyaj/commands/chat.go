package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cognicore/triyaj/pkg/triyaj"
	"github.com/cognicore/triyaj/pkg/triyaj/envelope"
)

var (
	chatDB       string
	chatLocale   string
	chatAge      int
	chatSex      string
	chatPregnant bool
	chatChronic  []string
	chatLat      float64
	chatLon      float64
	chatDebug    bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive triage conversation",
	Long: `Chat runs the triage loop on the terminal: describe the complaint, answer
the follow-up questions, and receive a specialty recommendation. The session
ends with a result, an emergency notice, or a same-day recommendation.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatDB, "db", "", "SQLite session store path (default: in-memory)")
	chatCmd.Flags().StringVar(&chatLocale, "locale", "tr-TR", "session locale")
	chatCmd.Flags().IntVar(&chatAge, "age", 0, "patient age")
	chatCmd.Flags().StringVar(&chatSex, "sex", "", "patient sex (K/E)")
	chatCmd.Flags().BoolVar(&chatPregnant, "pregnant", false, "patient is pregnant")
	chatCmd.Flags().StringSliceVar(&chatChronic, "chronic", nil, "chronic conditions")
	chatCmd.Flags().Float64Var(&chatLat, "lat", 0, "latitude for the facility hint")
	chatCmd.Flags().Float64Var(&chatLon, "lon", 0, "longitude for the facility hint")
	chatCmd.Flags().BoolVar(&chatDebug, "debug", false, "attach scoring traces to the result")
	rootCmd.AddCommand(chatCmd)
}

// chatProfile assembles the profile from the flags that were actually set;
// nil when none were.
func chatProfile(cmd *cobra.Command) *triyaj.ProfileInput {
	p := &triyaj.ProfileInput{}
	changed := false
	if cmd.Flags().Changed("age") {
		p.Age = &chatAge
		changed = true
	}
	if chatSex != "" {
		p.Sex = chatSex
		changed = true
	}
	if cmd.Flags().Changed("pregnant") {
		p.Pregnant = &chatPregnant
		changed = true
	}
	if len(chatChronic) > 0 {
		p.Chronic = chatChronic
		changed = true
	}
	if !changed {
		return nil
	}
	return p
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	eng, err := buildEngine(ctx, chatDB, chatDebug)
	if err != nil {
		return err
	}
	defer eng.Close()

	fmt.Println("===========================================")
	fmt.Println("  Triyaj")
	fmt.Println("  Hangi bölüme gitmeliyim?")
	fmt.Println("===========================================")
	fmt.Println()
	fmt.Println("Şikayetinizi yazın (çıkmak için Ctrl+D):")
	fmt.Println()

	var sessionID string
	awaitingAnswer := false

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		req := triyaj.TurnRequest{SessionID: sessionID, Locale: chatLocale}
		if sessionID == "" {
			req.Profile = chatProfile(cmd)
			if cmd.Flags().Changed("lat") {
				req.Lat = &chatLat
			}
			if cmd.Flags().Changed("lon") {
				req.Lon = &chatLon
			}
		}
		if awaitingAnswer {
			req.Answer = &triyaj.Answer{Value: line}
		} else {
			req.UserMessage = line
		}

		env := eng.HandleTurn(ctx, req)
		if env.SessionID != "" {
			sessionID = env.SessionID
		}
		renderEnvelope(os.Stdout, env)

		switch env.Type {
		case envelope.TypeQuestion:
			awaitingAnswer = true
		case envelope.TypeError:
			if p, ok := env.Payload.(envelope.ErrorPayload); ok && !p.Retryable {
				fmt.Println("\nGeçmiş olsun!")
				return nil
			}
		default:
			// RESULT, EMERGENCY and SAME_DAY end the session.
			fmt.Println("\nGeçmiş olsun!")
			return nil
		}
	}

	fmt.Println("\nGeçmiş olsun!")
	return nil
}
