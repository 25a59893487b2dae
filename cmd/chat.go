package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/user"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docsentry/docsentry/internal/engine"
	"github.com/docsentry/docsentry/internal/session"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with your ingested documents",
	Long: `Starts an interactive conversation grounded in the indexed documents.
Each answer cites the chunks it drew on. Conversations are persisted
and can be resumed with --session.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().String("session", "", "resume an existing session by id")
	chatCmd.Flags().String("user", "", "user id for new sessions (default: OS username)")
	chatCmd.Flags().Bool("route", false, "also match each question against indexed keywords")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	provider, err := createProviderFromConfig(cfg)
	if err != nil {
		return err
	}
	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg, embedder)
	if err != nil {
		return err
	}
	if store.Count() == 0 {
		fmt.Println("The index is empty. Run `docsentry ingest` first.")
		return nil
	}

	database, err := openDatabase(cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	sessions := session.NewStore(database)
	eng := buildEngine(cfg, provider, store, sessions)

	sessionID, _ := cmd.Flags().GetString("session")
	if sessionID == "" {
		userID, _ := cmd.Flags().GetString("user")
		if userID == "" {
			userID = osUsername()
		}
		sess, err := sessions.CreateSession(ctx, userID)
		if err != nil {
			return fmt.Errorf("creating session: %w", err)
		}
		sessionID = sess.ID
		fmt.Printf("Started session %s (user %s)\n", sessionID, userID)
	} else {
		sess, err := sessions.GetSession(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("loading session: %w", err)
		}
		if sess == nil {
			return fmt.Errorf("session %s not found", sessionID)
		}
		replayTurns(ctx, sessions, sessionID)
	}

	route, _ := cmd.Flags().GetBool("route")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		reply, err := eng.Process(ctx, engine.Request{
			SessionID:     sessionID,
			Message:       line,
			RouteKeywords: route,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}

		printReply(reply)
	}
}

func printReply(reply *engine.Reply) {
	if reply.Role == session.RoleSystemError {
		fmt.Printf("\n[system] %s\n\n", reply.Content)
		return
	}

	fmt.Printf("\n%s\n", reply.Content)
	if len(reply.Retrieved) > 0 {
		var refs []string
		seen := make(map[string]bool)
		for _, r := range reply.Retrieved {
			name := r.Record.Metadata.Filename
			if name != "" && !seen[name] {
				seen[name] = true
				refs = append(refs, name)
			}
		}
		if len(refs) > 0 {
			fmt.Printf("\nSources: %s\n", strings.Join(refs, ", "))
		}
	}
	if len(reply.Routed) > 0 {
		fmt.Printf("Matched keywords: %s\n", strings.Join(reply.Routed, ", "))
	}
	fmt.Println()
}

// replayTurns prints a resumed session's history.
func replayTurns(ctx context.Context, sessions *session.Store, sessionID string) {
	turns, err := sessions.Turns(ctx, sessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not replay history: %v\n", err)
		return
	}
	for _, t := range turns {
		switch t.Role {
		case session.RoleUser:
			fmt.Printf("> %s\n", t.Content)
		case session.RoleAssistant:
			fmt.Printf("\n%s\n\n", t.Content)
		case session.RoleSystemError:
			fmt.Printf("\n[system] %s\n\n", t.Content)
		}
	}
}

func osUsername() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "local"
}
