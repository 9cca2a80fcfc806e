package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/act-dev-25/agents/internal/assistant"
	"github.com/act-dev-25/agents/internal/chat"
	"github.com/act-dev-25/agents/internal/config"
	"github.com/act-dev-25/agents/internal/domain"
	"github.com/act-dev-25/agents/internal/knowledge"
	"github.com/act-dev-25/agents/internal/logging"
	"github.com/act-dev-25/agents/internal/routing"
	"github.com/act-dev-25/agents/internal/session"
	"github.com/act-dev-25/agents/internal/store"
)

func newChatCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			if issues := config.Validate(&cfg); len(issues) > 0 {
				for _, issue := range issues {
					fmt.Fprintf(cmd.ErrOrStderr(), "config: %s\n", issue)
				}
				return fmt.Errorf("invalid configuration")
			}
			if err := paths.EnsureDirs(); err != nil {
				return err
			}
			if cfg.Logging.File != "" {
				fileLog, err := logging.NewFile(cfg.Logging.File, cfg.Logging.Level)
				if err != nil {
					return err
				}
				log = fileLog
			}

			kv, closer, err := openStore(cfg, log)
			if err != nil {
				return err
			}
			defer closer()

			sessions := session.NewManager(kv, sessionConfig(cfg), log)
			chats := chat.NewHistory(kv, time.Duration(cfg.Chat.TTLDays)*24*time.Hour, log)
			runner := buildRunner(cfg, kv, sessions, chats, log)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sess, err := sessions.Create(ctx, userID, nil)
			if err != nil {
				return err
			}
			rec, err := chats.Create(ctx, userID)
			if err != nil {
				return err
			}
			defer sessions.Logout(context.Background(), sess.SessionID)

			fmt.Printf("chat %s started (ctrl-d to quit)\n", rec.ChatID[:8])

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					break
				}
				text := strings.TrimSpace(scanner.Text())
				if text == "" {
					continue
				}

				turn, err := runner.HandleTurn(ctx, sess.SessionID, rec.ChatID, text)
				if err != nil {
					if ctx.Err() != nil {
						break
					}
					fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
					continue
				}
				fmt.Printf("[%s] %s\n", turn.Decision.Handler, turn.Reply.Content)
			}
			fmt.Println()
			return scanner.Err()
		},
	}

	cmd.Flags().StringVar(&userID, "user", "local", "user id for the session")
	return cmd
}

// openStore builds the configured KV backend wrapped with retries.
func openStore(cfg config.Config, log *logging.Logger) (store.KV, func(), error) {
	attempts := cfg.Store.RetryAttempts
	base := time.Duration(cfg.Store.RetryBaseMS) * time.Millisecond

	switch cfg.Store.Backend {
	case "memory":
		return store.NewRetryingKV(store.NewMemoryKV(), attempts, base, log), func() {}, nil
	default:
		db, err := store.Open(paths.StorePath(cfg), log)
		if err != nil {
			return nil, nil, err
		}
		kv := store.NewRetryingKV(store.NewSQLiteKV(db), attempts, base, log)
		return kv, func() { db.Close() }, nil
	}
}

func sessionConfig(cfg config.Config) session.Config {
	return session.Config{
		TTL:              time.Duration(cfg.Session.TTLDays) * 24 * time.Hour,
		LoginWindow:      time.Duration(cfg.Session.LoginWindowMinutes) * time.Minute,
		MaxLoginAttempts: int64(cfg.Session.MaxLoginAttempts),
		CodeTTL:          time.Duration(cfg.Session.CodeTTLMinutes) * time.Minute,
	}
}

// buildRunner wires the turn pipeline from configuration.
func buildRunner(cfg config.Config, kv store.KV, sessions *session.Manager, chats *chat.History, log *logging.Logger) *assistant.Runner {
	cache := knowledge.NewCache(
		kv,
		knowledgeChain(),
		time.Duration(cfg.Knowledge.TTLMinutes)*time.Minute,
		time.Duration(cfg.Knowledge.AttemptTimeoutMS)*time.Millisecond,
		log,
	)
	sup := routing.NewSupervisor(routing.NewKeywordSource(), cfg.Routing.Threshold, log)
	return assistant.NewRunner(sessions, chats, cache, sup, cannedResponder(), cfg.Chat.ContextMessages, log)
}

// knowledgeChain is the built-in fallback chain: a local notes file,
// then a static acknowledgement so the chain always terminates.
func knowledgeChain() []knowledge.Strategy {
	return []knowledge.Strategy{
		knowledge.FuncStrategy{
			StrategyName: "local-notes",
			Fn: func(ctx context.Context, query string) ([]byte, error) {
				name := filepath.Join(paths.Data, "knowledge", "notes.txt")
				return os.ReadFile(name)
			},
		},
		knowledge.StaticStrategy{
			StrategyName: "builtin",
			Payload:      []byte("no local notes available"),
		},
	}
}

// cannedResponder is the stock responder used when no language model is
// wired in: it names the handler and quotes the supporting material.
func cannedResponder() assistant.Responder {
	return assistant.ResponderFunc(func(ctx context.Context, req assistant.Request) (string, error) {
		switch {
		case req.Decision.Handler == domain.HandlerSupervisor && req.Decision.State == domain.StateSupervisor:
			return "A few of our specialists could help with that. Could you say more about what matters most right now?", nil
		case req.Decision.Handler == domain.HandlerSupervisor:
			return "Tell me a bit about what you need help with: careers, veteran services, international credentials, or environmental justice.", nil
		case req.Knowledge != nil:
			return fmt.Sprintf("(%s specialist) %s", req.Decision.Handler, string(req.Knowledge)), nil
		default:
			return fmt.Sprintf("(%s specialist) I can help with that.", req.Decision.Handler), nil
		}
	})
}
