package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/act-dev-25/agents/internal/config"
	"github.com/act-dev-25/agents/internal/version"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("cea %s (commit %s)\n\n", version.Version, version.Commit)

			fmt.Printf("Config:    %s\n", paths.Config)
			fmt.Printf("Data:      %s\n", paths.Data)
			fmt.Printf("Logs:      %s\n", paths.Logs)
			fmt.Println()

			cfg, err := config.Load(paths.Config)
			if err != nil {
				fmt.Printf("Config:    error loading: %v\n", err)
				return nil
			}

			fmt.Printf("Store:     backend=%s path=%s\n", cfg.Store.Backend, paths.StorePath(cfg))
			fmt.Printf("Session:   ttl=%dd login_window=%dm max_attempts=%d code_ttl=%dm\n",
				cfg.Session.TTLDays, cfg.Session.LoginWindowMinutes,
				cfg.Session.MaxLoginAttempts, cfg.Session.CodeTTLMinutes)
			fmt.Printf("Chat:      ttl=%dd context=%d\n", cfg.Chat.TTLDays, cfg.Chat.ContextMessages)
			fmt.Printf("Knowledge: ttl=%dm attempt_timeout=%dms\n",
				cfg.Knowledge.TTLMinutes, cfg.Knowledge.AttemptTimeoutMS)
			fmt.Printf("Routing:   threshold=%.2f\n", cfg.Routing.Threshold)

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Printf("\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Printf("  - %s: %s\n", issue.Path, issue.Message)
				}
			}

			return nil
		},
	}
}
