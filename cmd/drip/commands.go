package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/leadkit/drip/internal/config"
	"github.com/leadkit/drip/internal/engine"
	"github.com/leadkit/drip/internal/escalation"
	"github.com/leadkit/drip/internal/gateway"
	"github.com/leadkit/drip/internal/lead"
	"github.com/leadkit/drip/internal/logging"
	"github.com/leadkit/drip/internal/messaging"
	"github.com/leadkit/drip/internal/messaging/telegram"
	"github.com/leadkit/drip/internal/notify"
	"github.com/leadkit/drip/internal/sequence"
)

func loadConfig() (*config.Config, error) {
	configPath := cfgFile
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Run the follow-up engine and ops server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if err := logging.Init(cfg.Logging); err != nil {
				return fmt.Errorf("failed to init logging: %w", err)
			}

			store, err := lead.NewStore(cfg.Store.Path)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer func() { _ = store.Close() }()

			catalog, err := sequence.LoadCatalog(cfg.Sequences.Path)
			if err != nil {
				return fmt.Errorf("failed to load sequences: %w", err)
			}

			var gw messaging.Gateway
			if cfg.Telegram != nil && cfg.Telegram.Enabled {
				gw = telegram.NewGateway(cfg.Telegram)
			} else {
				gw = messaging.NewLogGateway()
			}

			sink := notify.NewSink(cfg.Notifications.TTL.Std())
			defer sink.Stop()

			eng := engine.New(
				store,
				gw,
				engine.NewResolver(catalog, sequence.NewMilestones(cfg.Sequences.Milestones)),
				escalation.NewQueue(cfg.Escalations.Capacity),
				sink,
				engine.WithDispatchTimeout(cfg.Scheduler.DispatchTimeout.Std()),
			)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			scheduler := engine.NewScheduler(eng, cfg.Scheduler.Interval.Std())
			if err := scheduler.Start(ctx); err != nil {
				return fmt.Errorf("failed to start scheduler: %w", err)
			}
			defer scheduler.Stop()

			srv := gateway.NewServer(cfg.Gateway.Address(), eng, gateway.WithLeadReader(store))

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				fmt.Println("\nShutting down...")
				cancel()
			}()

			fmt.Println("🚀 Drip started")
			fmt.Println("───────────────────────────────────────")
			fmt.Printf("   Ops API:  http://%s\n", cfg.Gateway.Address())
			fmt.Printf("   Interval: %s\n", cfg.Scheduler.Interval.Std())
			fmt.Printf("   Store:    %s\n", cfg.Store.Path)
			fmt.Println()

			return srv.Start(ctx)
		},
	}
}

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show pending escalations and tracked leads",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client := newOpsClient(cfg.Gateway.Address())

			escalations, err := client.listEscalations(cmd.Context())
			if err != nil {
				return fmt.Errorf("is the daemon running? %w", err)
			}
			leads, err := client.listLeads(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput {
				out := map[string]any{
					"gateway":     fmt.Sprintf("http://%s", cfg.Gateway.Address()),
					"escalations": escalations,
					"leads":       leads,
				}
				data, err := json.MarshalIndent(out, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal status: %w", err)
				}
				fmt.Println(string(data))
				return nil
			}

			fmt.Println("📊 Drip Status")
			fmt.Println("───────────────────────────────────────")
			fmt.Printf("Ops API: http://%s\n", cfg.Gateway.Address())
			fmt.Println()

			fmt.Println("Escalations:")
			if len(escalations) == 0 {
				fmt.Println("  (none pending)")
			} else {
				for _, esc := range escalations {
					fmt.Printf("  ⚠ %s (%s): day %d, raised %s\n",
						esc.LeadName, esc.LeadID, esc.DayCount,
						esc.CreatedAt.Local().Format("Jan 2 15:04"))
				}
			}
			fmt.Println()

			fmt.Println("Leads:")
			if len(leads) == 0 {
				fmt.Println("  (none tracked)")
			} else {
				for _, l := range leads {
					last := "never"
					if l.LastAutoMessageAt != nil {
						last = l.LastAutoMessageAt.Local().Format("Jan 2 15:04")
					}
					fmt.Printf("  • %s: %s since %s, last follow-up %s\n",
						l.Name, l.Status,
						l.StatusChangedAt.Local().Format("Jan 2"), last)
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newResolveCmd() *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "resolve <lead-id>",
		Short: "Send a manual follow-up and clear the lead's escalation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			client := newOpsClient(cfg.Gateway.Address())
			if err := client.resolve(cmd.Context(), args[0], message); err != nil {
				return err
			}

			fmt.Printf("✅ Follow-up sent to %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "Follow-up message to send (required)")
	_ = cmd.MarkFlagRequired("message")

	return cmd
}

func newSkipCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "skip <lead-id>",
		Short: "Dismiss a lead's escalation without sending anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			client := newOpsClient(cfg.Gateway.Address())
			if err := client.skip(cmd.Context(), args[0]); err != nil {
				return err
			}

			fmt.Printf("⏭  Escalation for %s dismissed\n", args[0])
			return nil
		},
	}
}

// newLeadCmd groups lead management. These commands open the store directly
// so they work whether or not the daemon is running.
func newLeadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lead",
		Short: "Manage tracked leads",
	}

	cmd.AddCommand(
		newLeadAddCmd(),
		newLeadListCmd(),
		newLeadSetStatusCmd(),
	)

	return cmd
}

func openStore() (*lead.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := lead.NewStore(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return store, nil
}

func newLeadAddCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "add <id> <name>",
		Short: "Start tracking a lead",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := lead.ParseStatus(status)
			if err != nil {
				return err
			}

			store, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			now := time.Now().UTC()
			l := &lead.Lead{
				ID:              args[0],
				Name:            args[1],
				Status:          parsed,
				StatusChangedAt: now,
				CreatedAt:       now,
			}
			if err := store.Create(cmd.Context(), l); err != nil {
				return fmt.Errorf("failed to create lead: %w", err)
			}

			fmt.Printf("✅ Tracking %s (%s) as %s\n", l.Name, l.ID, l.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", string(lead.StatusNew), "Initial status")

	return cmd
}

func newLeadListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tracked leads",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			leads, err := store.GetAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list leads: %w", err)
			}

			if len(leads) == 0 {
				fmt.Println("No leads tracked yet. Add one with 'drip lead add'.")
				return nil
			}
			for _, l := range leads {
				fmt.Printf("  • %s (%s): %s since %s\n",
					l.Name, l.ID, l.Status,
					l.StatusChangedAt.Local().Format("Jan 2 2006"))
			}
			return nil
		},
	}
}

func newLeadSetStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <id> <status>",
		Short: "Move a lead to a new status (resets its follow-up clock)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := lead.ParseStatus(args[1])
			if err != nil {
				return err
			}

			store, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.SetStatus(cmd.Context(), args[0], parsed, time.Now().UTC()); err != nil {
				return fmt.Errorf("failed to set status: %w", err)
			}

			fmt.Printf("✅ %s is now %s\n", args[0], parsed)
			return nil
		},
	}
}

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize Drip configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := cfgFile
			if configPath == "" {
				configPath = config.DefaultConfigPath()
			}

			if _, err := os.Stat(configPath); err == nil {
				if !force {
					fmt.Printf("⚠️  Config already exists: %s\n", configPath)
					fmt.Println("   Use --force to reinitialize (backs up to .bak)")
					return nil
				}
				backupPath := configPath + ".bak"
				if err := os.Rename(configPath, backupPath); err != nil {
					return fmt.Errorf("failed to backup config: %w", err)
				}
				fmt.Printf("   📦 Backed up existing config to %s\n\n", backupPath)
			}

			cfg := config.DefaultConfig()
			if err := cfg.Save(configPath); err != nil {
				return err
			}

			if err := writeExampleSequences(cfg.Sequences.Path); err != nil {
				return err
			}

			fmt.Println("   ✅ Initialized!")
			fmt.Printf("   Config:    %s\n", configPath)
			fmt.Printf("   Sequences: %s\n", cfg.Sequences.Path)
			fmt.Println()
			fmt.Println("   Next steps:")
			fmt.Println("   1. Edit the sequences to match your pipeline")
			fmt.Println("   2. Add Telegram credentials to get real messages")
			fmt.Println("   3. Run 'drip start'")

			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Reinitialize config (backs up existing to .bak)")

	return cmd
}

// writeExampleSequences seeds a starter sequences file. Existing files are
// left alone so init --force never clobbers tuned sequences.
func writeExampleSequences(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create sequences directory: %w", err)
	}

	example := `sequences:
  - id: quoted-followup
    trigger_status: quoted
    enabled: true
    steps:
      - day_offset: 1
        template: "Hi {{name}}, just checking you received the quote. Any questions?"
      - day_offset: 3
        template: "Hi {{name}}, happy to walk through the quote whenever suits you."
      - day_offset: 7
        template: "Hi {{name}}, should I keep this quote open for you?"
  - id: invoiced-reminder
    trigger_status: invoiced
    enabled: true
    steps:
      - day_offset: 7
        template: "Hi {{name}}, a gentle reminder about the open invoice."
      - day_offset: 14
        template: "Hi {{name}}, the invoice is now two weeks old. Let me know if anything is blocking payment."
`
	if err := os.WriteFile(path, []byte(example), 0600); err != nil {
		return fmt.Errorf("failed to write sequences: %w", err)
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show Drip version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Drip %s\n", version)
			if buildTime != "unknown" {
				fmt.Printf("Built: %s\n", buildTime)
			}
		},
	}
}
