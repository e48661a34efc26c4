package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"dealroom/internal/config"
	"dealroom/internal/db"
	"dealroom/internal/domain"
	"dealroom/internal/engine"
	"dealroom/internal/games"
	"dealroom/internal/migrate"
	"dealroom/internal/notify"
	"dealroom/internal/server"
	"dealroom/internal/terms"
)

var rootCmd = &cobra.Command{
	Use:   "dealroom",
	Short: "Dealroom CLI",
	Long: `Dealroom coordinates two-team financial simulation sessions.
Core concepts:
- Workspace: the .dealroom directory holding the session database; dealroom.yml next to it configures the server and Redis.
- Session: one run of a game variant. Sessions are active until completed or cancelled.
- Games: "valuation" (Team 1 enters EBITDA-style terms, Team 2 approves them) and "trading" (Team 1 prices three companies, Team 2 bids, a finalized round unlocks deal approvals).
- Terms: the named inputs of a game. Setting a term resets its approval, so nothing stays approved behind a changed number.
- Approvals: per-term toggles between tbd and ok. The valuation result appears only when every term is approved.
- Findings: validation output per value. Errors block, warnings need --yes, informational classifications are just displayed.
- Event log: diary of changes, view with 'dealroom log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("DEALROOM")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().BoolP("yes", "y", false, "accept values despite warnings")
	rootCmd.PersistentFlags().String("redis-url", "", "redis URL (overrides config)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("yes", rootCmd.PersistentFlags().Lookup("yes"))
	_ = viper.BindPFlag("redis-url", rootCmd.PersistentFlags().Lookup("redis-url"))
}

func registerCommands() {
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(sessionCmd())
	rootCmd.AddCommand(termCmd())
	rootCmd.AddCommand(approveCmd())
	rootCmd.AddCommand(roundCmd())
	rootCmd.AddCommand(gamesCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage workspace config"}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default dealroom.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSONOrTable(cfg)
		},
	}
	return cmd
}

func sessionCmd() *cobra.Command {
	session := &cobra.Command{
		Use:   "session",
		Short: "Manage sessions",
		Long:  "Sessions are single runs of a game. They start active; complete or cancel them when the room is done.",
	}
	session.AddCommand(sessionCreateCmd())
	session.AddCommand(sessionListCmd())
	session.AddCommand(sessionShowCmd())
	session.AddCommand(sessionCompleteCmd())
	session.AddCommand(sessionCancelCmd())
	return session
}

func sessionCreateCmd() *cobra.Command {
	var id, game string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.CreateSession(ctx, id, domain.GameType(game))
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "session id (optional, UUID if omitted)")
	cmd.Flags().StringVar(&game, "game", "", "game type (valuation or trading)")
	_ = cmd.MarkFlagRequired("game")
	return cmd
}

func sessionListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListActiveSessions(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Game", "Status", "Created"})
				for _, s := range items {
					tw.AppendRow(table.Row{s.ID, s.GameType, s.Status, s.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func sessionShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show full session state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				snap, err := e.SessionSnapshot(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(snap)
				}
				printSnapshot(snap)
				return nil
			})
		},
	}
	return cmd
}

func printSnapshot(snap engine.Snapshot) {
	s := snap.Session
	fmt.Printf("Session: %s (%s, %s)\n", s.ID, s.GameType, s.Status)
	def, err := games.Get(s.GameType)
	if err != nil {
		return
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Term", "Team 1", "Team 2", "Approval"})
	for _, key := range def.Terms {
		row := table.Row{string(key)}
		for _, team := range []domain.TeamID{domain.TeamOne, domain.TeamTwo} {
			cell := ""
			if values, ok := snap.TeamValues[team]; ok {
				if v, ok := values[key]; ok {
					if meta, err := terms.Get(key); err == nil {
						cell = meta.FormatValue(v)
					} else {
						cell = v.String()
					}
				}
			}
			row = append(row, cell)
		}
		status := snap.Approvals[key]
		if status == "" {
			status = domain.ApprovalTBD
		}
		row = append(row, strings.ToUpper(string(status)))
		tw.AppendRow(row)
	}
	tw.Render()
	fmt.Printf("Progress: %d/%d approved\n", snap.Progress.Approved, snap.Progress.Total)
	if snap.Valuation != nil {
		if meta, err := terms.Get(domain.TermEBITDA); err == nil {
			fmt.Printf("Valuation: %s\n", meta.FormatValue(*snap.Valuation))
		} else {
			fmt.Printf("Valuation: %s\n", snap.Valuation.String())
		}
	}
	if snap.IsComplete {
		fmt.Println(snap.CompletionMessage)
	}
}

func sessionCompleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complete <id>",
		Short: "Mark a session completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.CompleteSession(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	return cmd
}

func sessionCancelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.CancelSession(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	return cmd
}

func termCmd() *cobra.Command {
	term := &cobra.Command{
		Use:   "term",
		Short: "Manage term values",
		Long:  "Terms are the named inputs of a game. Every set resets the term's approval; errors block the value, warnings require --yes.",
	}
	term.AddCommand(termSetCmd())
	term.AddCommand(termGetCmd())
	term.AddCommand(termValidateCmd())
	return term
}

func termSetCmd() *cobra.Command {
	var team int
	cmd := &cobra.Command{
		Use:   "set <session> <term> <value>",
		Short: "Set a term value",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, key := args[0], domain.TermKey(args[1])
			value, err := decimal.NewFromString(strings.TrimSpace(args[2]))
			if err != nil {
				return fmt.Errorf("invalid value %q", args[2])
			}
			findings := terms.Validate(key, value)
			printFindings(findings)
			if terms.HasErrors(findings) {
				return fmt.Errorf("value rejected by validation")
			}
			if terms.HasWarnings(findings) && !viper.GetBool("yes") {
				return fmt.Errorf("value has warnings; re-run with --yes to accept")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.SetTeamValue(ctx, sessionID, domain.TeamID(team), key, value); err != nil {
					return err
				}
				if meta, err := terms.Get(key); err == nil {
					fmt.Printf("Set %s = %s (approval reset to TBD)\n", key, meta.FormatValue(value))
				} else {
					fmt.Printf("Set %s = %s (approval reset to TBD)\n", key, value)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&team, "team", 1, "team entering the value (1 or 2)")
	return cmd
}

func termGetCmd() *cobra.Command {
	var team int
	cmd := &cobra.Command{
		Use:   "get <session> <term>",
		Short: "Get a term value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				value, err := e.GetTeamValue(ctx, args[0], domain.TeamID(team), domain.TermKey(args[1]))
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]string{
					"term_key": args[1],
					"value":    value.String(),
				})
			})
		},
	}
	cmd.Flags().IntVar(&team, "team", 1, "team (1 or 2)")
	return cmd
}

func termValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <term> <value>",
		Short: "Validate a value without storing it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := decimal.NewFromString(strings.TrimSpace(args[1]))
			if err != nil {
				return fmt.Errorf("invalid value %q", args[1])
			}
			findings := terms.Validate(domain.TermKey(args[0]), value)
			if viper.GetBool("json") {
				return printJSON(findings)
			}
			if len(findings) == 0 {
				fmt.Println("OK")
				return nil
			}
			printFindings(findings)
			if terms.HasErrors(findings) {
				return fmt.Errorf("value rejected by validation")
			}
			return nil
		},
	}
	return cmd
}

func printFindings(findings []domain.Finding) {
	if viper.GetBool("json") {
		return
	}
	for _, f := range findings {
		fmt.Printf("[%s] %s: %s\n", strings.ToUpper(string(f.Severity)), f.Code, f.Message)
	}
}

func approveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approve <session> <term>",
		Short: "Toggle a term approval",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				status, err := e.ToggleApproval(ctx, args[0], domain.TermKey(args[1]))
				if err != nil {
					return err
				}
				fmt.Printf("%s is now %s\n", args[1], strings.ToUpper(string(status)))
				return nil
			})
		},
	}
	return cmd
}

func roundCmd() *cobra.Command {
	round := &cobra.Command{
		Use:   "round",
		Short: "Trading round operations",
		Long:  "Finalization checks that every pricing and bid input is present, then opens the three deal approvals.",
	}
	round.AddCommand(roundFinalizeCmd())
	round.AddCommand(roundSummaryCmd())
	return round
}

func roundFinalizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "finalize <session>",
		Short: "Finalize the trading round",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.FinalizeRound(ctx, args[0]); err != nil {
					return err
				}
				fmt.Println("Round finalized; deal approvals are open.")
				return nil
			})
		},
	}
	return cmd
}

func roundSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary <session>",
		Short: "Show trading round analytics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				summary, err := e.RoundSummary(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(summary)
				}
				if len(summary.Companies) == 0 {
					fmt.Println("No data")
					return nil
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Company", "Price", "Shares", "Bid For", "Capital Raised", "Subscription"})
				for _, c := range summary.Companies {
					tw.AppendRow(table.Row{
						fmt.Sprintf("Company %d", c.Company),
						c.Price.String(),
						c.AvailableShares.String(),
						c.SharesBidFor.String(),
						c.CapitalRaised.String(),
						string(c.Subscription),
					})
				}
				tw.Render()
				fmt.Printf("Most bids: %s\n", summary.MostBidsLabel())
				return nil
			})
		},
	}
	return cmd
}

func gamesCmd() *cobra.Command {
	g := &cobra.Command{Use: "games", Short: "Game catalog"}
	g.AddCommand(gamesListCmd())
	g.AddCommand(gamesShowCmd())
	return g
}

func gamesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List game variants",
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Type", "Name", "Terms"})
			for _, gt := range games.Types() {
				def, err := games.Get(gt)
				if err != nil {
					continue
				}
				tw.AppendRow(table.Row{string(gt), def.Metadata.Name, len(def.Terms)})
			}
			tw.Render()
			return nil
		},
	}
	return cmd
}

func gamesShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <type>",
		Short: "Show a game's terms and roles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := games.Get(domain.GameType(args[0]))
			if err != nil {
				return err
			}
			fmt.Printf("%s: %s\n", def.Metadata.Name, def.Metadata.Description)
			for _, team := range []domain.TeamID{domain.TeamOne, domain.TeamTwo} {
				if desc, err := games.RoleDescription(def.Type, team); err == nil {
					fmt.Println(desc)
				}
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Term", "Type", "Range", "Precision"})
			for _, key := range def.Terms {
				meta, err := terms.Get(key)
				if err != nil {
					continue
				}
				tw.AppendRow(table.Row{string(key), string(meta.Type), meta.RangeDescription(), meta.Precision})
			}
			tw.Render()
			return nil
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{Use: "log", Short: "Event log"}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var sessionID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				events, err := e.Repo.ListEvents(ctx, sessionID, n)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&sessionID, "session", "", "session id filter")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfg, err := config.LoadOptional(workspace)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			if basePath == "" {
				basePath = cfg.Server.BasePath
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				secret := cfg.Server.JWTSecret
				if env := os.Getenv("DEALROOM_JWT_SECRET"); env != "" {
					secret = env
				}
				authCfg := server.AuthConfig{
					JWTSecret: secret,
					TokenTTL:  time.Duration(cfg.Server.TokenTTLMin) * time.Minute,
				}
				handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				fmt.Printf("Serving Dealroom API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (defaults to config)")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	e := engine.New(conn)

	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return err
	}
	redisURL := viper.GetString("redis-url")
	if redisURL == "" && cfg.Redis.Enabled {
		redisURL = cfg.Redis.URL
	}
	if redisURL != "" {
		notifier, err := notify.NewRedis(redisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer notifier.Close()
		e.Notify = notifier
	}
	return fn(ctx, e)
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
