package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Temkum/voting-system-demo/pkg/config"
	"github.com/Temkum/voting-system-demo/pkg/log"
	"github.com/Temkum/voting-system-demo/pkg/metrics"
	"github.com/Temkum/voting-system-demo/pkg/session"
	"github.com/Temkum/voting-system-demo/pkg/socket"
	"github.com/Temkum/voting-system-demo/pkg/types"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var (
	configPath  string
	metricsAddr string
	pollOptions []string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pollsync",
	Short: "Pollsync - live poll tally synchronization client",
	Long: `Pollsync keeps a local view of poll vote tallies synchronized with
the poll server in real time: it subscribes to per-poll update events over
the shared event channel, applies optimistic vote mutations locally, and
reconciles them against the server's authoritative state.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Pollsync version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	watchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Expose Prometheus metrics on this address")
	createCmd.Flags().StringArrayVarP(&pollOptions, "option", "o", nil, "Poll option (repeat for each option)")

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(voteCmd)
}

// loadConfig loads config and initializes logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log.Init(log.Config{
		Level:      log.Level(cfg.LogLevel),
		JSONOutput: cfg.LogJSON,
	})
	return cfg, nil
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch live poll tallies until interrupted",
	Long: `Watch starts a synchronization session, subscribes to every known
poll's update room, and streams tally changes and live updates to the
console until Ctrl+C.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if metricsAddr != "" {
			go func() {
				mux := http.NewServeMux()
				mux.Handle("/metrics", metrics.Handler())
				if err := http.ListenAndServe(metricsAddr, mux); err != nil {
					log.Errorf("metrics server stopped", err)
				}
			}()
		}

		s := session.New(cfg)
		s.SetOnChange(func(kind string, poll types.Poll) {
			if kind == socket.EventPollCreated {
				// New polls become watchable as soon as they are announced.
				s.WatchPoll(poll.ID)
			}
			printPoll(poll)
		})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if err := s.Start(ctx); err != nil {
			return err
		}
		defer s.Teardown()

		for _, poll := range s.Polls() {
			s.WatchPoll(poll.ID)
			printPoll(poll)
		}

		fmt.Println()
		fmt.Println("Watching for updates. Press Ctrl+C to stop.")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		fmt.Println("\nShutting down...")
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Fetch and print all polls",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		s := session.New(cfg)
		defer s.Teardown()

		ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout.Std())
		defer cancel()
		if err := s.Refresh(ctx); err != nil {
			return err
		}

		polls := s.Polls()
		if len(polls) == 0 {
			fmt.Println("No polls yet.")
			return nil
		}
		for _, poll := range polls {
			printPoll(poll)
		}
		return nil
	},
}

var createCmd = &cobra.Command{
	Use:   "create [title]",
	Short: "Create a new poll",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		s := session.New(cfg)
		defer s.Teardown()

		ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout.Std())
		defer cancel()

		poll, err := s.CreatePoll(ctx, args[0], pollOptions)
		if err != nil {
			return err
		}

		fmt.Printf("✓ Poll created: %s (%s)\n", poll.Title, poll.ID)
		return nil
	},
}

var voteCmd = &cobra.Command{
	Use:   "vote [poll-id] [option-id]",
	Short: "Cast a vote on a poll option",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		s := session.New(cfg)
		defer s.Teardown()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.Start(ctx); err != nil {
			return err
		}

		if err := s.Vote(ctx, args[0], args[1]); err != nil {
			return err
		}

		if poll, ok := s.Poll(args[0]); ok {
			printPoll(poll)
		}
		fmt.Println("✓ Vote submitted")
		return nil
	},
}

func printPoll(poll types.Poll) {
	fmt.Printf("\n%s  [%s]  %d votes\n", poll.Title, poll.ID, poll.TotalVotes)
	for _, opt := range poll.Options {
		pct := 0
		if poll.TotalVotes > 0 {
			pct = opt.Votes * 100 / poll.TotalVotes
		}
		fmt.Printf("  %-24s %4d (%d%%)  [%s]\n", opt.Text, opt.Votes, pct, opt.ID)
	}
}
