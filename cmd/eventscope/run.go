package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mgiraldo/eventscope/internal/config"
	"github.com/mgiraldo/eventscope/internal/filter"
	"github.com/mgiraldo/eventscope/internal/health"
	"github.com/mgiraldo/eventscope/internal/logging"
	"github.com/mgiraldo/eventscope/internal/metrics"
	"github.com/mgiraldo/eventscope/internal/planner"
	"github.com/mgiraldo/eventscope/internal/rpc"
	"github.com/mgiraldo/eventscope/internal/sink"
	"github.com/mgiraldo/eventscope/internal/storage"
	"github.com/mgiraldo/eventscope/internal/watcher"
)

var (
	flagContract   string
	flagEvent      string
	flagChainID    uint64
	flagRPCURL     string
	flagStartBlock string
	flagPollMS     uint64
	flagChunkSize  uint64
	flagFormat     string
	flagOutFile    string
	flagWebhookURL string
	flagDBPath     string
	flagOnce       bool
	flagHealth     string
	flagMetrics    string
)

func init() {
	runCmd.Flags().StringVar(&flagContract, "contract", "", "Smart contract address to watch")
	runCmd.Flags().StringVarP(&flagEvent, "event", "e", "", "Event signature to filter, e.g. \"Transfer(address,address,uint256)\"")
	runCmd.Flags().Uint64Var(&flagChainID, "chain-id", 0, "Chain ID (e.g. 1=Ethereum, 137=Polygon, 8453=Base)")
	runCmd.Flags().StringVarP(&flagRPCURL, "rpc-url", "r", "", "RPC endpoint URL (overrides --chain-id)")
	runCmd.Flags().StringVar(&flagStartBlock, "start-block", "", "Start block number, or latest-N (default: latest)")
	runCmd.Flags().Uint64Var(&flagPollMS, "poll-interval-ms", 0, "Poll interval in milliseconds (default 1000)")
	runCmd.Flags().Uint64Var(&flagChunkSize, "max-chunk-size", 0, "Maximum blocks per getLogs query (default 2000)")
	runCmd.Flags().StringVar(&flagFormat, "format", "", "Output format: pretty, json, or compact")
	runCmd.Flags().StringVar(&flagOutFile, "output-file", "", "Append events to this file as JSON Lines")
	runCmd.Flags().StringVar(&flagWebhookURL, "webhook-url", "", "POST events to this URL")
	runCmd.Flags().StringVar(&flagDBPath, "db", "", "Archive events to this SQLite database")
	runCmd.Flags().BoolVar(&flagOnce, "once", false, "Process one poll pass and exit")
	runCmd.Flags().StringVar(&flagHealth, "health", "", "Health check HTTP address (e.g. :8080)")
	runCmd.Flags().StringVar(&flagMetrics, "metrics", "", "Metrics HTTP address (e.g. :9090)")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Watch the contract and deliver matching events",
	RunE: func(cmd *cobra.Command, args []string) error {
		logLevel := os.Getenv("LOG_LEVEL")
		if logLevel == "" {
			logLevel = "info"
		}
		log := logging.NewWithLevel(logLevel)

		cfg, err := resolveConfig()
		if err != nil {
			return err
		}

		// A malformed signature must be rejected before any polling starts.
		filt, err := filter.Compile(cfg.Contract, cfg.Event)
		if err != nil {
			return err
		}

		printBanner(cmd, cfg, filt.Signature())

		client, err := rpc.Dial(cfg.RPCURL)
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		latest, err := client.BlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("query latest block: %w", err)
		}
		start, err := config.ResolveStartBlock(cfg.StartBlock, latest)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Starting from block: %d\n\n", start)

		disp, err := buildDispatcher(cmd, cfg, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := disp.Close(); err != nil {
				log.Error("sink close error", "error", err)
			}
		}()

		var mtr *metrics.Metrics
		if flagMetrics != "" {
			mtr = metrics.Init()
			log.Info("metrics enabled", "addr", flagMetrics)
		}

		if flagHealth != "" {
			healthSrv := health.Serve(flagHealth, health.Checker{
				RPCPing: func(ctx context.Context) error {
					_, err := client.BlockNumber(ctx)
					return err
				},
			})
			log.Info("health check enabled", "addr", flagHealth)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = health.Shutdown(shutdownCtx, healthSrv)
			}()
		}

		w := watcher.New(client, planner.New(start, cfg.MaxChunkSize), filt, disp, log, mtr, watcher.Options{
			ChainID:      cfg.ChainID,
			ChainName:    cfg.ChainName,
			PollInterval: cfg.PollInterval(),
		})

		if flagOnce {
			_, err := w.RunOnce(ctx)
			return err
		}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return w.Run(ctx)
		})
		if flagMetrics != "" {
			g.Go(func() error {
				return serveMetrics(ctx, flagMetrics, log)
			})
		}
		return g.Wait()
	},
}

// resolveConfig merges the optional YAML file with command-line flags; flags
// win where both are set.
func resolveConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	if flagContract != "" {
		cfg.Contract = flagContract
	}
	if flagEvent != "" {
		cfg.Event = flagEvent
	}
	if flagChainID != 0 {
		cfg.ChainID = flagChainID
	}
	if flagRPCURL != "" {
		cfg.RPCURL = flagRPCURL
	}
	if flagStartBlock != "" {
		cfg.StartBlock = flagStartBlock
	}
	if flagPollMS != 0 {
		cfg.PollIntervalMS = flagPollMS
	}
	if flagChunkSize != 0 {
		cfg.MaxChunkSize = flagChunkSize
	}
	if flagFormat != "" {
		cfg.Format = flagFormat
	}
	if flagOutFile != "" {
		cfg.OutputFile = flagOutFile
	}
	if flagWebhookURL != "" {
		cfg.WebhookURL = flagWebhookURL
	}
	if flagDBPath != "" {
		cfg.DBPath = flagDBPath
	}

	if err := cfg.ResolveRPC(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildDispatcher(cmd *cobra.Command, cfg *config.Config, log *slog.Logger) (*sink.Dispatcher, error) {
	sinks := []sink.Sink{sink.NewConsole(cmd.OutOrStdout(), cfg.Format)}

	if cfg.OutputFile != "" {
		fileSink, err := sink.NewFile(cfg.OutputFile)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, fileSink)
		log.Info("file sink enabled", "path", cfg.OutputFile)
	}
	if cfg.WebhookURL != "" {
		sinks = append(sinks, sink.NewWebhook(cfg.WebhookURL, log))
		log.Info("webhook sink enabled", "webhook_url", cfg.WebhookURL)
	}
	if cfg.DBPath != "" {
		store, err := storage.Open(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sink.NewArchive(store))
		log.Info("archive sink enabled", "path", cfg.DBPath)
	}

	return sink.NewDispatcher(log, sinks...), nil
}

func printBanner(cmd *cobra.Command, cfg *config.Config, signature string) {
	out := cmd.OutOrStdout()
	rule := "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"
	fmt.Fprintln(out, "Starting eventscope")
	fmt.Fprintln(out, rule)
	fmt.Fprintf(out, "  Chain: %s\n", cfg.ChainName)
	fmt.Fprintf(out, "  Contract: %s\n", cfg.Contract)
	fmt.Fprintf(out, "  RPC: %s\n", config.MaskAPIKey(cfg.RPCURL))
	if signature != "" {
		fmt.Fprintf(out, "  Event: %s\n", signature)
	} else {
		fmt.Fprintln(out, "  Listening to: ALL events")
	}
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out)
}

func serveMetrics(ctx context.Context, addr string, log *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 3 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err, ok := <-errCh:
		if ok && err != nil {
			log.Error("metrics server error", "error", err)
			return err
		}
		return nil
	}
}
