package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/theapemachine/a2a-srv/pkg/a2a"
	"github.com/theapemachine/a2a-srv/pkg/auth"
	"github.com/theapemachine/a2a-srv/pkg/metrics"
	"github.com/theapemachine/a2a-srv/pkg/service"
	"github.com/theapemachine/a2a-srv/pkg/stores"
	"github.com/theapemachine/a2a-srv/pkg/stores/s3"
)

var (
	portFlag  int
	hostFlag  string
	storeFlag string
	dirFlag   string
	authFlag  bool

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the A2A task protocol",
		Long:  longServe,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Flags that were not given fall back to config.yml.
			if !cmd.Flags().Changed("port") && viper.IsSet("server.port") {
				portFlag = viper.GetInt("server.port")
			}
			if !cmd.Flags().Changed("host") && viper.IsSet("server.host") {
				hostFlag = viper.GetString("server.host")
			}
			if !cmd.Flags().Changed("store") && viper.IsSet("store.kind") {
				storeFlag = viper.GetString("store.kind")
			}
			return runServe(cmd.Context())
		},
	}
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVarP(&portFlag, "port", "p", service.DefaultPort, "Port to serve on")
	serveCmd.Flags().StringVarP(&hostFlag, "host", "H", "0.0.0.0", "Host address to bind to")
	serveCmd.Flags().StringVarP(&storeFlag, "store", "s", "memory", "Task store backend (memory|file|s3)")
	serveCmd.Flags().StringVarP(&dirFlag, "dir", "d", "", "Base directory for the file store")
	serveCmd.Flags().BoolVar(&authFlag, "auth", false, "Require a signed nonce on every request")
}

func runServe(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := buildStore(ctx)
	if err != nil {
		return err
	}

	m := metrics.New()

	manager := service.NewTaskManager(store, service.EchoHandler, service.WithMetrics(m))

	options := []service.ServerOption{
		service.WithServerMetrics(m),
		service.WithAllowOrigin(viper.GetString("server.cors_origin")),
	}

	if authFlag || viper.GetBool("auth.enabled") {
		gateOpts := []auth.GateOption{auth.WithGateMetrics(m)}

		// The ledger itself is an external collaborator; deployments wire
		// one in through the library API.  The CLI gate verifies
		// signatures only.
		options = append(options, service.WithGate(auth.NewGate(gateOpts...)))
	}

	server := service.NewA2AServer(buildCard(), manager, options...)

	addr := fmt.Sprintf("%s:%d", hostFlag, portFlag)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: server.Handler(),
	}

	errCh := make(chan error, 1)

	go func() {
		log.Info("a2a server listening", "addr", addr, "store", storeFlag)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err

	case <-ctx.Done():
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return httpServer.Shutdown(shutdownCtx)
	}
}

func buildStore(ctx context.Context) (stores.TaskStore, error) {
	switch storeFlag {
	case "memory":
		return stores.NewInMemoryTaskStore(), nil

	case "file":
		dir := dirFlag
		if dir == "" {
			dir = viper.GetString("store.dir")
		}
		return stores.NewFileTaskStore(dir), nil

	case "s3":
		conn, err := s3.NewConn(
			viper.GetString("store.s3.endpoint"),
			viper.GetString("store.s3.access_key"),
			viper.GetString("store.s3.secret_key"),
			viper.GetBool("store.s3.secure"),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to object storage: %w", err)
		}

		return s3.NewStore(ctx, conn, viper.GetString("store.s3.bucket"))

	default:
		return nil, fmt.Errorf("unknown store backend %q", storeFlag)
	}
}

func buildCard() a2a.AgentCard {
	card := a2a.AgentCard{
		Name:    viper.GetString("agent.name"),
		URL:     viper.GetString("agent.url"),
		Version: viper.GetString("agent.version"),
		Capabilities: a2a.AgentCapabilities{
			Streaming: viper.GetBool("agent.capabilities.streaming"),
		},
	}

	if desc := viper.GetString("agent.description"); desc != "" {
		card.Description = &desc
	}

	if authFlag || viper.GetBool("auth.enabled") {
		card.Authentication = &a2a.AgentAuthentication{
			Schemes: []string{"solana-signed-nonce"},
		}
	}

	var skills []map[string]any
	if err := viper.UnmarshalKey("agent.skills", &skills); err == nil {
		for _, skill := range skills {
			entry := a2a.AgentSkill{}
			if id, ok := skill["id"].(string); ok {
				entry.ID = id
			}
			if name, ok := skill["name"].(string); ok {
				entry.Name = name
			}
			if desc, ok := skill["description"].(string); ok && desc != "" {
				entry.Description = &desc
			}
			card.Skills = append(card.Skills, entry)
		}
	}

	return card
}

var longServe = `
Serve the A2A task protocol over HTTP.

Examples:
  # In-memory store on the default port
  a2a-srv serve

  # Durable on-disk store
  a2a-srv serve --store file --dir ./tasks

  # Require a signed nonce on every request
  a2a-srv serve --auth
`
