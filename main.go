package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"msgboard/config"
	"msgboard/registry"
	"msgboard/server"
	"msgboard/store"
)

var version = "dev"

func main() {
	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:           "msgboardd",
		Short:         "Multi-user message board server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg)
		},
	}

	flags := rootCmd.Flags()
	flags.IntVar(&cfg.Port, "port", cfg.Port, "TCP port to listen on")
	flags.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for account and message data")
	flags.StringVar(&cfg.StoreBackend, "store", cfg.StoreBackend, "storage backend: file or sqlite")
	flags.IntVar(&cfg.MaxConnections, "max-connections", cfg.MaxConnections, "concurrent connection cap")
	flags.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "address for the Prometheus endpoint (empty disables it)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the server version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(cfg *config.Config) error {
	st, err := store.Open(cfg.StoreBackend, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	reg, err := registry.New(st)
	if err != nil {
		return fmt.Errorf("initialize registry: %w", err)
	}

	if cfg.MetricsAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			log.Printf("Metrics endpoint listening on %s", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, nil); err != nil {
				log.Printf("Metrics endpoint failed: %v", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("Received signal %v, shutting down", sig)
		st.Close()
		os.Exit(0)
	}()

	srv := server.New(reg, &server.Config{
		Port:             cfg.Port,
		MaxConnections:   cfg.MaxConnections,
		HandshakeTimeout: time.Duration(cfg.HandshakeTimeout) * time.Second,
		WriteTimeout:     time.Duration(cfg.WriteTimeout) * time.Second,
	})
	return srv.Start()
}
