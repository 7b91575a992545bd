package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"github.com/Tyrowin/relaychat/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()
	config, err := server.LoadConfig()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	srv := server.New(config, log)
	srv.Start()

	httpServer := server.CreateServer(config.Addr(), srv.Routes())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.StartServer(log, httpServer)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	}

	if err := server.ShutdownServer(log, httpServer, config.ShutdownTimeout); err != nil {
		return err
	}
	if err := srv.Hub().Shutdown(config.ShutdownTimeout); err != nil {
		return fmt.Errorf("hub shutdown: %w", err)
	}
	log.Info("Program stopped cleanly")
	return nil
}
