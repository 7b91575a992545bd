package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"github.com/Tyrowin/relaychat/internal/chatclient"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()
	config, err := chatclient.LoadConfig()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := chatclient.Dial(ctx, config, log, os.Stdout)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	if err := client.Join(); err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- client.Listen(ctx)
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("connection lost: %w", err)
			}
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := client.Handle(line); err != nil {
				if errors.Is(err, chatclient.ErrQuit) {
					return nil
				}
				return err
			}
		}
	}
}
