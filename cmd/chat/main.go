// Command chat is a terminal client for the same conversation engine the
// server exposes. It keeps the API key in the local database between runs
// and talks to the providers directly.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/sgrenier/chatbuddy/internal/adapter/driven/provider"
	sqliteadapter "github.com/sgrenier/chatbuddy/internal/adapter/driven/sqlite"
	"github.com/sgrenier/chatbuddy/internal/application"
	"github.com/sgrenier/chatbuddy/internal/config"
	"github.com/sgrenier/chatbuddy/internal/domain/model"
)

const (
	credentialService = "chat"
	credentialKey     = "api_key"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Quiet structured logs to stderr so the transcript stays readable.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	credentials := sqliteadapter.NewCredentialRepo(db)

	clients := provider.NewRegistry(
		provider.NewGoogleClient(provider.WithGoogleModel(cfg.GoogleModel)),
		provider.NewOpenRouterClient(cfg.HTTPReferer, cfg.AppTitle,
			provider.WithOpenRouterModel(cfg.OpenRouterModel)),
	)
	validator := application.NewKeyValidator(clients)
	session := application.NewConversationSession(clients, cfg.RequestTimeout, logger)

	in := bufio.NewScanner(os.Stdin)

	apiKey, err := obtainKey(ctx, in, credentials, validator)
	if err != nil {
		return err
	}

	fmt.Println("Chat ready. Type a message, or 'exit' to quit.")
	for {
		fmt.Print("you> ")
		if !in.Scan() {
			fmt.Println()
			return in.Err()
		}
		line := strings.TrimSpace(in.Text())
		if line == "exit" || line == "quit" {
			return nil
		}
		if line == "" {
			continue
		}

		turn, err := session.SendTurn(ctx, apiKey, line)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			fmt.Println("error:", err)
			if f, ok := model.AsFailure(err); ok && f.AuthSuspected() {
				fmt.Println("The provider rejected the key. Enter a new one.")
				apiKey, err = obtainKey(ctx, in, credentials, validator)
				if err != nil {
					return err
				}
			}
			continue
		}
		fmt.Println("bot>", turn.Text)
	}
}

// obtainKey returns a key verified against the live provider: the stored
// one when it still validates, otherwise one prompted from the terminal.
// A freshly accepted key replaces the stored value.
func obtainKey(ctx context.Context, in *bufio.Scanner, credentials *sqliteadapter.CredentialRepo, validator *application.KeyValidator) (string, error) {
	stored, err := credentials.Get(ctx, credentialService, credentialKey)
	if err != nil {
		return "", err
	}
	if stored != "" {
		fmt.Println("Checking saved API key...")
		if outcome := validator.Validate(ctx, stored); outcome.Valid {
			fmt.Println("Saved key verified.")
			return stored, nil
		}
		fmt.Println("Saved key no longer validates.")
	}

	for {
		fmt.Print("API key (sk-or-... for OpenRouter, anything else for Google): ")
		if !in.Scan() {
			if err := in.Err(); err != nil {
				return "", err
			}
			return "", errors.New("no API key provided")
		}
		key := strings.TrimSpace(in.Text())

		outcome := validator.Validate(ctx, key)
		if !outcome.Valid {
			fmt.Println("Key rejected:", outcome.ErrorMessage)
			continue
		}

		if err := credentials.Set(ctx, credentialService, credentialKey, key); err != nil {
			return "", fmt.Errorf("store credential: %w", err)
		}
		fmt.Println("Key verified and saved.")
		return key, nil
	}
}
