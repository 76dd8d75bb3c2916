package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"syllacal/internal/config"
	"syllacal/internal/extractor"
	"syllacal/internal/google"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "syllacal",
		Usage: "Turn syllabi into calendar events and book meetings in shared free time.",
		Commands: []*cli.Command{
			authCommand(),
			slotsCommand(),
			bookCommand(),
			syllabusCommand(),
			stressCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account to get an API token.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "account", Usage: "Name to store the token under. Defaults to GOOGLE_ACCOUNT."},
		},
		Action: func(c *cli.Context) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			logger.Info("Starting Google authentication flow.")

			oauthConfig, err := google.GetOAuthConfigForAuthFlow(cfg.GoogleClientID, cfg.GoogleClientSecret)
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			reader := bufio.NewReader(os.Stdin)
			authCode := prompt(reader, "Enter Authorization Code: ")

			token, err := google.TokenFromWeb(c.Context, oauthConfig, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			account := c.String("account")
			if account == "" {
				account = cfg.GoogleAccount
			}
			tokenFile := google.TokenFile(account)
			if err := google.SaveToken(tokenFile, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			accounts, err := google.GetTokenAccounts(".")
			if err != nil {
				logger.Warn("Could not list stored accounts", "error", err)
			}
			logger.Info("Successfully authenticated and saved token.", "file", tokenFile, "accounts", strings.Join(accounts, ","))
			return nil
		},
	}
}

// loadConfig reads the environment and builds the logger every command uses.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, setupLogger(cfg.LogLevel), nil
}

func newGoogleClient(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*google.CalendarClient, error) {
	session, err := google.NewSession(ctx, logger, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleAccount)
	if err != nil {
		return nil, fmt.Errorf("failed to load google session for account %s: %w", cfg.GoogleAccount, err)
	}
	client, err := google.NewClient(ctx, logger, session, cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}
	return client, nil
}

func newExtractor(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*extractor.Extractor, func(), error) {
	if err := cfg.RequireGemini(); err != nil {
		return nil, nil, err
	}
	gemini, err := extractor.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := gemini.Close(); err != nil {
			logger.Warn("Failed to close Gemini client", "error", err)
		}
	}
	return extractor.New(gemini, logger), closeFn, nil
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
