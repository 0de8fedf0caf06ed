package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joshdurbin/strava-trends/internal/auth"
	"github.com/joshdurbin/strava-trends/internal/logging"
)

// console is the interactive terminal. Prompts go to stderr so that a stdio
// MCP session on stdout is never corrupted.
type console struct {
	in  *bufio.Reader
	out io.Writer
}

func newConsole() *console {
	return &console{in: bufio.NewReader(os.Stdin), out: os.Stderr}
}

func (c *console) println(a ...any) {
	fmt.Fprintln(c.out, a...)
}

// ask prints prompt and returns the trimmed answer
func (c *console) ask(prompt string) (string, error) {
	fmt.Fprint(c.out, prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// credentialStore is the part of auth.Storage the login flow needs
type credentialStore interface {
	DeleteTokens() error
	LoadClientConfig() (*auth.ClientConfig, error)
	GetValidAccessToken() (string, error)
	SaveFullConfig(clientID, clientSecret string, tokens *auth.TokenResponse) error
}

// authenticate runs the browser OAuth flow
var authenticate = auth.Authenticate

// ensureAuthenticated checks if we have valid auth tokens, and if not, runs the OAuth flow
func ensureAuthenticated(ctx context.Context, storage credentialStore, cfg *RuntimeConfig, con *console) (string, error) {
	log := logging.Logger

	if cfg.ForceReauth {
		log.Info().Msg("force re-authentication requested, clearing existing credentials and tokens")
		if err := storage.DeleteTokens(); err != nil {
			log.Debug().Err(err).Msg("failed to delete existing auth config (may not exist)")
		}
	}

	if !cfg.ForceReauth {
		accessToken, err := storage.GetValidAccessToken()
		if err == nil {
			log.Info().Msg("using existing authentication")
			return accessToken, nil
		}

		// Stored tokens that fail to refresh mean the grant was revoked or expired
		if !errors.Is(err, auth.ErrNotAuthenticated) {
			log.Warn().Err(err).Msg("token refresh failed, re-authentication required")
			con.println("\n=== Token Refresh Failed ===")
			con.println("Your Strava authentication has expired or been revoked.")
			con.println("Re-authentication is required.")
		} else {
			log.Info().Msg("no valid authentication found, starting OAuth flow")
		}
	}

	clientConfig, err := storage.LoadClientConfig()
	if err != nil || cfg.ForceReauth {
		clientConfig, err = promptForCredentials(con)
		if err != nil {
			return "", fmt.Errorf("getting credentials: %w", err)
		}
	}

	return runOAuthFlow(ctx, storage, clientConfig, con)
}

// promptForCredentials prompts the user to enter their Strava API credentials
func promptForCredentials(con *console) (*auth.ClientConfig, error) {
	con.println("\n=== Strava API Credentials Required ===")
	con.println("Get your API credentials from: https://www.strava.com/settings/api")
	con.println()

	clientID, err := con.ask("Enter your Client ID: ")
	if err != nil {
		return nil, fmt.Errorf("reading client ID: %w", err)
	}
	if clientID == "" {
		return nil, fmt.Errorf("client ID is required")
	}

	clientSecret, err := con.ask("Enter your Client Secret: ")
	if err != nil {
		return nil, fmt.Errorf("reading client secret: %w", err)
	}
	if clientSecret == "" {
		return nil, fmt.Errorf("client secret is required")
	}

	return &auth.ClientConfig{
		ClientID:     clientID,
		ClientSecret: clientSecret,
	}, nil
}

// runOAuthFlow performs the OAuth authentication flow with Strava and stores the result
func runOAuthFlow(ctx context.Context, storage credentialStore, clientConfig *auth.ClientConfig, con *console) (string, error) {
	log := logging.Logger

	con.println("\n=== Strava Authentication Required ===")
	con.println("A browser window will open for you to authorize this application.")
	if _, err := con.ask("Press Enter to continue..."); err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("waiting for confirmation: %w", err)
	}

	tokens, err := authenticate(ctx, clientConfig.ClientID, clientConfig.ClientSecret)
	if err != nil {
		return "", fmt.Errorf("OAuth flow failed: %w", err)
	}

	expires := time.Unix(tokens.ExpiresAt, 0)
	log.Info().
		Str("expires_at", expires.Format(time.RFC3339)).
		Msg("OAuth authentication successful")

	if err := storage.SaveFullConfig(clientConfig.ClientID, clientConfig.ClientSecret, tokens); err != nil {
		return "", fmt.Errorf("saving tokens: %w", err)
	}

	fmt.Fprintf(con.out, "\nAuthentication successful! Token expires: %s\n\n", expires.Format(time.RFC1123))
	return tokens.AccessToken, nil
}
