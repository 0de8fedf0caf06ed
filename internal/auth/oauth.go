package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/browser"
	"golang.org/x/oauth2"
)

const (
	authURL      = "https://www.strava.com/oauth/authorize"
	tokenURL     = "https://www.strava.com/oauth/token"
	callbackAddr = "localhost:8089"
	callbackPath = "/callback"
	scopes       = "activity:read_all"

	consentTimeout = 5 * time.Minute
	expiryLeeway   = 5 * time.Minute
)

// ErrStateMismatch means the callback did not carry the state we issued
var ErrStateMismatch = errors.New("oauth state mismatch")

// StravaOAuthConfig returns an OAuth2 config for Strava
func StravaOAuthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  authURL,
			TokenURL: tokenURL,
		},
		RedirectURL: "http://" + callbackAddr + callbackPath,
		Scopes:      []string{scopes},
	}
}

// TokenResponse is the token set persisted in auth_config
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// TokenFromOAuth2 converts an oauth2.Token to a TokenResponse
func TokenFromOAuth2(token *oauth2.Token) *TokenResponse {
	return &TokenResponse{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry.Unix(),
		TokenType:    token.TokenType,
	}
}

// ToOAuth2Token converts a TokenResponse to an oauth2.Token
func (t *TokenResponse) ToOAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		Expiry:       time.Unix(t.ExpiresAt, 0),
		TokenType:    t.TokenType,
	}
}

// Authenticator runs the browser consent flow against a local callback server
type Authenticator struct {
	Config      *oauth2.Config
	Listener    net.Listener
	OpenBrowser func(url string) error
	Timeout     time.Duration
}

// Authenticate performs the OAuth flow with Strava's endpoints and returns tokens
func Authenticate(ctx context.Context, clientID, clientSecret string) (*TokenResponse, error) {
	ln, err := net.Listen("tcp", callbackAddr)
	if err != nil {
		return nil, fmt.Errorf("starting callback listener: %w", err)
	}
	a := &Authenticator{
		Config:      StravaOAuthConfig(clientID, clientSecret),
		Listener:    ln,
		OpenBrowser: browser.OpenURL,
		Timeout:     consentTimeout,
	}
	return a.Run(ctx)
}

// Run serves the callback on a.Listener, opens the consent page and exchanges
// the returned code. The listener is closed on return.
func (a *Authenticator) Run(ctx context.Context) (*TokenResponse, error) {
	state := uuid.NewString()
	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "invalid state", http.StatusBadRequest)
			sendErr(errChan, ErrStateMismatch)
			return
		}
		code := q.Get("code")
		if code == "" {
			msg := q.Get("error")
			if msg == "" {
				msg = "no authorization code received"
			}
			http.Error(w, msg, http.StatusBadRequest)
			sendErr(errChan, fmt.Errorf("authorization failed: %s", msg))
			return
		}

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><h1>Authorization successful!</h1><p>You can close this window.</p></body></html>`)
		select {
		case codeChan <- code:
		default:
		}
	})

	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(a.Listener); err != nil && err != http.ErrServerClosed {
			sendErr(errChan, fmt.Errorf("callback server error: %w", err))
		}
	}()
	defer server.Shutdown(context.Background())

	consentURL := a.Config.AuthCodeURL(state, oauth2.SetAuthURLParam("approval_prompt", "force"))
	fmt.Println("Opening browser for Strava authorization...")
	fmt.Printf("If browser doesn't open, visit: %s\n\n", consentURL)
	if a.OpenBrowser != nil {
		if err := a.OpenBrowser(consentURL); err != nil {
			fmt.Printf("Could not open browser automatically: %v\n", err)
		}
	}

	timeout := a.Timeout
	if timeout <= 0 {
		timeout = consentTimeout
	}

	var code string
	select {
	case code = <-codeChan:
	case err := <-errChan:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(timeout):
		return nil, fmt.Errorf("authorization timeout")
	}

	token, err := a.Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	return TokenFromOAuth2(token), nil
}

func sendErr(ch chan<- error, err error) {
	select {
	case ch <- err:
	default:
	}
}

// RefreshAccessToken exchanges a refresh token at Strava's token endpoint
func RefreshAccessToken(clientID, clientSecret, refreshToken string) (*TokenResponse, error) {
	return RefreshWithConfig(context.Background(), StravaOAuthConfig(clientID, clientSecret), refreshToken)
}

// RefreshWithConfig exchanges a refresh token using config's endpoint
func RefreshWithConfig(ctx context.Context, config *oauth2.Config, refreshToken string) (*TokenResponse, error) {
	// An already expired token forces the source to refresh
	stale := &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Now().Add(-time.Hour),
	}

	fresh, err := config.TokenSource(ctx, stale).Token()
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}
	return TokenFromOAuth2(fresh), nil
}

// IsTokenExpired reports whether the token is expired or within five minutes of expiry
func IsTokenExpired(expiresAt int64) bool {
	return time.Now().Unix() > expiresAt-int64(expiryLeeway/time.Second)
}
