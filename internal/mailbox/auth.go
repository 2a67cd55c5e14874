package mailbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// Authenticate performs the interactive OAuth2 flow and persists the
// resulting token at tokenPath.
func Authenticate(ctx context.Context, credentialsPath, tokenPath string) error {
	oauthConfig, err := loadOAuthConfig(credentialsPath)
	if err != nil {
		return err
	}
	oauthConfig.RedirectURL = "http://localhost:8090/callback"

	authURL := oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Open the following link in your browser:\n\n%s\n\n", authURL)

	code, err := waitForCallback(ctx, ":8090")
	if err != nil {
		return err
	}

	token, err := oauthConfig.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("token exchange failed: %w", err)
	}

	if err := SaveToken(tokenPath, token); err != nil {
		return err
	}

	slog.Info("Mailbox authentication complete", "token_path", tokenPath)
	return nil
}

// waitForCallback runs a one-shot local server to receive the OAuth
// redirect.
func waitForCallback(ctx context.Context, addr string) (string, error) {
	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			errChan <- errors.New("no authorization code received")
			_, _ = fmt.Fprint(w, "<html><body><h1>Authentication failed</h1></body></html>")
			return
		}
		codeChan <- code
		_, _ = fmt.Fprint(w, "<html><body><h1>Authentication successful</h1><p>You can close this window.</p></body></html>")
	})

	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	select {
	case code := <-codeChan:
		return code, nil
	case err := <-errChan:
		return "", err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
