package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

const (
	oauthCallbackPort = 8080
	xAuthURL          = "https://twitter.com/i/oauth2/authorize"
	xTokenURL         = "https://api.x.com/2/oauth2/token"
)

var xScopes = []string{"tweet.read", "users.read", "tweet.write", "offline.access"}

// storedToken is the on-disk token shape. expires_at is absolute epoch
// seconds so validity survives restarts.
type storedToken struct {
	AccessToken  string  `json:"access_token"`
	TokenType    string  `json:"token_type"`
	RefreshToken string  `json:"refresh_token,omitempty"`
	Scope        string  `json:"scope,omitempty"`
	ExpiresIn    int64   `json:"expires_in,omitempty"`
	ExpiresAt    float64 `json:"expires_at"`
}

// OAuthHandler owns the X OAuth 2.0 PKCE lifecycle: first-time interactive
// authorization through a local callback server, persisted tokens, and
// silent refresh once the access token expires.
type OAuthHandler struct {
	mu   sync.Mutex
	conf *oauth2.Config
	path string
}

func NewOAuthHandler(clientID, clientSecret, tokenPath string) *OAuthHandler {
	return &OAuthHandler{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  fmt.Sprintf("http://localhost:%d/oauth/callback", oauthCallbackPort),
			Scopes:       xScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   xAuthURL,
				TokenURL:  xTokenURL,
				AuthStyle: oauth2.AuthStyleInHeader, // Basic auth on the token endpoint
			},
		},
		path: tokenPath,
	}
}

func (h *OAuthHandler) loadToken() *storedToken {
	data, err := os.ReadFile(h.path)
	if err != nil {
		return nil
	}
	var tok storedToken
	if err := json.Unmarshal(data, &tok); err != nil {
		log.Warn("⚠️ Corrupted token file, deleting...")
		os.Remove(h.path)
		return nil
	}
	return &tok
}

func (h *OAuthHandler) saveToken(tok *oauth2.Token) *storedToken {
	st := &storedToken{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    float64(tok.Expiry.Unix()),
	}
	if data, err := json.MarshalIndent(st, "", "  "); err == nil {
		if err := os.WriteFile(h.path, data, 0600); err != nil {
			log.Errorf("Failed to save token: %v", err)
			return st
		}
	}
	log.Info("✅ Token saved to storage")
	return st
}

// IsAuthenticated reports whether a non-expired token is on disk.
func (h *OAuthHandler) IsAuthenticated() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	tok := h.loadToken()
	return tok != nil && float64(time.Now().Unix()) < tok.ExpiresAt
}

// GetAccessToken returns a valid access token, refreshing or falling back
// to the interactive flow as needed. Blocks during interactive auth.
func (h *OAuthHandler) GetAccessToken() (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	tok := h.loadToken()
	if tok == nil {
		fresh, err := h.runAuthFlow()
		if err != nil {
			return "", err
		}
		return fresh.AccessToken, nil
	}

	if float64(time.Now().Unix()) >= tok.ExpiresAt {
		log.Info("Token expired, refreshing...")
		refreshed, err := h.refresh(tok)
		if err != nil {
			log.Warnf("Token refresh failed: %v. Re-authentication required.", err)
			refreshed, err = h.runAuthFlow()
			if err != nil {
				return "", err
			}
		}
		return refreshed.AccessToken, nil
	}

	return tok.AccessToken, nil
}

func (h *OAuthHandler) refresh(tok *storedToken) (*storedToken, error) {
	if tok.RefreshToken == "" {
		return nil, fmt.Errorf("no refresh token stored")
	}

	log.Info("🔄 Refreshing access token...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	src := h.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: tok.RefreshToken})
	newTok, err := src.Token()
	if err != nil {
		return nil, err
	}

	log.Info("✅ Token refreshed successfully")
	return h.saveToken(newTok), nil
}

// runAuthFlow stands up a short-lived local HTTP server, sends the user
// through X's consent page, and exchanges the returned code with the PKCE
// verifier. Blocks until the callback arrives.
func (h *OAuthHandler) runAuthFlow() (*storedToken, error) {
	log.Info("🔐 No valid token found. Starting OAuth 2.0 authorization flow...")

	verifier := oauth2.GenerateVerifier()
	state := oauth2.GenerateVerifier() // random enough for CSRF state
	authURL := h.conf.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))

	type result struct {
		tok *oauth2.Token
		err error
	}
	done := make(chan result, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, authURL, http.StatusFound)
	})
	mux.HandleFunc("/oauth/callback", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("state"); got != state {
			http.Error(w, "Error: state mismatch", http.StatusBadRequest)
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "Error: No code provided", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()
		tok, err := h.conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
		if err != nil {
			http.Error(w, fmt.Sprintf("❌ Error during token exchange: %v", err), http.StatusBadRequest)
			done <- result{err: err}
			return
		}

		fmt.Fprint(w, "✅ Authentication successful! You can now close this window.")
		done <- result{tok: tok}
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf("localhost:%d", oauthCallbackPort),
		Handler: mux,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			done <- result{err: err}
		}
	}()

	startURL := fmt.Sprintf("http://localhost:%d", oauthCallbackPort)
	log.Infof("📱 Visit %s to authorize the app", startURL)
	openBrowser(startURL)

	log.Info("⏳ Waiting for authorization...")
	res := <-done

	// Let the browser receive the success page before shutting down.
	time.Sleep(2 * time.Second)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)

	if res.err != nil {
		return nil, res.err
	}

	log.Info("✅ OAuth 2.0 authorization complete!")
	return h.saveToken(res.tok), nil
}

// openBrowser is best effort; failing silently is fine since the URL is
// logged anyway.
func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	_ = cmd.Start()
}
