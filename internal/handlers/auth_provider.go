package handlers

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/HammerMeetNail/dailydoodle/internal/services"
)

const (
	oauthStateCookieName = "oauth_state"
	oauthNonceCookieName = "oauth_nonce"
	oauthNextCookieName  = "oauth_next"
	oauthCookieMaxAge    = 10 * 60 // 10 minutes
)

type ProviderAuthHandler struct {
	providerAuth services.ProviderAuthServiceInterface
	authService  services.AuthServiceInterface
	providers    map[string]services.OAuthProvider
	secure       bool
}

func NewProviderAuthHandler(providerAuth services.ProviderAuthServiceInterface, authService services.AuthServiceInterface, providers map[services.Provider]services.OAuthProvider, secure bool) *ProviderAuthHandler {
	normalized := make(map[string]services.OAuthProvider, len(providers))
	for key, provider := range providers {
		normalized[strings.ToLower(string(key))] = provider
	}

	return &ProviderAuthHandler{
		providerAuth: providerAuth,
		authService:  authService,
		providers:    normalized,
		secure:       secure,
	}
}

// Providers lists the configured sign-in providers for the login page.
func (h *ProviderAuthHandler) Providers(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.providers))
	for key := range h.providers {
		names = append(names, key)
	}
	sort.Strings(names)
	writeJSON(w, http.StatusOK, map[string][]string{"providers": names})
}

func (h *ProviderAuthHandler) ProviderStart(w http.ResponseWriter, r *http.Request) {
	provider := h.getProvider(r)
	if provider == nil {
		http.NotFound(w, r)
		return
	}

	state, err := generateSecureToken(32)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to start provider auth")
		return
	}
	nonce, err := generateSecureToken(32)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to start provider auth")
		return
	}

	h.setOAuthCookie(w, oauthStateCookieName, state)
	h.setOAuthCookie(w, oauthNonceCookieName, nonce)

	if next := sanitizeNext(r.URL.Query().Get("next")); next != "" {
		h.setOAuthCookie(w, oauthNextCookieName, next)
	} else {
		h.clearOAuthCookie(w, oauthNextCookieName)
	}

	http.Redirect(w, r, provider.AuthCodeURL(state, nonce), http.StatusFound)
}

// ProviderCallback finishes the code exchange, signs the user in and sends
// them back to the app. Accounts are created or linked on first sign-in.
func (h *ProviderAuthHandler) ProviderCallback(w http.ResponseWriter, r *http.Request) {
	provider := h.getProvider(r)
	if provider == nil {
		http.NotFound(w, r)
		return
	}

	if providerErr := r.URL.Query().Get("error"); providerErr != "" {
		h.redirectToLoginError(w, r, providerErr)
		return
	}

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		h.redirectToLoginError(w, r, "oauth_missing")
		return
	}

	stateCookie, err := r.Cookie(oauthStateCookieName)
	if err != nil || !secureCompare(stateCookie.Value, state) {
		h.redirectToLoginError(w, r, "oauth_invalid")
		return
	}

	nonceCookie, err := r.Cookie(oauthNonceCookieName)
	if err != nil || nonceCookie.Value == "" {
		h.redirectToLoginError(w, r, "oauth_invalid")
		return
	}

	claims, err := provider.ExchangeAndVerify(r.Context(), code, nonceCookie.Value)
	if err != nil {
		log.Printf("Provider exchange failed: %v", err)
		h.redirectToLoginError(w, r, "oauth_exchange")
		return
	}

	user, err := h.providerAuth.LinkOrCreateUser(r.Context(), claims)
	if err != nil {
		if errors.Is(err, services.ErrProviderEmailUnverified) {
			h.redirectToLoginError(w, r, "oauth_unverified")
			return
		}
		log.Printf("Provider link failed: %v", err)
		h.redirectToLoginError(w, r, "oauth_link")
		return
	}

	h.clearOAuthCookie(w, oauthStateCookieName)
	h.clearOAuthCookie(w, oauthNonceCookieName)

	token, err := h.authService.CreateSession(r.Context(), user.ID)
	if err != nil {
		log.Printf("Provider session failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	setSessionCookie(w, token, h.secure)

	next := h.readOAuthNext(r)
	h.clearOAuthCookie(w, oauthNextCookieName)
	http.Redirect(w, r, redirectTarget(next, "#today"), http.StatusFound)
}

func (h *ProviderAuthHandler) getProvider(r *http.Request) services.OAuthProvider {
	key := strings.ToLower(r.PathValue("provider"))
	if key == "" {
		return nil
	}
	return h.providers[key]
}

func (h *ProviderAuthHandler) setOAuthCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   oauthCookieMaxAge,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *ProviderAuthHandler) clearOAuthCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
	})
}

func (h *ProviderAuthHandler) redirectToLoginError(w http.ResponseWriter, r *http.Request, code string) {
	message := sanitizeErrorParam(code)
	http.Redirect(w, r, "/#login?error="+message, http.StatusFound)
}

func (h *ProviderAuthHandler) readOAuthNext(r *http.Request) string {
	nextCookie, err := r.Cookie(oauthNextCookieName)
	if err != nil {
		return ""
	}
	return sanitizeNext(nextCookie.Value)
}

func redirectTarget(next, fallback string) string {
	if next != "" {
		return "/" + next
	}
	return "/" + fallback
}

func generateSecureToken(size int) (string, error) {
	data := make([]byte, size)
	if _, err := rand.Read(data); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

func secureCompare(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func sanitizeNext(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if !strings.HasPrefix(value, "#") {
		return ""
	}
	if strings.Contains(value, "\n") || strings.Contains(value, "\r") {
		return ""
	}
	return value
}

func sanitizeErrorParam(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "oauth_error"
	}
	if len(value) > 60 {
		value = value[:60]
	}
	for _, r := range value {
		if !isAllowedErrorRune(r) {
			return "oauth_error"
		}
	}
	return value
}

func isAllowedErrorRune(r rune) bool {
	return r == '-' || r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
