package seek

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/maxaizer/seek-applier/internal/logger"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"net/url"
	"time"
)

const (
	auth0Client  = "eyJuYW1lIjoiYXV0aDAuanMiLCJ2ZXJzaW9uIjoiOS4yOC4wIn0="
	authScope    = "openid profile email offline_access"
	authAudience = "https://seek/api/candidate"
)

type State int

const (
	LoggedOut State = iota
	CodeRequested
	Verifying
	Authenticated
	Refreshing
)

func (s State) String() string {
	switch s {
	case LoggedOut:
		return "logged_out"
	case CodeRequested:
		return "code_requested"
	case Verifying:
		return "verifying"
	case Authenticated:
		return "authenticated"
	case Refreshing:
		return "refreshing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// CodeFetcher reads the one-time login code from the applicant's mailbox.
// An empty code with a nil error means no matching message has arrived yet.
type CodeFetcher interface {
	FetchVerificationCode(ctx context.Context, sender string, since time.Time) (string, error)
}

// TokenStore persists the refresh token between runs. An empty token clears it.
type TokenStore interface {
	LoadRefreshToken(ctx context.Context) (string, error)
	SaveRefreshToken(ctx context.Context, token string) error
}

type SessionConfig struct {
	Email            string
	ClientID         string
	LoginURL         string
	RedirectURI      string
	CodeSender       string
	RefreshMargin    time.Duration
	CodeInitialWait  time.Duration
	CodePollAttempts int
	CodePollInterval time.Duration
}

// Session holds the candidate's Seek credentials. It is not safe for concurrent use.
type Session struct {
	client *Client
	cfg    SessionConfig
	codes  CodeFetcher
	tokens TokenStore
	log    log.FieldLogger
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error

	state        State
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

func NewSession(ctx context.Context, client *Client, cfg SessionConfig, codes CodeFetcher, tokens TokenStore,
	logger log.FieldLogger) (*Session, error) {

	refreshToken, err := tokens.LoadRefreshToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading refresh token: %w", err)
	}

	return &Session{
		client:       client,
		cfg:          cfg,
		codes:        codes,
		tokens:       tokens,
		log:          logger.WithField("component", "seek_session"),
		now:          time.Now,
		sleep:        sleepContext,
		state:        LoggedOut,
		refreshToken: refreshToken,
	}, nil
}

func (s *Session) State() State {
	return s.state
}

// AccessToken returns the bearer token, or an empty string when not authenticated.
func (s *Session) AccessToken() string {
	if s.state != Authenticated {
		return ""
	}
	return s.accessToken
}

// Login authenticates with the stored refresh token when there is one and falls back to the
// passwordless email flow.
func (s *Session) Login(ctx context.Context) error {

	if s.refreshToken != "" {
		if err := s.Refresh(ctx); err == nil {
			return nil
		}
		s.log.Info("stored refresh token was rejected, starting passwordless login")
	}

	if err := s.passwordlessLogin(ctx); err != nil {
		s.logout()
		s.log.WithField(logger.ErrorTypeField, logger.ErrorTypeSeekAuth).Errorf("seek login failed: %v", err)
		return err
	}

	s.log.Info("logged in to seek")
	return nil
}

// EnsureValid logs in when there is no session and refreshes a token that is about to expire.
func (s *Session) EnsureValid(ctx context.Context) error {

	if s.state != Authenticated || s.accessToken == "" {
		return s.Login(ctx)
	}

	if s.expiresAt.Sub(s.now()) <= s.cfg.RefreshMargin {
		s.log.Debug("seek access token is close to expiry, refreshing")
		return s.Refresh(ctx)
	}

	return nil
}

// Refresh exchanges the refresh token for a new access token. On failure the refresh token is
// discarded everywhere so the next attempt goes through a full login.
func (s *Session) Refresh(ctx context.Context) error {

	if s.refreshToken == "" {
		s.logout()
		return &AuthError{Step: "refresh", Err: ErrNotAuthenticated}
	}

	s.state = Refreshing
	tokens, err := s.requestTokens(ctx, map[string]string{
		"client_id":     s.cfg.ClientID,
		"grant_type":    "refresh_token",
		"refresh_token": s.refreshToken,
	})
	if err != nil {
		s.log.WithField(logger.ErrorTypeField, logger.ErrorTypeSeekAuth).Errorf("error refreshing seek token: %v", err)
		s.discardRefreshToken(ctx)
		return &AuthError{Step: "refresh", Err: err}
	}

	s.storeTokens(ctx, tokens)
	s.log.Debug("seek access token refreshed")
	return nil
}

// Close persists the refresh token so the next run can skip the email round trip.
func (s *Session) Close(ctx context.Context) error {
	if s.refreshToken == "" {
		return nil
	}
	if err := s.tokens.SaveRefreshToken(ctx, s.refreshToken); err != nil {
		return fmt.Errorf("error saving refresh token: %w", err)
	}
	return nil
}

type authParams struct {
	ResponseType string `json:"response_type"`
	RedirectURI  string `json:"redirect_uri"`
	Scope        string `json:"scope"`
	Audience     string `json:"audience"`
}

type passwordlessStart struct {
	ClientID   string     `json:"client_id"`
	Connection string     `json:"connection"`
	Send       string     `json:"send"`
	Email      string     `json:"email"`
	AuthParams authParams `json:"authParams"`
}

type passwordlessVerify struct {
	ClientID         string `json:"client_id"`
	Connection       string `json:"connection"`
	Email            string `json:"email"`
	VerificationCode string `json:"verification_code"`
	authParams
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

func (s *Session) passwordlessLogin(ctx context.Context) error {

	params := authParams{
		ResponseType: "code",
		RedirectURI:  s.cfg.RedirectURI,
		Scope:        authScope,
		Audience:     authAudience,
	}

	s.state = CodeRequested
	requestedAt := s.now()
	_, err := s.client.postJSON(ctx, s.cfg.LoginURL+"/passwordless/start", passwordlessStart{
		ClientID:   s.cfg.ClientID,
		Connection: "email",
		Send:       "link",
		Email:      s.cfg.Email,
		AuthParams: params,
	}, s.loginHeaders())
	if err != nil {
		return &AuthError{Step: "passwordless_start", Err: err}
	}

	code, err := s.awaitCode(ctx, requestedAt)
	if err != nil {
		return &AuthError{Step: "await_code", Err: err}
	}

	s.state = Verifying
	_, err = s.client.postJSON(ctx, s.cfg.LoginURL+"/passwordless/verify", passwordlessVerify{
		ClientID:         s.cfg.ClientID,
		Connection:       "email",
		Email:            s.cfg.Email,
		VerificationCode: code,
		authParams:       params,
	}, s.loginHeaders())
	if err != nil {
		return &AuthError{Step: "passwordless_verify", Err: err}
	}

	authCode, err := s.authorizationCode(ctx, code)
	if err != nil {
		return &AuthError{Step: "verify_redirect", Err: err}
	}

	tokens, err := s.requestTokens(ctx, map[string]string{
		"client_id":    s.cfg.ClientID,
		"grant_type":   "authorization_code",
		"code":         authCode,
		"redirect_uri": s.cfg.RedirectURI,
	})
	if err != nil {
		return &AuthError{Step: "token_exchange", Err: err}
	}

	s.storeTokens(ctx, tokens)
	return nil
}

func (s *Session) awaitCode(ctx context.Context, since time.Time) (string, error) {

	s.log.Infof("login code requested, waiting %v before checking the mailbox", s.cfg.CodeInitialWait)
	if err := s.sleep(ctx, s.cfg.CodeInitialWait); err != nil {
		return "", err
	}

	// waits between attempts must observe ctx
	var code string
	_, _, err := lo.AttemptWhileWithDelay(s.cfg.CodePollAttempts, 0,
		func(attempt int, _ time.Duration) (error, bool) {
			if attempt > 0 {
				if err := s.sleep(ctx, s.cfg.CodePollInterval); err != nil {
					return err, false
				}
			}
			if ctx.Err() != nil {
				return ctx.Err(), false
			}

			var fetchErr error
			code, fetchErr = s.codes.FetchVerificationCode(ctx, s.cfg.CodeSender, since)
			if fetchErr == nil && code == "" {
				fetchErr = ErrCodeNotReceived
			}
			if fetchErr != nil {
				s.log.Debugf("login code not available on attempt %d: %v", attempt+1, fetchErr)
			}
			return fetchErr, true
		})

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		if errors.Is(err, ErrCodeNotReceived) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrCodeNotReceived, err)
	}

	return code, nil
}

func (s *Session) authorizationCode(ctx context.Context, verificationCode string) (string, error) {

	params := url.Values{}
	params.Set("client_id", s.cfg.ClientID)
	params.Set("response_type", "code")
	params.Set("redirect_uri", s.cfg.RedirectURI)
	params.Set("scope", authScope)
	params.Set("audience", authAudience)
	params.Set("protocol", "oauth2")
	params.Set("connection", "email")
	params.Set("email", s.cfg.Email)
	params.Set("verification_code", verificationCode)
	params.Set("auth0Client", auth0Client)

	final, err := s.client.finalURL(ctx, s.cfg.LoginURL+"/passwordless/verify_redirect?"+params.Encode(), s.loginHeaders())
	if err != nil {
		return "", err
	}

	code := final.Query().Get("code")
	if code == "" {
		return "", ErrNoAuthorizationCode
	}
	return code, nil
}

func (s *Session) requestTokens(ctx context.Context, payload map[string]string) (tokenResponse, error) {

	body, err := s.client.postJSON(ctx, s.cfg.LoginURL+"/oauth/token", payload, s.loginHeaders())
	if err != nil {
		return tokenResponse{}, err
	}

	var tokens tokenResponse
	if err := json.Unmarshal(body, &tokens); err != nil {
		return tokenResponse{}, fmt.Errorf("error decoding token response: %w", err)
	}

	if tokens.AccessToken == "" {
		return tokenResponse{}, errors.New("token response has no access_token")
	}
	return tokens, nil
}

func (s *Session) storeTokens(ctx context.Context, tokens tokenResponse) {

	s.accessToken = tokens.AccessToken
	if tokens.RefreshToken != "" {
		s.refreshToken = tokens.RefreshToken
	}
	s.expiresAt = s.now().Add(time.Duration(tokens.ExpiresIn) * time.Second)
	s.state = Authenticated

	s.persistRefreshToken(ctx)
}

func (s *Session) persistRefreshToken(ctx context.Context) {
	if err := s.tokens.SaveRefreshToken(ctx, s.refreshToken); err != nil {
		s.log.WithField(logger.ErrorTypeField, logger.ErrorTypeSeekAuth).Errorf("error saving refresh token: %v", err)
	}
}

func (s *Session) discardRefreshToken(ctx context.Context) {
	s.refreshToken = ""
	s.logout()
	s.persistRefreshToken(ctx)
}

func (s *Session) logout() {
	s.state = LoggedOut
	s.accessToken = ""
	s.expiresAt = time.Time{}
}

func (s *Session) loginHeaders() map[string]string {
	return map[string]string{
		"Auth0-Client":       auth0Client,
		"Origin":             s.cfg.LoginURL,
		"Referer":            s.cfg.LoginURL + "/",
		"X-Request-Language": "en-au",
	}
}
