package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

var (
	// ErrMissingToken is returned when the login response carries no token.
	ErrMissingToken = errors.New("no token in login response")
	// ErrInvalidCredentials is returned when the server refuses the identity/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const maxLoginResponse = 1 << 20

// Credentials identify the bot account.
type Credentials struct {
	Identity string `json:"identity"`
	Password string `json:"password"`
}

// Service performs HTTP logins against a Sharkord server.
type Service struct {
	client    *http.Client
	host      string
	insecure  bool
	userAgent string
	log       *zerolog.Logger
}

// NewService creates a login service for host. A nil client uses http.DefaultClient.
func NewService(client *http.Client, host string, insecure bool, userAgent string, logger *zerolog.Logger) *Service {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{
		client:    client,
		host:      host,
		insecure:  insecure,
		userAgent: userAgent,
		log:       logger,
	}
}

// LoginURL returns the login endpoint for the configured host.
func (s *Service) LoginURL() string {
	scheme := "https"
	if s.insecure {
		scheme = "http"
	}
	return scheme + "://" + s.host + "/login"
}

// Login exchanges credentials for a session token.
func (s *Service) Login(ctx context.Context, creds Credentials) (string, error) {
	body, err := json.Marshal(creds)
	if err != nil {
		return "", fmt.Errorf("encode credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.LoginURL(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	s.log.Debug().Str("url", req.URL.String()).Msg("authenticating")
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxLoginResponse))
	if err != nil {
		return "", fmt.Errorf("read login response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", fmt.Errorf("login: %w (status %d)", ErrInvalidCredentials, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", fmt.Errorf("login: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	if payload.Token == "" {
		return "", ErrMissingToken
	}

	s.log.Debug().Msg("login succeeded")
	return payload.Token, nil
}
