package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/nickyhof/CommitView/config"
	"github.com/nickyhof/CommitView/core"
)

var errAuthRequired = errors.New("authentication required: send AUTH JWT <token>")

const authPrefix = "AUTH "

// sessionClaims are the token claims a connection is authenticated with.
type sessionClaims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// grant is what a connection holds after a successful AUTH.
type grant struct {
	identity core.Identity
	expires  time.Time
}

func (g *grant) valid(now time.Time) bool {
	return g != nil && (g.expires.IsZero() || now.Before(g.expires))
}

// authenticator checks HMAC-signed tokens against the configured secret,
// issuer and audience.
type authenticator struct {
	secret []byte
	parser *jwt.Parser
}

func newAuthenticator(cfg config.AuthConfig) *authenticator {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return &authenticator{secret: []byte(cfg.Secret), parser: jwt.NewParser(opts...)}
}

func (a *authenticator) authenticate(token string) (*grant, error) {
	if len(a.secret) == 0 {
		return nil, errors.New("no JWT secret configured")
	}
	var claims sessionClaims
	if _, err := a.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}); err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if claims.Name == "" && claims.Email == "" {
		return nil, errors.New("token carries neither name nor email")
	}
	g := &grant{identity: core.Identity{Name: claims.Name, Email: claims.Email}}
	if claims.ExpiresAt != nil {
		g.expires = claims.ExpiresAt.Time
	}
	return g, nil
}

func isAuthCommand(line string) bool {
	return len(line) >= len(authPrefix) && strings.EqualFold(line[:len(authPrefix)], authPrefix)
}

// authToken extracts the token of an "AUTH JWT <token>" line.
func authToken(line string) (string, error) {
	fields := strings.Fields(line)
	switch {
	case len(fields) == 0 || !strings.EqualFold(fields[0], "AUTH"):
		return "", errors.New("not an AUTH command")
	case len(fields) != 3:
		return "", errors.New("invalid AUTH command: expected AUTH JWT <token>")
	case !strings.EqualFold(fields[1], "JWT"):
		return "", fmt.Errorf("unsupported auth type: %s", fields[1])
	}
	return fields[2], nil
}

// handleAuth answers an AUTH line, recording the grant on success.
func (s *Server) handleAuth(line string, sess *session) Response {
	token, err := authToken(line)
	if err != nil {
		return errResponse("auth", err)
	}
	g, err := s.auth.authenticate(token)
	if err != nil {
		s.logger.Debug("authentication failed", zap.String("session", sess.id), zap.Error(err))
		return errResponse("auth", err)
	}
	sess.grant = g

	resp := AuthResponse{Authenticated: true, Identity: g.identity.String()}
	if !g.expires.IsZero() {
		resp.ExpiresIn = int(time.Until(g.expires).Seconds())
	}
	return okResponse("auth", resp)
}
