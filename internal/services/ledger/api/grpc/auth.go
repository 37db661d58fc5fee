package ledgergrpc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/louisbranch/objectledger/internal/platform/requestctx"
)

// Metadata keys read by the auth interceptor.
const (
	AuthorizationHeader = "authorization"
	// SenderHeader names the sender directly. It is honored only when no
	// signing secret is configured.
	SenderHeader = "x-ledger-sender"
	LocaleHeader = "x-ledger-locale"
)

const defaultTokenTTL = time.Hour

// Authenticator verifies sender tokens. A zero Secret disables token checks
// and trusts SenderHeader, which suits local development and tests.
type Authenticator struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
	Now    func() time.Time
}

func (a Authenticator) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// IssueToken signs an HS256 token whose subject is sender.
func (a Authenticator) IssueToken(sender string) (string, error) {
	if len(a.Secret) == 0 {
		return "", errors.New("jwt secret is required to issue tokens")
	}
	sender = strings.TrimSpace(sender)
	if sender == "" {
		return "", errors.New("sender is required")
	}
	ttl := a.TTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   sender,
		Issuer:    a.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Authenticate returns the sender proven by incoming metadata, or "" when the
// caller presented no credentials.
func (a Authenticator) Authenticate(ctx context.Context) (string, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	if len(a.Secret) == 0 {
		return firstValue(md, SenderHeader), nil
	}
	header := firstValue(md, AuthorizationHeader)
	if header == "" {
		return "", nil
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", status.Error(codes.Unauthenticated, "authorization must be a bearer token")
	}

	var claims jwt.RegisteredClaims
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	}
	if a.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(a.Issuer))
	}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(token), &claims, func(*jwt.Token) (any, error) {
		return a.Secret, nil
	}, parserOpts...)
	if err != nil {
		return "", status.Error(codes.Unauthenticated, "invalid token: "+err.Error())
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", status.Error(codes.Unauthenticated, "token subject is required")
	}
	return claims.Subject, nil
}

// UnaryServerInterceptor stores the authenticated sender and preferred
// locale in the request context.
func (a Authenticator) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		if locale := firstValue(md, LocaleHeader); locale != "" {
			ctx = requestctx.WithLocale(ctx, locale)
		}
		sender, err := a.Authenticate(ctx)
		if err != nil {
			return nil, err
		}
		if sender != "" {
			ctx = requestctx.WithSender(ctx, sender)
		}
		return handler(ctx, req)
	}
}

func firstValue(md metadata.MD, key string) string {
	for _, value := range md.Get(key) {
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return ""
}
