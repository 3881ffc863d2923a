package cognito

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	idptypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/golang-jwt/jwt/v5"

	"github.com/marketmind/marketmind/internal/core/domain"
	"github.com/marketmind/marketmind/internal/core/ports"
)

// AuthService verifies Cognito JWTs against the pool's JWKS and exchanges
// credentials for tokens through the identity provider API.
type AuthService struct {
	client   *cognitoidentityprovider.Client
	clientID string
	issuer   string
	jwks     keyfunc.Keyfunc
	logger   *slog.Logger
}

// NewAuthService fetches the pool's JWKS once at startup; keyfunc refreshes
// it in the background on unknown key IDs.
func NewAuthService(ctx context.Context, awsCfg aws.Config, region, userPoolID, clientID string, logger *slog.Logger) (*AuthService, error) {
	issuer := fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", region, userPoolID)
	jwksURL := issuer + "/.well-known/jwks.json"

	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("loading cognito jwks: %w", err)
	}

	logger.Info("cognito auth service initialized", "user_pool_id", userPoolID, "issuer", issuer)
	return &AuthService{
		client:   cognitoidentityprovider.NewFromConfig(awsCfg),
		clientID: clientID,
		issuer:   issuer,
		jwks:     jwks,
		logger:   logger,
	}, nil
}

// VerifyToken validates signature, issuer, expiry, and the pool client the
// token was issued for, then returns its claims.
func (s *AuthService) VerifyToken(_ context.Context, token string) (map[string]interface{}, error) {
	parsed, err := jwt.Parse(token, s.jwks.Keyfunc,
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, domain.ErrInvalidToken
	}

	// Cognito access tokens carry client_id, id tokens carry aud.
	clientID, _ := claims["client_id"].(string)
	audience, _ := claims["aud"].(string)
	if clientID != s.clientID && audience != s.clientID {
		return nil, fmt.Errorf("%w: token issued for a different client", domain.ErrInvalidToken)
	}

	return map[string]interface{}(claims), nil
}

// Login runs the USER_PASSWORD_AUTH flow and returns the issued tokens.
func (s *AuthService) Login(ctx context.Context, username, password string) (domain.AuthTokens, error) {
	resp, err := s.client.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
		ClientId: aws.String(s.clientID),
		AuthFlow: idptypes.AuthFlowTypeUserPasswordAuth,
		AuthParameters: map[string]string{
			"USERNAME": username,
			"PASSWORD": password,
		},
	})
	if err != nil {
		s.logger.Warn("authentication failed", "username", username, "error", err)
		return domain.AuthTokens{}, fmt.Errorf("authentication failed: %w", err)
	}
	if resp.AuthenticationResult == nil {
		return domain.AuthTokens{}, fmt.Errorf("authentication failed: challenge required")
	}

	result := resp.AuthenticationResult
	tokens := domain.AuthTokens{ExpiresIn: result.ExpiresIn}
	if result.AccessToken != nil {
		tokens.AccessToken = *result.AccessToken
	}
	if result.IdToken != nil {
		tokens.IDToken = *result.IdToken
	}
	if result.RefreshToken != nil {
		tokens.RefreshToken = *result.RefreshToken
	}

	s.logger.Info("user authenticated", "username", username)
	return tokens, nil
}

var _ ports.Authenticator = (*AuthService)(nil)
