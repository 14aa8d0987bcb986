package credentialservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	credentialdb "github.com/Black-And-White-Club/segment-ctf/app/modules/credential/infrastructure/repositories"
	credentialstate "github.com/Black-And-White-Club/segment-ctf/app/modules/credential/infrastructure/state"
	"github.com/Black-And-White-Club/segment-ctf/app/observability"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
)

const serviceName = "CredentialService"

var _ Service = (*CredentialService)(nil)

// CredentialService implements the Service interface.
type CredentialService struct {
	repo       credentialdb.Repository
	oauth      *oauth2.Config
	states     credentialstate.Provider
	httpClient *http.Client
	logger     *slog.Logger
	metrics    observability.Metrics
	tracer     trace.Tracer
	db         *bun.DB
}

// NewCredentialService creates a new CredentialService.
func NewCredentialService(
	repo credentialdb.Repository,
	oauthCfg *oauth2.Config,
	states credentialstate.Provider,
	httpClient *http.Client,
	logger *slog.Logger,
	metrics observability.Metrics,
	tracer trace.Tracer,
	db *bun.DB,
) *CredentialService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CredentialService{
		repo:       repo,
		oauth:      oauthCfg,
		states:     states,
		httpClient: httpClient,
		logger:     logger,
		metrics:    metrics,
		tracer:     tracer,
		db:         db,
	}
}

// AuthorizeURL returns the provider consent URL carrying a signed state.
func (s *CredentialService) AuthorizeURL(ctx context.Context) (string, error) {
	return withTelemetry(s, ctx, "AuthorizeURL", "", func(ctx context.Context) (string, error) {
		state, err := s.states.Issue()
		if err != nil {
			return "", fmt.Errorf("failed to issue state: %w", err)
		}
		return s.oauth.AuthCodeURL(state), nil
	})
}

// CompleteAuthorization verifies state, exchanges code and upserts the credential.
func (s *CredentialService) CompleteAuthorization(ctx context.Context, state, code string) (*credentialdb.Credential, error) {
	return withTelemetry(s, ctx, "CompleteAuthorization", "", func(ctx context.Context) (*credentialdb.Credential, error) {
		if err := s.states.Verify(state); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidState, err)
		}
		if code == "" {
			return nil, ErrMissingCode
		}

		exchangeCtx := ctx
		if s.httpClient != nil {
			exchangeCtx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
		}
		tok, err := s.oauth.Exchange(exchangeCtx, code)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrExchangeFailed, err)
		}

		athleteID, athleteName, err := athleteIdentity(tok)
		if err != nil {
			return nil, err
		}

		cred := &credentialdb.Credential{
			AthleteID:    athleteID,
			AthleteName:  athleteName,
			AccessToken:  tok.AccessToken,
			RefreshToken: tok.RefreshToken,
			ExpiresAt:    expiresAt(tok),
		}
		err = runInTx(s, ctx, func(ctx context.Context, db bun.IDB) error {
			return s.repo.Upsert(ctx, db, cred)
		})
		if err != nil {
			return nil, err
		}
		return cred, nil
	})
}

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[T any](
	s *CredentialService,
	ctx context.Context,
	operationName string,
	identifier string,
	op func(ctx context.Context) (T, error),
) (result T, err error) {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("identifier", identifier),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	if s.metrics != nil {
		s.metrics.RecordOperationAttempt(ctx, operationName, serviceName)
	}
	startTime := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration(ctx, operationName, serviceName, time.Since(startTime))
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				slog.String("operation", operationName),
				slog.Any("error", err),
			)
			if s.metrics != nil {
				s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
			}
			span.RecordError(err)
			var zero T
			result = zero
		}
	}()

	result, err = op(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Operation failed",
			slog.String("operation", operationName),
			slog.Any("error", err),
		)
		if s.metrics != nil {
			s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
		}
		span.RecordError(err)
		return result, fmt.Errorf("%s: %w", operationName, err)
	}

	if s.metrics != nil {
		s.metrics.RecordOperationSuccess(ctx, operationName, serviceName)
	}
	return result, nil
}

// runInTx ensures the operation runs within a transaction.
func runInTx(s *CredentialService, ctx context.Context, fn func(ctx context.Context, db bun.IDB) error) error {
	if s.db == nil {
		return fn(ctx, nil)
	}
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, tx)
	})
}

// IsClientError reports whether err stems from a bad callback request rather
// than a server or provider fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidState) || errors.Is(err, ErrMissingCode)
}
