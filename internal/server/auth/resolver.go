// Package auth resolves the current user of a request and manages local credentials.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/zenga/cms/internal/models"
	"github.com/zenga/cms/internal/server/metrics"
)

// Authenticator tries to identify the user of a request.
// (nil, nil) means the request carries no credentials this authenticator understands.
type Authenticator interface {
	Name() string
	Authenticate(ctx context.Context, r *http.Request) (*models.User, error)
}

// OutcomeRecorder receives one outcome per authenticator attempt
type OutcomeRecorder interface {
	RecordAuthOutcome(authenticator, outcome string)
}

// Resolver runs authenticators in order; the first one that returns a user wins.
// Failures of one authenticator never abort the chain.
type Resolver struct {
	logger         *slog.Logger
	recorder       OutcomeRecorder
	authenticators []Authenticator
}

// NewResolver creates a resolver. recorder may be nil.
func NewResolver(logger *slog.Logger, recorder OutcomeRecorder, authenticators ...Authenticator) *Resolver {
	return &Resolver{
		logger:         logger,
		recorder:       recorder,
		authenticators: authenticators,
	}
}

// Resolve returns the current user or nil for anonymous requests
func (res *Resolver) Resolve(r *http.Request) *models.User {
	ctx := r.Context()

	for _, a := range res.authenticators {
		user, outcome, err := res.try(ctx, a, r)
		res.record(a.Name(), outcome)

		if err != nil {
			res.logger.WarnContext(ctx, "Authenticator failed, trying next",
				slog.String("authenticator", a.Name()),
				slog.Any("error", err),
			)
			continue
		}
		if user != nil {
			return user
		}
	}

	return nil
}

// try вызывает аутентификатор, превращая panic в ошибку
func (res *Resolver) try(ctx context.Context, a Authenticator, r *http.Request) (user *models.User, outcome string, err error) {
	defer func() {
		if p := recover(); p != nil {
			user = nil
			outcome = metrics.OutcomePanic
			err = fmt.Errorf("authenticator panic: %v", p)
		}
	}()

	user, err = a.Authenticate(ctx, r)
	switch {
	case err != nil:
		return nil, metrics.OutcomeError, err
	case user == nil:
		return nil, metrics.OutcomeMiss, nil
	}

	return user, metrics.OutcomeSuccess, nil
}

func (res *Resolver) record(name, outcome string) {
	if res.recorder != nil {
		res.recorder.RecordAuthOutcome(name, outcome)
	}
}
