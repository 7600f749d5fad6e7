// Package service orchestrates the user resource operations: version
// negotiation, decoding, storage, the dual-write integrity audit, and
// response encoding.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"nomen/internal/platform/tracer"
	"nomen/internal/sentinel"
	"nomen/internal/user/codec"
	"nomen/internal/user/integrity"
	"nomen/internal/user/metrics"
	"nomen/internal/user/migrate"
	"nomen/internal/user/models"
	"nomen/internal/user/store"
	"nomen/internal/user/version"
	dErrors "nomen/pkg/domain-errors"
	psync "nomen/pkg/platform/sync"
)

// Result pairs an encoded representation with the negotiation outcome the
// transport layer needs: Superseded is set when the caller explicitly asked
// for the oldest generation, so the handler can answer with a redirect while
// still relaying the result produced under the latest generation.
type Result struct {
	Representation models.Representation
	Generation     version.Generation
	Superseded     bool
}

// Service implements the four resource operations plus the bulk migration
// sweep over a user store.
type Service struct {
	store    store.UserStore
	migrator *migrate.Engine
	logger   *slog.Logger
	m        *metrics.Metrics
	tracer   tracer.Tracer
	locks    *psync.KeyedMutex
	now      func() time.Time
}

// Option configures the Service.
type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.m = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(userStore store.UserStore, migrator *migrate.Engine, opts ...Option) *Service {
	s := &Service{
		store:    userStore,
		migrator: migrator,
		locks:    psync.NewKeyedMutex(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = tracer.NewNoop()
	}
	return s
}

// Find looks a user up by username and answers in the negotiated generation's
// shape. The read performs the dual-representation audit: a diverged record
// stays in the store untouched, but the caller gets the fault instead of the
// name data.
func (s *Service) Find(ctx context.Context, username, explicitVersion string) (res *Result, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanUserFind, tracer.String(tracer.AttrUsername, username))
	defer func() { span.End(err) }()
	defer s.m.ObserveOperation("find", s.now())

	gen, err := version.Negotiate(explicitVersion, version.OpRead, nil, username)
	if err != nil {
		return nil, err
	}

	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		return nil, s.translateStoreErr(err, "failed to load user")
	}

	if err := s.audit(ctx, user); err != nil {
		return nil, err
	}
	return s.result(gen, explicitVersion, user), nil
}

// Create inserts a new user. The payload must form a complete representation
// of the negotiated generation; the stored shape is always the newest
// generation's, with the name sub-record written in the same step as the
// denormalized fields.
func (s *Service) Create(ctx context.Context, username, explicitVersion string, rep models.Representation) (res *Result, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanUserCreate, tracer.String(tracer.AttrUsername, username))
	defer func() { span.End(err) }()
	defer s.m.ObserveOperation("create", s.now())

	gen, err := version.Negotiate(explicitVersion, version.OpCreate, &rep, username)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(tracer.String(tracer.AttrGeneration, gen.String()))

	// Serialize writers on the same username so the taken-check and the
	// save observe each other.
	s.locks.Lock(username)
	defer s.locks.Unlock(username)

	if _, err := s.store.FindByUsername(ctx, username); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "username already taken")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check username")
	}

	now := s.now()
	var user *models.User
	if gen == version.V1 {
		user = models.NewUserFromFullName(username, *rep.FullName, now)
	} else {
		user = models.NewUser(username, *rep.FirstName, *rep.LastName, now)
	}

	saved, err := s.store.Save(ctx, user)
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "username already taken")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}
	s.m.IncCreated()
	s.logger.InfoContext(ctx, "user created", "username", username, "generation", gen.String())

	if err := s.audit(ctx, saved); err != nil {
		return nil, err
	}
	return s.result(gen, explicitVersion, saved), nil
}

// Update applies the payload fields that are present and leaves the rest
// alone. The mutated value is rebuilt from the stored one, with the derived
// full name and the sub-record copy recomputed before the save.
func (s *Service) Update(ctx context.Context, username, explicitVersion string, rep models.Representation) (res *Result, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanUserUpdate, tracer.String(tracer.AttrUsername, username))
	defer func() { span.End(err) }()
	defer s.m.ObserveOperation("update", s.now())

	gen, err := version.Negotiate(explicitVersion, version.OpUpdate, &rep, username)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(tracer.String(tracer.AttrGeneration, gen.String()))

	// The read-modify-write below must not interleave with another update
	// to the same username.
	s.locks.Lock(username)
	defer s.locks.Unlock(username)

	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		return nil, s.translateStoreErr(err, "failed to load user")
	}

	firstName, lastName := codec.Decode(gen, &rep)
	updated := user.WithName(firstName, lastName, s.now())

	saved, err := s.store.Save(ctx, updated)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update user")
	}
	s.m.IncUpdated()
	s.logger.InfoContext(ctx, "user updated", "username", username, "generation", gen.String())

	if err := s.audit(ctx, saved); err != nil {
		return nil, err
	}
	return s.result(gen, explicitVersion, saved), nil
}

// Delete removes the user and answers with the just-deleted snapshot. The
// store delete is atomic with the absence check; the audit runs on the
// snapshot after the fact, so a diverged record is still deleted but reported.
func (s *Service) Delete(ctx context.Context, username, explicitVersion string) (res *Result, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanUserDelete, tracer.String(tracer.AttrUsername, username))
	defer func() { span.End(err) }()
	defer s.m.ObserveOperation("delete", s.now())

	gen, err := version.Negotiate(explicitVersion, version.OpDelete, nil, username)
	if err != nil {
		return nil, err
	}

	previous, err := s.store.DeleteByUsername(ctx, username)
	if err != nil {
		return nil, s.translateStoreErr(err, "failed to delete user")
	}
	s.m.IncDeleted()
	s.logger.InfoContext(ctx, "user deleted", "username", username)

	if err := s.audit(ctx, previous); err != nil {
		return nil, err
	}
	return s.result(gen, explicitVersion, previous), nil
}

// Migrate runs the bulk migration sweep and returns the upgraded records in
// the internal all-fields encoding.
func (s *Service) Migrate(ctx context.Context) (reps []models.Representation, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanUserMigrate)
	defer func() { span.End(err) }()
	defer s.m.ObserveOperation("migrate", s.now())

	migrated, err := s.migrator.MigrateAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "migration sweep failed")
	}
	span.SetAttributes(tracer.Int64(tracer.AttrMigrated, int64(len(migrated))))

	reps = make([]models.Representation, 0, len(migrated))
	for _, user := range migrated {
		reps = append(reps, codec.EncodeBoth(user))
	}
	return reps, nil
}

// audit is the read-side half of the dual-write discipline. A divergence is
// reported, counted, and substituted for the normal response; the committed
// side effect stands.
func (s *Service) audit(ctx context.Context, user *models.User) error {
	if integrity.Check(user) != integrity.Inconsistent {
		return nil
	}
	s.m.IncIntegrityFault()
	s.logger.ErrorContext(ctx, "integrity fault detected",
		"username", user.Username,
		"status", integrity.Inconsistent.String(),
	)
	return dErrors.New(dErrors.CodeIntegrityFault, "inconsistent data")
}

// result encodes the user for the negotiated generation. An explicit request
// for the superseded generation is answered under the latest one and marked,
// so the transport layer can attach the redirect. An implicitly inferred
// generation 1 is not superseded: old clients that never named a version keep
// getting the shape they sent.
func (s *Service) result(gen version.Generation, explicitVersion string, user *models.User) *Result {
	if explicitVersion == "1" {
		s.m.IncVersionRedirect()
		return &Result{
			Representation: codec.Encode(version.Latest, user),
			Generation:     version.Latest,
			Superseded:     true,
		}
	}
	return &Result{
		Representation: codec.Encode(gen, user),
		Generation:     gen,
	}
}

func (s *Service) translateStoreErr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
