// Package records implements the measurement record service. One service
// covers blood pressure, weight, and temperature; the schema descriptor for
// the requested kind drives validation, so nothing here is copied per type.
package records

import (
	"context"
	"strconv"
	"time"

	"github.com/vitaltrack/healthd/internal/app/domain/vitals"
	"github.com/vitaltrack/healthd/internal/app/identity"
	"github.com/vitaltrack/healthd/internal/app/storage"
	"github.com/vitaltrack/healthd/internal/apperrors"
	"github.com/vitaltrack/healthd/pkg/logger"
)

// Input is an unvalidated create payload.
type Input struct {
	EntryDate string
	Values    map[string]string
	Notes     string
}

// Service exposes list/create/delete over measurement records, scoped to the
// calling identity.
type Service struct {
	store      storage.VitalStore
	identities storage.IdentityStore
	log        *logger.Logger
}

func New(store storage.VitalStore, identities storage.IdentityStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("records")
	}
	return &Service{store: store, identities: identities, log: log}
}

// Prepare validates an input against the kind's schema and returns the entry
// ready for insertion, with numeric values normalized to their stored text
// form. Exported because bulk sync validates batch items with the same rules.
func Prepare(kind vitals.Kind, input Input) (vitals.Entry, error) {
	sch, ok := vitals.SchemaFor(kind)
	if !ok {
		return vitals.Entry{}, apperrors.Validationf("unknown record kind %q", kind)
	}

	if input.EntryDate == "" {
		return vitals.Entry{}, apperrors.Validation("entry_date is required")
	}
	if _, err := time.Parse(vitals.DateLayout, input.EntryDate); err != nil {
		return vitals.Entry{}, apperrors.Validationf("entry_date %q is not a calendar date", input.EntryDate)
	}

	values := make(map[string]string, len(sch.Fields))
	for _, f := range sch.Fields {
		raw := input.Values[f.Name]
		if raw == "" {
			if f.Required {
				return vitals.Entry{}, apperrors.Validationf("%s is required", f.Name)
			}
			continue
		}

		switch f.Type {
		case vitals.FieldInt:
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				return vitals.Entry{}, apperrors.Validationf("%s must be a positive integer", f.Name)
			}
			values[f.Name] = strconv.Itoa(n)
		case vitals.FieldDecimal:
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil || v <= 0 {
				return vitals.Entry{}, apperrors.Validationf("%s must be a positive number", f.Name)
			}
			values[f.Name] = strconv.FormatFloat(v, 'f', f.Scale, 64)
		}
	}

	return vitals.Entry{
		EntryDate: input.EntryDate,
		Values:    values,
		Notes:     input.Notes,
	}, nil
}

func (s *Service) List(ctx context.Context, caller identity.Caller, kind vitals.Kind) ([]vitals.Entry, error) {
	entries, err := s.store.ListVitals(ctx, kind, caller.OwnerKey)
	if err != nil {
		s.log.WithError(err).WithField("kind", kind).Error("list records failed")
		return nil, apperrors.Storage("list records", err)
	}
	return entries, nil
}

func (s *Service) Create(ctx context.Context, caller identity.Caller, kind vitals.Kind, input Input) (vitals.Entry, error) {
	entry, err := Prepare(kind, input)
	if err != nil {
		return vitals.Entry{}, err
	}
	entry.OwnerKey = caller.OwnerKey

	if err := s.identities.EnsureIdentity(ctx, caller.OwnerKey, caller.Name); err != nil {
		s.log.WithError(err).Error("ensure identity failed")
		return vitals.Entry{}, apperrors.Storage("ensure identity", err)
	}

	created, err := s.store.CreateVital(ctx, kind, entry)
	if err != nil {
		s.log.WithError(err).WithField("kind", kind).Error("create record failed")
		return vitals.Entry{}, apperrors.Storage("create record", err)
	}

	s.log.WithField("kind", kind).WithField("id", created.ID).Debug("record created")
	return created, nil
}

// Delete removes the record scoped to (id, caller). A missing or foreign id
// is acknowledged as success.
func (s *Service) Delete(ctx context.Context, caller identity.Caller, kind vitals.Kind, id string) error {
	if err := s.store.DeleteVital(ctx, kind, id, caller.OwnerKey); err != nil {
		s.log.WithError(err).WithField("kind", kind).Error("delete record failed")
		return apperrors.Storage("delete record", err)
	}
	return nil
}

func (s *Service) Count(ctx context.Context, caller identity.Caller, kind vitals.Kind) (int, error) {
	count, err := s.store.CountVitals(ctx, kind, caller.OwnerKey)
	if err != nil {
		return 0, apperrors.Storage("count records", err)
	}
	return count, nil
}
