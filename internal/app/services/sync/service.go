// Package sync implements bulk replace and export across every record family,
// plus the cached per-owner summary counts.
package sync

import (
	"context"
	"encoding/json"
	"time"

	"github.com/vitaltrack/healthd/internal/app/cache"
	"github.com/vitaltrack/healthd/internal/app/domain/document"
	"github.com/vitaltrack/healthd/internal/app/domain/vitals"
	"github.com/vitaltrack/healthd/internal/app/identity"
	"github.com/vitaltrack/healthd/internal/app/services/records"
	"github.com/vitaltrack/healthd/internal/app/storage"
	"github.com/vitaltrack/healthd/internal/apperrors"
	"github.com/vitaltrack/healthd/pkg/logger"
)

const summaryTTL = 30 * time.Second

// SkippedItem identifies a batch entry rejected during ReplaceAll, so callers
// learn exactly which items were dropped instead of losing them silently.
type SkippedItem struct {
	Kind   vitals.Kind `json:"kind"`
	Index  int         `json:"index"`
	Reason string      `json:"reason"`
}

// ReplaceResult reports what a ReplaceAll call did per record family.
type ReplaceResult struct {
	Replaced map[vitals.Kind]int `json:"replaced"`
	Skipped  []SkippedItem       `json:"skipped"`
}

// Export is the full history of one owner across every record family.
type Export struct {
	BloodPressure []vitals.Entry      `json:"bp"`
	Weight        []vitals.Entry      `json:"weight"`
	Temperature   []vitals.Entry      `json:"temp"`
	Documents     []document.Document `json:"docs"`
}

// Summary carries per-family record counts.
type Summary struct {
	BloodPressure int `json:"bp"`
	Weight        int `json:"weight"`
	Temperature   int `json:"temp"`
	Documents     int `json:"docs"`
}

type Service struct {
	vitals     storage.VitalStore
	documents  storage.DocumentStore
	identities storage.IdentityStore
	cache      cache.Cache
	log        *logger.Logger
}

// New wires the sync service. cache may be nil, in which case summaries are
// always computed from storage.
func New(vitalStore storage.VitalStore, documentStore storage.DocumentStore, identities storage.IdentityStore, c cache.Cache, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("sync")
	}
	return &Service{
		vitals:     vitalStore,
		documents:  documentStore,
		identities: identities,
		cache:      c,
		log:        log,
	}
}

// ReplaceAll destructively overwrites every measurement record of the owner
// with the supplied batches. Items failing validation are skipped per item and
// reported; each record family is replaced in its own transaction, so a
// failure leaves that family intact and earlier families already replaced.
func (s *Service) ReplaceAll(ctx context.Context, caller identity.Caller, batches map[vitals.Kind][]records.Input) (ReplaceResult, error) {
	if err := s.identities.EnsureIdentity(ctx, caller.OwnerKey, caller.Name); err != nil {
		s.log.WithError(err).Error("ensure identity failed")
		return ReplaceResult{}, apperrors.Storage("ensure identity", err)
	}

	result := ReplaceResult{Replaced: make(map[vitals.Kind]int)}
	for _, kind := range vitals.Kinds() {
		batch := batches[kind]

		valid := make([]vitals.Entry, 0, len(batch))
		for i, input := range batch {
			entry, err := records.Prepare(kind, input)
			if err != nil {
				result.Skipped = append(result.Skipped, SkippedItem{
					Kind:   kind,
					Index:  i,
					Reason: err.Error(),
				})
				continue
			}
			valid = append(valid, entry)
		}

		replaced, err := s.vitals.ReplaceVitals(ctx, kind, caller.OwnerKey, valid)
		if err != nil {
			s.log.WithError(err).WithField("kind", kind).Error("replace failed")
			return ReplaceResult{}, apperrors.Storage("replace records", err)
		}
		result.Replaced[kind] = len(replaced)
	}

	s.invalidateSummary(ctx, caller.OwnerKey)

	if len(result.Skipped) > 0 {
		s.log.WithField("skipped", len(result.Skipped)).Warn("sync skipped invalid batch items")
	}
	return result, nil
}

// ExportAll returns the owner's complete history. No pagination; the full
// listing is always returned.
func (s *Service) ExportAll(ctx context.Context, caller identity.Caller) (Export, error) {
	var export Export
	var err error

	if export.BloodPressure, err = s.vitals.ListVitals(ctx, vitals.KindBloodPressure, caller.OwnerKey); err != nil {
		return Export{}, apperrors.Storage("export blood pressure", err)
	}
	if export.Weight, err = s.vitals.ListVitals(ctx, vitals.KindWeight, caller.OwnerKey); err != nil {
		return Export{}, apperrors.Storage("export weight", err)
	}
	if export.Temperature, err = s.vitals.ListVitals(ctx, vitals.KindTemperature, caller.OwnerKey); err != nil {
		return Export{}, apperrors.Storage("export temperature", err)
	}
	if export.Documents, err = s.documents.ListDocuments(ctx, caller.OwnerKey); err != nil {
		return Export{}, apperrors.Storage("export documents", err)
	}
	return export, nil
}

// Summary returns per-family counts, served from cache when a fresh value is
// available.
func (s *Service) Summary(ctx context.Context, caller identity.Caller) (Summary, error) {
	key := summaryKey(caller.OwnerKey)
	if s.cache != nil {
		if cached, found, err := s.cache.Get(ctx, key); err == nil && found {
			var summary Summary
			if json.Unmarshal([]byte(cached), &summary) == nil {
				return summary, nil
			}
		}
	}

	var summary Summary
	var err error
	if summary.BloodPressure, err = s.vitals.CountVitals(ctx, vitals.KindBloodPressure, caller.OwnerKey); err != nil {
		return Summary{}, apperrors.Storage("count blood pressure", err)
	}
	if summary.Weight, err = s.vitals.CountVitals(ctx, vitals.KindWeight, caller.OwnerKey); err != nil {
		return Summary{}, apperrors.Storage("count weight", err)
	}
	if summary.Temperature, err = s.vitals.CountVitals(ctx, vitals.KindTemperature, caller.OwnerKey); err != nil {
		return Summary{}, apperrors.Storage("count temperature", err)
	}
	if summary.Documents, err = s.documents.CountDocuments(ctx, caller.OwnerKey); err != nil {
		return Summary{}, apperrors.Storage("count documents", err)
	}

	if s.cache != nil {
		if encoded, err := json.Marshal(summary); err == nil {
			if err := s.cache.Set(ctx, key, string(encoded), summaryTTL); err != nil {
				s.log.WithError(err).Debug("summary cache write failed")
			}
		}
	}
	return summary, nil
}

// InvalidateSummary drops the cached counts for an owner. Called by the HTTP
// boundary after any mutating record operation.
func (s *Service) InvalidateSummary(ctx context.Context, ownerKey string) {
	s.invalidateSummary(ctx, ownerKey)
}

func (s *Service) invalidateSummary(ctx context.Context, ownerKey string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, summaryKey(ownerKey)); err != nil {
		s.log.WithError(err).Debug("summary cache invalidation failed")
	}
}

func summaryKey(ownerKey string) string {
	return "summary:" + ownerKey
}
