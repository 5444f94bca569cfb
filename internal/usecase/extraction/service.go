package extraction

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/queryfuse/internal/domain"
	"github.com/kailas-cloud/queryfuse/internal/domain/outcome"
	"github.com/kailas-cloud/queryfuse/internal/metrics"
)

// loadRetryBackoff is the wait before the single local-model load retry.
const loadRetryBackoff = 500 * time.Millisecond

// Service turns raw query text into entities and an intent label.
// The local model runs first; low confidence or local failure escalates
// to the remote reasoner with the same output contract.
type Service struct {
	local     LocalModel
	remote    RemoteClassifier
	pool      *ants.Pool
	threshold float64
	logger    *zap.Logger

	loadOnce sync.Once
	// localBroken trips permanently after the load retry fails; all
	// subsequent requests route straight to the remote fallback.
	localBroken atomic.Bool
}

// New creates an extraction service. pool isolates local model inference
// from the request-handling path; it may be shared across services.
func New(
	local LocalModel,
	remote RemoteClassifier,
	pool *ants.Pool,
	threshold float64,
	logger *zap.Logger,
) *Service {
	return &Service{
		local:     local,
		remote:    remote,
		pool:      pool,
		threshold: threshold,
		logger:    logger,
	}
}

// Extract classifies a query. The returned outcome records the path taken:
// OK for local or confidence-driven remote escalation, Degraded when the
// local model is broken or the remote fallback was unreachable, Failed
// only when every path is exhausted.
func (s *Service) Extract(ctx context.Context, q domain.Query) outcome.Outcome[domain.Extraction] {
	if !s.ensureLocal(ctx) {
		return s.remoteOnly(ctx, q, "local model unavailable")
	}

	local, err := s.runLocal(ctx, q.Normalized())
	if err != nil {
		s.logger.Warn("Local inference failed", zap.String("request_id", q.ID()), zap.Error(err))
		return s.remoteOnly(ctx, q, "local inference failed")
	}
	local.Entities = s.filterEntities(local.Entities)

	if local.MaxEntityConfidence() >= s.threshold && local.Intent.Confidence >= s.threshold {
		metrics.ExtractionStrategyTotal.WithLabelValues(string(domain.StrategyLocal)).Inc()
		return outcome.Ok(local)
	}

	remote, err := s.remote.Classify(ctx, q.Raw())
	if err != nil {
		s.logger.Warn("Remote fallback unreachable, keeping low-confidence local result",
			zap.String("request_id", q.ID()), zap.Error(err))
		metrics.ExtractionStrategyTotal.WithLabelValues(string(domain.StrategyLocal)).Inc()
		return outcome.Degraded(local, "remote fallback unreachable")
	}
	remote.Entities = s.filterEntities(remote.Entities)

	merged := mergeExtractions(local, remote)
	metrics.ExtractionStrategyTotal.WithLabelValues(string(merged.Strategy)).Inc()
	return outcome.Ok(merged)
}

// ensureLocal loads the local model once, retrying a single time with
// backoff. Only a failed retry trips the circuit for the process
// lifetime; the load runs detached from the caller so a cancelled
// request cannot decide the outcome for every request after it.
func (s *Service) ensureLocal(ctx context.Context) bool {
	s.loadOnce.Do(func() {
		loadCtx := context.WithoutCancel(ctx)

		err := s.local.Load(loadCtx)
		if err == nil {
			return
		}
		s.logger.Warn("Local model load failed, retrying", zap.Error(err))
		time.Sleep(loadRetryBackoff)

		if err := s.local.Load(loadCtx); err != nil {
			s.localBroken.Store(true)
			s.logger.Error("Local model load failed permanently, routing to remote fallback",
				zap.Error(err))
		}
	})
	return !s.localBroken.Load()
}

// remoteOnly serves a request entirely from the remote reasoner.
func (s *Service) remoteOnly(ctx context.Context, q domain.Query, reason string) outcome.Outcome[domain.Extraction] {
	remote, err := s.remote.Classify(ctx, q.Raw())
	if err != nil {
		return outcome.Failed[domain.Extraction](
			fmt.Errorf("%s and remote fallback failed: %w: %w", reason, err, domain.ErrExtractionUnavailable))
	}
	remote.Entities = s.filterEntities(remote.Entities)
	metrics.ExtractionStrategyTotal.WithLabelValues(string(domain.StrategyRemote)).Inc()
	return outcome.Degraded(remote, reason)
}

type localResult struct {
	entities []domain.ExtractedEntity
	intent   domain.IntentClassification
	err      error
}

// runLocal executes local model inference on the worker pool so CPU-bound
// work never blocks the request-handling goroutine pool.
func (s *Service) runLocal(ctx context.Context, text string) (domain.Extraction, error) {
	done := make(chan localResult, 1)

	err := s.pool.Submit(func() {
		var r localResult
		r.entities, r.err = s.local.ExtractEntities(text)
		if r.err == nil {
			r.intent, r.err = s.local.ClassifyIntent(text)
		}
		done <- r
	})
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("submit local inference: %w", err)
	}

	select {
	case r := <-done:
		if r.err != nil {
			return domain.Extraction{}, r.err
		}
		return domain.Extraction{
			Entities: r.entities,
			Intent:   r.intent,
			Strategy: domain.StrategyLocal,
		}, nil
	case <-ctx.Done():
		return domain.Extraction{}, ctx.Err()
	}
}

// filterEntities drops stopwords and entities below the confidence threshold.
func (s *Service) filterEntities(entities []domain.ExtractedEntity) []domain.ExtractedEntity {
	kept := entities[:0:0]
	for _, e := range entities {
		if isStopword(e.Text) || e.Confidence < s.threshold {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}

// mergeExtractions unions a low-confidence local pass with a remote pass.
// Entities dedupe by text keeping the higher confidence; the intent with
// the higher confidence wins. Strategy is hybrid when both contributed.
func mergeExtractions(local, remote domain.Extraction) domain.Extraction {
	if len(local.Entities) == 0 {
		return remote
	}

	byText := make(map[string]int, len(remote.Entities))
	merged := make([]domain.ExtractedEntity, len(remote.Entities))
	copy(merged, remote.Entities)
	for i, e := range merged {
		byText[e.Text] = i
	}
	for _, e := range local.Entities {
		if i, ok := byText[e.Text]; ok {
			if e.Confidence > merged[i].Confidence {
				merged[i] = e
			}
			continue
		}
		byText[e.Text] = len(merged)
		merged = append(merged, e)
	}

	result := domain.Extraction{
		Entities: merged,
		Intent:   remote.Intent,
		Strategy: domain.StrategyHybrid,
	}
	if local.Intent.Confidence > remote.Intent.Confidence {
		result.Intent = local.Intent
	}
	return result
}
