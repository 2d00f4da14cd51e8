package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tracelab/tracelab/internal/backend"
	"github.com/tracelab/tracelab/internal/config"
	"github.com/tracelab/tracelab/internal/domain"
	apperrors "github.com/tracelab/tracelab/internal/pkg/errors"
	"github.com/tracelab/tracelab/internal/pkg/logger"
	"github.com/tracelab/tracelab/internal/provider"
)

// ProviderService answers data provider queries over persisted analysis
// backends. Query results are cached in Redis; a sealed backend never
// changes, so cached models only expire, they never go stale.
type ProviderService struct {
	cfg      config.ProviderConfig
	backends *backend.Registry
	cache    *redis.Client
}

// NewProviderService creates a new provider service
func NewProviderService(cfg config.ProviderConfig, backends *backend.Registry, cache *redis.Client) *ProviderService {
	return &ProviderService{
		cfg:      cfg,
		backends: backends,
		cache:    cache,
	}
}

// QueryHistogram buckets the segments of a scripted analysis into a bar
// histogram. The analysis must have a sealed segment store backend.
func (s *ProviderService) QueryHistogram(ctx context.Context, traceID uuid.UUID, analysisName string, from, to int64, buckets int) (*provider.XYModel, error) {
	if s.cfg.MaxBuckets > 0 && buckets > s.cfg.MaxBuckets {
		return nil, apperrors.Validation(fmt.Sprintf("buckets must be at most %d", s.cfg.MaxBuckets))
	}

	key := fmt.Sprintf("provider:xy:%s:%s:%d:%d:%d", traceID, analysisName, from, to, buckets)
	if model := s.cached(ctx, key); model != nil {
		return model, nil
	}

	// A provider query is a pure read: it must not create a backend
	// record for an analysis that was never scripted.
	handle, err := s.backends.OpenExisting(ctx, traceID, analysisName, domain.BackendSegmentStore)
	if err != nil {
		return nil, err
	}
	if !handle.Record.Sealed {
		return nil, apperrors.Unprocessable("analysis has no saved segment store")
	}

	p := provider.NewHistogramProvider(analysisName, handle.SegmentStore)
	model, err := p.Query(from, to, buckets)
	if err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	s.store(ctx, key, model)
	return model, nil
}

// GetSeriesStyle returns the presentation style of one series of a
// scripted analysis. Histogram series are bars of width 1 regardless of
// the series ID.
func (s *ProviderService) GetSeriesStyle(seriesID int64) provider.OutputStyle {
	return provider.BarStyle()
}

func (s *ProviderService) cached(ctx context.Context, key string) *provider.XYModel {
	if s.cache == nil {
		return nil
	}
	data, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}
	var model provider.XYModel
	if err := json.Unmarshal(data, &model); err != nil {
		return nil
	}
	return &model
}

func (s *ProviderService) store(ctx context.Context, key string, model *provider.XYModel) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(model)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cfg.CacheTTL()).Err(); err != nil {
		logger.Warn("failed to cache provider result", zap.String("key", key), zap.Error(err))
	}
}
