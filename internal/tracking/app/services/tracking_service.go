package services

import (
	"context"
	"errors"

	"curbside/internal/mylogger"
	"curbside/internal/tracking/adapter/db"
	"curbside/internal/tracking/app/core"
	"curbside/internal/tracking/domain/dto"
)

type TrackingService struct {
	repo   core.IOrderRepo
	logger mylogger.Logger
}

func NewTrackingService(repo core.IOrderRepo, logger mylogger.Logger) *TrackingService {
	return &TrackingService{repo: repo, logger: logger}
}

func (s *TrackingService) OrderByToken(ctx context.Context, token string) (dto.OrderSummary, error) {
	summary, err := s.repo.SummaryByToken(ctx, token)
	if errors.Is(err, db.ErrNotFound) {
		return dto.OrderSummary{}, core.ErrOrderNotFound
	}
	if err != nil {
		s.logger.Action("track_order").Error("failed to load order summary", err)
		return dto.OrderSummary{}, err
	}
	return summary, nil
}
