package core

import (
	"context"
	"errors"

	"curbside/internal/tracking/domain/dto"
)

var (
	ErrHelp          = errors.New("help requested")
	ErrDBConn        = errors.New("failed to connect to database")
	ErrOrderNotFound = errors.New("order not found")
)

type TrackingParams struct {
	Port int
}

const WaitTime = 20

type IOrderRepo interface {
	SummaryByToken(ctx context.Context, token string) (dto.OrderSummary, error)
}
