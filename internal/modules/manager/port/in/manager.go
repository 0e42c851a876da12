package in

import (
	"context"

	"amio/internal/modules/manager/dto"
)

type Usecase interface {
	ListManagers(ctx context.Context) ([]dto.ManagerDetail, error)
	Resolve(ctx context.Context, input dto.ResolveInput) (dto.ResolveOutput, error)
	Exists(ctx context.Context, refs []string) ([]dto.ExistsOutput, error)
}
