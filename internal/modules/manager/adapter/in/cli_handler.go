package in

import (
	"context"

	"amio/internal/modules/manager/dto"
	managerin "amio/internal/modules/manager/port/in"
)

type CLIHandler struct {
	usecase managerin.Usecase
}

func NewCLIHandler(usecase managerin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) ListManagers(ctx context.Context) ([]dto.ManagerDetail, error) {
	return h.usecase.ListManagers(ctx)
}

func (h CLIHandler) Resolve(ctx context.Context, input dto.ResolveInput) (dto.ResolveOutput, error) {
	return h.usecase.Resolve(ctx, input)
}

func (h CLIHandler) Exists(ctx context.Context, refs []string) ([]dto.ExistsOutput, error) {
	return h.usecase.Exists(ctx, refs)
}
