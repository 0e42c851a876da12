package bootstrap

import (
	"context"

	hclog "github.com/hashicorp/go-hclog"

	managerinadapter "amio/internal/modules/manager/adapter/in"
	managerservice "amio/internal/modules/manager/service"
	managerusecase "amio/internal/modules/manager/usecase"
	pluginoutadapter "amio/internal/modules/plugin/adapter/out"
	pluginservice "amio/internal/modules/plugin/service"
	"amio/internal/platform/logging"
)

type App struct {
	ManagerCLI managerinadapter.CLIHandler
	Factory    *pluginservice.Factory
	Logger     hclog.Logger
}

func New(verbose bool) *App {
	logger := logging.New(verbose)

	factory := pluginservice.NewFactory(
		pluginoutadapter.NewPathManifestStore(nil, logger),
		pluginoutadapter.NewGRPCHost(logger),
		logger,
	)
	managerUC := managerusecase.NewInteractor(factory,
		func(ctx context.Context) (*managerservice.Manager, error) {
			return pluginservice.DefaultManager(ctx, factory, logger)
		})

	return &App{
		ManagerCLI: managerinadapter.NewCLIHandler(managerUC),
		Factory:    factory,
		Logger:     logger,
	}
}
