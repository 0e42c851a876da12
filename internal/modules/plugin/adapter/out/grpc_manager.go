package out

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"

	managerdomain "amio/internal/modules/manager/domain"
	managerout "amio/internal/modules/manager/port/out"
	"amio/internal/modules/plugin/adapter/out/rpc"
	"amio/internal/modules/plugin/domain"
	pluginout "amio/internal/modules/plugin/port/out"
	traitdomain "amio/internal/modules/trait/domain"
	"amio/internal/platform/logging"
)

const (
	defaultStartTimeout = 3 * time.Second
	defaultCallTimeout  = 5 * time.Second
	batchCallTimeout    = 30 * time.Second
)

// GRPCHost launches plugin binaries and hands back bridged manager
// implementations. One plugin process per dispensed instance; the
// instance owns the process until Close.
type GRPCHost struct {
	logger hclog.Logger
}

func NewGRPCHost(logger hclog.Logger) pluginout.Host {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &GRPCHost{logger: logger}
}

func (h *GRPCHost) Dispense(ctx context.Context, manifest domain.Manifest) (managerout.ManagerInterface, error) {
	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig:  rpc.HandshakeConfig,
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolGRPC},
		Plugins:          rpc.PluginMap(nil),
		Cmd:              exec.Command(manifest.Binary),
		Managed:          true,
		StartTimeout:     defaultStartTimeout,
		Logger:           logging.Silent(),
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("start plugin client: %w", err)
	}
	raw, err := rpcClient.Dispense(rpc.PluginMapKey)
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("dispense plugin: %w", err)
	}
	typed, ok := raw.(rpc.ManagerClient)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("plugin rpc client type mismatch")
	}

	bridged := &grpcManager{manifest: manifest, client: client, rpc: typed}

	// The manifest's identifier is trusted at discovery time only; the
	// live binary is the authority.
	callCtx, cancel := callContext(ctx, defaultCallTimeout)
	defer cancel()
	meta, err := typed.GetMetadata(callCtx)
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("get plugin metadata: %w", err)
	}
	if err := verifyDispensedIdentifier(manifest, meta); err != nil {
		client.Kill()
		return nil, err
	}
	bridged.meta = meta
	h.logger.Debug("dispensed manager plugin", "identifier", meta.Identifier)
	return bridged, nil
}

// verifyDispensedIdentifier cross-checks the manifest's identifier
// against the one the live binary reports. The manifest is trusted at
// discovery time only; the binary is the authority.
func verifyDispensedIdentifier(manifest domain.Manifest, meta *rpc.Metadata) error {
	if meta.Identifier != manifest.Identifier {
		return fmt.Errorf("%w: manifest says %q, plugin says %q",
			domain.ErrIdentifierMismatch, manifest.Identifier, meta.Identifier)
	}
	return nil
}

// grpcManager implements ManagerInterface over a live plugin process.
// It is the out-of-process twin of the in-process suite adapter: every
// failure crossing the process boundary arrives as an error value or a
// per-element wire error, never an unwinding panic.
type grpcManager struct {
	manifest domain.Manifest
	client   *plugin.Client
	rpc      rpc.ManagerClient
	meta     *rpc.Metadata

	killOnce sync.Once
}

var _ managerout.ManagerInterface = (*grpcManager)(nil)

func (g *grpcManager) Identifier() (string, error) {
	return g.meta.Identifier, nil
}

func (g *grpcManager) DisplayName() (string, error) {
	return g.meta.DisplayName, nil
}

func (g *grpcManager) Info() (traitdomain.InfoDictionary, error) {
	return rpc.InfoFromWire(g.meta.Info)
}

func (g *grpcManager) Settings() (traitdomain.InfoDictionary, error) {
	callCtx, cancel := callContext(context.Background(), defaultCallTimeout)
	defer cancel()
	response, err := g.rpc.GetSettings(callCtx)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return rpc.InfoFromWire(response.Settings)
}

func (g *grpcManager) Initialize(settings traitdomain.InfoDictionary) error {
	callCtx, cancel := callContext(context.Background(), defaultCallTimeout)
	defer cancel()
	if err := g.rpc.Initialize(callCtx, &rpc.InitializeRequest{Settings: rpc.InfoToWire(settings)}); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	return nil
}

func (g *grpcManager) HasCapability(c managerdomain.Capability) bool {
	for _, capability := range g.meta.Capabilities {
		if capability == string(c) {
			return true
		}
	}
	return false
}

func (g *grpcManager) IsEntityReferenceString(s string) bool {
	callCtx, cancel := callContext(context.Background(), defaultCallTimeout)
	defer cancel()
	response, err := g.rpc.IsEntityReference(callCtx, &rpc.IsEntityReferenceRequest{Ref: s})
	if err != nil {
		return false
	}
	return response.Ok
}

func (g *grpcManager) Exists(ctx context.Context, refs []managerdomain.EntityReference, cctx *managerdomain.Context,
	onSuccess managerout.ExistsSuccessCallback, onError managerout.BatchElementErrorCallback) error {
	callCtx, cancel := callContext(ctx, batchCallTimeout)
	defer cancel()
	response, err := g.rpc.Exists(callCtx, &rpc.ExistsRequest{
		Refs:    rpc.RefsToWire(refs),
		Context: rpc.ContextToWire(cctx),
	})
	if err != nil {
		return fmt.Errorf("exists: %w", err)
	}
	replayOutcomes(response.Outcomes, onError, func(outcome rpc.Outcome) bool {
		if outcome.Exists == nil {
			return false
		}
		onSuccess(outcome.Index, *outcome.Exists)
		return true
	})
	return nil
}

func (g *grpcManager) Resolve(ctx context.Context, refs []managerdomain.EntityReference, traitSet traitdomain.TraitSet,
	access managerdomain.ResolveAccess, cctx *managerdomain.Context,
	onSuccess managerout.ResolveSuccessCallback, onError managerout.BatchElementErrorCallback) error {
	callCtx, cancel := callContext(ctx, batchCallTimeout)
	defer cancel()
	response, err := g.rpc.Resolve(callCtx, &rpc.ResolveRequest{
		Refs:     rpc.RefsToWire(refs),
		TraitSet: traitSet.Slice(),
		Access:   access.Name(),
		Context:  rpc.ContextToWire(cctx),
	})
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}
	replayOutcomes(response.Outcomes, onError, func(outcome rpc.Outcome) bool {
		if outcome.Data == nil {
			return false
		}
		data, err := rpc.TraitsDataFromWire(outcome.Data)
		if err != nil {
			onError(outcome.Index, managerdomain.BatchElementError{
				Code:    managerdomain.ErrorCodeUnknown,
				Message: err.Error(),
			})
			return true
		}
		onSuccess(outcome.Index, data)
		return true
	})
	return nil
}

func (g *grpcManager) Preflight(ctx context.Context, refs []managerdomain.EntityReference, hints []*traitdomain.TraitsData,
	access managerdomain.PublishingAccess, cctx *managerdomain.Context,
	onSuccess managerout.ReferenceSuccessCallback, onError managerout.BatchElementErrorCallback) error {
	return g.publish(ctx, "preflight", g.rpc.Preflight, refs, hints, access, cctx, onSuccess, onError)
}

func (g *grpcManager) Register(ctx context.Context, refs []managerdomain.EntityReference, data []*traitdomain.TraitsData,
	access managerdomain.PublishingAccess, cctx *managerdomain.Context,
	onSuccess managerout.ReferenceSuccessCallback, onError managerout.BatchElementErrorCallback) error {
	return g.publish(ctx, "register", g.rpc.Register, refs, data, access, cctx, onSuccess, onError)
}

func (g *grpcManager) publish(ctx context.Context, what string,
	call func(context.Context, *rpc.PublishRequest) (*rpc.BatchResponse, error),
	refs []managerdomain.EntityReference, data []*traitdomain.TraitsData,
	access managerdomain.PublishingAccess, cctx *managerdomain.Context,
	onSuccess managerout.ReferenceSuccessCallback, onError managerout.BatchElementErrorCallback) error {
	wireData := make([]rpc.TraitsData, len(data))
	for i, d := range data {
		wireData[i] = rpc.TraitsDataToWire(d)
	}
	callCtx, cancel := callContext(ctx, batchCallTimeout)
	defer cancel()
	response, err := call(callCtx, &rpc.PublishRequest{
		Refs:    rpc.RefsToWire(refs),
		Data:    wireData,
		Access:  access.Name(),
		Context: rpc.ContextToWire(cctx),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	replayOutcomes(response.Outcomes, onError, func(outcome rpc.Outcome) bool {
		if outcome.Ref == "" {
			return false
		}
		onSuccess(outcome.Index, managerdomain.NewEntityReference(outcome.Ref))
		return true
	})
	return nil
}

// Close kills the plugin process. Exactly once.
func (g *grpcManager) Close() error {
	g.killOnce.Do(g.client.Kill)
	return nil
}

// replayOutcomes fires the callbacks for each wire outcome in the order
// the plugin listed them, which need not be index order. An outcome
// carrying neither a value nor an error is malformed and reported as an
// element error so the invocation core's tally stays honest.
func replayOutcomes(outcomes []rpc.Outcome, onError managerout.BatchElementErrorCallback, applyValue func(rpc.Outcome) bool) {
	for _, outcome := range outcomes {
		if outcome.Error != nil {
			onError(outcome.Index, rpc.ErrorFromWire(*outcome.Error))
			continue
		}
		if !applyValue(outcome) {
			onError(outcome.Index, managerdomain.BatchElementError{
				Code:    managerdomain.ErrorCodeUnknown,
				Message: "plugin returned an outcome with no value and no error",
			})
		}
	}
}

func callContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := parent.Deadline(); ok {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}
