// Package rpc defines the versioned wire contract between the host and
// out-of-process manager plugins. The service name carries the ABI
// version: a breaking change to any method signature requires a new
// service name, never an in-place edit of this one.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-plugin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const (
	PluginMapKey    = "manager"
	serviceName     = "amio.manager.v1.Manager"
	jsonCodecName   = "json"
	methodMetadata  = "/" + serviceName + "/GetMetadata"
	methodSettings  = "/" + serviceName + "/GetSettings"
	methodInit      = "/" + serviceName + "/Initialize"
	methodIsRef     = "/" + serviceName + "/IsEntityReference"
	methodExists    = "/" + serviceName + "/Exists"
	methodResolve   = "/" + serviceName + "/Resolve"
	methodPreflight = "/" + serviceName + "/Preflight"
	methodRegister  = "/" + serviceName + "/Register"
)

var HandshakeConfig = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "AMIO_MANAGER_PLUGIN",
	MagicCookieValue: "amio",
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return jsonCodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type Empty struct{}

// Value is the wire form of a trait property value: a closed variant
// tagged by Type, one of "bool", "int", "float", "string".
type Value struct {
	Type  string  `json:"type"`
	Bool  bool    `json:"bool,omitempty"`
	Int   int64   `json:"int,omitempty"`
	Float float64 `json:"float,omitempty"`
	Str   string  `json:"str,omitempty"`
}

// TraitsData is the wire form of a trait property bag: trait id to
// property key to value. A present trait with no properties is an
// empty inner map, never elided.
type TraitsData map[string]map[string]Value

// InfoDictionary is the wire form of manager info/settings payloads.
type InfoDictionary map[string]Value

// Context is the wire form of the host's correlation object. Opaque
// manager state does not survive a process hop; only the serializable
// locale and the manager's own state token are carried.
type Context struct {
	Locale map[string]string `json:"locale,omitempty"`
	State  string            `json:"state,omitempty"`
}

type Metadata struct {
	Identifier   string         `json:"identifier"`
	DisplayName  string         `json:"display_name"`
	Info         InfoDictionary `json:"info,omitempty"`
	Capabilities []string       `json:"capabilities,omitempty"`
}

type SettingsResponse struct {
	Settings InfoDictionary `json:"settings,omitempty"`
}

type InitializeRequest struct {
	Settings InfoDictionary `json:"settings,omitempty"`
}

type IsEntityReferenceRequest struct {
	Ref string `json:"ref"`
}

type IsEntityReferenceResponse struct {
	Ok bool `json:"ok"`
}

// BatchElementError is the wire form of a per-element failure.
type BatchElementError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Outcome carries one element's result. Exactly one of the value
// fields or Error is set; Index addresses the input batch element.
// Outcomes may be listed in any order.
type Outcome struct {
	Index  int                `json:"index"`
	Error  *BatchElementError `json:"error,omitempty"`
	Exists *bool              `json:"exists,omitempty"`
	Data   TraitsData         `json:"data"`
	Ref    string             `json:"ref,omitempty"`
}

type ExistsRequest struct {
	Refs    []string `json:"refs"`
	Context Context  `json:"context"`
}

type ResolveRequest struct {
	Refs     []string `json:"refs"`
	TraitSet []string `json:"trait_set"`
	Access   string   `json:"access"`
	Context  Context  `json:"context"`
}

type PublishRequest struct {
	Refs    []string     `json:"refs"`
	Data    []TraitsData `json:"data"`
	Access  string       `json:"access"`
	Context Context      `json:"context"`
}

type BatchResponse struct {
	Outcomes []Outcome `json:"outcomes"`
}

type ManagerServer interface {
	GetMetadata(ctx context.Context, in *Empty) (*Metadata, error)
	GetSettings(ctx context.Context, in *Empty) (*SettingsResponse, error)
	Initialize(ctx context.Context, in *InitializeRequest) (*Empty, error)
	IsEntityReference(ctx context.Context, in *IsEntityReferenceRequest) (*IsEntityReferenceResponse, error)
	Exists(ctx context.Context, in *ExistsRequest) (*BatchResponse, error)
	Resolve(ctx context.Context, in *ResolveRequest) (*BatchResponse, error)
	Preflight(ctx context.Context, in *PublishRequest) (*BatchResponse, error)
	Register(ctx context.Context, in *PublishRequest) (*BatchResponse, error)
}

type ManagerClient interface {
	GetMetadata(ctx context.Context) (*Metadata, error)
	GetSettings(ctx context.Context) (*SettingsResponse, error)
	Initialize(ctx context.Context, in *InitializeRequest) error
	IsEntityReference(ctx context.Context, in *IsEntityReferenceRequest) (*IsEntityReferenceResponse, error)
	Exists(ctx context.Context, in *ExistsRequest) (*BatchResponse, error)
	Resolve(ctx context.Context, in *ResolveRequest) (*BatchResponse, error)
	Preflight(ctx context.Context, in *PublishRequest) (*BatchResponse, error)
	Register(ctx context.Context, in *PublishRequest) (*BatchResponse, error)
}

type managerClient struct {
	conn *grpc.ClientConn
}

func NewManagerClient(conn *grpc.ClientConn) ManagerClient {
	return &managerClient{conn: conn}
}

func invoke[Out any](ctx context.Context, conn *grpc.ClientConn, method string, in any) (*Out, error) {
	out := new(Out)
	if err := conn.Invoke(ctx, method, in, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *managerClient) GetMetadata(ctx context.Context) (*Metadata, error) {
	return invoke[Metadata](ctx, c.conn, methodMetadata, &Empty{})
}

func (c *managerClient) GetSettings(ctx context.Context) (*SettingsResponse, error) {
	return invoke[SettingsResponse](ctx, c.conn, methodSettings, &Empty{})
}

func (c *managerClient) Initialize(ctx context.Context, in *InitializeRequest) error {
	_, err := invoke[Empty](ctx, c.conn, methodInit, in)
	return err
}

func (c *managerClient) IsEntityReference(ctx context.Context, in *IsEntityReferenceRequest) (*IsEntityReferenceResponse, error) {
	return invoke[IsEntityReferenceResponse](ctx, c.conn, methodIsRef, in)
}

func (c *managerClient) Exists(ctx context.Context, in *ExistsRequest) (*BatchResponse, error) {
	return invoke[BatchResponse](ctx, c.conn, methodExists, in)
}

func (c *managerClient) Resolve(ctx context.Context, in *ResolveRequest) (*BatchResponse, error) {
	return invoke[BatchResponse](ctx, c.conn, methodResolve, in)
}

func (c *managerClient) Preflight(ctx context.Context, in *PublishRequest) (*BatchResponse, error) {
	return invoke[BatchResponse](ctx, c.conn, methodPreflight, in)
}

func (c *managerClient) Register(ctx context.Context, in *PublishRequest) (*BatchResponse, error) {
	return invoke[BatchResponse](ctx, c.conn, methodRegister, in)
}

func unaryHandler[In any](method string, call func(ctx context.Context, in *In) (any, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(In)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*In)
			if !ok {
				return nil, fmt.Errorf("invalid request type")
			}
			return call(ctx, typed)
		}
		return interceptor(ctx, in, info, handler)
	}
}

func RegisterManagerServer(server grpc.ServiceRegistrar, impl ManagerServer) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*ManagerServer)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "GetMetadata",
				Handler: unaryHandler(methodMetadata, func(ctx context.Context, in *Empty) (any, error) {
					return impl.GetMetadata(ctx, in)
				}),
			},
			{
				MethodName: "GetSettings",
				Handler: unaryHandler(methodSettings, func(ctx context.Context, in *Empty) (any, error) {
					return impl.GetSettings(ctx, in)
				}),
			},
			{
				MethodName: "Initialize",
				Handler: unaryHandler(methodInit, func(ctx context.Context, in *InitializeRequest) (any, error) {
					return impl.Initialize(ctx, in)
				}),
			},
			{
				MethodName: "IsEntityReference",
				Handler: unaryHandler(methodIsRef, func(ctx context.Context, in *IsEntityReferenceRequest) (any, error) {
					return impl.IsEntityReference(ctx, in)
				}),
			},
			{
				MethodName: "Exists",
				Handler: unaryHandler(methodExists, func(ctx context.Context, in *ExistsRequest) (any, error) {
					return impl.Exists(ctx, in)
				}),
			},
			{
				MethodName: "Resolve",
				Handler: unaryHandler(methodResolve, func(ctx context.Context, in *ResolveRequest) (any, error) {
					return impl.Resolve(ctx, in)
				}),
			},
			{
				MethodName: "Preflight",
				Handler: unaryHandler(methodPreflight, func(ctx context.Context, in *PublishRequest) (any, error) {
					return impl.Preflight(ctx, in)
				}),
			},
			{
				MethodName: "Register",
				Handler: unaryHandler(methodRegister, func(ctx context.Context, in *PublishRequest) (any, error) {
					return impl.Register(ctx, in)
				}),
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "schemas/manager-rpc-v1.proto",
	}, impl)
}

type GRPCPlugin struct {
	plugin.NetRPCUnsupportedPlugin
	Impl ManagerServer
}

func (p *GRPCPlugin) GRPCServer(_ *plugin.GRPCBroker, server *grpc.Server) error {
	RegisterManagerServer(server, p.Impl)
	return nil
}

func (p *GRPCPlugin) GRPCClient(_ context.Context, _ *plugin.GRPCBroker, conn *grpc.ClientConn) (any, error) {
	return NewManagerClient(conn), nil
}

func PluginMap(impl ManagerServer) map[string]plugin.Plugin {
	return map[string]plugin.Plugin{
		PluginMapKey: &GRPCPlugin{Impl: impl},
	}
}
