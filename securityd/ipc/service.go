// Copyright 2026 The securityd Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ipc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified name of the securityd service.
const ServiceName = "securityd.v1.Security"

const (
	methodSetACL      = "/" + ServiceName + "/SetACL"
	methodEvaluate    = "/" + ServiceName + "/Evaluate"
	methodFindTrust   = "/" + ServiceName + "/FindTrust"
	methodAssignTrust = "/" + ServiceName + "/AssignTrust"
	methodCopyRoots   = "/" + ServiceName + "/CopyRoots"
	methodCheckChain  = "/" + ServiceName + "/CheckChain"
)

// SecurityServer is the server API of the securityd service.
type SecurityServer interface {
	SetACL(context.Context, *SetACLRequest) (*SetACLResponse, error)
	Evaluate(context.Context, *EvaluateRequest) (*EvaluateResponse, error)
	FindTrust(context.Context, *FindTrustRequest) (*FindTrustResponse, error)
	AssignTrust(context.Context, *AssignTrustRequest) (*AssignTrustResponse, error)
	CopyRoots(context.Context, *CopyRootsRequest) (*CopyRootsResponse, error)
	CheckChain(context.Context, *CheckChainRequest) (*CheckChainResponse, error)
}

// RegisterSecurityServer registers srv with s. The server must use the
// walker Codec, see ServerCodec.
func RegisterSecurityServer(s grpc.ServiceRegistrar, srv SecurityServer) {
	s.RegisterService(&securityServiceDesc, srv)
}

// ServerCodec returns the server option that selects the walker codec.
func ServerCodec() grpc.ServerOption {
	return grpc.ForceServerCodec(Codec{})
}

// unaryHandler adapts a typed method to a grpc.MethodDesc handler.
func unaryHandler[Req any, Resp any, PReq interface {
	*Req
	Message
}](
	method string,
	call func(SecurityServer, context.Context, PReq) (Resp, error),
) grpc.MethodHandler {

	return func(srv any, ctx context.Context, dec func(any) error,
		interceptor grpc.UnaryServerInterceptor) (any, error) {

		in := PReq(new(Req))
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SecurityServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(SecurityServer), ctx, req.(PReq))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var securityServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SecurityServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "SetACL",
			Handler: unaryHandler[SetACLRequest](methodSetACL,
				SecurityServer.SetACL),
		},
		{
			MethodName: "Evaluate",
			Handler: unaryHandler[EvaluateRequest](methodEvaluate,
				SecurityServer.Evaluate),
		},
		{
			MethodName: "FindTrust",
			Handler: unaryHandler[FindTrustRequest](methodFindTrust,
				SecurityServer.FindTrust),
		},
		{
			MethodName: "AssignTrust",
			Handler: unaryHandler[AssignTrustRequest](methodAssignTrust,
				SecurityServer.AssignTrust),
		},
		{
			MethodName: "CopyRoots",
			Handler: unaryHandler[CopyRootsRequest](methodCopyRoots,
				SecurityServer.CopyRoots),
		},
		{
			MethodName: "CheckChain",
			Handler: unaryHandler[CheckChainRequest](methodCheckChain,
				SecurityServer.CheckChain),
		},
	},
	Metadata: "securityd/ipc/service.go",
}

// SecurityClient is the client API of the securityd service.
type SecurityClient interface {
	SetACL(ctx context.Context, in *SetACLRequest, opts ...grpc.CallOption) (*SetACLResponse, error)
	Evaluate(ctx context.Context, in *EvaluateRequest, opts ...grpc.CallOption) (*EvaluateResponse, error)
	FindTrust(ctx context.Context, in *FindTrustRequest, opts ...grpc.CallOption) (*FindTrustResponse, error)
	AssignTrust(ctx context.Context, in *AssignTrustRequest, opts ...grpc.CallOption) (*AssignTrustResponse, error)
	CopyRoots(ctx context.Context, in *CopyRootsRequest, opts ...grpc.CallOption) (*CopyRootsResponse, error)
	CheckChain(ctx context.Context, in *CheckChainRequest, opts ...grpc.CallOption) (*CheckChainResponse, error)
}

type securityClient struct {
	cc grpc.ClientConnInterface
}

// NewSecurityClient creates a client that encodes calls with the walker
// codec.
func NewSecurityClient(cc grpc.ClientConnInterface) SecurityClient {
	return &securityClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string,
	in Message, opts []grpc.CallOption) (*Resp, error) {

	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.ForceCodec(Codec{})}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *securityClient) SetACL(ctx context.Context, in *SetACLRequest,
	opts ...grpc.CallOption) (*SetACLResponse, error) {

	return invoke[SetACLResponse](ctx, c.cc, methodSetACL, in, opts)
}

func (c *securityClient) Evaluate(ctx context.Context, in *EvaluateRequest,
	opts ...grpc.CallOption) (*EvaluateResponse, error) {

	return invoke[EvaluateResponse](ctx, c.cc, methodEvaluate, in, opts)
}

func (c *securityClient) FindTrust(ctx context.Context, in *FindTrustRequest,
	opts ...grpc.CallOption) (*FindTrustResponse, error) {

	return invoke[FindTrustResponse](ctx, c.cc, methodFindTrust, in, opts)
}

func (c *securityClient) AssignTrust(ctx context.Context, in *AssignTrustRequest,
	opts ...grpc.CallOption) (*AssignTrustResponse, error) {

	return invoke[AssignTrustResponse](ctx, c.cc, methodAssignTrust, in, opts)
}

func (c *securityClient) CopyRoots(ctx context.Context, in *CopyRootsRequest,
	opts ...grpc.CallOption) (*CopyRootsResponse, error) {

	return invoke[CopyRootsResponse](ctx, c.cc, methodCopyRoots, in, opts)
}

func (c *securityClient) CheckChain(ctx context.Context, in *CheckChainRequest,
	opts ...grpc.CallOption) (*CheckChainResponse, error) {

	return invoke[CheckChainResponse](ctx, c.cc, methodCheckChain, in, opts)
}
