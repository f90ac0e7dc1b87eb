package grpcserver

import (
	"context"
	"errors"

	"fenrir/domain/match"
	"fenrir/service"

	"github.com/ethereum/go-ethereum/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const takerMetadataKey = "x-taker-address"

// Server adapts MatchService to gRPC.
type Server struct {
	svc *service.MatchService
}

func NewServer(svc *service.MatchService) *Server {
	return &Server{svc: svc}
}

// NewGRPCServer returns a grpc.Server speaking this package's JSON codec
// with the exchange service registered.
func NewGRPCServer(svc *service.MatchService) *grpc.Server {
	g := grpc.NewServer(grpc.ForceServerCodec(jsonCodec{}))
	g.RegisterService(&serviceDesc, NewServer(svc))
	return g
}

// -------------------- Commands --------------------

func (s *Server) MatchOrders(
	ctx context.Context,
	req *MatchOrdersRequest,
) (*MatchOrdersResponse, error) {
	left, err := toSignedOrder(req.LeftOrder)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "left_order: %v", err)
	}
	right, err := toSignedOrder(req.RightOrder)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "right_order: %v", err)
	}
	taker, err := takerFrom(ctx, req.Taker)
	if err != nil {
		return nil, err
	}

	res, err := s.svc.MatchOrders(ctx, left, right, taker)
	if err != nil {
		return nil, toStatusError(err)
	}

	resp := &MatchOrdersResponse{
		Status: res.Status.String(),
		Left:   toOrderInfoMsg(&res.Left),
		Right:  toOrderInfoMsg(&res.Right),
	}
	if res.Results != nil {
		resp.LeftFill = toFillMsg(&res.Results.Left)
		resp.RightFill = toFillMsg(&res.Results.Right)
		resp.LeftMakerAssetSpreadAmount = res.Results.LeftMakerAssetSpreadAmount.String()
	}
	return resp, nil
}

func (s *Server) CancelOrder(
	ctx context.Context,
	req *CancelOrderRequest,
) (*CancelOrderResponse, error) {
	o, err := toSignedOrder(req.Order)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "order: %v", err)
	}
	info, err := s.svc.CancelOrder(ctx, o)
	if err != nil {
		return nil, status.Errorf(codes.PermissionDenied, "%v", err)
	}
	return &CancelOrderResponse{Info: toOrderInfoMsg(info)}, nil
}

// -------------------- Queries --------------------

func (s *Server) GetOrderInfo(
	ctx context.Context,
	req *GetOrderInfoRequest,
) (*GetOrderInfoResponse, error) {
	o, err := toSignedOrder(req.Order)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "order: %v", err)
	}
	info, err := s.svc.GetOrderInfo(&o.Order)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "%v", err)
	}
	return &GetOrderInfoResponse{Info: toOrderInfoMsg(info)}, nil
}

// -------------------- Converters --------------------

func toOrderInfoMsg(info *service.OrderInfo) *OrderInfoMsg {
	return &OrderInfoMsg{
		OrderHash:              info.OrderHash.Hex(),
		Status:                 info.Status.String(),
		FilledTakerAssetAmount: info.FilledTakerAssetAmount.String(),
	}
}

func toFillMsg(f *match.FillResults) *FillMsg {
	return &FillMsg{
		MakerAssetFilledAmount: f.MakerAssetFilledAmount.String(),
		TakerAssetFilledAmount: f.TakerAssetFilledAmount.String(),
		MakerFeePaid:           f.MakerFeePaid.String(),
		TakerFeePaid:           f.TakerFeePaid.String(),
	}
}

// takerFrom picks the taker address from the request body, falling back
// to the x-taker-address metadata header set by an authenticating proxy.
func takerFrom(ctx context.Context, field string) (common.Address, error) {
	if field == "" {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get(takerMetadataKey); len(vals) > 0 {
				field = vals[0]
			}
		}
	}
	if field == "" {
		return common.Address{}, status.Error(codes.InvalidArgument, "taker address is required")
	}
	if !common.IsHexAddress(field) {
		return common.Address{}, status.Errorf(codes.InvalidArgument, "taker: %q is not a hex address", field)
	}
	return common.HexToAddress(field), nil
}

// toStatusError maps service failures onto gRPC codes. Mismatched or
// crossed order pairs are caller mistakes; everything else is ours.
func toStatusError(err error) error {
	switch {
	case match.IsInvariant(err):
		return status.Errorf(codes.Internal, "%v", err)
	case errors.Is(err, match.ErrAssetMismatch), errors.Is(err, match.ErrNegativeSpread):
		return status.Errorf(codes.FailedPrecondition, "%v", err)
	default:
		return status.Errorf(codes.Internal, "%v", err)
	}
}

// -------------------- Service wiring --------------------

// ExchangeServer is the handler contract for the hand-rolled service
// descriptor below.
type ExchangeServer interface {
	MatchOrders(context.Context, *MatchOrdersRequest) (*MatchOrdersResponse, error)
	CancelOrder(context.Context, *CancelOrderRequest) (*CancelOrderResponse, error)
	GetOrderInfo(context.Context, *GetOrderInfoRequest) (*GetOrderInfoResponse, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: "fenrir.Exchange",
	HandlerType: (*ExchangeServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "MatchOrders", Handler: matchOrdersHandler},
		{MethodName: "CancelOrder", Handler: cancelOrderHandler},
		{MethodName: "GetOrderInfo", Handler: getOrderInfoHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fenrir/exchange",
}

func matchOrdersHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(MatchOrdersRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ExchangeServer).MatchOrders(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/fenrir.Exchange/MatchOrders"}
	return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ExchangeServer).MatchOrders(ctx, req.(*MatchOrdersRequest))
	})
}

func cancelOrderHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CancelOrderRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ExchangeServer).CancelOrder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/fenrir.Exchange/CancelOrder"}
	return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ExchangeServer).CancelOrder(ctx, req.(*CancelOrderRequest))
	})
}

func getOrderInfoHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetOrderInfoRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ExchangeServer).GetOrderInfo(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/fenrir.Exchange/GetOrderInfo"}
	return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ExchangeServer).GetOrderInfo(ctx, req.(*GetOrderInfoRequest))
	})
}
