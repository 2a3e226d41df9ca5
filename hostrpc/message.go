package hostrpc

import (
	"errors"
	"fmt"
	"math"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/tailored-agentic-units/scenebridge/bridge"
	"github.com/tailored-agentic-units/scenebridge/handle"
)

// Event is one bridged notification delivered by WatchEvents.
type Event struct {
	Origin handle.ID
	Name   string
	Token  uint64
}

func (e Event) toStruct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"origin": structpb.NewNumberValue(float64(e.Origin)),
		"event":  structpb.NewStringValue(e.Name),
		"token":  structpb.NewNumberValue(float64(e.Token)),
	}}
}

func eventFromStruct(s *structpb.Struct) (Event, error) {
	origin, err := idArg(s, "origin")
	if err != nil {
		return Event{}, err
	}
	name, err := stringArg(s, "event")
	if err != nil {
		return Event{}, err
	}
	token, err := intArg(s, "token")
	if err != nil {
		return Event{}, err
	}
	return Event{Origin: origin, Name: name, Token: uint64(token)}, nil
}

// idArg reads an identifier. Numbers outside the identifier range map to
// handle.Invalid, which never resolves.
func idArg(s *structpb.Struct, name string) (handle.ID, error) {
	n, err := intArg(s, name)
	if err != nil {
		return handle.Invalid, err
	}
	if n < 0 || n > math.MaxUint32 {
		return handle.Invalid, nil
	}
	return handle.ID(n), nil
}

func intArg(s *structpb.Struct, name string) (int64, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return 0, fmt.Errorf("%w: missing %q", bridge.ErrInvalidArgument, name)
	}
	kind, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%w: %q is not a number", bridge.ErrInvalidArgument, name)
	}
	f := kind.NumberValue
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %q is not an integer", bridge.ErrInvalidArgument, name)
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: %q out of range", bridge.ErrInvalidArgument, name)
	}
	return int64(f), nil
}

func stringArg(s *structpb.Struct, name string) (string, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return "", fmt.Errorf("%w: missing %q", bridge.ErrInvalidArgument, name)
	}
	kind, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%w: %q is not a string", bridge.ErrInvalidArgument, name)
	}
	return kind.StringValue, nil
}

func boolResponse(ok bool) *connect.Response[wrapperspb.BoolValue] {
	return connect.NewResponse(wrapperspb.Bool(ok))
}

// connectError maps bridge failure reasons onto Connect codes.
func connectError(err error) *connect.Error {
	switch {
	case errors.Is(err, bridge.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, bridge.ErrCapabilityMismatch):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, bridge.ErrInvalidArgument):
		return connect.NewError(connect.CodeInvalidArgument, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
