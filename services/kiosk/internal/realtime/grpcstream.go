package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/appetiteclub/kiosk/pkg/lib/core"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const subscribeMethod = "/kiosk.realtime.v1.EventStream/Subscribe"

// EventStreamHandler is the server side of kiosk.realtime.v1.EventStream.
// Requests and events travel as google.protobuf.Struct.
type EventStreamHandler interface {
	Subscribe(req *structpb.Struct, stream grpc.ServerStream) error
}

var eventStreamDesc = grpc.ServiceDesc{
	ServiceName: "kiosk.realtime.v1.EventStream",
	HandlerType: (*EventStreamHandler)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       subscribeHandler,
			ServerStreams: true,
		},
	},
	Metadata: "kiosk/realtime/v1/events.proto",
}

func subscribeHandler(srv interface{}, stream grpc.ServerStream) error {
	req := new(structpb.Struct)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(EventStreamHandler).Subscribe(req, stream)
}

// EventStreamServer mirrors the hub to internal gRPC consumers.
type EventStreamServer struct {
	hub    *Hub
	logger core.Logger
}

func NewEventStreamServer(hub *Hub, logger core.Logger) *EventStreamServer {
	if logger == nil {
		logger = core.NewNoopLogger()
	}
	return &EventStreamServer{hub: hub, logger: logger.With("component", "EventStreamServer")}
}

// RegisterGRPCService registers this service with the gRPC server.
func (s *EventStreamServer) RegisterGRPCService(server *grpc.Server) {
	server.RegisterService(&eventStreamDesc, s)
}

// Subscribe streams every event for the rooms listed in req["rooms"] plus
// all unscoped events, until the caller goes away.
func (s *EventStreamServer) Subscribe(req *structpb.Struct, stream grpc.ServerStream) error {
	ctx := stream.Context()

	var rooms []string
	if v, ok := req.GetFields()["rooms"]; ok {
		for _, r := range v.GetListValue().GetValues() {
			rooms = append(rooms, r.GetStringValue())
		}
	}

	client := s.hub.Register(rooms...)
	defer s.hub.Unregister(client)
	s.logger.Info("new event stream subscriber", "subscriber_id", client.ID(), "rooms", rooms)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("event stream subscriber disconnected", "subscriber_id", client.ID())
			return ctx.Err()
		case msg, ok := <-client.Messages():
			if !ok {
				return nil
			}
			evt, err := toStruct(msg)
			if err != nil {
				s.logger.Error("cannot encode stream event", "event", msg.Event, "error", err)
				continue
			}
			if err := stream.SendMsg(evt); err != nil {
				s.logger.Errorf("failed to send event: %v", err)
				return err
			}
		}
	}
}

func toStruct(msg Message) (*structpb.Struct, error) {
	fields := map[string]interface{}{"event": msg.Event}
	if msg.Room != "" {
		fields["room"] = msg.Room
	}
	if len(msg.Payload) > 0 {
		var payload interface{}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return nil, err
		}
		fields["payload"] = payload
	}
	return structpb.NewStruct(fields)
}

// EventStreamClient reads events from a remote EventStream.
type EventStreamClient struct {
	stream grpc.ClientStream
}

func SubscribeEvents(ctx context.Context, conn grpc.ClientConnInterface, rooms ...string) (*EventStreamClient, error) {
	stream, err := conn.NewStream(ctx, &eventStreamDesc.Streams[0], subscribeMethod)
	if err != nil {
		return nil, fmt.Errorf("cannot open event stream: %w", err)
	}

	list := make([]interface{}, len(rooms))
	for i, r := range rooms {
		list[i] = r
	}
	req, err := structpb.NewStruct(map[string]interface{}{"rooms": list})
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, fmt.Errorf("cannot send subscription: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &EventStreamClient{stream: stream}, nil
}

func (c *EventStreamClient) Recv() (Message, error) {
	evt := new(structpb.Struct)
	if err := c.stream.RecvMsg(evt); err != nil {
		return Message{}, err
	}
	fields := evt.GetFields()
	msg := Message{
		Event: fields["event"].GetStringValue(),
		Room:  fields["room"].GetStringValue(),
	}
	if p, ok := fields["payload"]; ok {
		data, err := json.Marshal(p.AsInterface())
		if err != nil {
			return Message{}, err
		}
		msg.Payload = data
	}
	return msg, nil
}
