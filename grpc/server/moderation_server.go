package server

import (
	"context"
	"errors"
	"log"
	"net"
	"time"

	"navi/filter"
	"navi/scheduler"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "navi.Moderation"

// FilterSource exposes the filters in effect for a guild or channel.
type FilterSource interface {
	Scopes(ctx context.Context, guildID, channelID string) ([]filter.ScopedFilters, error)
}

// TaskSource exposes armed scheduler tasks.
type TaskSource interface {
	List(guildID string) []scheduler.TaskInfo
	Cancel(ctx context.Context, id int64) error
}

// ModerationServer serves read access to filters and tasks plus task cancellation.
type ModerationServer struct {
	filters FilterSource
	tasks   TaskSource
}

// NewModerationServer creates a new ModerationServer instance
func NewModerationServer(filters FilterSource, tasks TaskSource) *ModerationServer {
	return &ModerationServer{filters: filters, tasks: tasks}
}

// ListFilters returns the server and channel filters of a guild.
// Request fields: guild_id (required), channel_id.
func (s *ModerationServer) ListFilters(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	guildID, channelID := field(req, "guild_id"), field(req, "channel_id")
	log.Printf("[ModerationServer] ListFilters called for guild_id=%s, channel_id=%s", guildID, channelID)
	if guildID == "" {
		return nil, status.Error(codes.InvalidArgument, "guild_id is required")
	}

	scopes, err := s.filters.Scopes(ctx, guildID, channelID)
	if err != nil {
		log.Printf("[ModerationServer] Error loading filters: %v", err)
		return nil, status.Errorf(codes.Internal, "failed to load filters: %v", err)
	}

	var rows []interface{}
	for _, sc := range scopes {
		for _, f := range sc.Filters {
			rows = append(rows, map[string]interface{}{
				"scope":    string(sc.Scope.Kind),
				"scope_id": sc.Scope.ID,
				"text":     f.Text(),
				"syntax":   f.Syntax().String(),
				"severity": f.Severity.String(),
			})
		}
	}
	return newStruct(map[string]interface{}{"filters": listOrEmpty(rows)})
}

// CheckContent resolves content against the filters of a guild without enforcing anything.
// Request fields: guild_id (required), channel_id, content.
func (s *ModerationServer) CheckContent(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	guildID := field(req, "guild_id")
	if guildID == "" {
		return nil, status.Error(codes.InvalidArgument, "guild_id is required")
	}
	scopes, err := s.filters.Scopes(ctx, guildID, field(req, "channel_id"))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to load filters: %v", err)
	}

	v := filter.Resolve(field(req, "content"), scopes)
	if v == nil {
		return newStruct(map[string]interface{}{"matched": false})
	}
	return newStruct(map[string]interface{}{
		"matched":  true,
		"text":     v.Filter.Text(),
		"severity": v.Severity().String(),
		"scope":    string(v.Scope.Kind),
		"scope_id": v.Scope.ID,
	})
}

// ListTasks returns the armed tasks of a guild; an empty guild lists all.
func (s *ModerationServer) ListTasks(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	log.Printf("[ModerationServer] ListTasks called for guild_id=%s", req.GetValue())

	var rows []interface{}
	for _, t := range s.tasks.List(req.GetValue()) {
		row := map[string]interface{}{
			"id":          float64(t.Record.ID),
			"guild_id":    t.Record.GuildID,
			"kind":        string(t.Record.Kind),
			"due_at":      t.Record.DueAt.UTC().Format(time.RFC3339),
			"state":       t.State.String(),
			"causer":      t.Causer.Name,
			"description": t.Description,
		}
		if t.Record.Recurring() {
			row["interval_seconds"] = t.Record.Interval().Seconds()
		}
		rows = append(rows, row)
	}
	return newStruct(map[string]interface{}{"tasks": listOrEmpty(rows)})
}

// CancelTask cancels an armed or stored task by ID.
func (s *ModerationServer) CancelTask(ctx context.Context, req *wrapperspb.Int64Value) (*emptypb.Empty, error) {
	log.Printf("[ModerationServer] CancelTask called for id=%d", req.GetValue())
	if req.GetValue() <= 0 {
		return nil, status.Error(codes.InvalidArgument, "id must be positive")
	}
	if err := s.tasks.Cancel(ctx, req.GetValue()); err != nil {
		if errors.Is(err, scheduler.ErrTaskNotFound) {
			return nil, status.Errorf(codes.NotFound, "task %d not found", req.GetValue())
		}
		return nil, status.Errorf(codes.Internal, "failed to cancel task: %v", err)
	}
	return &emptypb.Empty{}, nil
}

func field(req *structpb.Struct, name string) string {
	if req == nil {
		return ""
	}
	return req.GetFields()[name].GetStringValue()
}

func listOrEmpty(rows []interface{}) []interface{} {
	if rows == nil {
		return []interface{}{}
	}
	return rows
}

func newStruct(m map[string]interface{}) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return st, nil
}

// Serve registers the service on a new gRPC server listening on lis and
// serves until the server is stopped.
func Serve(lis net.Listener, srv *ModerationServer) *grpc.Server {
	gs := grpc.NewServer()
	Register(gs, srv)
	go func() {
		log.Printf("[ModerationServer] Listening on %s", lis.Addr())
		if err := gs.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Printf("[ModerationServer] Serve error: %v", err)
		}
	}()
	return gs
}
