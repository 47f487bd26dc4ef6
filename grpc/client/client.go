package client

import (
	"context"
	"fmt"

	"navi/grpc/server"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client is a thin client for the navi.Moderation service.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to addr without transport security. Extra options are appended.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func method(name string) string {
	return "/" + server.ServiceName + "/" + name
}

// ListFilters lists the filters of a guild, plus a channel's when channelID is set.
func (c *Client) ListFilters(ctx context.Context, guildID, channelID string) ([]map[string]interface{}, error) {
	req, err := structpb.NewStruct(map[string]interface{}{"guild_id": guildID, "channel_id": channelID})
	if err != nil {
		return nil, err
	}
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, method("ListFilters"), req, resp); err != nil {
		return nil, err
	}
	return rows(resp, "filters"), nil
}

// CheckContent resolves content against a guild's filters.
func (c *Client) CheckContent(ctx context.Context, guildID, channelID, content string) (map[string]interface{}, error) {
	req, err := structpb.NewStruct(map[string]interface{}{"guild_id": guildID, "channel_id": channelID, "content": content})
	if err != nil {
		return nil, err
	}
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, method("CheckContent"), req, resp); err != nil {
		return nil, err
	}
	return resp.AsMap(), nil
}

// ListTasks lists armed tasks of a guild.
func (c *Client) ListTasks(ctx context.Context, guildID string) ([]map[string]interface{}, error) {
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, method("ListTasks"), wrapperspb.String(guildID), resp); err != nil {
		return nil, err
	}
	return rows(resp, "tasks"), nil
}

// CancelTask cancels a task by ID.
func (c *Client) CancelTask(ctx context.Context, id int64) error {
	return c.conn.Invoke(ctx, method("CancelTask"), wrapperspb.Int64(id), new(emptypb.Empty))
}

func rows(st *structpb.Struct, key string) []map[string]interface{} {
	list := st.GetFields()[key].GetListValue().GetValues()
	out := make([]map[string]interface{}, 0, len(list))
	for _, v := range list {
		out = append(out, v.GetStructValue().AsMap())
	}
	return out
}
