package control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"conferencia/painel/internal/types"
)

type Client struct {
	conn  *grpc.ClientConn
	token string
}

// Dial connects to a control server. token may be empty when the server
// runs without a secret.
func Dial(addr, token string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, token: token}, nil
}

func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) Snapshot(ctx context.Context) (types.Snapshot, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(c.outgoing(ctx), "/"+ServiceName+"/Snapshot", &emptypb.Empty{}, out); err != nil {
		return types.Snapshot{}, err
	}
	var snap types.Snapshot
	err := fromStruct(out, &snap)
	return snap, err
}

func (c *Client) ClearQueue(ctx context.Context) (types.Snapshot, error) {
	return c.call(ctx, "ClearQueue", map[string]any{})
}

func (c *Client) ResetSession(ctx context.Context, confirm bool) (types.Snapshot, error) {
	return c.call(ctx, "ResetSession", map[string]any{"confirm": confirm})
}

// Scan submits orders for one scan and reports whether an alert was queued.
func (c *Client) Scan(ctx context.Context, orders []types.Order) (bool, types.Snapshot, error) {
	req, err := toStruct(map[string]any{"orders": orders})
	if err != nil {
		return false, types.Snapshot{}, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(c.outgoing(ctx), "/"+ServiceName+"/Scan", req, out); err != nil {
		return false, types.Snapshot{}, err
	}
	var body struct {
		Submitted bool           `json:"submitted"`
		Snapshot  types.Snapshot `json:"snapshot"`
	}
	err = fromStruct(out, &body)
	return body.Submitted, body.Snapshot, err
}

func (c *Client) call(ctx context.Context, method string, fields map[string]any) (types.Snapshot, error) {
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return types.Snapshot{}, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(c.outgoing(ctx), "/"+ServiceName+"/"+method, req, out); err != nil {
		return types.Snapshot{}, err
	}
	var snap types.Snapshot
	err = fromStruct(out, &snap)
	return snap, err
}

func (c *Client) outgoing(ctx context.Context) context.Context {
	if c.token == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
}
