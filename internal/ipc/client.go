package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Start asks the daemon to record the course on page.
func (c *Client) Start(page string) (*StartResponse, error) {
	var resp StartResponse
	if err := c.client.Call("Lectern.Start", StartRequest{Page: page}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop ends the active recording.
func (c *Client) Stop(reason string) (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Lectern.Stop", StopRequest{Reason: reason}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Lectern.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Clear wipes stored transcripts.
func (c *Client) Clear() (*ClearResponse, error) {
	var resp ClearResponse
	if err := c.client.Call("Lectern.Clear", ClearRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ForceAdvance skips the pending lecture.
func (c *Client) ForceAdvance() (*ForceAdvanceResponse, error) {
	var resp ForceAdvanceResponse
	if err := c.client.Call("Lectern.ForceAdvance", ForceAdvanceRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Export renders the collected transcripts.
func (c *Client) Export(format, title string) (*ExportResponse, error) {
	var resp ExportResponse
	if err := c.client.Call("Lectern.Export", ExportRequest{Format: format, Title: title}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health retrieves connectivity diagnostics.
func (c *Client) Health() (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.client.Call("Lectern.Health", HealthRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns log events from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("Lectern.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Lectern.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
