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

// ListQueues returns the names of the configured queues.
func (c *Client) ListQueues() (*ListQueuesResponse, error) {
	var resp ListQueuesResponse
	if err := c.client.Call("MoleQueue.ListQueues", ListQueuesRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Submit submits a job to the named queue.
func (c *Client) Submit(req SubmitRequest) (*SubmitResponse, error) {
	var resp SubmitResponse
	if err := c.client.Call("MoleQueue.Submit", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Cancel cancels a job by identifier.
func (c *Client) Cancel(id int64) (*CancelResponse, error) {
	var resp CancelResponse
	if err := c.client.Call("MoleQueue.Cancel", CancelRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("MoleQueue.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// JobList returns stored jobs optionally filtered by statuses.
func (c *Client) JobList(statuses []string) (*JobListResponse, error) {
	var resp JobListResponse
	req := JobListRequest{Statuses: statuses}
	if err := c.client.Call("MoleQueue.JobList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// JobClear removes all stored jobs.
func (c *Client) JobClear() (*JobClearResponse, error) {
	var resp JobClearResponse
	if err := c.client.Call("MoleQueue.JobClear", JobClearRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("MoleQueue.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("MoleQueue.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
