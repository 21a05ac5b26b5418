package progress

import "fmt"

// Handle is the stage-facing progress tracker: a named, bounded-or-unbounded
// counter whose lifetime acquires (via Progress) and guarantees release (via
// Close) of the underlying server-side tracker.
type Handle interface {
	// Update increments the counter by count.
	Update(count int64) error
	// Parallel derives another handle bound to the same uuid but skipping
	// re-initialization, so multiple workers in a pool can share one
	// counter. Closing a parallel handle does not finalize the tracker;
	// only the handle that created it via Progress does.
	Parallel() Handle
	// Close finalizes the tracker. Safe to call via defer.
	Close() error
}

type rootHandle struct {
	client *Client
	uuid   string
}

// NewHandle initializes a fresh tracker on the server and returns the
// owning handle.
func NewHandle(client *Client, uuid, desc string, total *int64, interval *float64) (Handle, error) {
	req := Request{Command: CmdInitialize, UUID: uuid}
	if desc != "" {
		req.Desc = &desc
	}
	req.Total = total
	req.Interval = interval

	reply, err := client.Send(req)
	if err != nil {
		return nil, err
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("initialize progress tracker: %s", reply.Error)
	}
	return &rootHandle{client: client, uuid: uuid}, nil
}

func (h *rootHandle) Update(count int64) error {
	return sendUpdate(h.client, h.uuid, count)
}

func (h *rootHandle) Parallel() Handle {
	return &childHandle{client: h.client, uuid: h.uuid}
}

func (h *rootHandle) Close() error {
	_, err := h.client.Send(Request{Command: CmdFinalize, UUID: h.uuid})
	return err
}

type childHandle struct {
	client *Client
	uuid   string
}

func (h *childHandle) Update(count int64) error {
	return sendUpdate(h.client, h.uuid, count)
}

func (h *childHandle) Parallel() Handle {
	return &childHandle{client: h.client, uuid: h.uuid}
}

func (h *childHandle) Close() error {
	return nil
}

func sendUpdate(client *Client, uuid string, count int64) error {
	reply, err := client.Send(Request{Command: CmdUpdate, UUID: uuid, Count: &count})
	if err != nil {
		return err
	}
	if reply.Error != "" {
		return fmt.Errorf("update progress tracker: %s", reply.Error)
	}
	return nil
}
