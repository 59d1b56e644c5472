package mqtt

import (
	"context"
	"errors"

	digitaltypes "github.com/JorgeS15/AirLab/internal/modules/digital/types"
)

// QueueOutputs hands v to the output publisher, replacing any vector still
// waiting to be sent. It never blocks, so it can be used as a Gateway observer.
func (c *Client) QueueOutputs(v digitaltypes.Vector) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	c.lastOutputs = &v
	c.offerLocked(v)
}

// requeueOutputs resends the last known vector after a reconnect, so the
// retained message catches up with changes made while offline.
func (c *Client) requeueOutputs() {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	if c.lastOutputs != nil {
		c.offerLocked(*c.lastOutputs)
	}
}

// offerLocked leaves v as the only pending vector. outMu makes this the sole
// sender, so the send after draining cannot block.
func (c *Client) offerLocked(v digitaltypes.Vector) {
	select {
	case <-c.pending:
	default:
	}
	c.pending <- v
}

// RunOutputPublisher publishes queued output vectors one at a time until ctx
// is done. A single publisher keeps the retained <prefix>/outputs message in
// step with the output file.
func (c *Client) RunOutputPublisher(ctx context.Context) error {
	return c.drainOutputs(ctx, c.PublishOutputs)
}

func (c *Client) drainOutputs(ctx context.Context, publish func(digitaltypes.Vector) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case v := <-c.pending:
			if err := publish(v); err != nil && !errors.Is(err, ErrNotConnected) {
				c.logger.Warn("mqtt publish outputs", "error", err)
			}
		}
	}
}
