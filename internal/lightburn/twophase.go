package lightburn

import (
	"time"
)

// PhaseOutcome records the result of one phase of a chained interaction.
type PhaseOutcome struct {
	Command   Command
	Reply     Reply
	Attempted bool
}

// LoadStartOutcome is the result of the two-phase load-then-start
// interaction. The two phases are inherently non-atomic over an unreliable
// channel: if the load reply is lost there is no way to know whether
// loading succeeded before start was issued. No retries or compensation
// happen here; that is the caller's decision.
type LoadStartOutcome struct {
	Load  PhaseOutcome
	Start PhaseOutcome
}

// Loaded reports whether the controller positively acknowledged the load.
func (o LoadStartOutcome) Loaded() bool {
	return o.Load.Attempted && o.Load.Reply.OK()
}

// Started reports whether the controller positively acknowledged the start.
func (o LoadStartOutcome) Started() bool {
	return o.Start.Attempted && o.Start.Reply.OK()
}

// LoadAndStart loads a file and then starts the job, as two explicit
// phases. START is only issued when the load was positively acknowledged,
// or when the load reply was lost and startOnNoReply permits proceeding
// optimistically. A load that is positively refused never starts.
func (c *Client) LoadAndStart(path string, force, startOnNoReply bool) (LoadStartOutcome, error) {
	var out LoadStartOutcome

	cmd := LoadFile(path)
	if force {
		cmd = ForceLoad(path)
	}

	reply, err := c.Send(cmd)
	out.Load = PhaseOutcome{Command: cmd, Reply: reply, Attempted: true}
	if err != nil {
		return out, err
	}

	proceed := reply.OK() || (reply.NoReply && startOnNoReply)
	if !proceed {
		return out, nil
	}

	// Give the controller a moment to finish loading before start.
	time.Sleep(500 * time.Millisecond)

	startReply, err := c.Send(CmdStart)
	out.Start = PhaseOutcome{Command: CmdStart, Reply: startReply, Attempted: true}
	return out, err
}
