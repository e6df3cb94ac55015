// Package lightburn sends alignment and control commands to a LightBurn
// style engraving controller over its UDP interface. The channel is
// connectionless and best-effort: a reply may be slow or dropped, so a
// timeout is a normal outcome, not a failure.
package lightburn

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// The controller listens on a fixed command port and answers from a fixed
// reply port. Neither is configurable.
const (
	CommandPort = 19840
	ReplyPort   = 19841
)

// DefaultTimeout bounds the wait for a reply datagram.
const DefaultTimeout = 2 * time.Second

// ErrUnreachable means the local socket could not be set up or the datagram
// could not be handed to the network stack at all. A silent controller is
// NOT unreachable; that is a no-reply outcome.
var ErrUnreachable = errors.New("controller unreachable")

// Command is a protocol command token. The vocabulary is fixed and
// case-sensitive.
type Command string

const (
	CmdPing       Command = "PING"
	CmdStatus     Command = "STATUS"
	CmdStart      Command = "START"
	CmdClose      Command = "CLOSE"
	CmdForceClose Command = "FORCECLOSE"
)

// LoadFile builds the command to load a file into the controller.
func LoadFile(path string) Command {
	return Command("LOADFILE://" + path)
}

// ForceLoad builds the command to load a file, closing any open one.
func ForceLoad(path string) Command {
	return Command("FORCELOAD://" + path)
}

// Reply is the controller's answer to one command. NoReply set means the
// bounded wait elapsed without a datagram: the command may or may not have
// been acted on, and the caller decides whether to retry, escalate, or
// proceed optimistically.
type Reply struct {
	Text    string
	NoReply bool
}

// OK reports whether the controller acknowledged the command.
func (r Reply) OK() bool {
	return !r.NoReply && strings.Contains(r.Text, "OK")
}

// Client is a best-effort request/reply client to one controller host.
// Each call opens its own socket and releases it on every exit path, so a
// Client is safe for reuse and holds no transport state between calls.
type Client struct {
	Host    string
	Timeout time.Duration
}

// NewClient returns a client for a controller on the given host (empty
// means localhost) with the default timeout.
func NewClient(host string) *Client {
	if host == "" {
		host = "127.0.0.1"
	}
	return &Client{Host: host, Timeout: DefaultTimeout}
}

// Send transmits one command and waits up to the timeout for exactly one
// reply datagram. There is no delivery or ordering guarantee between
// chained commands: if a reply is lost the caller cannot know whether the
// command took effect, and Send never retries on its own.
func (c *Client) Send(cmd Command) (Reply, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: ReplyPort})
	if err != nil {
		return Reply{}, fmt.Errorf("%w: bind reply port %d: %v", ErrUnreachable, ReplyPort, err)
	}
	defer conn.Close()

	dst := &net.UDPAddr{IP: net.ParseIP(c.Host), Port: CommandPort}
	if dst.IP == nil {
		addrs, err := net.LookupIP(c.Host)
		if err != nil || len(addrs) == 0 {
			return Reply{}, fmt.Errorf("%w: resolve %s: %v", ErrUnreachable, c.Host, err)
		}
		dst.IP = addrs[0]
	}

	if _, err := conn.WriteToUDP([]byte(cmd), dst); err != nil {
		return Reply{}, fmt.Errorf("%w: send: %v", ErrUnreachable, err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return Reply{}, fmt.Errorf("%w: deadline: %v", ErrUnreachable, err)
	}

	buf := make([]byte, 1024)
	n, _, err := conn.ReadFromUDP(buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return Reply{NoReply: true}, nil
		}
		return Reply{}, fmt.Errorf("%w: receive: %v", ErrUnreachable, err)
	}

	return Reply{Text: strings.TrimSpace(string(buf[:n]))}, nil
}

// Ping checks whether the controller is up and answering.
func (c *Client) Ping() (bool, error) {
	reply, err := c.Send(CmdPing)
	if err != nil {
		return false, err
	}
	return reply.OK(), nil
}

// Status asks the controller for its current status line.
func (c *Client) Status() (Reply, error) {
	return c.Send(CmdStatus)
}

// WaitReady polls with PING until the controller answers or maxWait
// elapses.
func (c *Client) WaitReady(maxWait, pollInterval time.Duration) bool {
	deadline := time.Now().Add(maxWait)
	for {
		if ok, err := c.Ping(); err == nil && ok {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(pollInterval)
	}
}
