package lightburn

import (
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeController answers commands on the real command port with canned
// replies, recording everything it receives.
type fakeController struct {
	conn *net.UDPConn
	wg   sync.WaitGroup

	mu       sync.Mutex
	received []string
	reply    func(cmd string) string
}

func startFakeController(t *testing.T, reply func(cmd string) string) *fakeController {
	t.Helper()

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: CommandPort})
	require.NoError(t, err, "command port %d must be free for this test", CommandPort)

	f := &fakeController{conn: conn, reply: reply}
	f.wg.Add(1)
	go f.serve()
	t.Cleanup(f.stop)
	return f
}

func (f *fakeController) serve() {
	defer f.wg.Done()
	buf := make([]byte, 1024)
	for {
		n, addr, err := f.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		cmd := string(buf[:n])

		f.mu.Lock()
		f.received = append(f.received, cmd)
		answer := f.reply(cmd)
		f.mu.Unlock()

		if answer != "" {
			f.conn.WriteToUDP([]byte(answer), addr)
		}
	}
}

func (f *fakeController) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.received...)
}

func (f *fakeController) stop() {
	f.conn.Close()
	f.wg.Wait()
}

func ackAll(string) string { return "OK" }

func TestCommandTokens(t *testing.T) {
	assert.Equal(t, Command("PING"), CmdPing)
	assert.Equal(t, Command("STATUS"), CmdStatus)
	assert.Equal(t, Command("START"), CmdStart)
	assert.Equal(t, Command("CLOSE"), CmdClose)
	assert.Equal(t, Command("FORCECLOSE"), CmdForceClose)
	assert.Equal(t, Command("LOADFILE:///tmp/a.png"), LoadFile("/tmp/a.png"))
	assert.Equal(t, Command("FORCELOAD:///tmp/a.png"), ForceLoad("/tmp/a.png"))
}

func TestReplyOK(t *testing.T) {
	assert.True(t, Reply{Text: "OK"}.OK())
	assert.True(t, Reply{Text: "STATUS OK IDLE"}.OK())
	assert.False(t, Reply{Text: "ERROR"}.OK())
	assert.False(t, Reply{NoReply: true}.OK())
}

func TestSendReceivesReply(t *testing.T) {
	ctrl := startFakeController(t, ackAll)

	client := NewClient("127.0.0.1")
	reply, err := client.Send(CmdPing)
	require.NoError(t, err)

	assert.False(t, reply.NoReply)
	assert.True(t, reply.OK())
	assert.Equal(t, []string{"PING"}, ctrl.commands())
}

func TestSendTimeoutIsNoReplyNotError(t *testing.T) {
	// Nothing is listening: the datagram vanishes and the bounded wait
	// must end in a no-reply outcome, not an error.
	client := NewClient("127.0.0.1")
	client.Timeout = 150 * time.Millisecond

	start := time.Now()
	reply, err := client.Send(CmdStatus)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.True(t, reply.NoReply)
	assert.GreaterOrEqual(t, elapsed, 150*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestSendSilentController(t *testing.T) {
	// A controller that swallows commands without answering looks exactly
	// like a lost reply.
	ctrl := startFakeController(t, func(string) string { return "" })

	client := NewClient("127.0.0.1")
	client.Timeout = 150 * time.Millisecond

	reply, err := client.Send(CmdPing)
	require.NoError(t, err)
	assert.True(t, reply.NoReply)
	assert.Equal(t, []string{"PING"}, ctrl.commands())
}

func TestPing(t *testing.T) {
	startFakeController(t, ackAll)

	client := NewClient("127.0.0.1")
	up, err := client.Ping()
	require.NoError(t, err)
	assert.True(t, up)
}

func TestLoadAndStartAcknowledged(t *testing.T) {
	ctrl := startFakeController(t, ackAll)

	client := NewClient("127.0.0.1")
	outcome, err := client.LoadAndStart("/tmp/job.png", false, false)
	require.NoError(t, err)

	assert.True(t, outcome.Loaded())
	assert.True(t, outcome.Started())
	assert.Equal(t, []string{"LOADFILE:///tmp/job.png", "START"}, ctrl.commands())
}

func TestLoadAndStartForce(t *testing.T) {
	ctrl := startFakeController(t, ackAll)

	client := NewClient("127.0.0.1")
	_, err := client.LoadAndStart("/tmp/job.png", true, false)
	require.NoError(t, err)

	cmds := ctrl.commands()
	require.NotEmpty(t, cmds)
	assert.Equal(t, "FORCELOAD:///tmp/job.png", cmds[0])
}

func TestLoadAndStartRefusedLoadNeverStarts(t *testing.T) {
	ctrl := startFakeController(t, func(cmd string) string {
		if strings.HasPrefix(cmd, "LOADFILE://") {
			return "ERROR: file busy"
		}
		return "OK"
	})

	client := NewClient("127.0.0.1")
	outcome, err := client.LoadAndStart("/tmp/job.png", false, true)
	require.NoError(t, err)

	assert.True(t, outcome.Load.Attempted)
	assert.False(t, outcome.Loaded())
	assert.False(t, outcome.Start.Attempted, "a refused load must never start")
	assert.Equal(t, []string{"LOADFILE:///tmp/job.png"}, ctrl.commands())
}

func TestLoadAndStartLostReplyHonorsPolicy(t *testing.T) {
	// The controller acts on commands but its replies are lost.
	ctrl := startFakeController(t, func(string) string { return "" })

	client := NewClient("127.0.0.1")
	client.Timeout = 150 * time.Millisecond

	// Conservative policy: do not start on an unconfirmed load.
	outcome, err := client.LoadAndStart("/tmp/job.png", false, false)
	require.NoError(t, err)
	assert.True(t, outcome.Load.Reply.NoReply)
	assert.False(t, outcome.Start.Attempted)

	// Optimistic policy: proceed anyway.
	outcome, err = client.LoadAndStart("/tmp/job.png", false, true)
	require.NoError(t, err)
	assert.True(t, outcome.Load.Reply.NoReply)
	assert.True(t, outcome.Start.Attempted)
	assert.True(t, outcome.Start.Reply.NoReply)

	cmds := ctrl.commands()
	assert.Equal(t, []string{
		"LOADFILE:///tmp/job.png",
		"LOADFILE:///tmp/job.png",
		"START",
	}, cmds)
}
