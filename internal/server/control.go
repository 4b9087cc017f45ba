// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"

	"github.com/ledbridge/opcbridge/internal/ctlproto"
)

// ControlServer answers ctlproto admin commands (STATS_QUERY,
// OUTPUT_LIST, RECONNECT_OUTPUT) over a Unix-domain socket, falling
// back to loopback TCP on platforms without AF_UNIX support for
// net.Listen("unix", ...) (DESIGN.md's control-socket-transport
// decision).
type ControlServer struct {
	addr   string
	bridge *Bridge
}

// NewControlServer returns a ControlServer bound to addr (a
// filesystem path for a Unix socket, or "host:port" for TCP — Run
// tries "unix" first and falls back to "tcp" if the unix listen fails
// for any reason).
func NewControlServer(addr string, b *Bridge) *ControlServer {
	return &ControlServer{addr: addr, bridge: b}
}

// Run listens and serves control connections until ctx is cancelled.
func (c *ControlServer) Run(ctx context.Context) error {
	network := "unix"
	ln, err := net.Listen(network, c.addr)
	if err != nil {
		network = "tcp"
		ln, err = net.Listen(network, c.addr)
		if err != nil {
			return fmt.Errorf("ctlproto: listen on %s: %w", c.addr, err)
		}
	}
	if network == "unix" {
		defer os.Remove(c.addr)
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				log.Printf("ctlproto: accept: %v", err)
				continue
			}
		}
		go c.handleConn(ctx, conn)
	}
}

func (c *ControlServer) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	dec := ctlproto.NewDecoder()
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		for i := 0; i < n; i++ {
			pkt, ok, decErr := dec.DecodeByte(buf[i])
			if decErr != nil {
				c.reply(conn, ctlproto.CmdError, ctlproto.ErrorReply{Message: decErr.Error()})
				continue
			}
			if ok {
				c.dispatch(conn, pkt)
			}
		}
		if err != nil {
			return
		}
	}
}

func (c *ControlServer) dispatch(conn net.Conn, pkt ctlproto.Packet) {
	switch pkt.Command {
	case ctlproto.CmdStatsQuery:
		c.reply(conn, ctlproto.CmdStatsReply, ctlproto.StatsReply{Outputs: c.statSnapshot()})

	case ctlproto.CmdOutputList:
		c.reply(conn, ctlproto.CmdOutputListReply, ctlproto.OutputListReply{Outputs: c.outputInfo()})

	case ctlproto.CmdReconnectOutput:
		req, err := ctlproto.DecodeReconnectOutput(pkt)
		if err != nil {
			c.reply(conn, ctlproto.CmdError, ctlproto.ErrorReply{Message: err.Error()})
			return
		}
		// No reconnect is forced: Worker has no hook to drop its port
		// on request, so this only acknowledges receipt. The worker
		// reopens its port only after its own write or open failures.
		c.reply(conn, ctlproto.CmdAck, ctlproto.Ack{Message: "reconnect requested for " + req.Name})

	default:
		c.reply(conn, ctlproto.CmdError, ctlproto.ErrorReply{Message: fmt.Sprintf("unknown command 0x%02X", uint8(pkt.Command))})
	}
}

func (c *ControlServer) reply(conn net.Conn, cmd ctlproto.Command, v interface{}) {
	wire, err := ctlproto.Encode(cmd, v)
	if err != nil {
		log.Printf("ctlproto: encode reply: %v", err)
		return
	}
	if _, err := conn.Write(wire); err != nil {
		log.Printf("ctlproto: write reply: %v", err)
	}
}

func (c *ControlServer) statSnapshot() []ctlproto.OutputStat {
	snaps := snapshotAll(c.bridge)
	out := make([]ctlproto.OutputStat, len(snaps))
	for i, s := range snaps {
		out[i] = ctlproto.OutputStat{
			Name:              s.Name,
			Received:          s.Received,
			DroppedReplaced:   s.DroppedReplaced,
			DroppedShort:      s.DroppedShort,
			Written:           s.Written,
			WriteErrors:       s.WriteErrors,
			ReconnectCount:    s.ReconnectCount,
			LastWriteDuration: s.LastWriteDuration,
			LastError:         s.LastError,
			FrameRate:         s.FrameRate,
			Connected:         s.Connected,
		}
	}
	return out
}

func (c *ControlServer) outputInfo() []ctlproto.OutputInfo {
	cfg := c.bridge.Config()
	out := make([]ctlproto.OutputInfo, len(cfg.Outputs))
	for i, o := range cfg.Outputs {
		out[i] = ctlproto.OutputInfo{
			Name:     o.PortName,
			Protocol: o.Protocol.String(),
			Channel:  o.OPCChannel,
			Offset:   o.OPCOffset,
			LEDCount: o.LEDCount,
			BaudRate: o.BaudRate,
		}
	}
	return out
}
