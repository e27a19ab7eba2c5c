package controlplane

import (
	"encoding/json"
	"net"

	"github.com/lgonzales/lsrouted/internal/logging"
	"github.com/lgonzales/lsrouted/internal/wire"
)

// handleControl answers an operator query sent over the same encrypted
// channel as routing traffic. Replies are unicast back to the sender.
func (d *Daemon) handleControl(c wire.Control, replyTo *net.UDPAddr) {
	var payload any
	switch c.Command {
	case wire.CommandRoutingTable:
		payload = d.RoutingTable()
	case wire.CommandNeighbors:
		payload = d.Neighbors()
	case wire.CommandEnable, wire.CommandDisable:
		logging.Infof("controlplane: ignoring unimplemented control command %q", c.Command)
		return
	default:
		logging.Warnf("controlplane: unknown control command %q", c.Command)
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		logging.Warnf("controlplane: encoding control reply: %v", err)
		return
	}
	out, err := encode(d.key, json.RawMessage(data))
	if err != nil {
		logging.Warnf("controlplane: encrypting control reply: %v", err)
		return
	}
	if err := d.socket.SendTo(replyTo, out); err != nil {
		logging.Warnf("controlplane: sending control reply to %s: %v", replyTo, err)
	}
}
