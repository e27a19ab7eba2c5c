// Package wire defines the JSON control-plane messages exchanged between
// daemon instances, and their encode/decode logic. The routing engine only
// ever sees these plaintext structs; encryption happens one layer below, in
// internal/xcrypt, at the transport boundary.
package wire

import (
	"encoding/json"
	"fmt"
)

// Message type discriminators, per the wire protocol.
const (
	TypeHello   uint8 = 1
	TypeLSA     uint8 = 2
	TypeControl uint8 = 3
)

// Hello announces a router's presence to its directly-connected peers.
type Hello struct {
	MessageType uint8  `json:"message_type"`
	RouterIP    string `json:"router_ip"`
}

func NewHello(routerIP string) Hello {
	return Hello{MessageType: TypeHello, RouterIP: routerIP}
}

// Neighbor is the wire form of a neighbor-table entry, as embedded in an LSA.
type Neighbor struct {
	NeighborIP string `json:"neighbor_ip"`
	LinkUp     bool   `json:"link_up"`
	Capacity   uint32 `json:"capacity"`
	LastSeen   int64  `json:"last_seen"`
}

// RouteState is the wire form of a RouteState: either {"Active": metric} or
// the literal string "Unreachable".
type RouteState struct {
	Active bool
	Metric uint32
}

func ActiveRoute(metric uint32) RouteState { return RouteState{Active: true, Metric: metric} }

var UnreachableRoute = RouteState{Active: false}

func (r RouteState) MarshalJSON() ([]byte, error) {
	if !r.Active {
		return json.Marshal("Unreachable")
	}
	return json.Marshal(map[string]uint32{"Active": r.Metric})
}

func (r *RouteState) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		if tag != "Unreachable" {
			return fmt.Errorf("wire: unknown route state tag %q", tag)
		}
		*r = UnreachableRoute
		return nil
	}

	var active struct {
		Active uint32 `json:"Active"`
	}
	if err := json.Unmarshal(data, &active); err != nil {
		return fmt.Errorf("wire: invalid route state: %w", err)
	}
	*r = ActiveRoute(active.Active)
	return nil
}

// LSA is the wire form of a Link-State Advertisement.
type LSA struct {
	MessageType   uint8                 `json:"message_type"`
	RouterIP      string                `json:"router_ip"`
	LastHop       *string               `json:"last_hop"`
	Originator    string                `json:"originator"`
	SeqNum        uint32                `json:"seq_num"`
	NeighborCount int                   `json:"neighbor_count"`
	Neighbors     []Neighbor            `json:"neighbors"`
	RoutingTable  map[string]RouteState `json:"routing_table"`
	Path          []string              `json:"path"`
	TTL           uint8                 `json:"ttl"`
}

// Control carries an operator command. The reply is a plaintext table,
// encrypted in transport like every other message on this channel.
type Control struct {
	MessageType uint8  `json:"message_type"`
	Command     string `json:"command"`
}

const (
	CommandEnable       = "enable"
	CommandDisable      = "disable"
	CommandRoutingTable = "routing-table"
	CommandNeighbors    = "neighbors"
)

type discriminator struct {
	MessageType uint8 `json:"message_type"`
}

// Decode inspects the message_type discriminator and unmarshals data into
// the matching concrete type (Hello, LSA, or Control), returned as any.
func Decode(data []byte) (any, error) {
	var disc discriminator
	if err := json.Unmarshal(data, &disc); err != nil {
		return nil, fmt.Errorf("wire: decoding discriminator: %w", err)
	}

	switch disc.MessageType {
	case TypeHello:
		var h Hello
		if err := json.Unmarshal(data, &h); err != nil {
			return nil, fmt.Errorf("wire: decoding hello: %w", err)
		}
		return h, nil
	case TypeLSA:
		var l LSA
		if err := json.Unmarshal(data, &l); err != nil {
			return nil, fmt.Errorf("wire: decoding lsa: %w", err)
		}
		return l, nil
	case TypeControl:
		var c Control
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("wire: decoding control: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("wire: unknown message_type %d", disc.MessageType)
	}
}
