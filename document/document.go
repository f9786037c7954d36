// Package document defines the workflow document produced by the generator:
// a named graph of typed nodes, their connections and execution settings,
// laid out the way n8n imports it.
package document

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// PortMain is the default output/input port type.
const PortMain = "main"

// DefaultExecutionOrder is the execution-order indicator written into
// settings when a document does not carry one.
const DefaultExecutionOrder = "v1"

// Document is a workflow definition.
type Document struct {
	Name        string                 `json:"name" jsonschema:"minLength=1"`
	Nodes       []Node                 `json:"nodes"`
	Connections map[string]NodeOutputs `json:"connections"`
	Settings    map[string]any         `json:"settings"`
}

// Node is a single unit of behaviour in the workflow graph.
type Node struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	TypeVersion float64        `json:"typeVersion,omitempty"`
	Position    *Position      `json:"position,omitempty"`
	Parameters  map[string]any `json:"parameters"`
	Credentials map[string]any `json:"credentials,omitempty"`
}

// NodeOutputs maps a port type (usually "main") to the node's output
// fan-outs. Index i of the outer slice is output i.
type NodeOutputs map[string][][]Connection

// Connection is one edge from an output of a source node to an input of a
// target node.
type Connection struct {
	Node  string `json:"node"`
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// Position is the canvas coordinate of a node. It serializes as [x, y].
type Position struct {
	X int
	Y int
}

// DefaultPosition returns the position assigned to the node at index i when
// none is given.
func DefaultPosition(i int) Position {
	return Position{X: 250 + 250*i, Y: 300}
}

// MarshalJSON encodes the position as a two-element array.
func (p Position) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{p.X, p.Y})
}

// UnmarshalJSON accepts [x, y] (integers or floats, rounded) or an object
// with x and y keys.
func (p *Position) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) != 2 {
			return fmt.Errorf("position must have 2 coordinates, got %d", len(pair))
		}
		p.X, p.Y = int(math.Round(pair[0])), int(math.Round(pair[1]))
		return nil
	}
	var obj struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("position must be [x, y] or {x, y}: %w", err)
	}
	p.X, p.Y = int(math.Round(obj.X)), int(math.Round(obj.Y))
	return nil
}

// Connect appends an edge from source output 0 to target input 0 on the
// main port.
func (d *Document) Connect(sourceID, targetID string) {
	if d.Connections == nil {
		d.Connections = make(map[string]NodeOutputs)
	}
	outputs := d.Connections[sourceID]
	if outputs == nil {
		outputs = make(NodeOutputs)
		d.Connections[sourceID] = outputs
	}
	fanouts := outputs[PortMain]
	if len(fanouts) == 0 {
		fanouts = [][]Connection{nil}
	}
	fanouts[0] = append(fanouts[0], Connection{Node: targetID, Type: PortMain, Index: 0})
	outputs[PortMain] = fanouts
}

// Node returns the node with the given id.
func (d *Document) Node(id string) (Node, bool) {
	for _, n := range d.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Targets returns the ids of nodes fed by the given source node. Ports are
// visited in name order, outputs and edges in declaration order.
func (d *Document) Targets(sourceID string) []string {
	var out []string
	outputs := d.Connections[sourceID]
	ports := make([]string, 0, len(outputs))
	for port := range outputs {
		ports = append(ports, port)
	}
	sort.Strings(ports)
	for _, port := range ports {
		for _, fanout := range outputs[port] {
			for _, c := range fanout {
				out = append(out, c.Node)
			}
		}
	}
	return out
}
