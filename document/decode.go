package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// ErrNotObject is returned by Decode when the input is not a JSON object.
var ErrNotObject = errors.New("not a JSON object")

// Decode parses a JSON object into a Document without insisting on the Go
// field types. Scalars are coerced where the meaning is unambiguous (numeric
// ids become strings, string versions become numbers), a flat list of edges
// is read as a single output, and values that fit nowhere are dropped for
// Normalize to default. Only invalid JSON and non-object input are errors.
func Decode(data []byte) (*Document, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, ErrNotObject
	}
	var top map[string]any
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, err
	}

	doc := &Document{
		Name:     looseString(top["name"]),
		Settings: looseObject(top["settings"]),
	}
	if items, ok := top["nodes"].([]any); ok {
		doc.Nodes = make([]Node, 0, len(items))
		for _, item := range items {
			if obj, ok := item.(map[string]any); ok {
				doc.Nodes = append(doc.Nodes, decodeNode(obj))
			}
		}
	}
	if conns, ok := top["connections"].(map[string]any); ok {
		doc.Connections = make(map[string]NodeOutputs, len(conns))
		for src, v := range conns {
			if outputs := decodeOutputs(v); outputs != nil {
				doc.Connections[src] = outputs
			}
		}
	}
	return doc, nil
}

func decodeNode(obj map[string]any) Node {
	n := Node{
		ID:          looseString(obj["id"]),
		Name:        looseString(obj["name"]),
		Type:        looseString(obj["type"]),
		TypeVersion: looseFloat(obj["typeVersion"]),
		Parameters:  looseObject(obj["parameters"]),
		Credentials: looseObject(obj["credentials"]),
	}
	if v, ok := obj["position"]; ok && v != nil {
		if data, err := json.Marshal(v); err == nil {
			var p Position
			if p.UnmarshalJSON(data) == nil {
				n.Position = &p
			}
		}
	}
	return n
}

// decodeOutputs reads the outputs of one source node. A bare list with no
// port name is taken as the main port.
func decodeOutputs(v any) NodeOutputs {
	switch x := v.(type) {
	case map[string]any:
		outputs := make(NodeOutputs, len(x))
		for port, fanouts := range x {
			if f := decodeFanouts(fanouts, port); f != nil {
				outputs[port] = f
			}
		}
		return outputs
	case []any:
		if f := decodeFanouts(x, PortMain); f != nil {
			return NodeOutputs{PortMain: f}
		}
	}
	return nil
}

// decodeFanouts accepts the canonical [[edge, ...], ...] form, a flat
// [edge, ...] list meaning output 0, or a single edge.
func decodeFanouts(v any, port string) [][]Connection {
	list, ok := v.([]any)
	if !ok {
		if c, ok := decodeConnection(v, port); ok {
			return [][]Connection{{c}}
		}
		return nil
	}

	nested := false
	for _, item := range list {
		if _, ok := item.([]any); ok {
			nested = true
			break
		}
	}
	if !nested {
		edges := decodeEdges(list, port)
		return [][]Connection{edges}
	}

	fanouts := make([][]Connection, 0, len(list))
	for _, item := range list {
		if inner, ok := item.([]any); ok {
			fanouts = append(fanouts, decodeEdges(inner, port))
			continue
		}
		c, ok := decodeConnection(item, port)
		if !ok {
			fanouts = append(fanouts, []Connection{})
			continue
		}
		fanouts = append(fanouts, []Connection{c})
	}
	return fanouts
}

func decodeEdges(items []any, port string) []Connection {
	edges := make([]Connection, 0, len(items))
	for _, item := range items {
		if c, ok := decodeConnection(item, port); ok {
			edges = append(edges, c)
		}
	}
	return edges
}

// decodeConnection reads an edge object, or a bare target id.
func decodeConnection(v any, port string) (Connection, bool) {
	switch x := v.(type) {
	case map[string]any:
		c := Connection{
			Node:  looseString(x["node"]),
			Type:  looseString(x["type"]),
			Index: int(looseFloat(x["index"])),
		}
		if c.Type == "" {
			c.Type = port
		}
		return c, c.Node != ""
	case string, float64:
		id := looseString(x)
		if id == "" {
			return Connection{}, false
		}
		return Connection{Node: id, Type: port}, true
	}
	return Connection{}, false
}

func looseString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	return ""
}

func looseFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
	}
	return 0
}

func looseObject(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}
