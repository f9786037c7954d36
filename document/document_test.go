package document

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

func TestPosition_RoundTrip(t *testing.T) {
	data, err := json.Marshal(Position{X: 250, Y: 300})
	require.NoError(t, err)
	assert.JSONEq(t, `[250,300]`, string(data))

	var p Position
	require.NoError(t, json.Unmarshal(data, &p))
	assert.Equal(t, Position{X: 250, Y: 300}, p)
}

func TestPosition_UnmarshalTolerant(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Position
	}{
		{"floats", `[249.6, 300.2]`, Position{X: 250, Y: 300}},
		{"object", `{"x": 10, "y": 20}`, Position{X: 10, Y: 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Position
			require.NoError(t, json.Unmarshal([]byte(tt.in), &p))
			assert.Equal(t, tt.want, p)
		})
	}
}

func TestPosition_UnmarshalRejects(t *testing.T) {
	for _, in := range []string{`[1]`, `[1,2,3]`, `"left"`} {
		var p Position
		assert.Error(t, json.Unmarshal([]byte(in), &p), in)
	}
}

func TestNormalize_FillsDefaults(t *testing.T) {
	doc := NormalizeAt(&Document{}, fixedNow)

	assert.Equal(t, "Generated Workflow 2026-03-01T12:30:00Z", doc.Name)
	assert.Equal(t, DefaultExecutionOrder, doc.Settings[ExecutionOrderKey])
	assert.NotNil(t, doc.Nodes)
	assert.Empty(t, doc.Nodes)
	assert.NotNil(t, doc.Connections)
}

func TestNormalize_NilDocument(t *testing.T) {
	doc := NormalizeAt(nil, fixedNow)
	require.NotNil(t, doc)
	assert.NotEmpty(t, doc.Name)
}

func TestNormalize_KeepsExistingValues(t *testing.T) {
	pos := Position{X: 1, Y: 2}
	doc := &Document{
		Name:     "Mine",
		Settings: map[string]any{"timezone": "UTC"},
		Nodes:    []Node{{ID: "a", Position: &pos, Parameters: map[string]any{"k": "v"}}},
	}
	NormalizeAt(doc, fixedNow)

	assert.Equal(t, "Mine", doc.Name)
	assert.Equal(t, "UTC", doc.Settings["timezone"])
	assert.Equal(t, DefaultExecutionOrder, doc.Settings[ExecutionOrderKey])
	assert.Equal(t, pos, *doc.Nodes[0].Position)
	assert.Equal(t, "v", doc.Nodes[0].Parameters["k"])
}

func TestNormalize_PositionDefaults(t *testing.T) {
	doc := &Document{Nodes: []Node{{ID: "a"}, {ID: "b"}, {ID: "c"}}}
	NormalizeAt(doc, fixedNow)

	want := []Position{{250, 300}, {500, 300}, {750, 300}}
	for i, n := range doc.Nodes {
		require.NotNil(t, n.Position, "node %d", i)
		assert.Equal(t, want[i], *n.Position, "node %d", i)
	}
}

func TestNormalize_LeavesDanglingEdges(t *testing.T) {
	doc := &Document{Nodes: []Node{{ID: "a"}, {ID: "a"}}}
	doc.Connect("a", "missing")
	NormalizeAt(doc, fixedNow)

	assert.Len(t, doc.Nodes, 2)
	assert.Equal(t, []string{"missing"}, doc.Targets("a"))
}

func TestNormalize_Idempotent(t *testing.T) {
	pos := Position{X: 5, Y: 5}
	inputs := []*Document{
		{},
		{Name: "x", Nodes: []Node{{ID: "a"}, {ID: "b", Position: &pos}}},
		{Settings: map[string]any{}, Connections: map[string]NodeOutputs{}},
	}
	for i, in := range inputs {
		once := NormalizeAt(in, fixedNow)
		first, err := json.Marshal(once)
		require.NoError(t, err)

		twice := NormalizeAt(once, fixedNow.Add(time.Hour))
		second, err := json.Marshal(twice)
		require.NoError(t, err)

		assert.JSONEq(t, string(first), string(second), "input %d", i)
	}
}

func TestConnect_BuildsMainFanout(t *testing.T) {
	doc := &Document{}
	doc.Connect("trigger", "process")
	doc.Connect("trigger", "audit")

	assert.Equal(t, []string{"process", "audit"}, doc.Targets("trigger"))
	edges := doc.Connections["trigger"][PortMain]
	require.Len(t, edges, 1)
	assert.Equal(t, Connection{Node: "process", Type: PortMain, Index: 0}, edges[0][0])
}

func TestDocument_WireFormat(t *testing.T) {
	raw := `{
		"name": "Orders",
		"nodes": [{"id": "t", "name": "Hook", "type": "n8n-nodes-base.webhook", "typeVersion": 2, "position": [250, 300], "parameters": {"path": "orders"}}],
		"connections": {"t": {"main": [[{"node": "p", "type": "main", "index": 0}]]}},
		"settings": {"executionOrder": "v1"}
	}`
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	assert.Equal(t, "Orders", doc.Name)
	n, ok := doc.Node("t")
	require.True(t, ok)
	assert.Equal(t, float64(2), n.TypeVersion)
	assert.Equal(t, []string{"p"}, doc.Targets("t"))

	out, err := json.Marshal(&doc)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestSchema(t *testing.T) {
	data, err := SchemaJSON()
	require.NoError(t, err)

	var s map[string]any
	require.NoError(t, json.Unmarshal(data, &s))
	assert.Equal(t, "Workflow document", s["title"])
	assert.Contains(t, string(data), `"nodes"`)
	assert.Contains(t, string(data), `"connections"`)
}
