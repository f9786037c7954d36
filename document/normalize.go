package document

import (
	"strings"
	"time"
)

// ExecutionOrderKey is the settings key holding the execution-order indicator.
const ExecutionOrderKey = "executionOrder"

// DefaultSettings returns the settings used when a document has none.
func DefaultSettings() map[string]any {
	return map[string]any{ExecutionOrderKey: DefaultExecutionOrder}
}

// Normalize fills structurally absent fields of doc using the current time
// for a generated name. See NormalizeAt.
func Normalize(doc *Document) *Document {
	return NormalizeAt(doc, time.Now())
}

// NormalizeAt fills structurally absent fields of doc in place and returns
// it. A nil doc yields a new, empty document. Dangling connection targets
// and duplicate node ids are left as they are. Applying it twice is the same
// as applying it once.
func NormalizeAt(doc *Document, now time.Time) *Document {
	if doc == nil {
		doc = &Document{}
	}
	if strings.TrimSpace(doc.Name) == "" {
		doc.Name = "Generated Workflow " + now.UTC().Format(time.RFC3339)
	}
	if doc.Settings == nil {
		doc.Settings = DefaultSettings()
	} else if _, ok := doc.Settings[ExecutionOrderKey]; !ok {
		doc.Settings[ExecutionOrderKey] = DefaultExecutionOrder
	}
	if doc.Nodes == nil {
		doc.Nodes = []Node{}
	}
	if doc.Connections == nil {
		doc.Connections = map[string]NodeOutputs{}
	}
	for i := range doc.Nodes {
		n := &doc.Nodes[i]
		if n.Position == nil {
			p := DefaultPosition(i)
			n.Position = &p
		}
		if n.Parameters == nil {
			n.Parameters = map[string]any{}
		}
	}
	return doc
}
