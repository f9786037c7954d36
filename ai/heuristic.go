package ai

import (
	"strings"
	"unicode/utf8"

	"github.com/GoCodeAlone/workflowgen/document"
)

// Node ids used by synthesized documents.
const (
	NodeTrigger = "trigger"
	NodeProcess = "process"
	NodeSheets  = "sheets"
)

const maxNameLen = 60

const processScript = `return $input.all().map((item) => ({
  json: {
    ...item.json,
    processed: true,
    processedAt: new Date().toISOString(),
  },
}));`

// Synthesize builds a workflow document from keyword analysis of the
// requirement alone. It never fails and makes no external calls: the same
// requirement always yields the same document. Matching is case-insensitive.
//
// The trigger is an inbox poll when the text mentions "email", a 24-hour
// schedule when it mentions "daily" or "schedule", and a webhook otherwise.
// A processing node always follows the trigger, and a spreadsheet append
// node follows that when the text mentions "sheet" or "spreadsheet". Node
// positions are left for document.Normalize to assign.
func Synthesize(requirement string) *document.Document {
	text := strings.ToLower(requirement)

	doc := &document.Document{
		Name:        synthesizedName(requirement),
		Nodes:       []document.Node{triggerNode(text), processNode()},
		Connections: map[string]document.NodeOutputs{},
		Settings:    document.DefaultSettings(),
	}
	doc.Connect(NodeTrigger, NodeProcess)

	if strings.Contains(text, "sheet") {
		doc.Nodes = append(doc.Nodes, sheetsNode())
		doc.Connect(NodeProcess, NodeSheets)
	}
	return doc
}

func triggerNode(text string) document.Node {
	switch {
	case strings.Contains(text, "email"):
		return document.Node{
			ID:          NodeTrigger,
			Name:        "Email Trigger",
			Type:        "n8n-nodes-base.emailReadImap",
			TypeVersion: 2,
			Parameters: map[string]any{
				"mailbox":           "INBOX",
				"postProcessAction": "read",
				"options":           map[string]any{},
			},
		}
	case strings.Contains(text, "daily"), strings.Contains(text, "schedule"):
		return document.Node{
			ID:          NodeTrigger,
			Name:        "Schedule Trigger",
			Type:        "n8n-nodes-base.scheduleTrigger",
			TypeVersion: 1.2,
			Parameters: map[string]any{
				"rule": map[string]any{
					"interval": []any{
						map[string]any{"field": "hours", "hoursInterval": 24},
					},
				},
			},
		}
	default:
		return document.Node{
			ID:          NodeTrigger,
			Name:        "Webhook",
			Type:        "n8n-nodes-base.webhook",
			TypeVersion: 2,
			Parameters: map[string]any{
				"httpMethod":   "POST",
				"path":         "automation",
				"responseMode": "onReceived",
				"options":      map[string]any{},
			},
		}
	}
}

func processNode() document.Node {
	return document.Node{
		ID:          NodeProcess,
		Name:        "Process Data",
		Type:        "n8n-nodes-base.code",
		TypeVersion: 2,
		Parameters: map[string]any{
			"mode":   "runOnceForAllItems",
			"jsCode": processScript,
		},
	}
}

func sheetsNode() document.Node {
	return document.Node{
		ID:          NodeSheets,
		Name:        "Append to Google Sheets",
		Type:        "n8n-nodes-base.googleSheets",
		TypeVersion: 4,
		Parameters: map[string]any{
			"operation":  "append",
			"documentId": map[string]any{"__rl": true, "mode": "list", "value": ""},
			"sheetName":  map[string]any{"__rl": true, "mode": "list", "value": ""},
			"columns":    map[string]any{"mappingMode": "autoMapInputData", "value": map[string]any{}},
			"options":    map[string]any{},
		},
	}
}

// synthesizedName derives a display name from the first words of the
// requirement.
func synthesizedName(requirement string) string {
	summary := strings.Join(strings.Fields(requirement), " ")
	if summary == "" {
		return "Automated Workflow"
	}
	if utf8.RuneCountInString(summary) > maxNameLen {
		runes := []rune(summary)
		summary = strings.TrimSpace(string(runes[:maxNameLen])) + "..."
	}
	return "Automated Workflow: " + summary
}
