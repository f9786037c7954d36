package llm

import (
	"encoding/json"
	"fmt"

	"github.com/GoCodeAlone/workflowgen/ai"
	"github.com/GoCodeAlone/workflowgen/document"
)

// ToolDefinition describes a tool the LLM can call during workflow generation.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

// NodeTypes lists commonly used n8n node types and what they do.
var NodeTypes = map[string]string{
	"n8n-nodes-base.webhook":            "Trigger: starts the workflow on an incoming HTTP request",
	"n8n-nodes-base.scheduleTrigger":    "Trigger: starts the workflow on an interval or cron rule",
	"n8n-nodes-base.emailReadImap":      "Trigger: starts the workflow when an email arrives over IMAP",
	"n8n-nodes-base.manualTrigger":      "Trigger: starts the workflow by hand",
	"n8n-nodes-base.code":               "Runs JavaScript over the incoming items",
	"n8n-nodes-base.set":                "Sets or renames fields on items",
	"n8n-nodes-base.if":                 "Routes items to true/false outputs by condition",
	"n8n-nodes-base.switch":             "Routes items to one of several outputs",
	"n8n-nodes-base.merge":              "Combines items from two inputs",
	"n8n-nodes-base.httpRequest":        "Calls an arbitrary HTTP API",
	"n8n-nodes-base.googleSheets":       "Reads or appends rows in a Google Sheet",
	"n8n-nodes-base.gmail":              "Sends or reads Gmail messages",
	"n8n-nodes-base.emailSend":          "Sends email over SMTP",
	"n8n-nodes-base.slack":              "Posts messages to Slack",
	"n8n-nodes-base.hubspot":            "Creates or updates HubSpot CRM records",
	"n8n-nodes-base.airtable":           "Reads or writes Airtable records",
	"n8n-nodes-base.stopAndError":       "Fails the execution with a message",
	"n8n-nodes-base.errorTrigger":       "Trigger: runs when another workflow fails",
	"n8n-nodes-base.respondToWebhook":   "Returns a response to the webhook caller",
	"n8n-nodes-base.splitInBatches":     "Processes items in batches",
	"n8n-nodes-base.noOp":               "Passes items through unchanged",
	"n8n-nodes-base.wait":               "Pauses the execution for a duration",
	"n8n-nodes-base.dateTime":           "Formats and shifts dates",
	"n8n-nodes-base.itemLists":          "Sorts, limits or deduplicates items",
	"n8n-nodes-base.stripeTrigger":      "Trigger: starts the workflow on a Stripe event",
	"n8n-nodes-base.shopifyTrigger":     "Trigger: starts the workflow on a Shopify event",
	"n8n-nodes-base.notion":             "Reads or writes Notion pages and databases",
	"n8n-nodes-base.microsoftExcel":     "Reads or writes Excel workbooks",
	"n8n-nodes-base.postgres":           "Runs queries against PostgreSQL",
	"n8n-nodes-base.openAi":             "Calls OpenAI models",
	"n8n-nodes-base.googleCalendar":     "Manages Google Calendar events",
	"n8n-nodes-base.telegram":           "Sends Telegram messages",
	"n8n-nodes-base.twilio":             "Sends SMS through Twilio",
	"n8n-nodes-base.quickbooks":         "Manages QuickBooks invoices and customers",
	"n8n-nodes-base.mailchimp":          "Manages Mailchimp audiences",
	"n8n-nodes-base.pipedrive":          "Manages Pipedrive deals and contacts",
	"n8n-nodes-base.salesforce":         "Manages Salesforce records",
	"n8n-nodes-base.typeformTrigger":    "Trigger: starts the workflow on a Typeform submission",
	"n8n-nodes-base.calendlyTrigger":    "Trigger: starts the workflow on a Calendly booking",
	"n8n-nodes-base.googleDrive":        "Uploads or lists Google Drive files",
	"n8n-nodes-base.dropbox":            "Uploads or lists Dropbox files",
	"n8n-nodes-base.discord":            "Posts messages to Discord",
	"n8n-nodes-base.microsoftTeams":     "Posts messages to Microsoft Teams",
	"n8n-nodes-base.trello":             "Manages Trello cards",
	"n8n-nodes-base.asana":              "Manages Asana tasks",
	"n8n-nodes-base.jira":               "Manages Jira issues",
	"n8n-nodes-base.zendesk":            "Manages Zendesk tickets",
	"n8n-nodes-base.woocommerceTrigger": "Trigger: starts the workflow on a WooCommerce event",
}

// Tools returns the tool definitions for the Claude API.
func Tools() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "list_node_types",
			Description: "Lists commonly used n8n node types and their descriptions.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "get_workflow_schema",
			Description: "Returns the JSON Schema of the workflow document to produce.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "validate_workflow",
			Description: "Checks a workflow JSON document for structural problems such as duplicate node ids or connections to unknown nodes.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"workflow_json": map[string]interface{}{
						"type":        "string",
						"description": "The workflow document as a JSON string",
					},
				},
				"required": []string{"workflow_json"},
			},
		},
		{
			Name:        "get_example_workflow",
			Description: "Returns a minimal example workflow for a short description, to use as a starting point.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"description": map[string]interface{}{
						"type":        "string",
						"description": "What the example should do (e.g., 'daily report to a sheet')",
					},
				},
				"required": []string{"description"},
			},
		},
	}
}

// HandleToolCall executes a tool call and returns the result as a string.
func HandleToolCall(name string, input json.RawMessage) (string, error) {
	switch name {
	case "list_node_types":
		return marshalResult(NodeTypes)
	case "get_workflow_schema":
		data, err := document.SchemaJSON()
		if err != nil {
			return "", err
		}
		return string(data), nil
	case "validate_workflow":
		return handleValidateWorkflow(input)
	case "get_example_workflow":
		return handleGetExampleWorkflow(input)
	default:
		return "", fmt.Errorf("unknown tool %q", name)
	}
}

func handleValidateWorkflow(input json.RawMessage) (string, error) {
	var params struct {
		WorkflowJSON string `json:"workflow_json"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}

	doc, err := ai.ExtractDocument(params.WorkflowJSON)
	if err != nil {
		return marshalResult(map[string]interface{}{
			"valid":  false,
			"errors": []string{err.Error()},
		})
	}
	problems := document.Lint(doc)
	if problems == nil {
		problems = []string{}
	}
	return marshalResult(map[string]interface{}{
		"valid":  len(problems) == 0,
		"errors": problems,
	})
}

func handleGetExampleWorkflow(input json.RawMessage) (string, error) {
	var params struct {
		Description string `json:"description"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}
	return marshalResult(document.Normalize(ai.Synthesize(params.Description)))
}

func marshalResult(v any) (string, error) {
	result, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(result), nil
}
