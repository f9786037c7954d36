package ai

import (
	"fmt"
	"strings"
)

const promptPreamble = `You are an expert workflow automation architect. You design n8n workflows
that remove manual work for small businesses.

Return ONLY a JSON object. Do not add any explanation, prose or markdown code
fences before or after it. The object must contain exactly these keys:
"name", "nodes", "connections", "settings".`

const promptShape = `## Output Format

{
  "name": "Short descriptive workflow name",
  "nodes": [
    {
      "id": "unique-node-id",
      "name": "Human readable node name",
      "type": "n8n-nodes-base.webhook",
      "typeVersion": 1,
      "position": [250, 300],
      "parameters": {}
    }
  ],
  "connections": {
    "unique-node-id": {
      "main": [[{"node": "next-node-id", "type": "main", "index": 0}]]
    }
  },
  "settings": {"executionOrder": "v1"}
}`

const promptChecklist = `## Requirements
1. Start with exactly one trigger node that fits how the process begins
   (webhook, schedule, inbox poll, form submission, app event).
2. Add processing nodes that transform, filter or enrich the data.
3. Add integration nodes for every tool or service mentioned in the request.
4. Add error-handling nodes so failures are caught and reported.
5. Connect every node: each key in "connections" and every "node" it points
   to must be the id of a node in "nodes".
6. Give every node a unique id and a position on the canvas.`

// BuildPrompt renders the generation prompt for a business context and a
// free-text workflow requirement. It is a pure function of its inputs.
func BuildPrompt(bc BusinessContext, requirement string) string {
	var b strings.Builder
	b.WriteString(promptPreamble)
	b.WriteString("\n\n## Business Context\n")
	for _, f := range bc.Fields() {
		fmt.Fprintf(&b, "- %s: %s\n", f.Label, f.Value)
	}
	b.WriteString("\n## Workflow Request\n")
	b.WriteString(requirement)
	b.WriteString("\n\n")
	b.WriteString(promptChecklist)
	b.WriteString("\n\n")
	b.WriteString(promptShape)
	b.WriteString("\n")
	return b.String()
}
