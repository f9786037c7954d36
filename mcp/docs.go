package mcp

// docsOverview describes the workflow document format served to assistants.
const docsOverview = `# n8n Workflow Generator

## What does this server do?

It turns a plain-language automation requirement, optionally with a short
description of the business, into an importable n8n workflow document.
Generation tries the configured language model providers in order and falls
back to a small built-in template when none of them answers with a usable
document, so a generation call always returns a workflow.

## Document format

A workflow document is a JSON object:

- ` + "`name`" + ` - human-readable workflow name
- ` + "`nodes`" + ` - array of nodes; each has ` + "`id`" + `, ` + "`name`" + `, ` + "`type`" + `
  (an n8n node type such as ` + "`n8n-nodes-base.webhook`" + `), ` + "`typeVersion`" + `,
  ` + "`position`" + ` (` + "`[x, y]`" + `) and ` + "`parameters`" + `
- ` + "`connections`" + ` - map from source node id to
  ` + "`{\"main\": [[{\"node\": \"<target id>\", \"type\": \"main\", \"index\": 0}]]}`" + `
- ` + "`settings`" + ` - always contains ` + "`\"executionOrder\": \"v1\"`" + `

Nodes without a position are laid out left to right, 250 pixels apart.

## Tools

- ` + "`generate_workflow`" + ` - full generation through the provider chain
- ` + "`synthesize_workflow`" + ` - offline template generation, no providers
- ` + "`validate_workflow`" + ` - structural checks on a candidate document
- ` + "`list_node_types`" + ` - commonly used n8n node types
- ` + "`get_workflow_schema`" + ` - JSON Schema of the document format
`
