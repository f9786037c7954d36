package document

import (
	"fmt"
	"sort"
)

// Lint reports structural problems in doc: missing names, duplicate or empty
// node ids, untyped nodes and edges that reference unknown nodes. It never
// modifies doc and is advisory only; generated documents are returned
// whether or not they lint clean.
func Lint(doc *Document) []string {
	if doc == nil {
		return []string{"document is empty"}
	}
	var problems []string
	if doc.Name == "" {
		problems = append(problems, "workflow name is empty")
	}
	if len(doc.Nodes) == 0 {
		problems = append(problems, "workflow has no nodes")
	}

	ids := make(map[string]bool, len(doc.Nodes))
	for i, n := range doc.Nodes {
		switch {
		case n.ID == "":
			problems = append(problems, fmt.Sprintf("node %d has no id", i))
		case ids[n.ID]:
			problems = append(problems, fmt.Sprintf("duplicate node id %q", n.ID))
		}
		ids[n.ID] = true
		if n.Type == "" {
			problems = append(problems, fmt.Sprintf("node %q has no type", n.ID))
		}
	}

	sources := make([]string, 0, len(doc.Connections))
	for src := range doc.Connections {
		sources = append(sources, src)
	}
	sort.Strings(sources)
	for _, src := range sources {
		if !ids[src] {
			problems = append(problems, fmt.Sprintf("connection source %q is not a node", src))
		}
		for _, target := range doc.Targets(src) {
			if !ids[target] {
				problems = append(problems, fmt.Sprintf("connection %q -> %q targets an unknown node", src, target))
			}
		}
	}
	return problems
}
