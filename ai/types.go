package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// NotSpecified is rendered in prompts for business context fields that were
// not provided.
const NotSpecified = "Not specified"

// Text is a free-text field that also decodes from numbers, booleans and
// arrays of scalars, which clients frequently send for list-like answers.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	s, err := textOf(v)
	if err != nil {
		return err
	}
	*t = Text(s)
	return nil
}

func textOf(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case float64, bool:
		return fmt.Sprint(x), nil
	case []any:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			s, err := textOf(item)
			if err != nil {
				return "", err
			}
			if s = strings.TrimSpace(s); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", "), nil
	default:
		return "", fmt.Errorf("unsupported text value of type %T", v)
	}
}

// BusinessContext describes the business a workflow is generated for.
// Every field is optional.
type BusinessContext struct {
	BusinessDescription Text `json:"businessDescription,omitempty"`
	UniqueValue         Text `json:"uniqueValue,omitempty"`
	RevenueModel        Text `json:"revenueModel,omitempty"`
	IdealCustomer       Text `json:"idealCustomer,omitempty"`
	CurrentTools        Text `json:"currentTools,omitempty"`
	DisconnectedTools   Text `json:"disconnectedTools,omitempty"`
	PainPoints          Text `json:"painPoints,omitempty"`
	ManualTaskTime      Text `json:"manualTaskTime,omitempty"`
	ErrorPoints         Text `json:"errorPoints,omitempty"`
}

// ContextField is one labelled business context entry.
type ContextField struct {
	Label string
	Value string
}

// Fields returns every business context entry in prompt order with blank
// values replaced by NotSpecified.
func (c BusinessContext) Fields() []ContextField {
	fields := []ContextField{
		{"Business", string(c.BusinessDescription)},
		{"Unique value", string(c.UniqueValue)},
		{"Revenue model", string(c.RevenueModel)},
		{"Ideal customer", string(c.IdealCustomer)},
		{"Current tools", string(c.CurrentTools)},
		{"Disconnected tools", string(c.DisconnectedTools)},
		{"Pain points", string(c.PainPoints)},
		{"Time spent on manual tasks", string(c.ManualTaskTime)},
		{"Where errors happen", string(c.ErrorPoints)},
	}
	for i := range fields {
		if strings.TrimSpace(fields[i].Value) == "" {
			fields[i].Value = NotSpecified
		}
	}
	return fields
}

// GenerateRequest is the inbound payload of a generation call.
type GenerateRequest struct {
	BusinessContext     BusinessContext `json:"businessContext"`
	WorkflowDescription string          `json:"workflowDescription"`
}

// SourceHeuristic is the Result source when no provider produced the document.
const SourceHeuristic = "heuristic"

// Provider variant names, in default priority order in KnownProviders.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderCopilot   = "copilot"
)

// KnownProviders lists every provider variant this module can build.
var KnownProviders = []string{ProviderAnthropic, ProviderOpenAI, ProviderCopilot}
