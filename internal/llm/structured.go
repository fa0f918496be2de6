package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/MartinJHallberg/study-and-work-counselor/internal/schemas"
)

// Generator produces schema-conformant values and free text from prompts.
type Generator interface {
	// Generate fills out with a value conforming to schema.
	Generate(ctx context.Context, prompt string, schema schemas.Schema, out any) error
	// Complete returns free text.
	Complete(ctx context.Context, prompt string) (string, error)
}

// GenerationError means the model could not produce usable output.
// It is never retried here.
type GenerationError struct {
	Schema  string
	Message string
	Raw     string
	Cause   error
}

func (e *GenerationError) Error() string {
	name := e.Schema
	if name == "" {
		name = "text"
	}
	if e.Cause != nil {
		return fmt.Sprintf("generation of %s failed: %s: %v", name, e.Message, e.Cause)
	}
	return fmt.Sprintf("generation of %s failed: %s", name, e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// StructuredClient implements Generator on top of a Client. The schema is
// appended to the prompt, and the response is checked against it, decoded,
// and validated against the struct tags of out.
type StructuredClient struct {
	client      Client
	tiers       map[string]ModelTier
	textTier    ModelTier
	validate    *validator.Validate
	defaultTier ModelTier
}

// StructuredOption configures a StructuredClient.
type StructuredOption func(*StructuredClient)

// WithSchemaTier routes generations for the named schema to tier.
func WithSchemaTier(schemaName string, tier ModelTier) StructuredOption {
	return func(c *StructuredClient) {
		c.tiers[schemaName] = tier
	}
}

// WithTextTier sets the tier used by Complete.
func WithTextTier(tier ModelTier) StructuredOption {
	return func(c *StructuredClient) {
		c.textTier = tier
	}
}

// NewStructuredClient wraps client.
func NewStructuredClient(client Client, opts ...StructuredOption) *StructuredClient {
	c := &StructuredClient{
		client:      client,
		tiers:       make(map[string]ModelTier),
		textTier:    TierAdvanced,
		validate:    validator.New(),
		defaultTier: TierStandard,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *StructuredClient) tierFor(schemaName string) ModelTier {
	if tier, ok := c.tiers[schemaName]; ok {
		return tier
	}
	return c.defaultTier
}

// Generate implements Generator.
func (c *StructuredClient) Generate(ctx context.Context, prompt string, schema schemas.Schema, out any) error {
	resp, err := c.client.GenerateJSON(ctx, BuildStructuredPrompt(prompt, schema), c.tierFor(schema.Name))
	if err != nil {
		return &GenerationError{Schema: schema.Name, Message: "model call failed", Cause: err}
	}
	return Decode(CleanJSONBlock(resp), schema, out, c.validate)
}

// Complete implements Generator.
func (c *StructuredClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.GenerateContent(ctx, prompt, c.textTier)
	if err != nil {
		return "", &GenerationError{Message: "model call failed", Cause: err}
	}
	resp = strings.TrimSpace(resp)
	if resp == "" {
		return "", &GenerationError{Message: "empty response"}
	}
	return resp, nil
}

// Decode checks raw against schema and unmarshals it into out. If v is not
// nil it also runs struct validation on out.
func Decode(raw string, schema schemas.Schema, out any, v *validator.Validate) error {
	if err := schema.Validate([]byte(raw)); err != nil {
		return &GenerationError{Schema: schema.Name, Message: "response does not match schema", Raw: raw, Cause: err}
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return &GenerationError{Schema: schema.Name, Message: "response could not be decoded", Raw: raw, Cause: err}
	}
	if v != nil {
		if err := v.Struct(out); err != nil {
			return &GenerationError{Schema: schema.Name, Message: "response failed validation", Raw: raw, Cause: err}
		}
	}
	return nil
}

// BuildStructuredPrompt appends output instructions and the schema to prompt.
func BuildStructuredPrompt(prompt string, schema schemas.Schema) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(prompt))
	sb.WriteString("\n\n")
	if schema.Description != "" {
		sb.WriteString("Output: ")
		sb.WriteString(schema.Description)
		sb.WriteString("\n")
	}
	sb.WriteString("Return ONLY valid JSON matching this JSON Schema, no markdown and no explanation:\n")
	sb.WriteString(schema.JSON())
	sb.WriteString("\n")
	return sb.String()
}
