package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	ai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("deskshack/tools")

// Registry maps tool names to handlers. The set is fixed at startup and
// never mutated at runtime; dispatch itself is side-effect free beyond
// whatever the handler does.
type Registry struct {
	tools map[string]Tool
	names []string
}

func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool, validating its declaration once here rather than
// on every call.
func (r *Registry) Register(tool Tool) error {
	def := tool.Definition()
	if def.Function == nil || def.Function.Name == "" {
		return fmt.Errorf("tool declaration missing name")
	}
	name := def.Function.Name
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool already registered: %s", name)
	}
	if _, ok := def.Function.Parameters.(jsonschema.Definition); !ok {
		return fmt.Errorf("tool %s: parameters must be a jsonschema definition", name)
	}
	zap.S().Debugw("Registered tool", "tool", name)
	r.tools[name] = tool
	r.names = append(r.names, name)
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

// Names lists registered tool names in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.names)
}

// Definitions returns the declarations for every registered tool, in
// registration order.
func (r *Registry) Definitions() []ai.Tool {
	defs := make([]ai.Tool, 0, len(r.names))
	for _, name := range r.names {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Dispatch executes one model-issued tool call. Unknown tools, malformed
// arguments, and handler failures all come back as an error-carrying
// Result; dispatch never fails the request.
func (r *Registry) Dispatch(ctx context.Context, call ai.ToolCall) Result {
	result := Result{ToolCallID: call.ID, Name: call.Function.Name}

	var args map[string]any
	if call.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			result.Err = &ToolError{Tool: call.Function.Name, Err: fmt.Errorf("parsing arguments: %w", err)}
			return result
		}
	}

	tool, ok := r.tools[call.Function.Name]
	if !ok {
		result.Err = fmt.Errorf("unknown tool: %s", call.Function.Name)
		return result
	}

	if err := validateArgs(args, tool.Definition()); err != nil {
		result.Err = &ToolError{Tool: call.Function.Name, Err: err}
		return result
	}

	ctx, span := tracer.Start(ctx, call.Function.Name)
	defer span.End()

	zap.S().Debugw("Executing tool", "tool", call.Function.Name, "args", args)
	payload, err := tool.Execute(ctx, args)
	if err != nil {
		span.RecordError(err)
		result.Err = &ToolError{Tool: call.Function.Name, Err: err}
		return result
	}
	span.SetAttributes(attribute.Int("tool.payload_length", len(payload)))
	result.Payload = payload
	return result
}

// validateArgs checks required fields, primitive types, and enum membership
// against the declared parameter schema.
func validateArgs(args map[string]any, def ai.Tool) error {
	schema, ok := def.Function.Parameters.(jsonschema.Definition)
	if !ok {
		return nil
	}
	if args == nil {
		args = map[string]any{}
	}

	for _, field := range schema.Required {
		if _, exists := args[field]; !exists {
			return fmt.Errorf("missing required field: %s", field)
		}
	}

	for key, value := range args {
		prop, ok := schema.Properties[key]
		if !ok {
			continue
		}
		if err := validateType(key, value, prop.Type); err != nil {
			return err
		}
		if len(prop.Enum) > 0 {
			s, _ := value.(string)
			if !slices.Contains(prop.Enum, s) {
				return fmt.Errorf("field %s: %q is not one of %v", key, s, prop.Enum)
			}
		}
	}
	return nil
}

func validateType(key string, value any, expected jsonschema.DataType) error {
	switch expected {
	case jsonschema.String:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("field %s: expected string, got %T", key, value)
		}
	case jsonschema.Boolean:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("field %s: expected boolean, got %T", key, value)
		}
	case jsonschema.Number, jsonschema.Integer:
		switch value.(type) {
		case float64, int, int64, json.Number:
		default:
			return fmt.Errorf("field %s: expected number, got %T", key, value)
		}
	}
	return nil
}
