package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Reply schemas are compiled on first use and shared by every call.
var (
	optimizerSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
		return compileSchema("optimizer.json", BuildOptimizerJSONSchema())
	})
	architectSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
		return compileSchema("architect.json", BuildArchitectJSONSchema())
	})
)

func compileSchema(name string, doc map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", name, err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add %s: %w", name, err)
	}
	s, err := c.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	return s, nil
}

// validateReply checks a model reply against one of the compiled reply schemas.
func validateReply(schema func() (*jsonschema.Schema, error), data []byte) error {
	s, err := schema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal reply: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("reply does not match schema: %w", err)
	}
	return nil
}
