package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/noahxzhu/tiffin-client/internal/tiffin"
	"gopkg.in/yaml.v3"
)

// render writes v in the selected format. text is used for the default
// human-readable output.
func (c *cli) render(w io.Writer, v any, text func(io.Writer)) error {
	switch c.output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		return writeYAML(w, v)
	default:
		text(w)
		return nil
	}
}

// fail reports a failed result. Structured formats also print the failure
// body so scripts can read the server's own error payload.
func (c *cli) fail(w io.Writer, res tiffin.Result) error {
	if c.output != "text" {
		if err := c.render(w, json.RawMessage(res.Body), nil); err != nil {
			return err
		}
	}
	return res.Err()
}

// writeYAML converts through the JSON encoding so field names and order match
// the json output.
func writeYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	blockStyle(&doc)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// blockStyle drops the flow and quoting styles carried over from JSON.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, child := range n.Content {
		blockStyle(child)
	}
}
