package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SaveValue sets a dotted key such as "sdcard.path" in the config file.
// Comments and formatting in other sections are preserved by editing the
// yaml.Node tree. Missing parent mappings are created.
func SaveValue(configPath, key, value string) error {
	return save(configPath, key, &yaml.Node{Kind: yaml.ScalarNode, Value: value})
}

// SaveList sets a dotted key to a sequence of strings.
func SaveList(configPath, key string, values []string) error {
	node := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle, Content: make([]*yaml.Node, 0, len(values))}
	for _, v := range values {
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: v})
	}
	return save(configPath, key, node)
}

func save(configPath, key string, value *yaml.Node) error {
	parts := strings.Split(key, ".")
	for _, p := range parts {
		if p == "" {
			return fmt.Errorf("invalid key %q", key)
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config: %w", err)
	}

	// Parse into yaml.Node to preserve comments
	var doc yaml.Node
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}
	if doc.Kind == 0 {
		doc = yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode}},
		}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return fmt.Errorf("parsing config: top level is not a mapping")
	}

	if err := setPath(doc.Content[0], parts, value); err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&doc); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_ = encoder.Close()

	return writeAtomic(configPath, buf.Bytes())
}

// setPath walks mapping nodes along parts, creating the ones that are
// missing, and replaces the final value.
func setPath(node *yaml.Node, parts []string, value *yaml.Node) error {
	for i, part := range parts {
		last := i == len(parts)-1
		var child *yaml.Node
		for j := 0; j < len(node.Content)-1; j += 2 {
			if node.Content[j].Value == part {
				if last {
					// Keep the old value's trailing comment on the new value.
					value.LineComment = node.Content[j+1].LineComment
					node.Content[j+1] = value
					return nil
				}
				child = node.Content[j+1]
				break
			}
		}
		if last {
			node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: part}, value)
			return nil
		}
		if child == nil {
			child = &yaml.Node{Kind: yaml.MappingNode}
			node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: part}, child)
		}
		if child.Kind != yaml.MappingNode {
			return fmt.Errorf("%s is not a mapping", strings.Join(parts[:i+1], "."))
		}
		node = child
	}
	return nil
}

// writeAtomic writes to a temp file in the same directory and renames it.
func writeAtomic(configPath string, data []byte) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, ".vsdcard.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(data); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tempPath, configPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
