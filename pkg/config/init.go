package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// sectionComments documents each top-level section of a generated file,
// in the order sections are written.
var sectionComments = []struct {
	key     string
	comment string
}{
	{"logging", comment("Log level (DEBUG, INFO, WARN, ERROR), format (text, json) and output (stdout, stderr or a file path)")},
	{"server", comment("Upper bound for the whole shutdown sequence after SIGINT/SIGTERM")},
	{"static", comment(
		"Files served when no handler matches. Only allowed_paths are reachable;",
		"templates get {time} replaced with the current time.",
		"content.type: filesystem, memory, s3 or badger",
	)},
	{"metrics", comment("Prometheus endpoint (/metrics) on its own port")},
	{"adapters", comment("HTTP/1.x listener, worker pool and backpressure settings")},
}

// comment formats lines as a YAML comment block.
func comment(lines ...string) string {
	for i, line := range lines {
		if !strings.HasPrefix(line, "#") {
			lines[i] = "# " + line
		}
	}
	return strings.Join(lines, "\n")
}

// InitConfig writes a default configuration file to the default location
// and returns its path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a default configuration file to path.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	data, err := generateDefaultConfig()
	if err != nil {
		return fmt.Errorf("failed to generate config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// generateDefaultConfig renders the defaults as commented YAML.
func generateDefaultConfig() ([]byte, error) {
	tree := defaultTree()

	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, section := range sectionComments {
		value, err := toNode(tree[section.key])
		if err != nil {
			return nil, fmt.Errorf("section %s: %w", section.key, err)
		}
		root.Content = append(root.Content,
			&yaml.Node{
				Kind:        yaml.ScalarNode,
				Value:       section.key,
				HeadComment: section.comment,
			},
			value,
		)
	}

	doc := &yaml.Node{
		Kind:        yaml.DocumentNode,
		HeadComment: comment(
			"DittoHTTP Configuration File",
			"#",
			"Every key can be overridden with DITTOHTTP_<SECTION>_<KEY>,",
			"e.g. DITTOHTTP_ADAPTERS_HTTP_PORT=8080",
		),
		Content:     []*yaml.Node{root},
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// toNode converts a value from defaultTree into a YAML node with map keys
// in sorted order, so generated files are stable.
func toNode(value any) (*yaml.Node, error) {
	m, ok := value.(map[string]any)
	if !ok {
		node := &yaml.Node{}
		if err := node.Encode(value); err != nil {
			return nil, err
		}
		return node, nil
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range keys {
		child, err := toNode(m[k])
		if err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: k}, child)
	}
	return node, nil
}
