// internal/endpoints/loader.go
package endpoints

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/CodeMonkeyCybersecurity/doppel/pkg/scanners/idor"
)

// ErrNoEndpoints is returned for descriptor files that define nothing
var ErrNoEndpoints = errors.New("no endpoints defined")

var placeholderPattern = regexp.MustCompile(`\{([^{}/]+)\}`)

// file is the documented layout:
//
//	endpoints:
//	  - method: GET
//	    path: /api/users/{userId}
//	    params: [userId]
//
// A bare top-level list of endpoints is accepted too. JSON descriptors parse
// the same way.
type file struct {
	Endpoints []idor.Endpoint `yaml:"endpoints"`
}

// Load reads and validates an endpoint descriptor file
func Load(path string) ([]idor.Endpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read endpoint file: %w", err)
	}

	eps, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return eps, nil
}

// Parse decodes YAML or JSON descriptor content. Methods are normalised to
// upper case and endpoints without params get their path placeholders.
func Parse(data []byte) ([]idor.Endpoint, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse endpoint file: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, ErrNoEndpoints
	}

	var eps []idor.Endpoint
	doc := root.Content[0]
	switch doc.Kind {
	case yaml.SequenceNode:
		if err := doc.Decode(&eps); err != nil {
			return nil, fmt.Errorf("failed to decode endpoints: %w", err)
		}
	case yaml.MappingNode:
		var f file
		if err := doc.Decode(&f); err != nil {
			return nil, fmt.Errorf("failed to decode endpoints: %w", err)
		}
		eps = f.Endpoints
	default:
		return nil, fmt.Errorf("unexpected top-level %s, want a list or an endpoints key", kindName(doc.Kind))
	}

	if len(eps) == 0 {
		return nil, ErrNoEndpoints
	}

	for i := range eps {
		if err := normalize(&eps[i]); err != nil {
			return nil, fmt.Errorf("endpoint %d: %w", i, err)
		}
	}
	return eps, nil
}

func normalize(ep *idor.Endpoint) error {
	if ep.Path == "" {
		return errors.New("missing path")
	}

	method, err := idor.ParseMethod(string(ep.Method))
	if err != nil {
		return err
	}
	ep.Method = method

	if len(ep.Params) == 0 {
		ep.Params = PathPlaceholders(ep.Path)
	}
	return nil
}

// PathPlaceholders returns the {name} placeholders of a path in order
func PathPlaceholders(path string) []string {
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(path, -1) {
		names = append(names, m[1])
	}
	return names
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "node"
	}
}
