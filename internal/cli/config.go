package cli

import (
	"bytes"
	"io"

	"github.com/alecthomas/kong"
	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"
)

// Loads flag defaults from a YAML configuration file. JSON is a subset of
// YAML, so a JSON file loads as well. Keys are flag names in snake_case
// or camelCase, e.g. merge_runs or condaDir.
func yamlConfig(r io.Reader) (kong.Resolver, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	js, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, errors.Wrap(err, "invalid configuration file")
	}
	if len(bytes.TrimSpace(js)) == 0 || bytes.Equal(bytes.TrimSpace(js), []byte("null")) {
		js = []byte("{}")
	}

	return kong.JSON(bytes.NewReader(js))
}
