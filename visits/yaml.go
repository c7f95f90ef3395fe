package visits

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// File is the on-disk layout used by import and export.
type File struct {
	Visits []Visit `yaml:"visits"`
}

// ReadYAML decodes a visit file.
func ReadYAML(r io.Reader) ([]Visit, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode visits: %w", err)
	}
	return f.Visits, nil
}

// WriteYAML encodes vs as a visit file.
func WriteYAML(w io.Writer, vs []Visit) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(File{Visits: vs}); err != nil {
		return fmt.Errorf("encode visits: %w", err)
	}
	return enc.Close()
}
