package metadata

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// LoadList decodes a masterlist or userlist YAML document. The network
// fetch that would normally produce these bytes (pulling the community
// masterlist from its remote repository) is explicitly out of scope; this
// only decodes bytes already in hand.
func LoadList(r io.Reader) (RawList, error) {
	var list RawList
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&list); err != nil {
		if err == io.EOF {
			return RawList{}, nil
		}
		return RawList{}, fmt.Errorf("decode metadata list: %w", err)
	}
	return list, nil
}
