package budget

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/policyengine/grantkit/internal/model"
)

// LoadSpec reads and decodes a budget specification file.
func LoadSpec(path string) (*model.BudgetSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "budget: reading %s", path)
	}
	var spec model.BudgetSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, eris.Wrapf(err, "budget: parsing %s", path)
	}
	return &spec, nil
}

// LoadGrant reads and decodes a grant metadata file.
func LoadGrant(path string) (*model.Grant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "budget: reading %s", path)
	}
	var grant model.Grant
	if err := yaml.Unmarshal(data, &grant); err != nil {
		return nil, eris.Wrapf(err, "budget: parsing %s", path)
	}
	return &grant, nil
}

// Load builds a Calculator straight from a budget file.
func Load(path string) (*Calculator, error) {
	spec, err := LoadSpec(path)
	if err != nil {
		return nil, err
	}
	return NewCalculator(spec)
}
