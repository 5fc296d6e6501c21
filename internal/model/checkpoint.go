package model

import (
	"fmt"

	"github.com/born-ml/born/autodiff"
	"github.com/born-ml/born/nn"
)

// modelType tags checkpoints written by Save.
const modelType = "DigitNet"

// Save writes the network weights to a .born file at path.
func (c *Classifier[B]) Save(path string, metadata map[string]string) error {
	if err := nn.Save[*autodiff.Backend[B]](c.net, path, modelType, metadata); err != nil {
		return fmt.Errorf("save checkpoint %s: %w", path, err)
	}
	return nil
}

// Load replaces the network weights with those stored at path and returns the
// checkpoint metadata. The weights are left untouched if the file cannot be
// read or holds another model type.
func (c *Classifier[B]) Load(path string) (map[string]string, error) {
	scratch := NewDigitNet(c.backend)
	header, err := nn.Load(path, c.backend, scratch)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint %s: %w", path, err)
	}
	if header.ModelType != modelType {
		return nil, fmt.Errorf("load checkpoint %s: model type %q, want %q", path, header.ModelType, modelType)
	}
	if err := c.net.LoadStateDict(scratch.StateDict()); err != nil {
		return nil, fmt.Errorf("load checkpoint %s: %w", path, err)
	}
	return header.Metadata, nil
}
