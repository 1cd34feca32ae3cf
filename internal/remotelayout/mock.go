package remotelayout

import (
	"context"
	"image"
)

// MockCollaborator is a test double for Collaborator, grounded on the
// teacher's error-injection mock repository pattern.
type MockCollaborator struct {
	Elements []Element
	Err      error
	Calls    []string
}

func (m *MockCollaborator) DetectLayout(_ context.Context, pageID string, _ image.Image) ([]Element, error) {
	m.Calls = append(m.Calls, pageID)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Elements, nil
}
