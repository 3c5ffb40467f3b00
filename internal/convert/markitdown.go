// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"fmt"

	"github.com/pdiddy/paper-reconciler/internal/container"
)

const imageMarkitdown = "markitdown:latest"

// Markitdown pipes PDFs through the markitdown image.
type Markitdown struct {
	runtime container.Runtime
}

// NewMarkitdown checks that the image is present in rt.
func NewMarkitdown(ctx context.Context, rt container.Runtime) (*Markitdown, error) {
	if err := rt.ImageExists(ctx, imageMarkitdown); err != nil {
		return nil, fmt.Errorf("markitdown image not available in %s: %w", rt.Name(), err)
	}
	return &Markitdown{runtime: rt}, nil
}

// Convert returns the markdown rendering of pdf. Page breaks are kept as
// form feeds when markitdown emits them.
func (m *Markitdown) Convert(ctx context.Context, pdf []byte) (string, error) {
	var out bytes.Buffer
	job := container.Job{Image: imageMarkitdown, Offline: true}
	if err := m.runtime.Run(ctx, job, bytes.NewReader(pdf), &out); err != nil {
		return "", fmt.Errorf("markitdown: %w", err)
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("markitdown produced empty output")
	}
	return out.String(), nil
}
