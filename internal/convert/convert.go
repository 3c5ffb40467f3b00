// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert turns a paper's PDF into plain text for the LLM
// extractor. Two backends are available: docconv (pdftotext under the
// hood) and the markitdown container image.
package convert

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"code.sajari.com/docconv/v2"

	"github.com/pdiddy/paper-reconciler/internal/container"
	"github.com/pdiddy/paper-reconciler/pkg/types"
)

// FirstPageLimit caps the text handed to the LLM when no page break is found.
const FirstPageLimit = 6000

// Converter transforms PDF bytes into text.
type Converter interface {
	Convert(ctx context.Context, pdf []byte) (string, error)
}

// ConverterFunc adapts a function to Converter.
type ConverterFunc func(ctx context.Context, pdf []byte) (string, error)

// Convert calls f.
func (f ConverterFunc) Convert(ctx context.Context, pdf []byte) (string, error) {
	return f(ctx, pdf)
}

// New returns the converter for backend. The markitdown backend needs a
// usable container runtime with the image present.
func New(ctx context.Context, backend types.ConverterBackend) (Converter, error) {
	switch backend {
	case "", types.ConverterDocconv:
		return Docconv{}, nil
	case types.ConverterMarkitdown:
		rt, err := container.Detect(ctx)
		if err != nil {
			return nil, err
		}
		return NewMarkitdown(ctx, rt)
	default:
		return nil, fmt.Errorf("unknown converter %q", backend)
	}
}

// Docconv converts with code.sajari.com/docconv.
type Docconv struct{}

// Convert runs docconv's PDF pipeline on pdf.
func (Docconv) Convert(ctx context.Context, pdf []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	resp, err := docconv.Convert(bytes.NewReader(pdf), "application/pdf", false)
	if err != nil {
		return "", fmt.Errorf("docconv: %w", err)
	}
	if strings.TrimSpace(resp.Body) == "" {
		return "", fmt.Errorf("docconv produced no text")
	}
	return resp.Body, nil
}

// FirstPage returns the text before the first form feed. Without a page
// break the text is cut at limit bytes on a rune boundary.
func FirstPage(text string, limit int) string {
	if i := strings.IndexByte(text, '\f'); i >= 0 {
		return text[:i]
	}
	if limit <= 0 || len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
