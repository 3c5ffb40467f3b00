// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-reconciler/internal/container"
	"github.com/pdiddy/paper-reconciler/pkg/types"
)

// fakeRuntime implements container.Runtime with canned behavior.
type fakeRuntime struct {
	imageErr error
	output   string
	runErr   error
	gotJob   container.Job
	gotInput string
}

func (f *fakeRuntime) Name() string { return "fake" }

func (f *fakeRuntime) Available(context.Context) bool { return true }

func (f *fakeRuntime) ImageExists(context.Context, string) error { return f.imageErr }

func (f *fakeRuntime) Run(_ context.Context, job container.Job, stdin io.Reader, stdout io.Writer) error {
	f.gotJob = job
	data, _ := io.ReadAll(stdin)
	f.gotInput = string(data)
	if f.runErr != nil {
		return f.runErr
	}
	_, err := io.WriteString(stdout, f.output)
	return err
}

func TestFirstPage(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  string
	}{
		{name: "cut at form feed", text: "Title\nAuthors\fpage two", limit: 6000, want: "Title\nAuthors"},
		{name: "form feed beats limit", text: "abcdef\fg", limit: 3, want: "abcdef"},
		{name: "limit without break", text: "abcdef", limit: 4, want: "abcd"},
		{name: "short text", text: "abc", limit: 10, want: "abc"},
		{name: "no limit", text: "abcdef", limit: 0, want: "abcdef"},
		{name: "rune boundary", text: "aéb", limit: 2, want: "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FirstPage(tt.text, tt.limit))
		})
	}
}

func TestMarkitdown(t *testing.T) {
	rt := &fakeRuntime{output: "# A Paper\n"}
	m, err := NewMarkitdown(context.Background(), rt)
	require.NoError(t, err)

	out, err := m.Convert(context.Background(), []byte("%PDF-1.7"))
	require.NoError(t, err)
	assert.Equal(t, "# A Paper\n", out)
	assert.Equal(t, "%PDF-1.7", rt.gotInput)
	assert.Equal(t, imageMarkitdown, rt.gotJob.Image)
	assert.True(t, rt.gotJob.Offline)
}

func TestMarkitdown_Errors(t *testing.T) {
	_, err := NewMarkitdown(context.Background(), &fakeRuntime{imageErr: errors.New("no such image")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not available in fake")

	m, err := NewMarkitdown(context.Background(), &fakeRuntime{})
	require.NoError(t, err)
	_, err = m.Convert(context.Background(), []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty output")

	m, err = NewMarkitdown(context.Background(), &fakeRuntime{runErr: errors.New("boom")})
	require.NoError(t, err)
	_, err = m.Convert(context.Background(), []byte("x"))
	assert.ErrorContains(t, err, "boom")
}

func TestNew(t *testing.T) {
	c, err := New(context.Background(), types.ConverterDocconv)
	require.NoError(t, err)
	assert.IsType(t, Docconv{}, c)

	_, err = New(context.Background(), "ocr")
	assert.ErrorContains(t, err, "unknown converter")
}

func TestDocconv_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Docconv{}.Convert(ctx, []byte("%PDF"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConverterFunc(t *testing.T) {
	var c Converter = ConverterFunc(func(_ context.Context, pdf []byte) (string, error) {
		return strings.ToUpper(string(pdf)), nil
	})
	out, err := c.Convert(context.Background(), []byte("text"))
	require.NoError(t, err)
	assert.Equal(t, "TEXT", out)
}
