// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package container

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExecutor answers LookPath and Quiet from tables and delegates Piped.
type fakeExecutor struct {
	onPath map[string]bool
	ok     map[string]bool // "bin arg1 arg2" -> Quiet succeeds
	piped  func(name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error
}

func (f *fakeExecutor) LookPath(file string) (string, error) {
	if f.onPath[file] {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("not found: " + file)
}

func (f *fakeExecutor) Quiet(_ context.Context, name string, args ...string) error {
	key := strings.Join(append([]string{name}, args...), " ")
	if f.ok[key] {
		return nil
	}
	return errors.New("failed: " + key)
}

func (f *fakeExecutor) Piped(_ context.Context, name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if f.piped == nil {
		return nil
	}
	return f.piped(name, args, stdin, stdout, stderr)
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		exec    *fakeExecutor
		want    string
		wantErr bool
	}{
		{
			name: "docker",
			exec: &fakeExecutor{onPath: map[string]bool{"docker": true}, ok: map[string]bool{"docker info": true}},
			want: "docker",
		},
		{
			name: "podman when docker missing",
			exec: &fakeExecutor{onPath: map[string]bool{"podman": true}, ok: map[string]bool{"podman info": true}},
			want: "podman",
		},
		{
			name: "docker daemon down",
			exec: &fakeExecutor{
				onPath: map[string]bool{"docker": true, "podman": true},
				ok:     map[string]bool{"podman info": true},
			},
			want: "podman",
		},
		{
			name: "both usable prefers docker",
			exec: &fakeExecutor{
				onPath: map[string]bool{"docker": true, "podman": true},
				ok:     map[string]bool{"docker info": true, "podman info": true},
			},
			want: "docker",
		},
		{
			name:    "none",
			exec:    &fakeExecutor{},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := detect(context.Background(), tt.exec)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "no container runtime available")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, rt.Name())
		})
	}
}

func TestImageExists(t *testing.T) {
	ctx := context.Background()
	e := &fakeExecutor{ok: map[string]bool{
		"docker image inspect markitdown:latest": true,
		"podman image exists markitdown:latest":  true,
	}}

	assert.NoError(t, newDocker(e).ImageExists(ctx, "markitdown:latest"))
	assert.NoError(t, newPodman(e).ImageExists(ctx, "markitdown:latest"))

	err := newDocker(e).ImageExists(ctx, "missing:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing:1")
}

func TestRun(t *testing.T) {
	var gotArgs []string
	e := &fakeExecutor{piped: func(name string, args []string, stdin io.Reader, stdout, _ io.Writer) error {
		gotArgs = args
		data, _ := io.ReadAll(stdin)
		_, _ = stdout.Write([]byte(name + ": " + string(data)))
		return nil
	}}

	var out bytes.Buffer
	job := Job{Image: "markitdown:latest", Offline: true}
	require.NoError(t, newPodman(e).Run(context.Background(), job, strings.NewReader("pdf"), &out))
	assert.Equal(t, "podman: pdf", out.String())
	assert.Equal(t, []string{"run", "--rm", "-i", "--network", "none", "markitdown:latest"}, gotArgs)
}

func TestRun_ErrorCarriesStderr(t *testing.T) {
	e := &fakeExecutor{piped: func(_ string, _ []string, _ io.Reader, _, stderr io.Writer) error {
		_, _ = stderr.Write([]byte("unsupported file\n"))
		return errors.New("exit status 1")
	}}

	err := newDocker(e).Run(context.Background(), Job{Image: "img"}, strings.NewReader(""), io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status 1")
	assert.Contains(t, err.Error(), "unsupported file")
}

func TestJobArgs(t *testing.T) {
	assert.Equal(t, []string{"run", "--rm", "-i", "img", "-x", "y"}, Job{Image: "img", Args: []string{"-x", "y"}}.runArgs())
}
