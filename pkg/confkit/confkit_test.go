package confkit_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trailstop/pkg/confkit"
)

func TestResolvePath(t *testing.T) {
	assert.Equal(t, "/abs/file.yaml", confkit.ResolvePath("/base", "/abs/file.yaml"), "absolute paths pass through")
	assert.Equal(t, filepath.Join("/base", "etc/engine.yaml"), confkit.ResolvePath("/base", "etc/engine.yaml"))

	t.Setenv("CONF_DIR", "conf")
	assert.Equal(t, filepath.Join("/base", "conf/engine.yaml"), confkit.ResolvePath("/base", "$CONF_DIR/engine.yaml"), "env vars expand before joining")
}

func TestBaseDir(t *testing.T) {
	assert.Equal(t, "/etc/trailstop", confkit.BaseDir("/etc/trailstop/trailstop.yaml"))
}

func TestSection_Hydrate(t *testing.T) {
	type sub struct{ Name string }

	dir := t.TempDir()
	path := filepath.Join(dir, "sub.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Name: keeper\n"), 0o644))

	s := confkit.Section[sub]{File: "sub.yaml"}
	err := s.Hydrate(dir, func(p string) (*sub, error) {
		return confkit.LoadFile[sub](p, false)
	})
	require.NoError(t, err)
	require.NotNil(t, s.Value)
	assert.Equal(t, "keeper", s.Value.Name)
	assert.Equal(t, path, s.File, "hydrate rewrites File to the resolved path")
}

func TestSection_HydrateEmptyFileIsNoOp(t *testing.T) {
	type sub struct{ Name string }
	s := confkit.Section[sub]{}
	err := s.Hydrate("/nowhere", func(p string) (*sub, error) {
		t.Fatalf("loader must not run for an empty section")
		return nil, nil
	})
	assert.NoError(t, err)
	assert.Nil(t, s.Value)
}

func TestProjectPath(t *testing.T) {
	p := confkit.MustProjectPath("etc/trailstop.yaml")
	assert.True(t, filepath.IsAbs(p), "project paths are absolute")
	assert.Equal(t, "trailstop.yaml", filepath.Base(p))
}
