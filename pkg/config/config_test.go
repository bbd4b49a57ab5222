package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadYAML(t *testing.T) {
	p := writeFile(t, "rusty.yaml", `
analysis:
  workers: 3
  recursive: true
  scale: 1000000
columns:
  - name: litres
    expr: (litres mesh-volume)
database:
  driver: postgres
  host: db
  port: 5432
  user: stl
  password: secret
  name: meshes
minio:
  endpoint: localhost:9000
  accessKey: ak
  useSSL: true
`)
	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Analysis.Workers)
	assert.True(t, cfg.Analysis.Recursive)
	assert.Equal(t, 1e6, cfg.Analysis.Scale)
	assert.Equal(t, "table", cfg.Analysis.Format, "defaults survive")
	assert.Equal(t, 8080, cfg.Server.Port)
	require.Len(t, cfg.Columns, 1)
	assert.Equal(t, "litres", cfg.Columns[0].Name)
	assert.Equal(t, "(litres mesh-volume)", cfg.Columns[0].Expr)
	assert.Equal(t, "host=db port=5432 user=stl password=secret dbname=meshes sslmode=disable", cfg.Database.ConnString())

	b := cfg.Minio.Bucket()
	assert.Equal(t, "localhost:9000", b.Endpoint)
	assert.Equal(t, "ak", b.AccessKey)
	assert.True(t, b.UseSSL)
}

func TestLoadTOML(t *testing.T) {
	p := writeFile(t, "rusty.toml", `
[analysis]
format = "csv"
thickness = true

[[columns]]
name = "efficiency"
expr = "(ratio mesh-volume box-volume)"

[database]
driver = "mysql"
host = "db"
port = 3306
user = "stl"
password = "pw"
name = "meshes"

[log]
level = "debug"
json = true
`)
	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "csv", cfg.Analysis.Format)
	assert.True(t, cfg.Analysis.Thickness)
	assert.Equal(t, 1e6, cfg.Analysis.Scale)
	require.Len(t, cfg.Columns, 1)
	assert.Equal(t, "efficiency", cfg.Columns[0].Name)
	assert.Equal(t, "stl:pw@tcp(db:3306)/meshes?parseTime=true&charset=utf8mb4&loc=UTC", cfg.Database.ConnString())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "rusty.ini", "x=1"))
	assert.True(t, errors.Is(err, ErrUnknownFormat))

	_, err = Load(writeFile(t, "bad.yaml", "analysis: [1, 2"))
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	t.Setenv(EnvPath, "")
	cfg, err := Resolve("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	p := writeFile(t, "env.yaml", "server:\n  port: 9999\n")
	t.Setenv(EnvPath, p)
	cfg, err = Resolve("")
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
}

func TestConnStringExplicit(t *testing.T) {
	d := Database{Driver: "postgres", DSN: "postgres://x"}
	assert.Equal(t, "postgres://x", d.ConnString())
	assert.Equal(t, "", Database{}.ConnString())
}
