package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/hexguard/classgraph"
	"github.com/c360studio/hexguard/config"
	"github.com/c360studio/hexguard/extract"
	"github.com/c360studio/hexguard/layer"
)

const projectConfig = `
architecture:
  shared_kernel:
    packages: [com.emedina.sharedkernel..]
  domain:
    packages: [com.acme.domain..]
    allowed_libraries: [com.emedina.sharedkernel..]
  command:
    packages: [com.acme.application.commands..]
    allowed_libraries: [com.emedina.sharedkernel..]
  query:
    packages: [com.acme.application.queries..]
    allowed_libraries: [com.emedina.sharedkernel..]
  handler:
    packages: [com.acme.application.handlers..]
    allowed_libraries: [com.emedina.sharedkernel.., com.acme.domain.., com.acme.application..]
  input_ports:
    packages: [com.acme.application.ports.in..]
    allowed_libraries: [com.emedina.sharedkernel.., com.acme.application.commands..]
  output_ports:
    packages: [com.acme.application.ports.out..]
    allowed_libraries: [com.emedina.sharedkernel.., com.acme.domain..]
  adapters:
    packages: [com.acme.adapters..]
model:
  snapshot: model.json
report:
  color: false
metrics:
  textfile: metrics.prom
`

var cleanModel = []classgraph.ClassDescriptor{
	{Name: "com.acme.domain.Order", References: []classgraph.Reference{{Type: "java.util.List"}}},
	{Name: "com.acme.adapters.OrderController", References: []classgraph.Reference{{Type: "org.springframework.web.bind.annotation.RestController"}}},
}

var springService = classgraph.ClassDescriptor{
	Name:       "com.acme.domain.OrderService",
	References: []classgraph.Reference{{Type: "org.springframework.stereotype.Service"}},
}

type project struct {
	dir    string
	config string
}

func newProject(t *testing.T) project {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	p := project{dir: dir, config: filepath.Join(dir, config.ProjectConfigFile)}
	require.NoError(t, os.WriteFile(p.config, []byte(projectConfig), 0644))
	p.writeModel(t, cleanModel...)
	return p
}

func (p project) writeModel(t *testing.T, classes ...classgraph.ClassDescriptor) {
	t.Helper()
	require.NoError(t, extract.SaveSnapshot(filepath.Join(p.dir, "model.json"), classes))
}

func (p project) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append(args, "--config", p.config, "--log-level", "error"))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCheck_BaselineLifecycle(t *testing.T) {
	p := newProject(t)

	out, err := p.run(t, "check")
	require.NoError(t, err, "first run initialises every baseline")
	assert.Contains(t, out, "28 rules, 0 failed, 0 new violations")

	p.writeModel(t, append(cleanModel, springService)...)
	out, err = p.run(t, "check")
	assert.ErrorIs(t, err, errViolations)
	assert.Contains(t, out, "✗ domain/allowed-dependencies (1 new)")
	assert.Contains(t, out, "org.springframework.stereotype")

	out, err = p.run(t, "freeze")
	require.NoError(t, err)
	assert.Contains(t, out, "Architecture baseline frozen")

	out, err = p.run(t, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "domain/allowed-dependencies (1 known)")

	metrics, err := os.ReadFile(filepath.Join(p.dir, "metrics.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `hexguard_violations_total{layer="domain",rule="domain/allowed-dependencies",status="known"} 1`)

	_, err = os.Stat(filepath.Join(p.dir, ".hexguard", "baseline", "domain.allowed-dependencies.json"))
	assert.NoError(t, err)
}

func TestCheck_JSONOutput(t *testing.T) {
	p := newProject(t)
	cfg, err := config.NewLoader(nil).Load(p.config)
	require.NoError(t, err)
	cfg.Report.Format = "json"

	app, err := NewApp(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer app.Close()

	var out bytes.Buffer
	rep, err := app.Check(context.Background(), &out, false, false)
	require.NoError(t, err)
	assert.Contains(t, out.String(), `"run_id": "`+rep.RunID+`"`)
}

func TestNewApp_SQLiteBackend(t *testing.T) {
	p := newProject(t)
	cfg, err := config.NewLoader(nil).Load(p.config)
	require.NoError(t, err)
	cfg.Baseline.Backend = config.BackendSQLite

	app, err := NewApp(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer app.Close()

	rep, err := app.Check(context.Background(), io.Discard, false, false)
	require.NoError(t, err)
	assert.False(t, rep.Failed())

	_, err = os.Stat(filepath.Join(p.dir, ".hexguard", "baseline", sqliteFile))
	assert.NoError(t, err)
}

func TestNewApp_ConfigErrors(t *testing.T) {
	p := newProject(t)
	cfg, err := config.NewLoader(nil).Load(p.config)
	require.NoError(t, err)

	noArch := *cfg
	noArch.Architecture = nil
	_, err = NewApp(context.Background(), &noArch, nil)
	assert.ErrorIs(t, err, layer.ErrConfigAbsent)

	badBackend := *cfg
	badBackend.Baseline.Backend = "redis"
	_, err = NewApp(context.Background(), &badBackend, nil)
	assert.ErrorIs(t, err, config.ErrUnknownBackend)
}

func TestRulesCommand(t *testing.T) {
	p := newProject(t)
	out, err := p.run(t, "rules")
	require.NoError(t, err)
	assert.Contains(t, out, "shared-kernel/allowed-dependencies")
	assert.Contains(t, out, "input-port/generic-argument-query-handler")
	assert.Contains(t, out, "adapter/isolation")
}

func TestExtractCommand(t *testing.T) {
	p := newProject(t)
	src := filepath.Join(p.dir, "src", "main", "java", "com", "acme", "domain", "Order.java")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0755))
	require.NoError(t, os.WriteFile(src, []byte("package com.acme.domain;\n\npublic class Order {}\n"), 0644))

	snap := filepath.Join(p.dir, "extracted.yaml")
	out, err := p.run(t, "extract", "--out", snap)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 1 classes")

	descs, err := extract.LoadSnapshot(snap)
	require.NoError(t, err)
	require.Len(t, descs, 1)
	assert.Equal(t, "com.acme.domain.Order", descs[0].Name)
}

func TestVersionCommand(t *testing.T) {
	p := newProject(t)
	out, err := p.run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "hexguard version "+Version)
}

func TestCheck_LombokSourcesHaveNoCapabilities(t *testing.T) {
	p := newProject(t)
	noSnapshot := strings.Replace(projectConfig, "model:\n  snapshot: model.json\n", "", 1)
	require.NoError(t, os.WriteFile(p.config, []byte(noSnapshot), 0644))

	src := filepath.Join(p.dir, "src", "main", "java", "com", "acme", "domain", "Money.java")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0755))
	require.NoError(t, os.WriteFile(src, []byte(`package com.acme.domain;

import lombok.Value;

@Value
@SuppressWarnings("unused")
public class Money {
    long cents;
}
`), 0644))

	cfg, err := config.NewLoader(nil).Load(p.config)
	require.NoError(t, err)
	app, err := NewApp(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer app.Close()

	rep, err := app.Check(context.Background(), io.Discard, false, false)
	require.NoError(t, err)
	res, ok := rep.Result("domain/allowed-capabilities")
	require.True(t, ok)
	assert.Empty(t, res.Violations, "nothing false is written into the first baseline")
}

func TestNewApp_SharedMatcher(t *testing.T) {
	p := newProject(t)
	cfg, err := config.NewLoader(nil).Load(p.config)
	require.NoError(t, err)
	matcher := classgraph.NewMatcher(64)

	for range 2 {
		app, err := NewApp(context.Background(), cfg, nil, WithMatcher(matcher))
		require.NoError(t, err)
		_, err = app.Check(context.Background(), io.Discard, false, false)
		app.Close()
		require.NoError(t, err)
	}
	assert.Positive(t, matcher.Len(), "pattern results are cached across runs")
}

func TestInitCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()

	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"init", "--base-package", "com.acme", "--repo", dir, "--log-level", "error"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "Created "+filepath.Join(dir, config.ProjectConfigFile))

	p := project{dir: dir, config: filepath.Join(dir, config.ProjectConfigFile)}
	rules, err := p.run(t, "rules")
	require.NoError(t, err)
	assert.Contains(t, rules, "adapter/isolation")

	_, err = p.run(t, "init", "--base-package", "com.acme", "--repo", dir)
	assert.ErrorIs(t, err, config.ErrConfigExists)
}
