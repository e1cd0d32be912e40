// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const schemaTOML = `
name = "MyStruct"

[[field]]
name = "field"
kind = "i32"
format = "R32Sint"

[[field]]
name = "field2"
kind = "u32"
format = "R32Uint"

[[field]]
name = "bool_field"
kind = "bool"
format = "R8Unorm"

[[field]]
name = "array"
kind = "u32"
count = 4
format = "RGBA32Uint"
`

const recordsTOML = `
[[record]]
field = 0
field2 = 1
bool_field = true
array = [0, 1, 2, 3]

[[record]]
field = 2
field2 = 3
bool_field = false
array = [4, 5, 6, 7]

[[record]]
field = 4
field2 = 5
bool_field = true
array = [8, 9, 10, 11]
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func writeInputs(t *testing.T) (schema, records string) {
	t.Helper()
	dir := t.TempDir()
	schema = filepath.Join(dir, "my_struct.toml")
	records = filepath.Join(dir, "records.toml")
	require.NoError(t, os.WriteFile(schema, []byte(schemaTOML), 0o600))
	require.NoError(t, os.WriteFile(records, []byte(recordsTOML), 0o600))
	return schema, records
}

func packed(t *testing.T, extra ...string) string {
	t.Helper()
	schema, records := writeInputs(t)
	file := filepath.Join(t.TempDir(), "my_struct.plnr")
	args := append([]string{"pack", schema, records, "-o", file}, extra...)
	out, err := execute(t, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "packed 3 MyStruct records")
	return file
}

func TestInspect(t *testing.T) {
	schema, _ := writeInputs(t)
	out, err := execute(t, "inspect", schema)
	require.NoError(t, err)
	assert.Contains(t, out, "schema MyStruct")
	assert.Contains(t, out, "25 bytes per record")
	assert.Contains(t, out, "bool_field")
	assert.Contains(t, out, "RGBA32Uint")
	assert.NotContains(t, out, "@group")

	out, err = execute(t, "inspect", schema, "--wgsl", "--mode", "texture", "--group", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "@group(2) @binding(3) var array_: texture_2d<u32>;")

	_, err = execute(t, "inspect", schema, "--wgsl", "--mode", "volume")
	assert.Error(t, err)
}

func TestPackAndDump(t *testing.T) {
	for _, extra := range [][]string{nil, {"--compress"}} {
		file := packed(t, extra...)
		out, err := execute(t, "dump", file)
		require.NoError(t, err)
		assert.Contains(t, out, "3 records")
		assert.Contains(t, out, "0: [0 1 true [0 1 2 3]]")
		assert.Contains(t, out, "2: [4 5 true [8 9 10 11]]")

		out, err = execute(t, "dump", file, "-n", "1")
		require.NoError(t, err)
		assert.Contains(t, out, "... 2 more")
	}
}

func TestPackRequiresOutput(t *testing.T) {
	schema, records := writeInputs(t)
	_, err := execute(t, "pack", schema, records)
	assert.Error(t, err)
}

func TestDumpRejectsForeignFile(t *testing.T) {
	schema, _ := writeInputs(t)
	_, err := execute(t, "dump", schema)
	assert.Error(t, err)
}

func TestRunBindsElement(t *testing.T) {
	file := packed(t)
	for _, mode := range []string{"storage", "texture"} {
		t.Run(mode, func(t *testing.T) {
			out, err := execute(t, "run", file, "--backend", "memory", "--mode", mode,
				"--interval", "1ms", "--ticks", "1000")
			require.NoError(t, err)
			assert.Contains(t, out, "Bound ("+mode+", 3 records")
		})
	}
}

func TestRunMissingFile(t *testing.T) {
	_, err := execute(t, "run", filepath.Join(t.TempDir(), "missing.plnr"),
		"--backend", "memory", "--interval", "1ms", "--ticks", "1000")
	assert.Error(t, err)
}

func TestRunUnknownBackend(t *testing.T) {
	file := packed(t)
	_, err := execute(t, "run", file, "--backend", "vulkan")
	assert.ErrorContains(t, err, "unknown backend")
}

func TestBadLogLevel(t *testing.T) {
	schema, _ := writeInputs(t)
	_, err := execute(t, "inspect", schema, "--log-level", "loud")
	assert.Error(t, err)
}
