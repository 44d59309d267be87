package cli_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/probelab/headnotes/internal/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useFileBackend(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.json")
	t.Setenv("HEADNOTES_CONFIG_PATH", "")
	t.Setenv("HEADNOTES_STORE_BACKEND", "file")
	t.Setenv("HEADNOTES_STORE_PATH", path)
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := cli.NewRootCommand()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestAnnotateAndStatus(t *testing.T) {
	useFileBackend(t)

	out, err := run(t, "tag", "add", "Induction")
	require.NoError(t, err)
	assert.Contains(t, out, `Added "induction"`)

	out, err = run(t, "annotate", "set", "2", "5",
		"--tag", "reasoning/causal",
		"--desc", "reasoning/causal=tracks cause-effect pairs")
	require.NoError(t, err)
	assert.Contains(t, out, "L2H5: reasoning/causal")

	out, err = run(t, "status", "--format", "json")
	require.NoError(t, err)
	var status map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.EqualValues(t, 1, status["annotations"])
	assert.EqualValues(t, 2, status["tags"])

	out, err = run(t, "annotate", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "L2H5: reasoning/causal")
	assert.Contains(t, out, "tracks cause-effect pairs")
}

func TestAnnotateSetRequiresTag(t *testing.T) {
	useFileBackend(t)

	_, err := run(t, "annotate", "set", "0", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--tag")
}

func TestAnnotateSetOutsideGrid(t *testing.T) {
	useFileBackend(t)
	t.Setenv("HEADNOTES_NUM_LAYERS", "2")
	t.Setenv("HEADNOTES_NUM_HEADS", "2")

	_, err := run(t, "annotate", "set", "5", "0", "--tag", "induction")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside")
}

func TestTagRmTopicCascades(t *testing.T) {
	useFileBackend(t)

	_, err := run(t, "annotate", "set", "0", "0", "--tag", "reasoning/causal", "--tag", "naming")
	require.NoError(t, err)

	out, err := run(t, "tag", "rm", "reasoning", "--topic")
	require.NoError(t, err)
	assert.Contains(t, out, `Deleted topic "reasoning"`)

	out, err = run(t, "annotate", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "L0H0: naming")
	assert.NotContains(t, out, "reasoning")
}

func TestTagMvRejectsMajorOnly(t *testing.T) {
	useFileBackend(t)

	_, err := run(t, "tag", "mv", "reasoning", "attention")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "minor")
}

func TestExportImportRoundTrip(t *testing.T) {
	useFileBackend(t)

	_, err := run(t, "annotate", "set", "2", "5", "--tag", "reasoning/causal")
	require.NoError(t, err)

	exportPath := filepath.Join(t.TempDir(), "export.json")
	_, err = run(t, "export", exportPath)
	require.NoError(t, err)

	// Fresh store, then pull the exported content back in.
	useFileBackend(t)
	out, err := run(t, "import", exportPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 annotation(s)")

	out, err = run(t, "annotate", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "L2H5: reasoning/causal")
}

func TestImportRejectsForeignJSON(t *testing.T) {
	useFileBackend(t)

	path := filepath.Join(t.TempDir(), "other.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"kind":"something-else"}`), 0o644))

	_, err := run(t, "import", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a valid export")
}

func TestResetRequiresForce(t *testing.T) {
	useFileBackend(t)

	_, err := run(t, "annotate", "set", "0", "0", "--tag", "induction")
	require.NoError(t, err)

	_, err = run(t, "reset")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	out, err := run(t, "reset", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "Reset gpt2-small")

	out, err = run(t, "annotate", "show")
	require.NoError(t, err)
	assert.NotContains(t, out, "induction")
}

func TestStatusEmptyDocument(t *testing.T) {
	useFileBackend(t)

	out, err := run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "never (empty document)")
}
