package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDay(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.November, 9, 7, 30, 0, 0, time.FixedZone("IST", 2*60*60))

	o := &options{}
	at, err := o.at(now)
	require.NoError(t, err)
	assert.Equal(t, now.UTC(), at)

	o.day = "2025-11-08"
	at, err = o.at(now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.November, 8, 5, 30, 0, 0, time.UTC), at)

	o.day = "08/11/2025"
	_, err = o.at(now)
	require.Error(t, err)
}

func TestCommandTree(t *testing.T) {
	t.Parallel()

	root := NewRootCommand()
	for _, name := range []string{"scan", "dedup", "enrich", "digest", "run", "schedule"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.NotNil(t, root.PersistentFlags().Lookup("day"))
}

func TestDedupCommandOnEmptyDay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "logging:\n  level: error\nstorage:\n  dir: " + filepath.Join(dir, "days") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("NEWSDIGEST_DATA_DIR", "")
	t.Setenv("NEWSDIGEST_S3_BUCKET", "")

	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"dedup", "--config", path, "--day", "2025-11-08"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "2025-11-08: 0 articles -> 0 stories (0 merges)\n", out.String())
}

func TestBadConfigFails(t *testing.T) {
	t.Parallel()

	root := NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"scan", "--config", filepath.Join(t.TempDir(), "absent.yaml")})

	err := root.Execute()
	require.ErrorContains(t, err, "loading config")
}
