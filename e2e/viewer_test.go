//go:build e2e && unix

package main

import (
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// startWithDocument opens a three page document and waits for the first page
func startWithDocument(t *testing.T, args ...string) *TUITestFramework {
	t.Helper()
	tf := NewTUITest(t)
	t.Cleanup(tf.Cleanup)

	_, err := tf.CreateTestWorkspace()
	require.NoError(t, err, "Failed to create test workspace")
	path, err := tf.WriteDocument("notes.txt",
		"first page\nthe cat sat on the mat",
		"second page\nnothing to see",
		"third page\nanother cat",
	)
	require.NoError(t, err, "Failed to write document")

	require.NoError(t, tf.StartApp(append(args, path)...), "Failed to start app")
	require.True(t, tf.Ready(), "Should show the toolbar")
	require.True(t, tf.SeePlain("Page 1 / 3"), "Should know the page count")
	require.True(t, tf.SeePlain("first page"), "Should render the first page")
	return tf
}

func TestPageNavigation(t *testing.T) {
	t.Parallel()
	tf := startWithDocument(t)

	tf.NextPage()
	require.True(t, tf.SeePlain("Page 2 / 3"), "Next page should update the toolbar")
	require.True(t, tf.SeePlain("second page"), "Next page should render page 2")

	tf.SendKeys("G")
	require.True(t, tf.SeePlain("Page 3 / 3"), "G should jump to the last page")

	tf.NextPage()
	tf.SendKeys(KeyPrevPage)
	require.True(t, tf.SeePlain("Page 2 / 3"), "Next on the last page stays, prev moves back")
}

func TestZoom(t *testing.T) {
	t.Parallel()
	tf := startWithDocument(t)

	tf.SendKeys(KeyZoomIn)
	require.True(t, tf.SeePlain("120%"), "Zoom in should step the scale")
}

func TestSearchFollowsMatches(t *testing.T) {
	t.Parallel()
	tf := startWithDocument(t)

	tf.Search("cat")
	require.True(t, tf.SeePlain("Match 1 of 2"), "Search should report the matches")

	tf.LeaveSearch()
	tf.SendKeys(KeyFindNext)
	require.True(t, tf.SeePlain("Match 2 of 2"), "n should move to the next match")
	require.True(t, tf.SeePlain("Page 3 / 3"), "The view should follow the match")

	tf.SendKeys(KeyFindNext)
	require.True(t, tf.SeePlain("Match 1 of 2"), "Next wraps to the first match")
}

func TestSearchNotFound(t *testing.T) {
	t.Parallel()
	tf := startWithDocument(t)

	tf.Search("zebra")
	require.True(t, tf.SeePlain("No matches found"), "Unknown text should report no matches")
}

func TestScanBackend(t *testing.T) {
	t.Parallel()
	tf := startWithDocument(t, "--backend", "scan")

	tf.Search("cat")
	require.True(t, tf.SeePlain("Match 1 of 2"), "The fallback scanner should find matches")
}

func TestReloadOnChange(t *testing.T) {
	t.Parallel()
	tf := startWithDocument(t)

	path := tf.workspace + "/notes.txt"
	require.NoError(t, os.WriteFile(path, []byte("only page\nrewritten"), 0644))
	require.True(t, tf.SeePlain("Page 1 / 1"), "The viewer should reload the changed file")
	require.True(t, tf.SeePlain("rewritten"), "The new text should render")
}

func TestPager(t *testing.T) {
	t.Parallel()
	tf := startWithDocument(t)

	tf.OpenPager()
	require.True(t, tf.SeePlain("notes.txt - page 1"), "ov should show the page caption")

	tf.Quit()
	require.True(t, tf.SeePlain("Page 1 / 3"), "Should return to the viewer after closing the pager")
}

func TestMissingDocument(t *testing.T) {
	t.Parallel()
	tf := NewTUITest(t)
	t.Cleanup(tf.Cleanup)
	_, err := tf.CreateTestWorkspace()
	require.NoError(t, err)

	require.NoError(t, tf.StartApp(tf.workspace+"/missing.pdf"))
	require.True(t, tf.SeePlain("Error:"), "A missing file should be reported in the status line")
}

func TestApplicationExit(t *testing.T) {
	t.Parallel()
	tf := startWithDocument(t)

	tf.PressQuit()
	done := make(chan error, 1)
	go func() { done <- tf.cmd.Wait() }()
	select {
	case err := <-done:
		require.NoError(t, err, "Should exit cleanly on q")
	case <-time.After(3 * time.Second):
		t.Fatal("Application did not exit")
	}
	tf.cmd = nil
}

func TestHelpCommand(t *testing.T) {
	t.Parallel()

	// Ensure the test binary exists (it should be built by TestMain)
	if _, err := os.Stat(binPath); os.IsNotExist(err) {
		t.Skip("Test binary not found - TestMain may not have run yet")
	}

	cmd := exec.Command(binPath, "--help")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "Help command should run without error")

	output := string(out)
	require.True(t, strings.Contains(output, "Usage"), "Help should contain usage")
	require.True(t, strings.Contains(output, "--backend"), "Help should list the backend flag")
	require.True(t, strings.Contains(output, "relay"), "Help should list the relay command")
}
