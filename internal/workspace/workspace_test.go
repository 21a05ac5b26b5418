package workspace

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stagekit-dev/stagekit/internal/configval"
)

func TestWriteAndLoadSidecar_RoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	token := "tok-1"
	sc := &Sidecar{
		UUID:              "uuid-1",
		ExpectedUUIDs:     map[string]string{"upstream": "uuid-0"},
		VerificationToken: &token,
		Config:            configval.FlatConfig{"key": "value"},
	}

	require.NoError(t, WriteSidecar(dir, "stage-a", sc))

	loaded, valid := LoadSidecar(dir, "stage-a")
	require.True(t, valid)
	require.Equal(t, sc.UUID, loaded.UUID)
	require.Equal(t, sc.ExpectedUUIDs, loaded.ExpectedUUIDs)
	require.Equal(t, *sc.VerificationToken, *loaded.VerificationToken)
}

func TestLoadSidecar_InvalidWhenMissing(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	_, valid := LoadSidecar(dir, "does-not-exist")
	require.False(t, valid)
}

func TestLoadSidecar_InvalidWhenStructurallyIncomplete(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	require.NoError(t, WriteSidecar(dir, "stage-a", &Sidecar{}))

	_, valid := LoadSidecar(dir, "stage-a")
	require.False(t, valid)
}

func TestLoadSidecar_InvalidWhenVerificationTokenKeyAbsent(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	raw := []byte(`{"uuid":"uuid-1","expected_uuids":{},"config":{}}`)
	require.NoError(t, os.WriteFile(SidecarPath(dir, "stage-a"), raw, 0o644))

	_, valid := LoadSidecar(dir, "stage-a")
	require.False(t, valid)
}

func TestLoadSidecar_ValidWhenVerificationTokenIsNull(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	raw := []byte(`{"uuid":"uuid-1","expected_uuids":{},"verification_token":null,"config":{}}`)
	require.NoError(t, os.WriteFile(SidecarPath(dir, "stage-a"), raw, 0o644))

	loaded, valid := LoadSidecar(dir, "stage-a")
	require.True(t, valid)
	require.Nil(t, loaded.VerificationToken)
}

func TestResultRoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	require.False(t, ResultExists(dir, "stage-a"))
	require.NoError(t, WriteResult(dir, "stage-a", []byte("payload")))
	require.True(t, ResultExists(dir, "stage-a"))

	data, err := ReadResult(dir, "stage-a")
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), data)
}

func TestResetCache_CreatesEmptyDirectory(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	require.False(t, CacheExists(dir, "stage-a"))
	require.NoError(t, ResetCache(dir, "stage-a"))
	require.True(t, CacheExists(dir, "stage-a"))
}
