package knowledge

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/contextmesh/core"
	"github.com/hupe1980/contextmesh/logging"
	"github.com/hupe1980/contextmesh/repository"
	"github.com/hupe1980/contextmesh/vectorstore"
)

func newTestService(t *testing.T) (*Service, *repository.InMemoryRepository, *vectorstore.InMemoryStore) {
	t.Helper()
	repo := repository.NewInMemoryRepository()
	vectors := vectorstore.NewInMemoryStore()
	return NewService(repo, vectors), repo, vectors
}

func longContent() string {
	paragraphs := make([]string, 80)
	for i := range paragraphs {
		paragraphs[i] = strings.Repeat("retrieval augmentation pipeline design notes ", 30)
	}
	return strings.Join(paragraphs, "\n\n")
}

func TestOffloadSingleSmallArtifactReturnsRawContent(t *testing.T) {
	svc, _, _ := newTestService(t)
	ws := core.NewWorkingState()
	a := core.NewArtifact("the answer is 42", "answer")

	out, err := svc.Offload(context.Background(), ws, "ws1", []*core.Artifact{a}, "")
	require.NoError(t, err)
	require.Equal(t, "the answer is 42", out)

	// still registered, tagged and persisted despite the raw-content return
	require.Same(t, a, ws.ArtifactByID(a.ID))
	require.NotEmpty(t, a.BizID())
	data, err := svc.ReadArtifact(context.Background(), "ws1", a.ID)
	require.NoError(t, err)
	require.Equal(t, "the answer is 42", string(data))
}

func TestOffloadBatchReturnsIndex(t *testing.T) {
	svc, _, _ := newTestService(t)
	ws := core.NewWorkingState()
	a := core.NewArtifact("first result", "first")
	b := core.NewArtifact(longContent(), "second")

	out, err := svc.Offload(context.Background(), ws, "ws1", []*core.Artifact{a, b}, "batch-7")
	require.NoError(t, err)

	require.Contains(t, out, "## Knowledge Index")
	require.Contains(t, out, a.ID)
	require.Contains(t, out, b.ID)
	require.Contains(t, out, "biz_id=batch-7")
	require.NotContains(t, out, longContent())

	require.Equal(t, "batch-7", a.BizID())
	require.Equal(t, "batch-7", b.BizID())
	require.True(t, b.Chunked)
}

func TestOffloadIndexBoundsPreviews(t *testing.T) {
	svc, _, _ := newTestService(t)
	ws := core.NewWorkingState()
	a := core.NewArtifact(longContent(), "big")
	b := core.NewArtifact("tiny", "small")

	out, err := svc.Offload(context.Background(), ws, "ws1", []*core.Artifact{a, b}, "")
	require.NoError(t, err)

	require.LessOrEqual(t, strings.Count(out, "head["), core.DefaultPreviewChunks)
	require.LessOrEqual(t, strings.Count(out, "tail["), core.DefaultPreviewChunks)
	require.Contains(t, out, "(", "chunk count surfaced for chunked artifact")
}

func TestOffloadEmptyBatch(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Offload(context.Background(), core.NewWorkingState(), "ws1", nil, "")
	require.Error(t, err)
}

func TestOffloadIndexesSearchableChunks(t *testing.T) {
	svc, _, vectors := newTestService(t)
	ws := core.NewWorkingState()
	searchable := core.NewArtifact("kubernetes deployment rollout strategy", "k8s")
	private := core.NewArtifact("secret scratchpad", "scratch")
	private.Tag("searchable", "false")

	_, err := svc.Offload(context.Background(), ws, "ws1", []*core.Artifact{searchable, private}, "")
	require.NoError(t, err)

	hits, err := vectors.Search(context.Background(), DefaultCollection, "kubernetes rollout", nil, 0, 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	for _, h := range hits {
		require.NotEqual(t, private.ID, h.Metadata[tagArtifactID])
	}
}

func TestLoadBySearch(t *testing.T) {
	svc, _, _ := newTestService(t)
	ws := core.NewWorkingState()
	a := core.NewArtifact("postgres connection pooling with pgbouncer", "db notes")
	b := core.NewArtifact("css grid layout tricks", "frontend notes")

	_, err := svc.Offload(context.Background(), ws, "ws1", []*core.Artifact{a, b}, "")
	require.NoError(t, err)

	out, err := svc.Load(context.Background(), LoadOptions{
		Workspace:     "ws1",
		Query:         "postgres pooling",
		SearchByIndex: true,
		TopK:          1,
	})
	require.NoError(t, err)
	require.Contains(t, out, "## Chunk Content")
	require.Contains(t, out, "pgbouncer")
	require.NotContains(t, out, "css grid")
}

func TestLoadBySearchFilter(t *testing.T) {
	svc, _, _ := newTestService(t)
	ws := core.NewWorkingState()
	a := core.NewArtifact("report about solar output", "solar")
	b := core.NewArtifact("report about wind output", "wind")

	_, err := svc.Offload(context.Background(), ws, "ws1", []*core.Artifact{a}, "batch-a")
	require.NoError(t, err)
	_, err = svc.Offload(context.Background(), ws, "ws1", []*core.Artifact{b}, "batch-b")
	require.NoError(t, err)

	out, err := svc.Load(context.Background(), LoadOptions{
		Workspace:     "ws1",
		Query:         "report output",
		SearchByIndex: true,
		Filter:        map[string]string{tagBizID: "batch-b"},
		TopK:          5,
	})
	require.NoError(t, err)
	require.Contains(t, out, "wind")
	require.NotContains(t, out, "solar")
}

func TestLoadExhaustive(t *testing.T) {
	svc, _, _ := newTestService(t)
	ws := core.NewWorkingState()
	a := core.NewArtifact(longContent(), "big doc")
	b := core.NewArtifact("tiny doc body", "tiny doc")

	_, err := svc.Offload(context.Background(), ws, "ws1", []*core.Artifact{a, b}, "")
	require.NoError(t, err)

	out, err := svc.Load(context.Background(), LoadOptions{Workspace: "ws1"})
	require.NoError(t, err)

	require.Contains(t, out, "2 artifacts")
	require.Contains(t, out, "## Knowledge Index")
	require.Contains(t, out, "big doc")
	require.Contains(t, out, "tiny doc")
	require.NotContains(t, out, "## Chunk Content")

	withContent, err := svc.Load(context.Background(), LoadOptions{Workspace: "ws1", LoadContent: true})
	require.NoError(t, err)
	require.Contains(t, withContent, "## Chunk Content")
	require.Contains(t, withContent, "tiny doc body")
}

func TestLoadExhaustiveRespectsWorkspace(t *testing.T) {
	svc, _, _ := newTestService(t)
	ws := core.NewWorkingState()
	_, err := svc.Offload(context.Background(), ws, "ws1", []*core.Artifact{core.NewArtifact("alpha", "a")}, "")
	require.NoError(t, err)

	out, err := svc.Load(context.Background(), LoadOptions{Workspace: "other"})
	require.NoError(t, err)
	require.Contains(t, out, "0 artifacts")
}

func TestDeleteArtifact(t *testing.T) {
	svc, _, vectors := newTestService(t)
	ws := core.NewWorkingState()
	a := core.NewArtifact("delete me please", "doomed")

	_, err := svc.Offload(context.Background(), ws, "ws1", []*core.Artifact{a}, "")
	require.NoError(t, err)

	svc.DeleteArtifact(context.Background(), ws, "ws1", a.ID)

	require.Nil(t, ws.ArtifactByID(a.ID))
	hits, err := vectors.Query(context.Background(), DefaultCollection, map[string]string{tagArtifactID: a.ID}, 0)
	require.NoError(t, err)
	require.Empty(t, hits)

	out, err := svc.Load(context.Background(), LoadOptions{Workspace: "ws1"})
	require.NoError(t, err)
	require.Contains(t, out, "0 artifacts")
}

func TestUpdateArtifactReindexes(t *testing.T) {
	svc, _, vectors := newTestService(t)
	ws := core.NewWorkingState()
	a := core.NewArtifact("original text about trains", "doc")

	_, err := svc.Offload(context.Background(), ws, "ws1", []*core.Artifact{a}, "")
	require.NoError(t, err)

	a.Content = "revised text about bicycles"
	svc.UpdateArtifact(context.Background(), ws, "ws1", a)

	hits, err := vectors.Query(context.Background(), DefaultCollection, map[string]string{tagArtifactID: a.ID}, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Contains(t, hits[0].Content, "bicycles")
}

func TestReadArtifactCachesBytes(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	svc := NewService(repo, vectorstore.NewInMemoryStore())
	a := core.NewArtifact("cache this", "c")

	_, err := svc.Offload(context.Background(), core.NewWorkingState(), "ws1", []*core.Artifact{a}, "")
	require.NoError(t, err)

	first, err := svc.ReadArtifact(context.Background(), "ws1", a.ID)
	require.NoError(t, err)
	second, err := svc.ReadArtifact(context.Background(), "ws1", a.ID)
	require.NoError(t, err)
	require.Equal(t, first, second)

	_, err = svc.ReadArtifact(context.Background(), "ws1", "missing")
	require.Error(t, err)
}

func TestOffloadSurvivesStorageFailure(t *testing.T) {
	svc := NewService(failingRepo{}, vectorstore.NewInMemoryStore())
	ws := core.NewWorkingState()
	a := core.NewArtifact("resilient content", "r")

	out, err := svc.Offload(context.Background(), ws, "ws1", []*core.Artifact{a}, "")
	require.NoError(t, err)
	require.Equal(t, "resilient content", out)
	require.Same(t, a, ws.ArtifactByID(a.ID))
}

func newEventLogger(t *testing.T) (logging.Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	cfg := logging.DefaultLoggerConfig()
	cfg.Level = logging.LogLevelDebug
	cfg.Output = buf
	cfg.AddSource = false
	return logging.NewLogger(cfg), buf
}

func TestOffloadEmitsOffloadEvent(t *testing.T) {
	logger, buf := newEventLogger(t)
	svc := NewService(repository.NewInMemoryRepository(), vectorstore.NewInMemoryStore(), WithLogger(logger))

	_, err := svc.Offload(context.Background(), core.NewWorkingState(), "ws1",
		[]*core.Artifact{core.NewArtifact("payload", "p")}, "batch-42")
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, "Artifact offload completed")
	require.Contains(t, out, `"biz_id":"batch-42"`)
	require.Contains(t, out, `"artifact_count":1`)
	require.Contains(t, out, `"component":"knowledge"`)
}

func TestOffloadStorageFailureEmitsDegradedEvent(t *testing.T) {
	logger, buf := newEventLogger(t)
	svc := NewService(failingRepo{}, vectorstore.NewInMemoryStore(), WithLogger(logger))

	_, err := svc.Offload(context.Background(), core.NewWorkingState(), "ws1",
		[]*core.Artifact{core.NewArtifact("payload", "p")}, "")
	require.NoError(t, err)

	require.Contains(t, buf.String(), "Artifact offload degraded")
}

func TestLoadEmitsTimerEvent(t *testing.T) {
	logger, buf := newEventLogger(t)
	svc := NewService(repository.NewInMemoryRepository(), vectorstore.NewInMemoryStore(), WithLogger(logger))

	_, err := svc.Load(context.Background(), LoadOptions{Workspace: "ws1"})
	require.NoError(t, err)

	require.Contains(t, buf.String(), "Operation completed")
}

type failingRepo struct{}

func (failingRepo) Upload(context.Context, string, []byte, map[string]string) (string, error) {
	return "", repository.ErrNotFound
}

func (failingRepo) Read(context.Context, string) ([]byte, error) {
	return nil, repository.ErrNotFound
}

func (failingRepo) List(context.Context, string) ([]core.FileInfo, error) {
	return nil, repository.ErrNotFound
}
