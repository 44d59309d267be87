package project_test

import (
	"testing"
	"time"

	"github.com/probelab/headnotes/internal/domain/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Minute)
	t2 = t0.Add(2 * time.Minute)
)

func newTestProject(t *testing.T) *project.Project {
	t.Helper()
	return project.New("gpt2-small", 12, 12, t0)
}

func TestReduce_UpsertAddsMissingTagsOnce(t *testing.T) {
	p := newTestProject(t)

	p = project.Reduce(p, project.UpsertAnnotation{Annotation: project.Annotation{
		Layer: 2, Head: 5,
		Tags: []string{"reasoning/causal", "syntax"},
	}}, t1)
	p = project.Reduce(p, project.UpsertAnnotation{Annotation: project.Annotation{
		Layer: 3, Head: 1,
		Tags: []string{"reasoning/causal"},
	}}, t2)

	count := 0
	for _, tag := range p.Tags {
		if tag == "reasoning/causal" {
			count++
		}
	}
	assert.Equal(t, 1, count, "tag must appear in the tag list exactly once")
	assert.Equal(t, []string{"reasoning/causal", "syntax"}, p.Tags)
}

func TestReduce_UpsertNormalizesAndDeduplicates(t *testing.T) {
	p := newTestProject(t)

	p = project.Reduce(p, project.UpsertAnnotation{Annotation: project.Annotation{
		Layer: 0, Head: 0,
		Tags:         []string{"  Long Range ", "long-range", "Copy  Heads/Prev Token"},
		Descriptions: map[string]string{" Long Range": "attends far back"},
	}}, t1)

	ann := p.Annotations[project.HeadKey(0, 0)]
	assert.Equal(t, []string{"long-range", "copy-heads/prev-token"}, ann.Tags)
	assert.Equal(t, "attends far back", ann.Descriptions["long-range"])
}

func TestReduce_UpsertOutOfBoundsIsNoop(t *testing.T) {
	p := newTestProject(t)
	next := project.Reduce(p, project.UpsertAnnotation{Annotation: project.Annotation{
		Layer: 12, Head: 0, Tags: []string{"x"},
	}}, t1)
	assert.Same(t, p, next)
}

func TestReduce_DeleteAnnotationKeepsTags(t *testing.T) {
	p := newTestProject(t)
	p = project.Reduce(p, project.UpsertAnnotation{Annotation: project.Annotation{
		Layer: 1, Head: 1, Tags: []string{"induction"},
	}}, t1)

	p = project.Reduce(p, project.DeleteAnnotation{Layer: 1, Head: 1}, t2)

	assert.Empty(t, p.Annotations)
	assert.Equal(t, []string{"induction"}, p.Tags, "tags survive with zero annotations")
}

func TestReduce_DeleteAnnotationMissingIsNoop(t *testing.T) {
	p := newTestProject(t)
	next := project.Reduce(p, project.DeleteAnnotation{Layer: 4, Head: 4}, t1)
	assert.Same(t, p, next)
}

func TestReduce_AddTagIdempotent(t *testing.T) {
	p := newTestProject(t)
	p = project.Reduce(p, project.AddTag{Tag: "Attention  Sinks"}, t1)
	require.Equal(t, []string{"attention-sinks"}, p.Tags)

	next := project.Reduce(p, project.AddTag{Tag: "attention-sinks"}, t2)
	assert.Same(t, p, next, "re-adding an existing tag is a no-op")
	assert.Equal(t, p.UpdatedAt, next.UpdatedAt)
}

func TestReduce_RemoveTagStripsAnnotations(t *testing.T) {
	p := newTestProject(t)
	p = project.Reduce(p, project.UpsertAnnotation{Annotation: project.Annotation{
		Layer: 2, Head: 3,
		Tags:         []string{"syntax/agreement", "induction"},
		Descriptions: map[string]string{"syntax/agreement": "subject-verb", "induction": "classic"},
	}}, t1)

	p = project.Reduce(p, project.RemoveTag{Tag: "syntax/agreement"}, t2)

	assert.NotContains(t, p.Tags, "syntax/agreement")
	ann := p.Annotations[project.HeadKey(2, 3)]
	assert.Equal(t, []string{"induction"}, ann.Tags)
	assert.NotContains(t, ann.Descriptions, "syntax/agreement")
	assert.Equal(t, "classic", ann.Descriptions["induction"])
}

func TestReduce_DeleteTopicCascades(t *testing.T) {
	p := newTestProject(t)
	p = project.Reduce(p, project.AddTag{Tag: "reasoning"}, t1)
	p = project.Reduce(p, project.UpsertAnnotation{Annotation: project.Annotation{
		Layer: 5, Head: 7,
		Tags:         []string{"reasoning/causal", "syntax/causal"},
		Descriptions: map[string]string{"reasoning/causal": "a", "syntax/causal": "b"},
	}}, t1)

	p = project.Reduce(p, project.DeleteTopic{Major: "reasoning"}, t2)

	assert.Equal(t, []string{"syntax/causal"}, p.Tags)
	ann := p.Annotations[project.HeadKey(5, 7)]
	assert.Equal(t, []string{"syntax/causal"}, ann.Tags)
	assert.Equal(t, map[string]string{"syntax/causal": "b"}, ann.Descriptions,
		"same minor under a different major is untouched")
}

func TestReduce_DeleteTopicNoMatchIsNoop(t *testing.T) {
	p := newTestProject(t)
	p = project.Reduce(p, project.AddTag{Tag: "syntax"}, t1)
	next := project.Reduce(p, project.DeleteTopic{Major: "reasoning"}, t2)
	assert.Same(t, p, next)
}

func TestReduce_ReparentMovesSubtopic(t *testing.T) {
	p := newTestProject(t)
	p = project.Reduce(p, project.UpsertAnnotation{Annotation: project.Annotation{
		Layer: 0, Head: 1,
		Tags:         []string{"a/x"},
		Descriptions: map[string]string{"a/x": "from a"},
	}}, t1)

	p = project.Reduce(p, project.ReparentTag{Tag: "a/x", NewMajor: "b"}, t2)

	assert.NotContains(t, p.Tags, "a/x")
	assert.Contains(t, p.Tags, "b")
	assert.Contains(t, p.Tags, "b/x")
	ann := p.Annotations[project.HeadKey(0, 1)]
	assert.Equal(t, []string{"b/x"}, ann.Tags)
	assert.Equal(t, "from a", ann.Descriptions["b/x"])
}

func TestReduce_ReparentCollisionKeepsFirstDescription(t *testing.T) {
	p := newTestProject(t)
	p = project.Reduce(p, project.UpsertAnnotation{Annotation: project.Annotation{
		Layer: 3, Head: 3,
		Tags:         []string{"b/x", "a/x"},
		Descriptions: map[string]string{"b/x": "original", "a/x": "reparented"},
	}}, t1)

	p = project.Reduce(p, project.ReparentTag{Tag: "a/x", NewMajor: "b"}, t2)

	ann := p.Annotations[project.HeadKey(3, 3)]
	count := 0
	for _, tag := range ann.Tags {
		if tag == "b/x" {
			count++
		}
	}
	assert.Equal(t, 1, count, "b/x must not be duplicated")
	assert.Equal(t, "original", ann.Descriptions["b/x"], "existing description wins")
	assert.NotContains(t, ann.Descriptions, "a/x")
}

func TestReduce_ReparentNoops(t *testing.T) {
	p := newTestProject(t)
	p = project.Reduce(p, project.AddTag{Tag: "a/x"}, t1)

	for name, act := range map[string]project.Action{
		"no minor":     project.ReparentTag{Tag: "a", NewMajor: "b"},
		"empty target": project.ReparentTag{Tag: "a/x", NewMajor: "  "},
		"same name":    project.ReparentTag{Tag: "a/x", NewMajor: "a"},
	} {
		next := project.Reduce(p, act, t2)
		assert.Same(t, p, next, name)
	}
}

func TestReduce_ImportRemotePreservesTimestamps(t *testing.T) {
	p := newTestProject(t)
	foreign := project.New("gpt2-xl", 48, 25, t1)
	foreign.Tags = []string{"imported"}

	next := project.Reduce(p, project.ImportRemote{Doc: foreign}, t2)

	assert.Equal(t, foreign.UpdatedAt, next.UpdatedAt, "remote import trusts the snapshot clock")
	assert.Equal(t, foreign.CreatedAt, next.CreatedAt)
	assert.Equal(t, "gpt2-xl", next.ModelName)
}

func TestReduce_ImportRemoteStampsMissingTimestamps(t *testing.T) {
	p := newTestProject(t)
	foreign := &project.Project{ModelName: "m", NumLayers: 2, NumHeads: 2}

	next := project.Reduce(p, project.ImportRemote{Doc: foreign}, t2)

	assert.Equal(t, project.Stamp(t2), next.UpdatedAt)
	assert.Equal(t, project.Stamp(t2), next.CreatedAt)
}

func TestReduce_ImportFileRestamps(t *testing.T) {
	p := newTestProject(t)
	file := project.New("gpt2-medium", 24, 16, t0)
	file.Tags = []string{"from-file"}

	next := project.Reduce(p, project.ImportFile{Doc: file}, t2)

	assert.Equal(t, file.CreatedAt, next.CreatedAt, "createdAt preserved")
	assert.True(t, project.Newer(next.UpdatedAt, p.UpdatedAt),
		"file import counts as a fresh local edit")
}

func TestReduce_ResetKeepsGrid(t *testing.T) {
	p := newTestProject(t)
	p = project.Reduce(p, project.AddTag{Tag: "x"}, t1)

	next := project.Reduce(p, project.Reset{}, t2)

	assert.Empty(t, next.Tags)
	assert.Empty(t, next.Annotations)
	assert.Equal(t, "gpt2-small", next.ModelName)
	assert.Equal(t, 12, next.NumLayers)
	assert.Equal(t, project.Stamp(t2), next.CreatedAt)
}

func TestReduce_UpdatedAtStrictlyIncreases(t *testing.T) {
	p := newTestProject(t)
	prev := p.UpdatedAt
	// Same wall-clock instant for every mutation.
	for i := 0; i < 5; i++ {
		p = project.Reduce(p, project.AddTag{Tag: project.HeadKey(i, i)}, t0)
		require.True(t, project.Newer(p.UpdatedAt, prev),
			"updatedAt must strictly increase on every accepted mutation")
		prev = p.UpdatedAt
	}
}

func TestReduce_InputNeverMutated(t *testing.T) {
	p := newTestProject(t)
	p = project.Reduce(p, project.UpsertAnnotation{Annotation: project.Annotation{
		Layer: 1, Head: 2, Tags: []string{"a/x"}, Descriptions: map[string]string{"a/x": "d"},
	}}, t1)
	before := p.Clone()

	_ = project.Reduce(p, project.RemoveTag{Tag: "a/x"}, t2)
	_ = project.Reduce(p, project.ReparentTag{Tag: "a/x", NewMajor: "b"}, t2)

	assert.Equal(t, before, p)
}
