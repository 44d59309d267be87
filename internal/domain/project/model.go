package project

import (
	"fmt"
	"time"
)

// Project is the single annotation document shared by all clients. The
// updatedAt timestamp doubles as the version token for optimistic
// concurrency: two documents are the same version iff the strings are equal.
type Project struct {
	ModelName   string                `json:"modelName"`
	NumLayers   int                   `json:"numLayers"`
	NumHeads    int                   `json:"numHeads"`
	Annotations map[string]Annotation `json:"annotations"`
	Tags        []string              `json:"tags"`
	CreatedAt   string                `json:"createdAt"`
	UpdatedAt   string                `json:"updatedAt"`
}

// Annotation labels a single attention head.
type Annotation struct {
	Layer        int               `json:"layer"`
	Head         int               `json:"head"`
	Tags         []string          `json:"tags"`
	Descriptions map[string]string `json:"descriptions,omitempty"`
}

// HeadKey returns the stable mapping key for a (layer, head) coordinate.
func HeadKey(layer, head int) string {
	return fmt.Sprintf("L%dH%d", layer, head)
}

// Stamp formats a timestamp as the wire representation used by updatedAt
// and createdAt.
func Stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Newer reports whether version a is strictly newer than version b. Both are
// updatedAt strings; unparseable values fall back to lexicographic order and
// an empty string is never newer than anything.
func Newer(a, b string) bool {
	if a == "" {
		return false
	}
	if b == "" {
		return true
	}
	ta, errA := time.Parse(time.RFC3339Nano, a)
	tb, errB := time.Parse(time.RFC3339Nano, b)
	if errA != nil || errB != nil {
		return a > b
	}
	return ta.After(tb)
}

// StampAfter produces a version token strictly newer than prev even when
// the wall clock has not advanced past it. Both the reducer and the durable
// stores use it to keep updatedAt strictly increasing.
func StampAfter(prev string, now time.Time) string {
	ts := Stamp(now)
	if Newer(ts, prev) {
		return ts
	}
	if t, err := time.Parse(time.RFC3339Nano, prev); err == nil {
		return Stamp(t.Add(time.Nanosecond))
	}
	return ts
}

// New creates a fresh empty project with the given grid dimensions.
func New(modelName string, numLayers, numHeads int, now time.Time) *Project {
	ts := Stamp(now)
	return &Project{
		ModelName:   modelName,
		NumLayers:   numLayers,
		NumHeads:    numHeads,
		Annotations: map[string]Annotation{},
		Tags:        []string{},
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
}

// Clone returns a deep copy. Reducer results and engine snapshots always go
// through Clone so readers never observe a partially mutated document.
func (p *Project) Clone() *Project {
	out := &Project{
		ModelName:   p.ModelName,
		NumLayers:   p.NumLayers,
		NumHeads:    p.NumHeads,
		Annotations: make(map[string]Annotation, len(p.Annotations)),
		Tags:        append([]string(nil), p.Tags...),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	for key, ann := range p.Annotations {
		out.Annotations[key] = ann.clone()
	}
	return out
}

func (a Annotation) clone() Annotation {
	out := Annotation{
		Layer: a.Layer,
		Head:  a.Head,
		Tags:  append([]string(nil), a.Tags...),
	}
	if len(a.Descriptions) > 0 {
		out.Descriptions = make(map[string]string, len(a.Descriptions))
		for tag, desc := range a.Descriptions {
			out.Descriptions[tag] = desc
		}
	}
	return out
}

// Meaningful reports whether the document carries user data worth preserving.
// Bootstrap uses this to decide whether a local copy may win over the remote.
func (p *Project) Meaningful() bool {
	return len(p.Annotations) > 0 || len(p.Tags) > 0
}

// Normalized returns a copy ready for persistence: annotations left with no
// tags are dropped, and dangling description keys are pruned so every
// description belongs to a tag present in its annotation's tag list. An
// empty tag list is legal only transiently during an edit; imported
// documents may also carry stray description keys.
func (p *Project) Normalized() *Project {
	out := p.Clone()
	for key, ann := range out.Annotations {
		if len(ann.Tags) == 0 {
			delete(out.Annotations, key)
			continue
		}
		if len(ann.Descriptions) == 0 {
			continue
		}
		listed := make(map[string]bool, len(ann.Tags))
		for _, tag := range ann.Tags {
			listed[tag] = true
		}
		for tag := range ann.Descriptions {
			if !listed[tag] {
				delete(ann.Descriptions, tag)
			}
		}
		if len(ann.Descriptions) == 0 {
			ann.Descriptions = nil
		}
		out.Annotations[key] = ann
	}
	return out
}
