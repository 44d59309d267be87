package mcp

const serverInstructions = `headnotes exposes a single shared document of transformer
attention-head annotations.

Core concepts:
- Document: one project holding a grid of heads (numLayers x numHeads) plus a
  flat list of tags.
- Annotation: tags and optional per-tag descriptions attached to one head,
  keyed "L<layer>H<head>".
- Tag: "major" or "major/minor", lowercase, whitespace collapsed to hyphens.
  The major part groups tags into topics.

Rules of engagement:
1) Orient: call get_document to see the current grid, annotations, and tags.
2) Mutate through the provided tools; every write is read-modify-write with
   optimistic concurrency handled server-side, so concurrent editors are safe.
3) Tag hygiene: remove_tag and delete_topic cascade into annotations;
   reparent_tag moves a "major/minor" tag under a new major everywhere.
4) Annotations with no tags are dropped; add at least one tag per head.`
