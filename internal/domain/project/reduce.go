package project

import "time"

// Action is a single document mutation handled by Reduce.
type Action interface {
	isAction()
}

// UpsertAnnotation replaces or inserts the annotation at its head key. Tags
// referenced by the annotation but missing from the project tag list are
// appended in first-seen order.
type UpsertAnnotation struct {
	Annotation Annotation
}

// DeleteAnnotation removes the annotation at (Layer, Head). Tags stay in the
// project tag list even when no annotation references them anymore.
type DeleteAnnotation struct {
	Layer int
	Head  int
}

// AddTag appends a tag to the project tag list. Idempotent.
type AddTag struct {
	Tag string
}

// RemoveTag removes a single tag from the tag list and strips it from every
// annotation's tags and descriptions.
type RemoveTag struct {
	Tag string
}

// DeleteTopic removes a major topic and all of its subtopics, cascading the
// removal through every annotation.
type DeleteTopic struct {
	Major string
}

// ReparentTag moves a subtopic tag under a different major.
type ReparentTag struct {
	Tag      string
	NewMajor string
}

// ImportRemote replaces the document with a remote-sourced snapshot. The
// snapshot's own timestamps are trusted when present: its updatedAt
// originates from a prior accepted save.
type ImportRemote struct {
	Doc *Project
}

// ImportFile replaces the document with a user-supplied file. The result is
// treated as a fresh local edit, so updatedAt is always restamped while
// createdAt is preserved when present.
type ImportFile struct {
	Doc *Project
}

// Reset replaces the document with a fresh empty project keeping the current
// model name and grid dimensions.
type Reset struct{}

func (UpsertAnnotation) isAction() {}
func (DeleteAnnotation) isAction() {}
func (AddTag) isAction()           {}
func (RemoveTag) isAction()        {}
func (DeleteTopic) isAction()      {}
func (ReparentTag) isAction()      {}
func (ImportRemote) isAction()     {}
func (ImportFile) isAction()       {}
func (Reset) isAction()            {}

// Reduce applies an action to the document and returns the next version.
// It is pure: the input document is never mutated, and actions that change
// nothing return it unchanged without bumping updatedAt. Every accepted
// mutation stamps a strictly newer updatedAt.
func Reduce(p *Project, action Action, now time.Time) *Project {
	switch act := action.(type) {
	case UpsertAnnotation:
		return reduceUpsert(p, act.Annotation, now)
	case DeleteAnnotation:
		return reduceDeleteAnnotation(p, HeadKey(act.Layer, act.Head), now)
	case AddTag:
		return reduceAddTag(p, NormalizeTag(act.Tag), now)
	case RemoveTag:
		return reduceRemoveTags(p, []string{NormalizeTag(act.Tag)}, now)
	case DeleteTopic:
		return reduceDeleteTopic(p, NormalizeTopic(act.Major), now)
	case ReparentTag:
		return reduceReparent(p, NormalizeTag(act.Tag), NormalizeTopic(act.NewMajor), now)
	case ImportRemote:
		return reduceImportRemote(p, act.Doc, now)
	case ImportFile:
		return reduceImportFile(p, act.Doc, now)
	case Reset:
		return New(p.ModelName, p.NumLayers, p.NumHeads, now)
	default:
		return p
	}
}

func reduceUpsert(p *Project, ann Annotation, now time.Time) *Project {
	if ann.Layer < 0 || ann.Layer >= p.NumLayers || ann.Head < 0 || ann.Head >= p.NumHeads {
		return p
	}

	tags := make([]string, 0, len(ann.Tags))
	for _, tag := range ann.Tags {
		tag = NormalizeTag(tag)
		if tag != "" && !containsTag(tags, tag) {
			tags = append(tags, tag)
		}
	}
	var descs map[string]string
	for tag, desc := range ann.Descriptions {
		tag = NormalizeTag(tag)
		if !containsTag(tags, tag) {
			continue
		}
		if descs == nil {
			descs = make(map[string]string)
		}
		if _, exists := descs[tag]; !exists {
			descs[tag] = desc
		}
	}

	next := p.Clone()
	next.Annotations[HeadKey(ann.Layer, ann.Head)] = Annotation{
		Layer:        ann.Layer,
		Head:         ann.Head,
		Tags:         tags,
		Descriptions: descs,
	}
	for _, tag := range tags {
		if !containsTag(next.Tags, tag) {
			next.Tags = append(next.Tags, tag)
		}
	}
	next.UpdatedAt = StampAfter(p.UpdatedAt, now)
	return next
}

func reduceDeleteAnnotation(p *Project, key string, now time.Time) *Project {
	if _, ok := p.Annotations[key]; !ok {
		return p
	}
	next := p.Clone()
	delete(next.Annotations, key)
	next.UpdatedAt = StampAfter(p.UpdatedAt, now)
	return next
}

func reduceAddTag(p *Project, tag string, now time.Time) *Project {
	if tag == "" || containsTag(p.Tags, tag) {
		return p
	}
	next := p.Clone()
	next.Tags = append(next.Tags, tag)
	next.UpdatedAt = StampAfter(p.UpdatedAt, now)
	return next
}

func reduceDeleteTopic(p *Project, major string, now time.Time) *Project {
	if major == "" {
		return p
	}
	removed := make([]string, 0)
	for _, tag := range p.Tags {
		if TopicMatches(tag, major) {
			removed = append(removed, tag)
		}
	}
	if len(removed) == 0 {
		return p
	}
	return reduceRemoveTags(p, removed, now)
}

func reduceRemoveTags(p *Project, removed []string, now time.Time) *Project {
	any := false
	for _, tag := range removed {
		if containsTag(p.Tags, tag) {
			any = true
			break
		}
	}
	if !any {
		return p
	}

	gone := make(map[string]bool, len(removed))
	for _, tag := range removed {
		gone[tag] = true
	}

	next := p.Clone()
	kept := next.Tags[:0]
	for _, tag := range next.Tags {
		if !gone[tag] {
			kept = append(kept, tag)
		}
	}
	next.Tags = kept

	for key, ann := range next.Annotations {
		keptTags := ann.Tags[:0]
		for _, tag := range ann.Tags {
			if !gone[tag] {
				keptTags = append(keptTags, tag)
			}
		}
		ann.Tags = keptTags
		for tag := range ann.Descriptions {
			if gone[tag] {
				delete(ann.Descriptions, tag)
			}
		}
		if len(ann.Descriptions) == 0 {
			ann.Descriptions = nil
		}
		next.Annotations[key] = ann
	}

	next.UpdatedAt = StampAfter(p.UpdatedAt, now)
	return next
}

func reduceReparent(p *Project, oldTag, newMajor string, now time.Time) *Project {
	_, minor := SplitTag(oldTag)
	if minor == "" || newMajor == "" {
		return p
	}
	newTag := newMajor + "/" + minor
	if newTag == oldTag {
		return p
	}

	next := p.Clone()

	// Rebuild the tag list: drop the old tag, then add the target major and
	// the new tag unless some other entry already carries them.
	tags := make([]string, 0, len(next.Tags)+2)
	for _, tag := range next.Tags {
		if tag != oldTag {
			tags = append(tags, tag)
		}
	}
	if !containsTag(tags, newMajor) {
		tags = append(tags, newMajor)
	}
	if !containsTag(tags, newTag) {
		tags = append(tags, newTag)
	}
	next.Tags = tags

	for key, ann := range next.Annotations {
		remapped := make([]string, 0, len(ann.Tags))
		for _, tag := range ann.Tags {
			if tag == oldTag {
				tag = newTag
			}
			if !containsTag(remapped, tag) {
				remapped = append(remapped, tag)
			}
		}
		ann.Tags = remapped

		if desc, ok := ann.Descriptions[oldTag]; ok {
			// First-seen description wins: an existing description for the
			// new tag is never overwritten by the reparented one.
			if _, taken := ann.Descriptions[newTag]; !taken {
				ann.Descriptions[newTag] = desc
			}
			delete(ann.Descriptions, oldTag)
		}
		if len(ann.Descriptions) == 0 {
			ann.Descriptions = nil
		}
		next.Annotations[key] = ann
	}

	next.UpdatedAt = StampAfter(p.UpdatedAt, now)
	return next
}

func reduceImportRemote(p *Project, doc *Project, now time.Time) *Project {
	next := doc.Clone()
	if next.CreatedAt == "" {
		next.CreatedAt = Stamp(now)
	}
	if next.UpdatedAt == "" {
		next.UpdatedAt = Stamp(now)
	}
	return next
}

func reduceImportFile(p *Project, doc *Project, now time.Time) *Project {
	next := doc.Clone()
	if next.CreatedAt == "" {
		next.CreatedAt = Stamp(now)
	}
	// Grid dimensions are fixed at load time; a file that omits them
	// inherits the current grid.
	if next.NumLayers == 0 {
		next.NumLayers = p.NumLayers
	}
	if next.NumHeads == 0 {
		next.NumHeads = p.NumHeads
	}
	next.UpdatedAt = StampAfter(p.UpdatedAt, now)
	return next
}
