package project

import (
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeTopic canonicalizes a single topic name: trim, lowercase, and
// collapse internal whitespace runs to single hyphens.
func NormalizeTopic(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return whitespaceRun.ReplaceAllString(name, "-")
}

// NormalizeTag canonicalizes a tag string. Two-part tags normalize the major
// and minor independently and rejoin with "/".
func NormalizeTag(tag string) string {
	major, minor, ok := strings.Cut(tag, "/")
	if !ok {
		return NormalizeTopic(tag)
	}
	return NormalizeTopic(major) + "/" + NormalizeTopic(minor)
}

// SplitTag returns the major and minor parts of a tag. Minor is empty for
// bare major tags.
func SplitTag(tag string) (major, minor string) {
	major, minor, _ = strings.Cut(tag, "/")
	return major, minor
}

// TopicMatches reports whether tag belongs to the given major topic, either
// as the bare major itself or as one of its subtopics.
func TopicMatches(tag, major string) bool {
	return tag == major || strings.HasPrefix(tag, major+"/")
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
