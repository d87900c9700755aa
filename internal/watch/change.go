package watch

import (
	"strings"

	"git.home.luguber.info/inful/jellsite/internal/config"
	"git.home.luguber.info/inful/jellsite/internal/content"
)

// Kind classifies a changed path by the part of the site it affects.
type Kind string

const (
	KindConfig  Kind = "config"
	KindLayout  Kind = "layout"
	KindInclude Kind = "include"
	KindData    Kind = "data"
	KindContent Kind = "content"
)

// Op is the coarse filesystem operation behind a change.
type Op string

const (
	OpCreate Op = "create"
	OpWrite  Op = "write"
	OpRemove Op = "remove"
	OpRename Op = "rename"
	// OpOverflow marks a lost-event condition; the changed set is unknown.
	OpOverflow Op = "overflow"
)

// Change is one changed path relative to the source root.
type Change struct {
	Path string `json:"path"`
	Op   Op     `json:"op"`
	Kind Kind   `json:"kind"`
}

// Classify returns the Kind of a slash-separated source-relative path.
func Classify(rel string) Kind {
	for _, name := range config.FileNames {
		if rel == name {
			return KindConfig
		}
	}
	first, _, _ := strings.Cut(rel, "/")
	switch first {
	case content.DirLayouts:
		return KindLayout
	case content.DirIncludes:
		return KindInclude
	case content.DirData:
		return KindData
	}
	return KindContent
}

// Affects reports whether any change in changes is of kind k.
func Affects(changes []Change, k Kind) bool {
	for _, c := range changes {
		if c.Kind == k || c.Op == OpOverflow {
			return true
		}
	}
	return false
}
