// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package switcher

import (
	"slices"
	"strconv"

	"github.com/olegiv/themeswitcher/internal/model"
)

// ContentContext identifies what the current request renders: a singular
// content item, a taxonomy term archive, or neither.
type ContentContext struct {
	PostID   int64  `json:"post_id,omitempty"`
	PostType string `json:"post_type,omitempty"`
	TermID   int64  `json:"term_id,omitempty"`
	Taxonomy string `json:"taxonomy,omitempty"`
}

// Singular returns the context for a single content item.
func Singular(postID int64, postType string) ContentContext {
	return ContentContext{PostID: postID, PostType: postType}
}

// TermArchive returns the context for a taxonomy term archive.
func TermArchive(termID int64, taxonomy string) ContentContext {
	return ContentContext{TermID: termID, Taxonomy: taxonomy}
}

// IsSingular reports whether the context is a single content item. A
// singular context ignores any term fields.
func (c ContentContext) IsSingular() bool {
	return c.PostType != "" || c.PostID > 0
}

// IsTaxonomy reports whether the context is a taxonomy archive.
func (c ContentContext) IsTaxonomy() bool {
	return !c.IsSingular() && (c.Taxonomy != "" || c.TermID > 0)
}

// item returns the object type and id carrying a per-item override, if any.
func (c ContentContext) item() (objectType string, id int64, ok bool) {
	switch {
	case c.IsSingular() && c.PostID > 0:
		return model.ObjectPost, c.PostID, true
	case c.IsTaxonomy() && c.TermID > 0:
		return model.ObjectTerm, c.TermID, true
	}
	return "", 0, false
}

// String is used in debug logs.
func (c ContentContext) String() string {
	switch {
	case c.IsSingular():
		return "post:" + strconv.FormatInt(c.PostID, 10) + "/" + c.PostType
	case c.IsTaxonomy():
		return "term:" + strconv.FormatInt(c.TermID, 10) + "/" + c.Taxonomy
	}
	return "none"
}

// Actor is the end user the request is rendered for, as reported by the host.
type Actor struct {
	Authenticated bool     `json:"authenticated"`
	Capabilities  []string `json:"capabilities,omitempty"`
}

// Can reports whether the actor holds capability.
func (a Actor) Can(capability string) bool {
	return slices.Contains(a.Capabilities, capability)
}
