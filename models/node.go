package models

import (
	"time"

	"github.com/ammiranda/hierarchy_service/store"
)

// NodeRef is the minimal identification of a node, used for ancestor paths.
type NodeRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Node is the caller-visible shape of a hierarchy node, returned by every
// write operation and by reads.
type Node struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ParentID    *int64    `json:"parentId"`
	Depth       int       `json:"depth"`
	ChildCount  int       `json:"childCount"`
	HasChildren bool      `json:"hasChildren"`
	Ancestors   []NodeRef `json:"ancestors"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Version     int64     `json:"version"`
}

// NodeSummary is a compact listing shape used for traversal results
// (children, descendants, breadcrumbs) and for cached snapshots.
type NodeSummary struct {
	ID       int64  `json:"id" dynamodbav:"id"`
	Name     string `json:"name" dynamodbav:"name"`
	ParentID *int64 `json:"parentId" dynamodbav:"parentId"`
	Depth    int    `json:"depth" dynamodbav:"depth"`
	Version  int64  `json:"version" dynamodbav:"version"`
}

// NewNodeSummary builds a summary from a stored record.
func NewNodeSummary(record *store.Node) NodeSummary {
	return NodeSummary{
		ID:       record.ID,
		Name:     record.Name,
		ParentID: record.ParentID,
		Depth:    record.Depth,
		Version:  record.Version,
	}
}

// NewNodeSummaries converts a slice of stored records.
func NewNodeSummaries(records []*store.Node) []NodeSummary {
	summaries := make([]NodeSummary, 0, len(records))
	for _, r := range records {
		summaries = append(summaries, NewNodeSummary(r))
	}
	return summaries
}

// NewNode builds the caller-visible node from a stored record, its ancestor
// chain (root first) and its direct child count.
func NewNode(record *store.Node, ancestors []*store.Node, childCount int) *Node {
	refs := make([]NodeRef, 0, len(ancestors))
	for _, a := range ancestors {
		refs = append(refs, NodeRef{ID: a.ID, Name: a.Name})
	}
	return &Node{
		ID:          record.ID,
		Name:        record.Name,
		Description: record.Description,
		ParentID:    record.ParentID,
		Depth:       record.Depth,
		ChildCount:  childCount,
		HasChildren: childCount > 0,
		Ancestors:   refs,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
		Version:     record.Version,
	}
}
