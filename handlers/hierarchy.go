package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ammiranda/hierarchy_service/cache"
	"github.com/ammiranda/hierarchy_service/hierarchy"
	"github.com/ammiranda/hierarchy_service/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HierarchyHandler exposes the mutation engine and traversal service over
// HTTP. It validates caller-supplied identifiers and payloads, maps engine
// error kinds to HTTP outcomes and owns cache invalidation on mutation; it
// holds no state and enforces no hierarchy invariants itself.
type HierarchyHandler struct {
	engine    *hierarchy.Engine
	traversal *hierarchy.Traversal
	log       *zap.Logger
}

// NewHierarchyHandler creates a new HierarchyHandler instance
func NewHierarchyHandler(engine *hierarchy.Engine, traversal *hierarchy.Traversal, log *zap.Logger) *HierarchyHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &HierarchyHandler{
		engine:    engine,
		traversal: traversal,
		log:       log,
	}
}

// Register mounts all hierarchy routes on the given router group.
func (h *HierarchyHandler) Register(api *gin.RouterGroup) {
	api.GET("/nodes", h.ListRoots)
	api.POST("/nodes", h.CreateNode)
	api.GET("/nodes/:id", h.GetNode)
	api.PATCH("/nodes/:id", h.UpdateNode)
	api.DELETE("/nodes/:id", h.DeleteNode)
	api.POST("/nodes/:id/move", h.MoveNode)
	api.GET("/nodes/:id/children", h.GetChildren)
	api.GET("/nodes/:id/ancestors", h.GetAncestors)
	api.GET("/nodes/:id/descendants", h.GetDescendants)
	api.GET("/nodes/:id/breadcrumb", h.GetBreadcrumb)
}

// CreateNode creates a root node (no parentId) or a child node.
func (h *HierarchyHandler) CreateNode(c *gin.Context) {
	var req models.CreateNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	var (
		node *models.Node
		err  error
	)
	if req.ParentID > 0 {
		node, err = h.engine.CreateChild(ctx, req.ParentID, req.Name, req.Description)
	} else {
		node, err = h.engine.CreateRoot(ctx, req.Name, req.Description)
	}
	if err != nil {
		h.writeError(c, err)
		return
	}

	// Invalidate cache since we modified the hierarchy
	cache.InvalidateCache()

	c.JSON(http.StatusCreated, node)
}

// GetNode returns a single node with its ancestors and child count.
func (h *HierarchyHandler) GetNode(c *gin.Context) {
	id, ok := h.nodeID(c)
	if !ok {
		return
	}

	node, err := h.engine.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, node)
}

// ListRoots returns all root nodes.
func (h *HierarchyHandler) ListRoots(c *gin.Context) {
	roots, err := h.traversal.Roots(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewNodeSummaries(roots))
}

// UpdateNode renames a node or edits its description, guarded by the version
// the caller last observed.
func (h *HierarchyHandler) UpdateNode(c *gin.Context) {
	id, ok := h.nodeID(c)
	if !ok {
		return
	}

	var req models.UpdateNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	node, err := h.engine.Rename(c.Request.Context(), id, req.Version, req.Name, req.Description)
	if err != nil {
		h.writeError(c, err)
		return
	}

	cache.InvalidateCache()

	c.JSON(http.StatusOK, node)
}

// MoveNode re-parents a subtree.
func (h *HierarchyHandler) MoveNode(c *gin.Context) {
	id, ok := h.nodeID(c)
	if !ok {
		return
	}

	var req models.MoveNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	node, err := h.engine.Move(c.Request.Context(), id, req.NewParentID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	cache.InvalidateCache()

	c.JSON(http.StatusOK, node)
}

// DeleteNode deletes a node, promoting its children to the node's parent.
func (h *HierarchyHandler) DeleteNode(c *gin.Context) {
	id, ok := h.nodeID(c)
	if !ok {
		return
	}

	if err := h.engine.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}

	cache.InvalidateCache()

	c.Status(http.StatusNoContent)
}

// GetChildren returns the direct children of a node.
func (h *HierarchyHandler) GetChildren(c *gin.Context) {
	id, ok := h.nodeID(c)
	if !ok {
		return
	}

	children, err := h.traversal.Children(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"children":    models.NewNodeSummaries(children),
		"childCount":  len(children),
		"hasChildren": len(children) > 0,
	})
}

// GetAncestors returns the ancestor path of a node, root first.
func (h *HierarchyHandler) GetAncestors(c *gin.Context) {
	id, ok := h.nodeID(c)
	if !ok {
		return
	}

	ancestors, err := h.traversal.Ancestors(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewNodeSummaries(ancestors))
}

// GetDescendants returns the full subtree below a node as a point-in-time
// snapshot. Served from cache when possible.
func (h *HierarchyHandler) GetDescendants(c *gin.Context) {
	id, ok := h.nodeID(c)
	if !ok {
		return
	}

	if cached, found := cache.GetDescendants(id); found {
		c.JSON(http.StatusOK, cached)
		return
	}

	descendants, err := h.traversal.Descendants(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	summaries := models.NewNodeSummaries(descendants)
	cache.SetDescendants(id, summaries)

	c.JSON(http.StatusOK, summaries)
}

// GetBreadcrumb returns the full display path of a node, root first, ending
// with the node itself. Served from cache when possible.
func (h *HierarchyHandler) GetBreadcrumb(c *gin.Context) {
	id, ok := h.nodeID(c)
	if !ok {
		return
	}

	if cached, found := cache.GetBreadcrumb(id); found {
		c.JSON(http.StatusOK, cached)
		return
	}

	breadcrumb, err := h.traversal.Breadcrumb(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	summaries := models.NewNodeSummaries(breadcrumb)
	cache.SetBreadcrumb(id, summaries)

	c.JSON(http.StatusOK, summaries)
}

// nodeID parses the :id path parameter; a malformed id is rejected before
// touching the engine.
func (h *HierarchyHandler) nodeID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid node id"})
		return 0, false
	}
	return id, true
}

// writeError maps engine error kinds to caller-visible outcomes.
func (h *HierarchyHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, hierarchy.ErrNodeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "node not found"})
	case errors.Is(err, hierarchy.ErrParentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "parent node not found"})
	case errors.Is(err, hierarchy.ErrSelfParent):
		c.JSON(http.StatusConflict, gin.H{"error": "a node cannot be its own parent"})
	case errors.Is(err, hierarchy.ErrCycle):
		c.JSON(http.StatusConflict, gin.H{"error": "a node cannot be moved under one of its own descendants"})
	case errors.Is(err, hierarchy.ErrVersionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "the data changed concurrently, please retry"})
	case errors.Is(err, hierarchy.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid argument"})
	default:
		// HierarchyCorrupted and unexpected store failures surface as a
		// generic internal error; full detail stays server-side.
		h.log.Error("internal error handling hierarchy request",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
