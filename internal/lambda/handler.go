package lambda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/ammiranda/hierarchy_service/cache"
	"github.com/ammiranda/hierarchy_service/hierarchy"
	"github.com/ammiranda/hierarchy_service/models"

	"github.com/aws/aws-lambda-go/events"
)

// Handler adapts API Gateway events to the hierarchy engine. It is the
// Lambda-hosted flavor of the access facade; the route surface mirrors the
// gin handlers.
type Handler struct {
	engine    *hierarchy.Engine
	traversal *hierarchy.Traversal
}

// NewHandler creates a new Handler with the given engine and traversal service
func NewHandler(engine *hierarchy.Engine, traversal *hierarchy.Traversal) *Handler {
	return &Handler{
		engine:    engine,
		traversal: traversal,
	}
}

// Handle processes API Gateway events
func (h *Handler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	switch {
	case request.HTTPMethod == "POST" && request.Resource == "/api/nodes":
		return h.handleCreateNode(ctx, request)
	case request.HTTPMethod == "GET" && request.Resource == "/api/nodes":
		return h.handleListRoots(ctx)
	case request.HTTPMethod == "GET" && request.Resource == "/api/nodes/{id}":
		return h.handleGetNode(ctx, request)
	case request.HTTPMethod == "GET" && request.Resource == "/api/nodes/{id}/descendants":
		return h.handleGetDescendants(ctx, request)
	case request.HTTPMethod == "DELETE" && request.Resource == "/api/nodes/{id}":
		return h.handleDeleteNode(ctx, request)
	default:
		return errorResponse(404, "Not found"), nil
	}
}

func (h *Handler) handleCreateNode(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req models.CreateNodeRequest
	if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
		return errorResponse(400, fmt.Sprintf("Invalid request: %v", err)), nil
	}
	if err := req.Validate(); err != nil {
		return errorResponse(400, err.Error()), nil
	}

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
		return engineErrorResponse(err), nil
	}

	cache.InvalidateCache()

	return jsonResponse(201, node), nil
}

func (h *Handler) handleListRoots(ctx context.Context) (events.APIGatewayProxyResponse, error) {
	roots, err := h.traversal.Roots(ctx)
	if err != nil {
		return engineErrorResponse(err), nil
	}
	return jsonResponse(200, models.NewNodeSummaries(roots)), nil
}

func (h *Handler) handleGetNode(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	id, ok := pathID(request)
	if !ok {
		return errorResponse(400, "invalid node id"), nil
	}

	node, err := h.engine.Get(ctx, id)
	if err != nil {
		return engineErrorResponse(err), nil
	}
	return jsonResponse(200, node), nil
}

func (h *Handler) handleGetDescendants(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	id, ok := pathID(request)
	if !ok {
		return errorResponse(400, "invalid node id"), nil
	}

	if cached, found := cache.GetDescendants(id); found {
		return jsonResponse(200, cached), nil
	}

	descendants, err := h.traversal.Descendants(ctx, id)
	if err != nil {
		return engineErrorResponse(err), nil
	}

	summaries := models.NewNodeSummaries(descendants)
	cache.SetDescendants(id, summaries)

	return jsonResponse(200, summaries), nil
}

func (h *Handler) handleDeleteNode(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	id, ok := pathID(request)
	if !ok {
		return errorResponse(400, "invalid node id"), nil
	}

	if err := h.engine.Delete(ctx, id); err != nil {
		return engineErrorResponse(err), nil
	}

	cache.InvalidateCache()

	return events.APIGatewayProxyResponse{StatusCode: 204}, nil
}

func pathID(request events.APIGatewayProxyRequest) (int64, bool) {
	id, err := strconv.ParseInt(request.PathParameters["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func jsonResponse(status int, body any) events.APIGatewayProxyResponse {
	data, err := json.Marshal(body)
	if err != nil {
		return errorResponse(500, fmt.Sprintf("Failed to marshal response: %v", err))
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Body:       string(data),
	}
}

func errorResponse(status int, message string) events.APIGatewayProxyResponse {
	body, _ := json.Marshal(map[string]string{"error": message})
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Body:       string(body),
	}
}

func engineErrorResponse(err error) events.APIGatewayProxyResponse {
	switch {
	case errors.Is(err, hierarchy.ErrNodeNotFound):
		return errorResponse(404, "node not found")
	case errors.Is(err, hierarchy.ErrParentNotFound):
		return errorResponse(404, "parent node not found")
	case errors.Is(err, hierarchy.ErrSelfParent):
		return errorResponse(409, "a node cannot be its own parent")
	case errors.Is(err, hierarchy.ErrCycle):
		return errorResponse(409, "a node cannot be moved under one of its own descendants")
	case errors.Is(err, hierarchy.ErrVersionConflict):
		return errorResponse(409, "the data changed concurrently, please retry")
	case errors.Is(err, hierarchy.ErrInvalidArgument):
		return errorResponse(400, "invalid argument")
	default:
		return errorResponse(500, "internal error")
	}
}
