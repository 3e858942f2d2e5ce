package lambda

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/ammiranda/hierarchy_service/cache"
	"github.com/ammiranda/hierarchy_service/hierarchy"
	"github.com/ammiranda/hierarchy_service/models"
	"github.com/ammiranda/hierarchy_service/store"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHandler(t *testing.T) *Handler {
	s := store.NewMemoryStore()
	require.NoError(t, s.Initialize(context.Background()))

	require.NoError(t, cache.SetProvider(cache.NewMockCache()))
	t.Cleanup(cache.ResetProvider)

	engine := hierarchy.NewEngine(s, nil)
	traversal := hierarchy.NewTraversal(s, nil)
	return NewHandler(engine, traversal)
}

func createViaLambda(t *testing.T, h *Handler, name string, parentID int64) models.Node {
	t.Helper()
	body, err := json.Marshal(models.CreateNodeRequest{Name: name, ParentID: parentID})
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: "POST",
		Resource:   "/api/nodes",
		Body:       string(body),
	})
	require.NoError(t, err)
	require.Equal(t, 201, resp.StatusCode, "body: %s", resp.Body)

	var node models.Node
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &node))
	return node
}

func TestLambdaCreateAndGet(t *testing.T) {
	h := setupHandler(t)
	ctx := context.Background()

	root := createViaLambda(t, h, "root", 0)
	child := createViaLambda(t, h, "child", root.ID)
	assert.Equal(t, 1, child.Depth)

	resp, err := h.Handle(ctx, events.APIGatewayProxyRequest{
		HTTPMethod:     "GET",
		Resource:       "/api/nodes/{id}",
		PathParameters: map[string]string{"id": fmt.Sprintf("%d", child.ID)},
	})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var node models.Node
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &node))
	assert.Equal(t, child.ID, node.ID)
	assert.Equal(t, "child", node.Name)
}

func TestLambdaCreateValidation(t *testing.T) {
	h := setupHandler(t)

	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: "POST",
		Resource:   "/api/nodes",
		Body:       `{"description": "no name"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestLambdaListRoots(t *testing.T) {
	h := setupHandler(t)

	a := createViaLambda(t, h, "a", 0)
	createViaLambda(t, h, "child", a.ID)
	createViaLambda(t, h, "b", 0)

	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: "GET",
		Resource:   "/api/nodes",
	})
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var roots []models.NodeSummary
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &roots))
	assert.Len(t, roots, 2)
}

func TestLambdaGetDescendants(t *testing.T) {
	h := setupHandler(t)
	ctx := context.Background()

	root := createViaLambda(t, h, "root", 0)
	createViaLambda(t, h, "c1", root.ID)
	createViaLambda(t, h, "c2", root.ID)

	resp, err := h.Handle(ctx, events.APIGatewayProxyRequest{
		HTTPMethod:     "GET",
		Resource:       "/api/nodes/{id}/descendants",
		PathParameters: map[string]string{"id": fmt.Sprintf("%d", root.ID)},
	})
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var desc []models.NodeSummary
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &desc))
	assert.Len(t, desc, 2)
}

func TestLambdaDelete(t *testing.T) {
	h := setupHandler(t)
	ctx := context.Background()

	node := createViaLambda(t, h, "doomed", 0)

	resp, err := h.Handle(ctx, events.APIGatewayProxyRequest{
		HTTPMethod:     "DELETE",
		Resource:       "/api/nodes/{id}",
		PathParameters: map[string]string{"id": fmt.Sprintf("%d", node.ID)},
	})
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)

	resp, err = h.Handle(ctx, events.APIGatewayProxyRequest{
		HTTPMethod:     "GET",
		Resource:       "/api/nodes/{id}",
		PathParameters: map[string]string{"id": fmt.Sprintf("%d", node.ID)},
	})
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestLambdaUnknownRoute(t *testing.T) {
	h := setupHandler(t)

	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: "PUT",
		Resource:   "/api/unknown",
	})
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}
