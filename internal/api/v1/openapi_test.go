package apiv1

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadDocument(t *testing.T) *openapi3.T {
	t.Helper()
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile("../../../public/docs/v1/openapi.yml")
	require.NoError(t, err)
	require.NoError(t, doc.Validate(context.Background()))
	return doc
}

// every route RegisterHandlers installs must be documented and vice versa
func TestOpenAPIDocumentMatchesRoutes(t *testing.T) {
	doc := loadDocument(t)

	app := fiber.New()
	RegisterHandlers(app, NewAPIServer(), Middlewares{})

	registered := map[string]bool{}
	for _, r := range app.GetRoutes(true) {
		if r.Method == http.MethodHead || r.Method == "USE" {
			continue
		}
		registered[r.Method+" "+toOpenAPIPath(r.Path)] = true
	}

	documented := map[string]bool{}
	for path, item := range doc.Paths.Map() {
		for method := range item.Operations() {
			documented[method+" "+path] = true
		}
	}

	assert.Equal(t, documented, registered)
}

func TestGetPing(t *testing.T) {
	app := fiber.New()
	RegisterHandlers(app, NewAPIServer(), Middlewares{})

	resp, err := app.Test(httpRequest(http.MethodGet, "/ping"), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func toOpenAPIPath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		if strings.HasPrefix(part, ":") {
			parts[i] = "{" + strings.TrimPrefix(part, ":") + "}"
		}
	}
	return strings.Join(parts, "/")
}

func httpRequest(method, target string) *http.Request {
	req, _ := http.NewRequest(method, target, nil)
	return req
}
