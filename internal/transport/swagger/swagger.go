package swagger

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	httpSwagger "github.com/swaggo/http-swagger"
)

//go:embed openapi.yml
var specYAML []byte

// Docs serves the embedded OpenAPI document and the Swagger UI.
type Docs struct {
	spec []byte
	doc  *openapi3.T
}

// NewDocs parses and validates the embedded document so a broken spec fails at startup.
func NewDocs(ctx context.Context) (*Docs, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx

	doc, err := loader.LoadFromData(specYAML)
	if err != nil {
		return nil, fmt.Errorf("load openapi spec: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate openapi spec: %w", err)
	}

	return &Docs{spec: specYAML, doc: doc}, nil
}

// Paths lists every documented path template.
func (d *Docs) Paths() []string {
	return d.doc.Paths.InMatchingOrder()
}

func (d *Docs) ServeSpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.Write(d.spec)
}

func (d *Docs) UI() http.Handler {
	return httpSwagger.Handler(
		httpSwagger.URL("/openapi.yml"),
	)
}
