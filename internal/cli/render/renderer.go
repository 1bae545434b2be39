package render

// Renderer writes a use case result for the operator. Renderers never fail
// on partial results; a nil result renders nothing.
type Renderer[T any] interface {
	Render(result T) error
}
