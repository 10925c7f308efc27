package gemini

// Model describes one entry of the static backend catalog. Header is the
// x-goog-ext-525001261-jspb value the web frontend sends for that model; new
// models can be added by inspecting the header in browser DevTools.
type Model struct {
	Name   string
	Header string
}

// ModelUnspecified is the catalog sentinel. It is never listed and never
// sent; requests naming it (or any unknown model) fall back to the default
// model's header.
var ModelUnspecified = Model{Name: "unspecified"}

// DefaultModel is used when a request names a model the catalog does not know.
var DefaultModel = Model{
	Name:   "gemini-2.5-flash",
	Header: `[1,null,null,null,"71c2d248d3b102ff"]`,
}

var catalog = []Model{
	ModelUnspecified,
	DefaultModel,
	{Name: "gemini-2.5-pro", Header: `[1,null,null,null,"9c17b1863f581b8a"]`},
	{Name: "gemini-3-pro-preview", Header: `[1,null,null,null,"e6fa609c3fa255c0"]`},
	{Name: "gemini-3-flash-preview", Header: `[1,null,null,null,"4af6c7f5da75d65d"]`},
}

// Catalog returns every model except the unspecified sentinel, in declaration
// order.
func Catalog() []Model {
	models := make([]Model, 0, len(catalog)-1)
	for _, m := range catalog {
		if m.Name == ModelUnspecified.Name {
			continue
		}
		models = append(models, m)
	}
	return models
}

// HeaderFor returns the request header for a model name, falling back to the
// default model when the name is unknown or unspecified.
func HeaderFor(name string) string {
	for _, m := range catalog {
		if m.Name == name && m.Header != "" {
			return m.Header
		}
	}
	return DefaultModel.Header
}
