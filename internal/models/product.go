package models

import "strings"

// Product is a furniture catalog entry indexed in the vector store.
type Product struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Category    string `yaml:"category" json:"category"`
	Style       string `yaml:"style" json:"style"`
	RoomType    string `yaml:"room_type" json:"room_type"`
}

// Metadata returns the product fields stored next to the embedded description.
func (p Product) Metadata() map[string]string {
	return map[string]string{
		"name":      p.Name,
		"category":  p.Category,
		"style":     p.Style,
		"room_type": p.RoomType,
	}
}

// EmbeddingText is the text a product is indexed by: name, category and room ahead of the description.
// The description alone stays the stored document.
func (p Product) EmbeddingText() string {
	parts := make([]string, 0, 4)
	for _, s := range []string{p.Name, p.Category, p.RoomType, p.Description} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, strings.TrimSuffix(s, "."))
		}
	}
	return strings.Join(parts, ". ")
}

// EmbeddedProduct pairs a product with the embedding of its EmbeddingText.
type EmbeddedProduct struct {
	Product
	Embedding []float32
}
