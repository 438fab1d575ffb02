package news

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when an article or settings row does not exist.
var ErrNotFound = errors.New("not found")

// Category is one of the portal's fixed article sections.
type Category string

const (
	CategoryPolitics Category = "Politik & Pemerintahan"
	CategoryServices Category = "Pelayanan Publik"
	CategoryLaw      Category = "Hukum & Keadilan"
	CategoryEconomy  Category = "Ekonomi Rakyat"
	CategoryCulture  Category = "Budaya"
	CategoryTourism  Category = "Destinasi Wisata"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryPolitics,
	CategoryServices,
	CategoryLaw,
	CategoryEconomy,
	CategoryCulture,
	CategoryTourism,
}

// ParseCategory matches s against the known categories.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Article is a stored news article. Content holds HTML.
type Article struct {
	ID                  string    `json:"id"`
	Title               string    `json:"title"`
	Slug                string    `json:"slug"`
	Summary             string    `json:"summary"`
	Content             string    `json:"content"`
	Category            Category  `json:"category"`
	ImageURL            string    `json:"imageUrl"`
	AdditionalImageURLs []string  `json:"additionalImageUrls,omitempty"`
	Author              string    `json:"author"`
	CreatedAt           time.Time `json:"createdAt"`
	IsBreaking          bool      `json:"isBreaking"`
	Views               int       `json:"views"`
}

// NewArticle is the input for CreateArticle. An empty Slug is synthesized from the title.
type NewArticle struct {
	Title               string   `json:"title"`
	Slug                string   `json:"slug"`
	Summary             string   `json:"summary"`
	Content             string   `json:"content"`
	Category            Category `json:"category"`
	ImageURL            string   `json:"imageUrl"`
	AdditionalImageURLs []string `json:"additionalImageUrls,omitempty"`
	Author              string   `json:"author"`
	IsBreaking          bool     `json:"isBreaking"`
}

// Validate checks the fields every stored article must carry.
func (n NewArticle) Validate() error {
	if n.Title == "" {
		return errors.New("article title is required")
	}
	if n.Content == "" {
		return errors.New("article content is required")
	}
	if _, err := ParseCategory(string(n.Category)); err != nil {
		return err
	}
	return nil
}

// Settings holds site-wide options editable from the admin panel.
type Settings struct {
	SiteName            string `json:"siteName"`
	SiteDescription     string `json:"siteDescription"`
	AISystemInstruction string `json:"aiSystemInstruction"`
	AIAPIKey            string `json:"aiApiKey,omitempty"`
}

// DefaultSettings is used until an admin saves settings.
func DefaultSettings() Settings {
	return Settings{
		SiteName:            "PamongRakyat",
		SiteDescription:     "Suara Hati Nurani Rakyat",
		AISystemInstruction: "Anda adalah redaktur senior portal berita PamongRakyat. Gaya bahasa Anda adalah jurnalisme investigasi yang tajam, kritis, namun tetap objektif dan menggunakan Bahasa Indonesia yang baku dan elegan.",
	}
}

// withDefaults fills empty fields from DefaultSettings.
func (s Settings) withDefaults() Settings {
	def := DefaultSettings()
	if s.SiteName == "" {
		s.SiteName = def.SiteName
	}
	if s.SiteDescription == "" {
		s.SiteDescription = def.SiteDescription
	}
	if s.AISystemInstruction == "" {
		s.AISystemInstruction = def.AISystemInstruction
	}
	return s
}
