package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultAsset is played for unknown or blank vendor names.
const DefaultAsset = "/audio/felipe.mp3"

// Catalog maps vendor names to audio clip references.
type Catalog struct {
	Default string            `yaml:"default"`
	Vendors map[string]string `yaml:"vendors"`
}

// DefaultCatalog returns the built-in vendor roster.
func DefaultCatalog() Catalog {
	return Catalog{
		Default: DefaultAsset,
		Vendors: map[string]string{
			"GUILHERME RODRIGUES": "/audio/guilherme.mp3",
			"LUIS TIZONI":         "/audio/luis.mp3",
			"ALINE GOMES":         "/audio/felipe.mp3",
			"MARCIA MELLER":       "/audio/marcia.mp3",
			"JONATHAS RODRIGUES":  "/audio/jonathas.mp3",
			"PAULO FAGUNDES":      "/audio/fagundes.mp3",
			"RAFAEL AZEVEDO":      "/audio/rafael.mp3",
			"GB":                  "/audio/felipe.mp3",
			"GILIARD CAMPOS":      "/audio/giliard.mp3",
			"SABINO BRESOLIN":     "/audio/6+Sabino.mp3",
			"GUILHERME FRANCA":    "/audio/guilherme.mp3",
			"LEONARDO MACHADO":    "/audio/leonardo.mp3",
			"EDUARDO SANTOS":      "/audio/eduardo.mp3",
			"RICARDO MULLER":      "/audio/ricardo.mp3",
			"BRUNA SIQUEIRA":      "/audio/felipe.mp3",
			"REBECA MOURA":        "/audio/felipe.mp3",
			"GABRIEL AIRES":       "/audio/gabriel.mp3",
			"GELSON MACHADO":      "/audio/felipe.mp3",
			"GASPAR TARTARI":      "/audio/gaspar.mp3",
			"FERNANDO SERAFIM":    "/audio/fernando.mp3",
			"TREVISANI":           "/audio/felipe.mp3",
			"DAIANE CAMPOS":       "/audio/daiane.mp3",
			"JULIA TARTARI":       "/audio/felipe.mp3",
			"FELIPE TARTARI":      "/audio/felipe.mp3",
			"BETO TARTARI":        "/audio/beto.mp3",
			"DANIEL MACCARI":      "/audio/felipe.mp3",
		},
	}
}

// LoadCatalog reads a YAML catalog file. An empty default falls back to
// DefaultAsset.
func LoadCatalog(path string) (Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	if strings.TrimSpace(c.Default) == "" {
		c.Default = DefaultAsset
	}
	return c, nil
}

// FilePath maps an asset reference such as "/audio/luis.mp3" to a file
// under dir. References cannot escape dir.
func FilePath(dir, ref string) string {
	clean := filepath.Clean("/" + strings.TrimPrefix(ref, "/"))
	return filepath.Join(dir, filepath.FromSlash(clean))
}
