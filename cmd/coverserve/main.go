package main

import (
	"bytes"
	"image"
	"image/png"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	covergen "github.com/coverforge/covergen"
)

type server struct {
	registry *covergen.TemplateRegistry
	engine   *covergen.Engine
}

func main() {
	templatesDir := os.Getenv("COVERGEN_TEMPLATES")
	if templatesDir == "" {
		templatesDir = "templates"
	}

	s := &server{
		registry: covergen.NewTemplateRegistry(),
		engine:   covergen.NewEngine(),
	}
	if err := s.registry.LoadWithDefault(templatesDir); err != nil {
		log.Println("Warning: failed to load some templates:", err)
	}

	r := gin.Default()
	api := r.Group("/api")
	{
		api.GET("/health", s.health)
		api.GET("/templates", s.listTemplates)
		api.POST("/preview", s.preview)
		api.POST("/render", s.render)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Println("starting server on http://localhost:" + port)
	if err := r.Run(":" + port); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

func (s *server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": covergen.Version})
}

func (s *server) listTemplates(c *gin.Context) {
	type info struct {
		Key  string   `json:"key"`
		Name string   `json:"name"`
		Size [2]int   `json:"size"`
		CSV  []string `json:"csv_header"`
	}
	var out []info
	for _, t := range s.registry.All() {
		out = append(out, info{
			Key:  t.Key,
			Name: t.Name,
			Size: [2]int{t.Size.W, t.Size.H},
			CSV:  covergen.CSVHeader(t),
		})
	}
	c.JSON(http.StatusOK, gin.H{"count": len(out), "templates": out})
}

// preview renders a reduced-resolution PNG; max_size query param caps the
// longer dimension (default 480).
func (s *server) preview(c *gin.Context) {
	var in covergen.RenderInput
	if err := c.BindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	maxSize := 480
	if v := c.Query("max_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			maxSize = n
		}
	}

	t, ok := s.registry.Get(in.TemplateKey)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown template " + in.TemplateKey})
		return
	}

	img, err := s.engine.BuildPreview(&in, t, maxSize)
	if img == nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		log.Println("preview rendered with element errors:", err)
	}
	writePNG(c, img)
}

// render runs the full-resolution pipeline and returns the PNG bytes.
func (s *server) render(c *gin.Context) {
	var in covergen.RenderInput
	if err := c.BindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	t, ok := s.registry.Get(in.TemplateKey)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown template " + in.TemplateKey})
		return
	}

	img, err := s.engine.Compose(t, &in)
	if img == nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		log.Println("render completed with element errors:", err)
	}
	writePNG(c, img)
}

func writePNG(c *gin.Context, img image.Image) {
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, img); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}
