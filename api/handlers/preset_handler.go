package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/devadigapratham/filavault/api/models"
	"github.com/devadigapratham/filavault/importer"
	"github.com/devadigapratham/filavault/preset"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	archivePrefix   = "archives/"
	inventoryBackup = "inventory"
)

// GetPresets returns the user library followed by the built-in presets
func (h *Handler) GetPresets(c *gin.Context) {
	c.JSON(http.StatusOK, preset.Library(h.Node.GetFSM().GetPresets()))
}

// MatchPreset returns the preset for a brand and type
func (h *Handler) MatchPreset(c *gin.Context) {
	brand, typ := c.Query("brand"), c.Query("type")
	if brand == "" || typ == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "brand and type are required"})
		return
	}

	p := preset.FindExact(preset.Library(h.Node.GetFSM().GetPresets()), brand, typ)
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no preset for this brand and type"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// UpsertPreset creates a user preset or replaces the one with the same brand and type
func (h *Handler) UpsertPreset(c *gin.Context) {
	var p models.Preset
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(p.Brand) == "" || strings.TrimSpace(p.Type) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "brand and type are required"})
		return
	}
	if p.DefaultPlate == "" {
		p.DefaultPlate = models.PlateTextured
	}
	if p.BedSettings.IsZero() {
		p.BedSettings = models.DefaultBedSettings()
	}
	if _, err := models.ParsePlateType(string(p.DefaultPlate)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Built-in ids are reserved
	if p.ID == "" || preset.IsBuiltin(p.ID) {
		p.ID = h.NewID()
	}
	if p.CreatedAt == "" {
		p.CreatedAt = h.timestamp()
	}
	p.Source = models.SourceUser

	if _, ok := h.apply(c, &models.Command{Type: models.UpsertPreset, Preset: &p}, http.StatusInternalServerError); !ok {
		return
	}
	c.JSON(http.StatusOK, p)
}

// DeletePreset removes a user preset
func (h *Handler) DeletePreset(c *gin.Context) {
	id := c.Param("id")
	if preset.IsBuiltin(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "built-in presets cannot be deleted"})
		return
	}

	if _, ok := h.apply(c, &models.Command{Type: models.DeletePreset, ID: id}, http.StatusInternalServerError); !ok {
		return
	}
	c.Status(http.StatusNoContent)
}

// ForkPreset copies any preset into the user library
func (h *Handler) ForkPreset(c *gin.Context) {
	src, ok := h.lookupPreset(c)
	if !ok {
		return
	}

	forked := preset.Fork(src, h.NewID(), h.Now())
	if _, ok := h.apply(c, &models.Command{Type: models.UpsertPreset, Preset: &forked}, http.StatusInternalServerError); !ok {
		return
	}
	c.JSON(http.StatusCreated, forked)
}

// CountMatches reports how many spools applying a preset would update
func (h *Handler) CountMatches(c *gin.Context) {
	p, ok := h.lookupPreset(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": preset.CountMatches(p, h.Node.GetFSM().GetFilaments())})
}

// ApplyPreset overwrites the print settings of every matching spool. The
// inventory is backed up once per day before the first overwrite.
func (h *Handler) ApplyPreset(c *gin.Context) {
	p, ok := h.lookupPreset(c)
	if !ok {
		return
	}

	inventory := h.Node.GetFSM().GetFilaments()
	if preset.CountMatches(p, inventory) == 0 {
		c.JSON(http.StatusOK, gin.H{"updated": 0, "message": "no matches found"})
		return
	}

	now := h.Now()
	if h.Store != nil {
		data, err := json.Marshal(inventory)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		wrote, err := h.Store.Backup(inventoryBackup, now, data)
		if err != nil {
			h.Logger.Error("inventory backup failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("backup failed: %v", err)})
			return
		}
		if wrote {
			h.Logger.Info("inventory backed up", zap.Int("spools", len(inventory)))
		}
	}

	res, ok := h.apply(c, &models.Command{Type: models.ApplyPreset, Preset: &p, At: models.Timestamp(now)}, http.StatusInternalServerError)
	if !ok {
		return
	}

	updated := updatedCount(res)
	if updated == 0 {
		c.JSON(http.StatusOK, gin.H{"updated": 0, "message": "no matches found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// ImportPresets accepts a multipart upload of a .bbsflmt bundle or a JSON file
func (h *Handler) ImportPresets(c *gin.Context) {
	if h.importLimiter != nil && !h.importLimiter.Allow() {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many imports, try again later"})
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file uploaded"})
		return
	}
	name := filepath.Base(fh.Filename)
	if !importer.Supported(name) {
		c.JSON(http.StatusBadRequest, gin.H{"error": importer.ErrUnsupportedFormat.Error()})
		return
	}
	if fh.Size > h.maxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	file, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer file.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(file, h.maxUpload)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	entries, err := importer.Extract(name, buf.Bytes())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if h.Store != nil {
		if err := h.Store.Put(archivePrefix+name, buf.Bytes()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	h.importEntries(c, []importSource{{name: name, entries: entries}})
}

// RescanPresets re-imports every stored archive
func (h *Handler) RescanPresets(c *gin.Context) {
	if h.Store == nil {
		c.JSON(http.StatusOK, importResponse{Presets: []models.Preset{}, Skipped: []importer.Skip{}})
		return
	}

	keys, err := h.Store.List(archivePrefix)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var sources []importSource
	var unreadable []importer.Skip
	for _, key := range keys {
		name := strings.TrimPrefix(key, archivePrefix)
		data, err := h.Store.Get(key)
		if err == nil {
			var entries []importer.Entry
			entries, err = importer.Extract(name, data)
			if err == nil {
				sources = append(sources, importSource{name: name, entries: entries})
				continue
			}
		}
		h.Logger.Warn("skipping stored archive", zap.String("archive", name), zap.Error(err))
		unreadable = append(unreadable, importer.Skip{Name: name, Reason: err.Error()})
	}

	h.importEntries(c, sources, unreadable...)
}

type importSource struct {
	name    string
	entries []importer.Entry
}

type importResponse struct {
	Imported int             `json:"imported"`
	Skipped  []importer.Skip `json:"skipped"`
	Presets  []models.Preset `json:"presets"`
}

func (h *Handler) importEntries(c *gin.Context, sources []importSource, skipped ...importer.Skip) {
	var entries []importer.Entry
	for _, src := range sources {
		entries = append(entries, src.entries...)
	}

	res := h.Importer.Import(entries)
	resp := importResponse{
		Imported: len(res.Presets),
		Skipped:  append(append([]importer.Skip{}, skipped...), res.Skipped...),
		Presets:  res.Presets,
	}

	if len(res.Presets) > 0 {
		if _, ok := h.apply(c, &models.Command{Type: models.ImportPresets, Presets: res.Presets}, http.StatusInternalServerError); !ok {
			return
		}
	}

	h.Logger.Info("presets imported",
		zap.Int("sources", len(sources)),
		zap.Int("imported", resp.Imported),
		zap.Int("skipped", len(resp.Skipped)))
	c.JSON(http.StatusOK, resp)
}

// lookupPreset resolves :id against the user library and the built-ins
func (h *Handler) lookupPreset(c *gin.Context) (models.Preset, bool) {
	p := preset.FindByID(preset.Library(h.Node.GetFSM().GetPresets()), c.Param("id"))
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "preset not found"})
		return models.Preset{}, false
	}
	return *p, true
}
