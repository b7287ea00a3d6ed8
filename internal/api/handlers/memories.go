package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/memora/internal/models"
	"github.com/your-org/memora/internal/questions"
	"github.com/your-org/memora/internal/storage"
	"github.com/your-org/memora/pkg/dto"
)

type MemoryHandler struct {
	db        *storage.PostgresStore
	minio     *storage.MinIOStore
	questions *questions.Client
}

func NewMemoryHandler(db *storage.PostgresStore, minio *storage.MinIOStore, qc *questions.Client) *MemoryHandler {
	return &MemoryHandler{db: db, minio: minio, questions: qc}
}

func (h *MemoryHandler) Create(c *gin.Context) {
	patient := ownedPatient(c, h.db, c.Param("id"))
	if patient == nil {
		return
	}

	var req dto.CreateMemoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	memory := &models.Memory{
		PatientID:   patient.ID,
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Event:       req.Event,
		Location:    req.Location,
		People:      req.People,
		Importance:  req.Importance,
	}
	if err := h.db.CreateMemory(c.Request.Context(), memory); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, memory)
}

func (h *MemoryHandler) List(c *gin.Context) {
	patient := ownedPatient(c, h.db, c.Param("id"))
	if patient == nil {
		return
	}

	var (
		memories []models.Memory
		err      error
	)
	if person := c.Query("person"); person != "" {
		memories, err = h.db.MemoriesByPerson(c.Request.Context(), patient.ID, person)
	} else {
		memories, err = h.db.Memories(c.Request.Context(), patient.ID)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"memories": memories, "total": len(memories)})
}

func (h *MemoryHandler) Get(c *gin.Context) {
	patient := ownedPatient(c, h.db, c.Param("id"))
	if patient == nil {
		return
	}

	memoryID, err := uuid.Parse(c.Param("memoryId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid memory id"})
		return
	}

	memory, err := h.db.Memory(c.Request.Context(), memoryID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if memory == nil || memory.PatientID != patient.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "memory not found"})
		return
	}

	c.JSON(http.StatusOK, memory)
}

func (h *MemoryHandler) Delete(c *gin.Context) {
	patient := ownedPatient(c, h.db, c.Param("id"))
	if patient == nil {
		return
	}

	memoryID, err := uuid.Parse(c.Param("memoryId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid memory id"})
		return
	}

	// Delete stored photo objects first; orphaned rows are worse than
	// orphaned objects.
	photos, err := h.db.MemoryPhotos(c.Request.Context(), memoryID)
	if err == nil && len(photos) > 0 {
		keys := make([]string, 0, len(photos))
		for _, p := range photos {
			keys = append(keys, p.PhotoURL)
		}
		_ = h.minio.DeleteObjects(c.Request.Context(), keys)
	}

	if err := h.db.DeleteMemory(c.Request.Context(), memoryID, patient.ID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// AddPhoto accepts a multipart image upload for a memory, stores the
// object in MinIO and records the photo row with its people tags.
func (h *MemoryHandler) AddPhoto(c *gin.Context) {
	patient := ownedPatient(c, h.db, c.Param("id"))
	if patient == nil {
		return
	}

	memoryID, err := uuid.Parse(c.Param("memoryId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid memory id"})
		return
	}
	memory, err := h.db.Memory(c.Request.Context(), memoryID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if memory == nil || memory.PatientID != patient.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "memory not found"})
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file required"})
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read image failed"})
		return
	}

	key := "memories/" + patient.ID.String() + "/" + memoryID.String() + "/" + uuid.New().String() + "_" + header.Filename
	if err := h.minio.PutObject(c.Request.Context(), key, imageData, header.Header.Get("Content-Type")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store image failed"})
		return
	}

	index := len(memory.Photos)
	if v := c.PostForm("photo_index"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			index = n
		}
	}

	photo := &models.MemoryPhoto{
		MemoryID:    memoryID,
		PhotoURL:    key,
		PhotoIndex:  index,
		People:      c.PostFormArray("people"),
		Description: c.PostForm("description"),
	}
	if err := h.db.AddMemoryPhoto(c.Request.Context(), photo); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, photo)
}

// Photo streams a stored photo object back to the client. Keys are
// patient-scoped, so ownership is enforced by the prefix check.
func (h *MemoryHandler) Photo(c *gin.Context) {
	patient := ownedPatient(c, h.db, c.Param("id"))
	if patient == nil {
		return
	}

	key := c.Query("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key required"})
		return
	}
	if !keyBelongsToPatient(key, patient.ID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "photo not found"})
		return
	}

	data, contentType, err := h.minio.GetObject(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "photo not found"})
		return
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(http.StatusOK, contentType, data)
}

// TaggedPhotos returns photo URLs from the given memories whose
// photo-level tags include the person. Serves the companion's
// related-content fetch.
func (h *MemoryHandler) TaggedPhotos(c *gin.Context) {
	if ownedPatient(c, h.db, c.Param("id")) == nil {
		return
	}

	person := c.Query("person")
	if person == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "person required"})
		return
	}

	var ids []uuid.UUID
	for _, raw := range strings.Split(c.Query("memory_ids"), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid memory id: " + raw})
			return
		}
		ids = append(ids, id)
	}

	urls, err := h.db.TaggedPhotoURLs(c.Request.Context(), ids, person)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"photos": urls, "total": len(urls)})
}

// keyBelongsToPatient checks that the object key sits under one of the
// patient-scoped storage prefixes.
func keyBelongsToPatient(key string, patientID uuid.UUID) bool {
	id := patientID.String()
	return strings.HasPrefix(key, "memories/"+id+"/") ||
		strings.HasPrefix(key, "family/"+id+"/") ||
		strings.HasPrefix(key, "profiles/"+id+"/")
}

// Questions generates reminiscence questions for a photo, falling back
// to a static set when the external function is unavailable.
func (h *MemoryHandler) Questions(c *gin.Context) {
	if ownedPatient(c, h.db, c.Param("id")) == nil {
		return
	}

	var req dto.GenerateQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	qs := h.questions.Generate(c.Request.Context(), questions.PhotoContext{
		PhotoURL:    req.PhotoURL,
		MemoryTitle: req.MemoryTitle,
		Event:       req.Event,
		Location:    req.Location,
		People:      req.People,
		Description: req.Description,
	})
	c.JSON(http.StatusOK, gin.H{"questions": qs})
}
