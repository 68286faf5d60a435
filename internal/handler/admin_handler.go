package handler

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/anton-kx/timetable-api/internal/service"
	appErrors "github.com/anton-kx/timetable-api/pkg/errors"
	"github.com/anton-kx/timetable-api/pkg/response"
	"github.com/anton-kx/timetable-api/pkg/storage"
)

// AdminHandler exposes the operator endpoints: triggering a sync run and
// importing individual files or shared sheets.
type AdminHandler struct {
	sync     *service.SyncService
	importer *service.ImportService
	spool    *storage.Spool
}

// NewAdminHandler constructs an admin handler. Uploaded files are staged in
// the download spool before parsing and discarded afterwards.
func NewAdminHandler(sync *service.SyncService, importer *service.ImportService, spool *storage.Spool) *AdminHandler {
	return &AdminHandler{sync: sync, importer: importer, spool: spool}
}

// fileOutcomeView is the JSON shape of one file's result in a sync run.
type fileOutcomeView struct {
	URL      string `json:"url"`
	Status   string `json:"status"`
	Inserted int    `json:"inserted,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Sync runs a full discovery pass and reports the per-file outcomes.
func (h *AdminHandler) Sync(c *gin.Context) {
	outcomes, err := h.sync.Sync(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	views := make([]fileOutcomeView, 0, len(outcomes))
	for _, o := range outcomes {
		view := fileOutcomeView{URL: o.URL, Status: string(o.Status), Inserted: o.Inserted}
		if o.Err != nil {
			view.Error = o.Err.Error()
		}
		views = append(views, view)
	}
	response.JSON(c, http.StatusOK, views, nil)
}

// ImportFile accepts a multipart upload of one .xlsx or .csv file.
func (h *AdminHandler) ImportFile(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file field is required"))
		return
	}

	src, err := file.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer src.Close() //nolint:errcheck

	staged, err := h.spool.SaveStream(uuid.NewString()+filepath.Ext(file.Filename), src)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stage upload"))
		return
	}
	defer h.spool.Discard(staged) //nolint:errcheck

	result, err := h.importer.ImportFile(c.Request.Context(), staged, file.Filename)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

type importSheetRequest struct {
	URL string `json:"url" binding:"required"`
}

// ImportSheet ingests a publicly shared spreadsheet by URL.
func (h *AdminHandler) ImportSheet(c *gin.Context) {
	var req importSheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "url is required"))
		return
	}

	result, err := h.importer.ImportSheet(c.Request.Context(), req.URL)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
