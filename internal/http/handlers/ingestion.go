package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/radflow-backend/internal/domain"
	domainagg "github.com/yungbote/radflow-backend/internal/domain/aggregates"
	"github.com/yungbote/radflow-backend/internal/http/response"
	"github.com/yungbote/radflow-backend/internal/platform/apierr"
	"github.com/yungbote/radflow-backend/internal/services"
)

type IngestionHandler struct {
	ingestion   services.IngestionService
	intake      services.IntakeService
	maxFileSize int64
}

func NewIngestionHandler(ingestion services.IngestionService, intake services.IntakeService, maxFileSize int64) *IngestionHandler {
	return &IngestionHandler{ingestion: ingestion, intake: intake, maxFileSize: maxFileSize}
}

type ingestRequest struct {
	OrderID   string            `json:"order_id" binding:"required"`
	MachineID string            `json:"machine_id" binding:"required"`
	PatientID string            `json:"patient_id" binding:"required"`
	FilePath  string            `json:"file_path"`
	Metadata  map[string]string `json:"metadata" binding:"required"`
}

type ingestResponse struct {
	Study         *types.Study    `json:"study"`
	Series        *types.Series   `json:"series"`
	Instance      *types.Instance `json:"instance"`
	StudyCreated  bool            `json:"study_created"`
	SeriesCreated bool            `json:"series_created"`
}

func toIngestResponse(res domainagg.IngestResult) ingestResponse {
	return ingestResponse{
		Study:         res.Study,
		Series:        res.Series,
		Instance:      res.Instance,
		StudyCreated:  res.StudyCreated,
		SeriesCreated: res.SeriesCreated,
	}
}

// Ingest registers an already archived instance. The caller is the performing technician.
func (h *IngestionHandler) Ingest(c *gin.Context) {
	userID, err := caller(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	cmd := services.IngestCommand{
		TechnicianID: userID,
		FilePath:     strings.TrimSpace(req.FilePath),
		Metadata:     types.Metadata(req.Metadata),
	}
	if cmd.OrderID, err = parseUUIDField("order_id", req.OrderID); err != nil {
		response.RespondErr(c, err)
		return
	}
	if cmd.MachineID, err = parseUUIDField("machine_id", req.MachineID); err != nil {
		response.RespondErr(c, err)
		return
	}
	if cmd.PatientID, err = parseUUIDField("patient_id", req.PatientID); err != nil {
		response.RespondErr(c, err)
		return
	}

	res, err := h.ingestion.Ingest(c.Request.Context(), cmd)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, toIngestResponse(res))
}

// UploadAcquisition accepts a multipart DICOM file, archives it and ingests it.
func (h *IngestionHandler) UploadAcquisition(c *gin.Context) {
	userID, err := caller(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}
	if h.maxFileSize > 0 && fh.Size > h.maxFileSize {
		response.RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large", nil)
		return
	}

	acq := services.Acquisition{TechnicianID: userID}
	if acq.OrderID, err = parseUUIDField("order_id", c.PostForm("order_id")); err != nil {
		response.RespondErr(c, err)
		return
	}
	if acq.MachineID, err = parseUUIDField("machine_id", c.PostForm("machine_id")); err != nil {
		response.RespondErr(c, err)
		return
	}
	if acq.PatientID, err = parseUUIDField("patient_id", c.PostForm("patient_id")); err != nil {
		response.RespondErr(c, err)
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.RespondErr(c, apierr.New(http.StatusBadRequest, "unreadable_file", err))
		return
	}
	defer f.Close()
	if acq.Data, err = io.ReadAll(f); err != nil {
		response.RespondErr(c, apierr.New(http.StatusBadRequest, "unreadable_file", err))
		return
	}

	res, err := h.intake.Accept(c.Request.Context(), acq)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, toIngestResponse(res))
}
