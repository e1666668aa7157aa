package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainagg "github.com/yungbote/radflow-backend/internal/domain/aggregates"
	"github.com/yungbote/radflow-backend/internal/http/response"
	"github.com/yungbote/radflow-backend/internal/services"
)

type StudyHandler struct {
	studies  services.StudyQueryService
	signoff  services.SignoffService
	verifier services.SignatureVerifier
}

func NewStudyHandler(studies services.StudyQueryService, signoff services.SignoffService, verifier services.SignatureVerifier) *StudyHandler {
	return &StudyHandler{studies: studies, signoff: signoff, verifier: verifier}
}

func (h *StudyHandler) GetStudy(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	study, err := h.studies.GetStudy(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"study": study})
}

type signoffFunc func(ctx context.Context, studyID, userID uuid.UUID, pin string) (domainagg.SignoffResult, error)

type pinRequest struct {
	PIN string `json:"pin" binding:"required"`
}

func (h *StudyHandler) TechnicianVerify(c *gin.Context) {
	h.signoffWith(c, h.signoff.TechnicianVerify)
}

func (h *StudyHandler) RadiologistApprove(c *gin.Context) {
	h.signoffWith(c, h.signoff.RadiologistApprove)
}

func (h *StudyHandler) signoffWith(c *gin.Context, run signoffFunc) {
	userID, err := caller(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	var req pinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	res, err := run(c.Request.Context(), id, userID, req.PIN)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"study_id":       res.StudyID,
		"status":         res.Status,
		"signature_type": res.SignatureType,
		"signature_id":   res.SignatureID,
		"signed_at":      res.SignedAt,
	})
}

func (h *StudyHandler) VerifySignature(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	st, err := signatureTypeParam(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	res, err := h.verifier.Verify(c.Request.Context(), id, st)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, res)
}

func (h *StudyHandler) VerifyStudy(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	res, err := h.verifier.VerifyStudy(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	valid := len(res) > 0
	for _, r := range res {
		valid = valid && r.Valid
	}
	response.RespondOK(c, gin.H{"study_id": id, "valid": valid, "signatures": res})
}
