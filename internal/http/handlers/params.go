package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/radflow-backend/internal/domain"
	"github.com/yungbote/radflow-backend/internal/domain/imaging"
	"github.com/yungbote/radflow-backend/internal/platform/apierr"
	"github.com/yungbote/radflow-backend/internal/platform/ctxutil"
)

var errUnauthenticated = apierr.New(http.StatusUnauthorized, "unauthorized", errors.New("missing caller identity"))

func uuidParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, apierr.New(http.StatusBadRequest, "invalid_"+name, errors.New("invalid "+name))
	}
	return id, nil
}

func parseUUIDField(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, apierr.New(http.StatusBadRequest, "invalid_"+field, errors.New(field+" must be a uuid"))
	}
	return id, nil
}

// caller returns the authenticated user id.
func caller(c *gin.Context) (uuid.UUID, error) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		return uuid.Nil, errUnauthenticated
	}
	return rd.UserID, nil
}

// signatureTypeParam accepts TECHNICIAN_VERIFY as well as technician-verify.
func signatureTypeParam(c *gin.Context) (types.SignatureType, error) {
	raw := strings.ReplaceAll(c.Param("type"), "-", "_")
	st, ok := imaging.ParseSignatureType(raw)
	if !ok {
		return "", apierr.New(http.StatusBadRequest, "invalid_signature_type", errors.New("unknown signature type"))
	}
	return st, nil
}
