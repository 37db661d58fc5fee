// Package ledgerhttp serves read-only ledger queries over HTTP.
package ledgerhttp

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/language"

	apperrors "github.com/louisbranch/objectledger/internal/platform/errors"
	"github.com/louisbranch/objectledger/internal/platform/errors/i18n"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/object"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/objectstore"
	"github.com/louisbranch/objectledger/internal/services/ledger/service"
)

// Config controls the HTTP surface.
type Config struct {
	// AllowOrigins lists CORS origins; empty allows any origin.
	AllowOrigins []string
}

type handlers struct {
	svc *service.Service
}

// NewRouter builds the gin engine for svc.
func NewRouter(svc *service.Service, cfg Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	corsConfig := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept-Language"},
		ExposeHeaders: []string{"Content-Length"},
	}
	if len(cfg.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowOrigins
	}
	r.Use(cors.New(corsConfig))

	h := handlers{svc: svc}
	r.GET("/healthz", h.health)
	v1 := r.Group("/v1")
	{
		v1.GET("/registry", h.registry)
		v1.GET("/proposals/:id", h.proposal)
		v1.GET("/proposals/:id/voters/:address", h.hasVoted)
		v1.GET("/events", h.events)
		v1.GET("/objects", h.objects)
		v1.GET("/objects/:id", h.object)
		v1.GET("/operations", h.operations)
	}
	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.WithFields(log.Fields{
			"service": "http",
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
		}).Debug("http request")
	}
}

func (h handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h handlers) registry(c *gin.Context) {
	info, err := h.svc.RegistryInfo(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h handlers) proposal(c *gin.Context) {
	info, err := h.svc.ProposalInfo(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h handlers) hasVoted(c *gin.Context) {
	voted, err := h.svc.HasVoted(c.Request.Context(), c.Param("id"), c.Param("address"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"voted": voted})
}

func (h handlers) events(c *gin.Context) {
	afterSeq, err := queryUint(c, "after_seq")
	if err != nil {
		writeError(c, err)
		return
	}
	pageSize, err := queryUint(c, "page_size")
	if err != nil {
		writeError(c, err)
		return
	}
	page, err := h.svc.ListEvents(c.Request.Context(), afterSeq, int(pageSize), c.Query("filter"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h handlers) objects(c *gin.Context) {
	limit, err := queryUint(c, "limit")
	if err != nil {
		writeError(c, err)
		return
	}
	objs, err := h.svc.ListObjects(c.Request.Context(), objectstore.Filter{
		Type:  strings.TrimSpace(c.Query("type")),
		Owner: object.Address(strings.TrimSpace(c.Query("owner"))),
		Limit: int(limit),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	if objs == nil {
		objs = []object.Object{}
	}
	c.JSON(http.StatusOK, gin.H{"objects": objs})
}

func (h handlers) object(c *gin.Context) {
	obj, err := h.svc.GetObject(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, obj)
}

func (h handlers) operations(c *gin.Context) {
	defs := h.svc.Operations()
	out := make([]gin.H, 0, len(defs))
	for _, def := range defs {
		out = append(out, gin.H{"kind": def.Kind, "description": def.Description})
	}
	c.JSON(http.StatusOK, gin.H{"operations": out})
}

func queryUint(c *gin.Context, key string) (uint64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, apperrors.WithMetadata(apperrors.CodeInvalidArgument, "invalid "+key, map[string]string{
			"Field":  key,
			"Reason": "must be a non-negative integer",
		})
	}
	return value, nil
}

// statusFor maps an error code to an HTTP status.
func statusFor(code apperrors.Code) int {
	switch code {
	case apperrors.CodeInvalidArgument, apperrors.CodeUnknownOperation, apperrors.CodeTypeMismatch:
		return http.StatusBadRequest
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeUnauthorized:
		return http.StatusForbidden
	case apperrors.CodeVersionConflict, apperrors.CodeAlreadyVoted, apperrors.CodeInvariantViolation:
		return http.StatusConflict
	case apperrors.CodeStorageExhausted:
		return http.StatusInsufficientStorage
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	code := apperrors.GetCode(err)
	status := statusFor(code)
	if status == http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.FullPath()).Error("http query failed")
		c.JSON(status, gin.H{"code": string(apperrors.CodeUnknown), "message": "an unexpected error occurred"})
		return
	}
	catalog := i18n.GetCatalog(preferredLocale(c.GetHeader("Accept-Language")))
	c.JSON(status, gin.H{
		"code":    string(code),
		"message": catalog.Format(string(code), apperrors.GetMetadata(err)),
	})
}

// preferredLocale picks the highest weighted tag of an Accept-Language header.
func preferredLocale(header string) string {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return ""
	}
	return tags[0].String()
}
