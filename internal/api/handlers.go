package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ivf-outcome-server/internal/domain"
	"github.com/ivf-outcome-server/internal/stats"
)

// statsSampleSize bounds how many recent predictions feed the cohort
// statistics endpoint.
const statsSampleSize = 500

// predictionRequest is the wire form of one transfer scenario. Genetic
// status arrives flat (kind plus optional mosaic level) and is parsed into
// the internal representation before computation.
type predictionRequest struct {
	OocyteAge      int    `json:"oocyte_age"`
	EmbryoDay      int    `json:"embryo_day"`
	Expansion      int    `json:"expansion"`
	ICM            string `json:"icm"`
	TE             string `json:"te"`
	GeneticStatus  string `json:"genetic_status"`
	MosaicLevel    string `json:"mosaic_level"`
	HatchingStatus string `json:"hatching_status"`
	TransferType   string `json:"transfer_type"`
}

// toInput converts the wire form into a domain input. Only the genetic
// status composite is parsed here; the remaining categoricals are validated
// downstream so every field error carries its sentinel.
func (r predictionRequest) toInput() (domain.TransferInput, error) {
	genetics, err := domain.ParseGeneticStatus(
		domain.GeneticStatusKind(r.GeneticStatus),
		domain.MosaicLevel(r.MosaicLevel),
	)
	if err != nil {
		return domain.TransferInput{}, err
	}

	in := domain.TransferInput{
		OocyteAge: r.OocyteAge,
		Day:       domain.EmbryoDay(r.EmbryoDay),
		Grade: domain.BlastocystGrade{
			Expansion: r.Expansion,
			ICM:       domain.Grade(r.ICM),
			TE:        domain.Grade(r.TE),
		},
		Genetics: genetics,
		Hatching: domain.HatchingStatus(r.HatchingStatus),
		Transfer: domain.TransferType(r.TransferType),
	}
	if err := in.Validate(); err != nil {
		return domain.TransferInput{}, err
	}
	return in, nil
}

// handleCreatePrediction computes an estimate for the submitted scenario
// and persists it. An out-of-range oocyte age is NOT a request error: it
// returns 201 with the sentinel estimate, matching the engine's
// total-function contract.
func (s *Server) handleCreatePrediction(c *gin.Context) {
	var req predictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput,
			"Request body is not valid JSON", err.Error())
		return
	}

	in, err := req.toInput()
	if err != nil {
		s.respondError(c, http.StatusUnprocessableEntity, domain.ErrCodeValidation,
			"Invalid transfer scenario", err.Error())
		return
	}

	rec, err := s.predictor.PredictAndSave(c.Request.Context(), in)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeInternalServer,
			"Failed to compute prediction", err.Error())
		return
	}

	c.JSON(http.StatusCreated, rec)
}

// handleGetPrediction retrieves a saved prediction by ID.
func (s *Server) handleGetPrediction(c *gin.Context) {
	id := c.Param("id")

	rec, err := s.predictor.GetPrediction(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.respondError(c, http.StatusNotFound, domain.ErrCodeNotFound,
				"Prediction not found", "no prediction with id "+id)
			return
		}
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeDatabaseError,
			"Failed to load prediction", err.Error())
		return
	}

	c.JSON(http.StatusOK, rec)
}

// handleListPredictions returns saved predictions, newest first.
func (s *Server) handleListPredictions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	recs, err := s.predictor.ListPredictions(c.Request.Context(), limit, offset)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeDatabaseError,
			"Failed to list predictions", err.Error())
		return
	}

	total, err := s.predictor.CountPredictions(c.Request.Context())
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeDatabaseError,
			"Failed to count predictions", err.Error())
		return
	}

	if recs == nil {
		recs = []*domain.PredictionRecord{}
	}
	c.JSON(http.StatusOK, gin.H{
		"predictions": recs,
		"total":       total,
	})
}

// handleStats summarizes the live-birth distribution of recent predictions.
func (s *Server) handleStats(c *gin.Context) {
	recs, err := s.predictor.ListPredictions(c.Request.Context(), statsSampleSize, 0)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeDatabaseError,
			"Failed to load predictions for statistics", err.Error())
		return
	}

	c.JSON(http.StatusOK, stats.Summarize(recs))
}

// handleReferences returns the static citations and methodology backing the
// current engine version.
func (s *Server) handleReferences(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"engine_version": domain.EngineVersion,
		"methodology":    domain.Methodology,
		"references":     domain.References(),
	})
}

func (s *Server) respondError(c *gin.Context, status int, code, message, details string) {
	apiErr := domain.NewAPIError(code, message, details, c.GetString("correlation_id"))
	s.logger.WithFields(map[string]any{
		"status":         status,
		"code":           code,
		"correlation_id": apiErr.CorrelationID,
		"details":        details,
	}).Warn(message)
	c.JSON(status, apiErr)
}
